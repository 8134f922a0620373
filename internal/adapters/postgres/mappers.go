package postgres

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/barazo-forum/barazo-trust/internal/domain"
)

func toDomainAccount(row accountModel) domain.Account {
	return domain.Account{
		Did:             row.Did,
		Role:            row.Role,
		IsBanned:        row.IsBanned,
		Standing:        row.Standing,
		PdsHost:         row.PdsHost,
		ReputationScore: row.ReputationScore,
		FirstSeenAt:     row.FirstSeenAt,
		BannedAt:        row.BannedAt,
	}
}

func toDomainEdge(row interactionEdgeModel) domain.InteractionEdge {
	return domain.InteractionEdge{
		SourceDid:         row.SourceDid,
		TargetDid:         row.TargetDid,
		Weight:            row.Weight,
		LastInteractionAt: row.LastInteractionAt,
	}
}

func toDomainCluster(row sybilClusterModel) domain.SybilCluster {
	reviewedBy := ""
	if row.ReviewedBy != nil {
		reviewedBy = *row.ReviewedBy
	}
	return domain.SybilCluster{
		ID:                row.ClusterID,
		ClusterHash:       row.ClusterHash,
		InternalEdgeCount: row.InternalEdgeCount,
		ExternalEdgeCount: row.ExternalEdgeCount,
		MemberCount:       row.MemberCount,
		Status:            row.Status,
		ReviewedBy:        reviewedBy,
		ReviewedAt:        row.ReviewedAt,
		DetectedAt:        row.DetectedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

func toDomainMember(row clusterMemberModel) domain.SybilClusterMember {
	return domain.SybilClusterMember{
		ClusterID:     row.ClusterID,
		Did:           row.Did,
		RoleInCluster: row.RoleInCluster,
		JoinedAt:      row.JoinedAt,
	}
}

func toDomainFlag(row behavioralFlagModel) domain.BehavioralFlag {
	var dids []string
	_ = json.Unmarshal([]byte(row.AffectedDids), &dids)
	return domain.BehavioralFlag{
		ID:           row.FlagID,
		FlagType:     row.FlagType,
		AffectedDids: dids,
		Details:      row.Details,
		CommunityDid: row.CommunityDid,
		Status:       row.Status,
		DetectedAt:   row.DetectedAt,
	}
}

func toDomainQueueEntry(row moderationQueueModel) domain.ModerationQueueEntry {
	var words []string
	_ = json.Unmarshal([]byte(row.MatchedWords), &words)
	var reasons []domain.HoldReason
	_ = json.Unmarshal([]byte(row.Reasons), &reasons)
	return domain.ModerationQueueEntry{
		ID:           row.EntryID,
		ContentURI:   row.ContentURI,
		ContentType:  row.ContentType,
		AuthorDid:    row.AuthorDid,
		CommunityDid: row.CommunityDid,
		QueueReason:  row.QueueReason,
		MatchedWords: words,
		Reasons:      reasons,
		CreatedAt:    row.CreatedAt,
	}
}

func jsonUnmarshalColumn(raw string, dst any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

func jsonColumn(v any) string {
	raw, err := json.Marshal(v)
	if err != nil || len(raw) == 0 {
		return "[]"
	}
	return string(raw)
}

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
