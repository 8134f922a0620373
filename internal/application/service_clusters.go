package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/barazo-forum/barazo-trust/internal/domain"
	"github.com/barazo-forum/barazo-trust/internal/ports"
)

const defaultPageSize = 25
const maxPageSize = 100

// ListClusters pages flagged clusters newest first. The cursor is a
// strict (detected_at, id) tuple so concurrent detections never repeat
// or skip rows between pages.
func (s *Service) ListClusters(ctx context.Context, actor Actor, status string, cursor *Cursor, limit int) (ClusterPage, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleModerator {
		return ClusterPage{}, fmt.Errorf("%w: cluster review requires a moderation role", domain.ErrForbidden)
	}
	if status != "" && !domain.ValidClusterStatus(status) {
		return ClusterPage{}, fmt.Errorf("%w: unknown cluster status %q", domain.ErrInvalidInput, status)
	}
	limit = clampLimit(limit)

	afterKey := time.Time{}
	afterID := uuid.Nil
	if cursor != nil {
		afterKey = cursor.SortKey
		afterID = cursor.ID
	}
	page, err := s.clusters.List(ctx, status, afterKey, afterID, limit)
	if err != nil {
		return ClusterPage{}, fmt.Errorf("list clusters: %w", err)
	}

	out := ClusterPage{Clusters: make([]ClusterSummary, 0, len(page.Clusters))}
	for _, c := range page.Clusters {
		out.Clusters = append(out.Clusters, ClusterSummary{SybilCluster: c, SuspicionRatio: c.SuspicionRatio()})
	}
	if page.HasMore && len(page.Clusters) > 0 {
		last := page.Clusters[len(page.Clusters)-1]
		out.NextCursor = &Cursor{SortKey: last.DetectedAt, ID: last.ID}
	}
	return out, nil
}

// GetCluster returns one cluster with member rows joined against account
// state and current trust scores.
func (s *Service) GetCluster(ctx context.Context, actor Actor, id uuid.UUID) (ClusterDetail, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleModerator {
		return ClusterDetail{}, fmt.Errorf("%w: cluster review requires a moderation role", domain.ErrForbidden)
	}
	cluster, err := s.clusters.Get(ctx, id)
	if err != nil {
		return ClusterDetail{}, err
	}
	members, err := s.clusters.Members(ctx, id)
	if err != nil {
		return ClusterDetail{}, fmt.Errorf("load cluster members: %w", err)
	}

	dids := make([]string, len(members))
	for i, m := range members {
		dids[i] = m.Did
	}
	accounts, err := s.accounts.GetMany(ctx, dids)
	if err != nil {
		return ClusterDetail{}, fmt.Errorf("load member accounts: %w", err)
	}
	scores, err := s.scores.GetMany(ctx, dids)
	if err != nil {
		return ClusterDetail{}, fmt.Errorf("load member scores: %w", err)
	}

	detail := ClusterDetail{
		ClusterSummary: ClusterSummary{SybilCluster: cluster, SuspicionRatio: cluster.SuspicionRatio()},
		Members:        make([]MemberDetail, 0, len(members)),
	}
	for _, m := range members {
		md := MemberDetail{
			Did:           m.Did,
			RoleInCluster: m.RoleInCluster,
			JoinedAt:      m.JoinedAt,
			TrustScore:    scores[m.Did],
		}
		if acct, ok := accounts[m.Did]; ok {
			md.IsBanned = acct.IsBanned
			md.Standing = acct.Standing
			md.PdsHost = acct.PdsHost
		}
		detail.Members = append(detail.Members, md)
	}
	return detail, nil
}

// TransitionCluster moves a cluster through its lifecycle. Banning runs
// the cascade: core members are banned, peripheral members flagged for
// monitoring, all inside one transaction with the audit event. Re-banning
// a banned cluster is accepted and does nothing.
func (s *Service) TransitionCluster(ctx context.Context, actor Actor, id uuid.UUID, to string) (domain.SybilCluster, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleModerator {
		return domain.SybilCluster{}, fmt.Errorf("%w: cluster review requires a moderation role", domain.ErrForbidden)
	}
	if !domain.ValidClusterStatus(to) {
		return domain.SybilCluster{}, fmt.Errorf("%w: unknown cluster status %q", domain.ErrInvalidInput, to)
	}
	cluster, err := s.clusters.Get(ctx, id)
	if err != nil {
		return domain.SybilCluster{}, err
	}
	if cluster.Status == domain.ClusterBanned && to == domain.ClusterBanned {
		return cluster, nil
	}
	if !domain.CanTransitionCluster(cluster.Status, to) {
		return domain.SybilCluster{}, fmt.Errorf("%w: cluster %s: %s -> %s",
			domain.ErrInvalidTransition, id, cluster.Status, to)
	}
	now := s.nowFn()

	if to == domain.ClusterBanned {
		if err := s.banCluster(ctx, actor, cluster, now); err != nil {
			return domain.SybilCluster{}, err
		}
	} else {
		event := statusEvent(cluster, to, actor.Did, now)
		if err := s.clusters.UpdateStatus(ctx, id, to, actor.Did, now, event); err != nil {
			return domain.SybilCluster{}, fmt.Errorf("update cluster status: %w", err)
		}
	}

	cluster.Status = to
	cluster.ReviewedBy = actor.Did
	cluster.ReviewedAt = &now
	cluster.UpdatedAt = now
	return cluster, nil
}

// banCluster builds and applies the ban plan for one cluster.
func (s *Service) banCluster(ctx context.Context, actor Actor, cluster domain.SybilCluster, now time.Time) error {
	members, err := s.clusters.Members(ctx, cluster.ID)
	if err != nil {
		return fmt.Errorf("load cluster members: %w", err)
	}
	plan := ports.ClusterBanPlan{
		ClusterID:  cluster.ID,
		ReviewedBy: actor.Did,
		At:         now,
	}
	for _, m := range members {
		if m.RoleInCluster == domain.ClusterRoleCore {
			plan.BanDids = append(plan.BanDids, m.Did)
		} else {
			plan.MonitorDids = append(plan.MonitorDids, m.Did)
		}
	}
	event := newOutboxEvent(domain.EventClusterBanned, cluster.ID.String(), now, map[string]any{
		"cluster_id":   cluster.ID.String(),
		"cluster_hash": cluster.ClusterHash,
		"banned_dids":  plan.BanDids,
		"monitor_dids": plan.MonitorDids,
		"reviewed_by":  actor.Did,
	})
	if err := s.clusters.ApplyBanPlan(ctx, plan, event); err != nil {
		return fmt.Errorf("apply cluster ban: %w", err)
	}
	return nil
}

func statusEvent(cluster domain.SybilCluster, to, reviewedBy string, at time.Time) ports.OutboxEvent {
	return newOutboxEvent(domain.EventClusterStatusChanged, cluster.ID.String(), at, map[string]any{
		"cluster_id":  cluster.ID.String(),
		"from":        cluster.Status,
		"to":          to,
		"reviewed_by": reviewedBy,
	})
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
