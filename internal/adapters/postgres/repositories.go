package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/barazo-forum/barazo-trust/internal/domain"
	"github.com/barazo-forum/barazo-trust/internal/ports"
)

type Repositories struct {
	Edges       ports.EdgeRepository
	Accounts    ports.AccountRepository
	Seeds       ports.TrustSeedRepository
	PdsFactors  ports.PdsTrustRepository
	Scores      ports.TrustScoreRepository
	Clusters    ports.ClusterRepository
	Flags       ports.FlagRepository
	Queue       ports.ModerationQueueRepository
	Communities ports.CommunityRepository
	Outbox      ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Edges:       &edgeRepository{db: db},
		Accounts:    &accountRepository{db: db},
		Seeds:       &seedRepository{db: db},
		PdsFactors:  &pdsFactorRepository{db: db},
		Scores:      &scoreRepository{db: db},
		Clusters:    &clusterRepository{db: db},
		Flags:       &flagRepository{db: db},
		Queue:       &queueRepository{db: db},
		Communities: &communityRepository{db: db},
		Outbox:      &outboxRepository{db: db},
	}
}

type edgeRepository struct {
	db *gorm.DB
}

// Accumulate upserts one canonical edge, adding weight on conflict so
// repeated interaction strengthens the link instead of duplicating rows.
func (r *edgeRepository) Accumulate(ctx context.Context, source, target string, weight float64, at time.Time) error {
	rec := interactionEdgeModel{
		SourceDid:         source,
		TargetDid:         target,
		Weight:            weight,
		LastInteractionAt: at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source_did"}, {Name: "target_did"}},
		DoUpdates: clause.Assignments(map[string]any{
			"weight":              gorm.Expr("interaction_edges.weight + ?", weight),
			"last_interaction_at": at,
		}),
	}).Create(&rec).Error
}

func (r *edgeRepository) ListAll(ctx context.Context) ([]domain.InteractionEdge, error) {
	var rows []interactionEdgeModel
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	edges := make([]domain.InteractionEdge, 0, len(rows))
	for _, row := range rows {
		edges = append(edges, toDomainEdge(row))
	}
	return edges, nil
}

func (r *edgeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&interactionEdgeModel{}).Count(&count).Error
	return count, err
}

func (r *edgeRepository) NeighborsAbove(ctx context.Context, did string, minWeight float64) ([]string, error) {
	var rows []interactionEdgeModel
	if err := r.db.WithContext(ctx).
		Where("(source_did = ? OR target_did = ?) AND weight >= ?", did, did, minWeight).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	neighbors := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.SourceDid == did {
			neighbors = append(neighbors, row.TargetDid)
		} else {
			neighbors = append(neighbors, row.SourceDid)
		}
	}
	return neighbors, nil
}

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) Get(ctx context.Context, did string) (domain.Account, error) {
	var rec accountModel
	if err := r.db.WithContext(ctx).Where("did = ?", did).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, err
	}
	return toDomainAccount(rec), nil
}

func (r *accountRepository) ListByRoles(ctx context.Context, roles []string) ([]domain.Account, error) {
	var rows []accountModel
	if err := r.db.WithContext(ctx).Where("role IN ?", roles).Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, toDomainAccount(row))
	}
	return accounts, nil
}

func (r *accountRepository) GetMany(ctx context.Context, dids []string) (map[string]domain.Account, error) {
	result := make(map[string]domain.Account, len(dids))
	if len(dids) == 0 {
		return result, nil
	}
	var rows []accountModel
	if err := r.db.WithContext(ctx).Where("did IN ?", dids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.Did] = toDomainAccount(row)
	}
	return result, nil
}

func (r *accountRepository) PostCount(ctx context.Context, did string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&postModel{}).Where("author_did = ?", did).Count(&count).Error
	return int(count), err
}

func (r *accountRepository) RecentPostCount(ctx context.Context, did string, window time.Duration, now time.Time) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&postModel{}).
		Where("author_did = ? AND created_at > ?", did, now.Add(-window)).
		Count(&count).Error
	return int(count), err
}

func (r *accountRepository) SetStanding(ctx context.Context, did, standing string, banned bool, at time.Time) error {
	updates := map[string]any{
		"standing":   standing,
		"is_banned":  banned,
		"updated_at": at,
	}
	if banned {
		updates["banned_at"] = at
	}
	res := r.db.WithContext(ctx).Model(&accountModel{}).Where("did = ?", did).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MonitorAll demotes the whole did set and records the audit event in one
// transaction. Already-banned accounts keep their banned standing.
func (r *accountRepository) MonitorAll(ctx context.Context, dids []string, at time.Time, event ports.OutboxEvent) error {
	if len(dids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&accountModel{}).
			Where("did IN ? AND NOT is_banned", dids).
			Updates(map[string]any{
				"standing":   domain.StandingMonitored,
				"updated_at": at,
			}).Error; err != nil {
			return err
		}
		return createOutboxRow(tx, event)
	})
}

type seedRepository struct {
	db *gorm.DB
}

func (r *seedRepository) List(ctx context.Context) ([]domain.TrustSeed, error) {
	var rows []trustSeedModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	seeds := make([]domain.TrustSeed, 0, len(rows))
	for _, row := range rows {
		seeds = append(seeds, domain.TrustSeed{
			Did:       row.Did,
			AddedBy:   row.AddedBy,
			Reason:    row.Reason,
			CreatedAt: row.CreatedAt,
		})
	}
	return seeds, nil
}

func (r *seedRepository) Add(ctx context.Context, seed domain.TrustSeed) error {
	rec := trustSeedModel{
		Did:       seed.Did,
		AddedBy:   seed.AddedBy,
		Reason:    seed.Reason,
		CreatedAt: seed.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *seedRepository) Remove(ctx context.Context, did string) error {
	res := r.db.WithContext(ctx).Where("did = ?", did).Delete(&trustSeedModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type pdsFactorRepository struct {
	db *gorm.DB
}

func (r *pdsFactorRepository) List(ctx context.Context) ([]domain.PdsTrustFactor, error) {
	var rows []pdsTrustFactorModel
	if err := r.db.WithContext(ctx).Order("pds_host ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	factors := make([]domain.PdsTrustFactor, 0, len(rows))
	for _, row := range rows {
		factors = append(factors, domain.PdsTrustFactor{
			PdsHost:     row.PdsHost,
			TrustFactor: row.TrustFactor,
			IsDefault:   row.IsDefault,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return factors, nil
}

// Upsert writes one factor row. Promoting a row to default demotes the
// previous default in the same transaction so exactly one default row
// exists at any time.
func (r *pdsFactorRepository) Upsert(ctx context.Context, factor domain.PdsTrustFactor) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if factor.IsDefault {
			if err := tx.Model(&pdsTrustFactorModel{}).
				Where("is_default AND pds_host <> ?", factor.PdsHost).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		rec := pdsTrustFactorModel{
			PdsHost:     factor.PdsHost,
			TrustFactor: factor.TrustFactor,
			IsDefault:   factor.IsDefault,
			UpdatedAt:   factor.UpdatedAt,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pds_host"}},
			DoUpdates: clause.AssignmentColumns([]string{"trust_factor", "is_default", "updated_at"}),
		}).Create(&rec).Error
	})
}

func (r *pdsFactorRepository) Default(ctx context.Context) (domain.PdsTrustFactor, error) {
	var rec pdsTrustFactorModel
	if err := r.db.WithContext(ctx).Where("is_default").Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PdsTrustFactor{}, domain.ErrNotFound
		}
		return domain.PdsTrustFactor{}, err
	}
	return domain.PdsTrustFactor{
		PdsHost:     rec.PdsHost,
		TrustFactor: rec.TrustFactor,
		IsDefault:   rec.IsDefault,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}

type scoreRepository struct {
	db *gorm.DB
}

// ReplaceAll swaps the whole score table, records the run and enqueues
// the completion event in one transaction. Readers either see the old
// graph or the new one, never a mix.
func (r *scoreRepository) ReplaceAll(ctx context.Context, scores []domain.TrustScore, stats ports.TrustRunStats, event ports.OutboxEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM trust_scores").Error; err != nil {
			return err
		}
		if len(scores) > 0 {
			rows := make([]trustScoreModel, 0, len(scores))
			for _, s := range scores {
				rows = append(rows, trustScoreModel{
					Did:        s.Did,
					Score:      s.Score,
					ComputedAt: s.ComputedAt,
				})
			}
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				return err
			}
		}
		run := trustRunModel{
			RunID:      stats.RunID,
			TotalNodes: stats.TotalNodes,
			TotalEdges: stats.TotalEdges,
			Iterations: stats.Iterations,
			Converged:  stats.Converged,
			DurationMs: stats.DurationMs,
			ComputedAt: stats.ComputedAt,
		}
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		return createOutboxRow(tx, event)
	})
}

func (r *scoreRepository) Get(ctx context.Context, did string) (domain.TrustScore, error) {
	var rec trustScoreModel
	if err := r.db.WithContext(ctx).Where("did = ?", did).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TrustScore{}, domain.ErrNotFound
		}
		return domain.TrustScore{}, err
	}
	return domain.TrustScore{Did: rec.Did, Score: rec.Score, ComputedAt: rec.ComputedAt}, nil
}

func (r *scoreRepository) GetMany(ctx context.Context, dids []string) (map[string]float64, error) {
	result := make(map[string]float64, len(dids))
	if len(dids) == 0 {
		return result, nil
	}
	var rows []trustScoreModel
	if err := r.db.WithContext(ctx).Where("did IN ?", dids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.Did] = row.Score
	}
	return result, nil
}

func (r *scoreRepository) LastRun(ctx context.Context) (ports.TrustRunStats, error) {
	var rec trustRunModel
	if err := r.db.WithContext(ctx).Order("computed_at DESC").Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.TrustRunStats{}, domain.ErrNotFound
		}
		return ports.TrustRunStats{}, err
	}
	return ports.TrustRunStats{
		RunID:      rec.RunID,
		TotalNodes: rec.TotalNodes,
		TotalEdges: rec.TotalEdges,
		Iterations: rec.Iterations,
		Converged:  rec.Converged,
		DurationMs: rec.DurationMs,
		ComputedAt: rec.ComputedAt,
	}, nil
}

type clusterRepository struct {
	db *gorm.DB
}

// ReconcileDetected upserts detections by hash. A hash matching a
// non-dismissed cluster updates counts and membership in place; anything
// else inserts as a fresh flagged cluster with detected_at = at, which is
// how callers distinguish new detections from refreshed ones.
func (r *clusterRepository) ReconcileDetected(ctx context.Context, detected []domain.DetectedCluster, at time.Time) ([]domain.SybilCluster, error) {
	var out []domain.SybilCluster
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range detected {
			var existing sybilClusterModel
			err := tx.Where("cluster_hash = ? AND status <> ?", d.ClusterHash, domain.ClusterDismissed).
				Take(&existing).Error
			switch {
			case err == nil:
				updates := map[string]any{
					"internal_edge_count": d.InternalEdgeCount,
					"external_edge_count": d.ExternalEdgeCount,
					"member_count":        len(d.Members),
					"updated_at":          at,
				}
				if err := tx.Model(&sybilClusterModel{}).
					Where("cluster_id = ?", existing.ClusterID).
					Updates(updates).Error; err != nil {
					return err
				}
				if err := replaceMembers(tx, existing.ClusterID, d.Members, at); err != nil {
					return err
				}
				existing.InternalEdgeCount = d.InternalEdgeCount
				existing.ExternalEdgeCount = d.ExternalEdgeCount
				existing.MemberCount = len(d.Members)
				existing.UpdatedAt = at
				out = append(out, toDomainCluster(existing))
			case errors.Is(err, gorm.ErrRecordNotFound):
				rec := sybilClusterModel{
					ClusterID:         uuid.New(),
					ClusterHash:       d.ClusterHash,
					InternalEdgeCount: d.InternalEdgeCount,
					ExternalEdgeCount: d.ExternalEdgeCount,
					MemberCount:       len(d.Members),
					Status:            domain.ClusterFlagged,
					DetectedAt:        at,
					UpdatedAt:         at,
				}
				if err := tx.Create(&rec).Error; err != nil {
					return err
				}
				if err := replaceMembers(tx, rec.ClusterID, d.Members, at); err != nil {
					return err
				}
				out = append(out, toDomainCluster(rec))
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func replaceMembers(tx *gorm.DB, clusterID uuid.UUID, members []domain.DetectedMember, at time.Time) error {
	if err := tx.Where("cluster_id = ?", clusterID).Delete(&clusterMemberModel{}).Error; err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	rows := make([]clusterMemberModel, 0, len(members))
	for _, m := range members {
		rows = append(rows, clusterMemberModel{
			ClusterID:     clusterID,
			Did:           m.Did,
			RoleInCluster: m.Role,
			JoinedAt:      at,
		})
	}
	return tx.CreateInBatches(rows, 500).Error
}

func (r *clusterRepository) List(ctx context.Context, status string, afterKey time.Time, afterID uuid.UUID, limit int) (ports.ClusterPage, error) {
	q := r.db.WithContext(ctx).Model(&sybilClusterModel{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if !afterKey.IsZero() {
		q = q.Where("(detected_at, cluster_id) < (?, ?)", afterKey, afterID)
	}

	var rows []sybilClusterModel
	if err := q.Order("detected_at DESC, cluster_id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return ports.ClusterPage{}, err
	}
	page := ports.ClusterPage{HasMore: len(rows) > limit}
	if page.HasMore {
		rows = rows[:limit]
	}
	for _, row := range rows {
		page.Clusters = append(page.Clusters, toDomainCluster(row))
	}
	return page, nil
}

func (r *clusterRepository) Get(ctx context.Context, id uuid.UUID) (domain.SybilCluster, error) {
	var rec sybilClusterModel
	if err := r.db.WithContext(ctx).Where("cluster_id = ?", id).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SybilCluster{}, domain.ErrNotFound
		}
		return domain.SybilCluster{}, err
	}
	return toDomainCluster(rec), nil
}

func (r *clusterRepository) Members(ctx context.Context, id uuid.UUID) ([]domain.SybilClusterMember, error) {
	var rows []clusterMemberModel
	if err := r.db.WithContext(ctx).Where("cluster_id = ?", id).Order("did ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	members := make([]domain.SybilClusterMember, 0, len(rows))
	for _, row := range rows {
		members = append(members, toDomainMember(row))
	}
	return members, nil
}

func (r *clusterRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status, reviewedBy string, at time.Time, event ports.OutboxEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&sybilClusterModel{}).
			Where("cluster_id = ?", id).
			Updates(map[string]any{
				"status":      status,
				"reviewed_by": nullableString(reviewedBy),
				"reviewed_at": at,
				"updated_at":  at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return createOutboxRow(tx, event)
	})
}

func (r *clusterRepository) ActiveClusterFor(ctx context.Context, did string) (domain.SybilCluster, []domain.SybilClusterMember, error) {
	var rec sybilClusterModel
	err := r.db.WithContext(ctx).
		Joins("JOIN sybil_cluster_members m ON m.cluster_id = sybil_clusters.cluster_id").
		Where("m.did = ? AND sybil_clusters.status <> ?", did, domain.ClusterDismissed).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SybilCluster{}, nil, domain.ErrNotFound
		}
		return domain.SybilCluster{}, nil, err
	}
	members, err := r.Members(ctx, rec.ClusterID)
	if err != nil {
		return domain.SybilCluster{}, nil, err
	}
	return toDomainCluster(rec), members, nil
}

// ApplyBanPlan executes the cascade for one cluster atomically: core
// members banned, peripheral members monitored, the cluster marked banned
// and the audit event enqueued. A failure rolls back the whole cascade.
func (r *clusterRepository) ApplyBanPlan(ctx context.Context, plan ports.ClusterBanPlan, event ports.OutboxEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(plan.BanDids) > 0 {
			if err := tx.Model(&accountModel{}).
				Where("did IN ?", plan.BanDids).
				Updates(map[string]any{
					"is_banned":  true,
					"standing":   domain.StandingBanned,
					"banned_at":  plan.At,
					"updated_at": plan.At,
				}).Error; err != nil {
				return err
			}
		}
		if len(plan.MonitorDids) > 0 {
			if err := tx.Model(&accountModel{}).
				Where("did IN ? AND NOT is_banned", plan.MonitorDids).
				Updates(map[string]any{
					"standing":   domain.StandingMonitored,
					"updated_at": plan.At,
				}).Error; err != nil {
				return err
			}
		}
		res := tx.Model(&sybilClusterModel{}).
			Where("cluster_id = ?", plan.ClusterID).
			Updates(map[string]any{
				"status":      domain.ClusterBanned,
				"reviewed_by": nullableString(plan.ReviewedBy),
				"reviewed_at": plan.At,
				"updated_at":  plan.At,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return createOutboxRow(tx, event)
	})
}

type flagRepository struct {
	db *gorm.DB
}

func (r *flagRepository) Create(ctx context.Context, flag domain.BehavioralFlag) error {
	rec := behavioralFlagModel{
		FlagID:       flag.ID,
		FlagType:     flag.FlagType,
		AffectedDids: jsonColumn(flag.AffectedDids),
		Details:      flag.Details,
		CommunityDid: flag.CommunityDid,
		Status:       flag.Status,
		DetectedAt:   flag.DetectedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *flagRepository) List(ctx context.Context, status string, afterKey time.Time, afterID uuid.UUID, limit int) (ports.FlagPage, error) {
	q := r.db.WithContext(ctx).Model(&behavioralFlagModel{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if !afterKey.IsZero() {
		q = q.Where("(detected_at, flag_id) < (?, ?)", afterKey, afterID)
	}

	var rows []behavioralFlagModel
	if err := q.Order("detected_at DESC, flag_id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return ports.FlagPage{}, err
	}
	page := ports.FlagPage{HasMore: len(rows) > limit}
	if page.HasMore {
		rows = rows[:limit]
	}
	for _, row := range rows {
		page.Flags = append(page.Flags, toDomainFlag(row))
	}
	return page, nil
}

func (r *flagRepository) Get(ctx context.Context, id uuid.UUID) (domain.BehavioralFlag, error) {
	var rec behavioralFlagModel
	if err := r.db.WithContext(ctx).Where("flag_id = ?", id).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.BehavioralFlag{}, domain.ErrNotFound
		}
		return domain.BehavioralFlag{}, err
	}
	return toDomainFlag(rec), nil
}

func (r *flagRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).Model(&behavioralFlagModel{}).
		Where("flag_id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type queueRepository struct {
	db *gorm.DB
}

func (r *queueRepository) Enqueue(ctx context.Context, entry domain.ModerationQueueEntry) error {
	rec := moderationQueueModel{
		EntryID:      entry.ID,
		ContentURI:   entry.ContentURI,
		ContentType:  entry.ContentType,
		AuthorDid:    entry.AuthorDid,
		CommunityDid: entry.CommunityDid,
		QueueReason:  entry.QueueReason,
		MatchedWords: jsonColumn(entry.MatchedWords),
		Reasons:      jsonColumn(entry.Reasons),
		CreatedAt:    entry.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *queueRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("entry_id = ?", id).Delete(&moderationQueueModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *queueRepository) ListForCommunity(ctx context.Context, communityDid string, limit int) ([]domain.ModerationQueueEntry, error) {
	q := r.db.WithContext(ctx).Model(&moderationQueueModel{})
	if communityDid != "" {
		q = q.Where("community_did = ?", communityDid)
	}
	var rows []moderationQueueModel
	if err := q.Order("created_at ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]domain.ModerationQueueEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, toDomainQueueEntry(row))
	}
	return entries, nil
}

type communityRepository struct {
	db *gorm.DB
}

func (r *communityRepository) FilterWords(ctx context.Context, communityDid string) ([]string, error) {
	var rec communitySettingsModel
	if err := r.db.WithContext(ctx).Where("community_did = ?", communityDid).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var words []string
	if err := jsonUnmarshalColumn(rec.FilterWords, &words); err != nil {
		return nil, err
	}
	return words, nil
}
