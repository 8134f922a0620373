package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/barazo-forum/barazo-trust/internal/domain"
)

// EdgeRepository persists the interaction graph as rows. Edges are
// canonical (source < target) and accumulate weight on conflict.
type EdgeRepository interface {
	Accumulate(ctx context.Context, source, target string, weight float64, at time.Time) error
	ListAll(ctx context.Context) ([]domain.InteractionEdge, error)
	Count(ctx context.Context) (int64, error)
	// NeighborsAbove returns DIDs directly linked to did by an edge of at
	// least minWeight. Used by ban propagation when no cluster exists.
	NeighborsAbove(ctx context.Context, did string, minWeight float64) ([]string, error)
}

// AccountRepository is the narrow slice of the identity store this
// subsystem touches: reads for classification and seeding, writes for ban
// state and moderation standing only.
type AccountRepository interface {
	Get(ctx context.Context, did string) (domain.Account, error)
	ListByRoles(ctx context.Context, roles []string) ([]domain.Account, error)
	GetMany(ctx context.Context, dids []string) (map[string]domain.Account, error)
	PostCount(ctx context.Context, did string) (int, error)
	// RecentPostCount counts the author's posts inside the rolling window
	// ending now, used by burst detection.
	RecentPostCount(ctx context.Context, did string, window time.Duration, now time.Time) (int, error)
	SetStanding(ctx context.Context, did, standing string, banned bool, at time.Time) error
	// MonitorAll demotes every unbanned did to monitored standing and
	// enqueues the audit event in one transaction, so a failed cascade
	// rolls back whole rather than leaving a partial demotion set.
	MonitorAll(ctx context.Context, dids []string, at time.Time, event OutboxEvent) error
}

// TrustSeedRepository stores explicit admin-curated seeds. Implicit seeds
// (moderators/admins) are derived at computation time, never stored.
type TrustSeedRepository interface {
	List(ctx context.Context) ([]domain.TrustSeed, error)
	Add(ctx context.Context, seed domain.TrustSeed) error
	Remove(ctx context.Context, did string) error
}

// PdsTrustRepository stores per-host trust multipliers with one default row.
type PdsTrustRepository interface {
	List(ctx context.Context) ([]domain.PdsTrustFactor, error)
	Upsert(ctx context.Context, factor domain.PdsTrustFactor) error
	Default(ctx context.Context) (domain.PdsTrustFactor, error)
}

// TrustRunStats is one completed recomputation, persisted for the status
// endpoint alongside the scores it produced.
type TrustRunStats struct {
	RunID      uuid.UUID
	TotalNodes int
	TotalEdges int
	Iterations int
	Converged  bool
	DurationMs int64
	ComputedAt time.Time
}

// TrustScoreRepository persists propagated scores. ReplaceAll swaps the
// entire table and the run stats inside one transaction so readers never
// observe a half-updated graph.
type TrustScoreRepository interface {
	ReplaceAll(ctx context.Context, scores []domain.TrustScore, stats TrustRunStats, event OutboxEvent) error
	Get(ctx context.Context, did string) (domain.TrustScore, error)
	GetMany(ctx context.Context, dids []string) (map[string]float64, error)
	LastRun(ctx context.Context) (TrustRunStats, error)
}

// ClusterPage is one cursor page of clusters.
type ClusterPage struct {
	Clusters []domain.SybilCluster
	HasMore  bool
}

// ClusterBanPlan is the all-or-nothing write set for one cluster ban.
type ClusterBanPlan struct {
	ClusterID   uuid.UUID
	BanDids     []string
	MonitorDids []string
	ReviewedBy  string
	At          time.Time
}

// ClusterRepository reconciles detector output against stored clusters and
// owns the transactional ban cascade.
type ClusterRepository interface {
	// ReconcileDetected upserts detections by cluster hash: a hash matching
	// a non-dismissed cluster updates counts in place, anything else
	// inserts as flagged. Membership rows are replaced to match.
	ReconcileDetected(ctx context.Context, detected []domain.DetectedCluster, at time.Time) ([]domain.SybilCluster, error)
	List(ctx context.Context, status string, afterKey time.Time, afterID uuid.UUID, limit int) (ClusterPage, error)
	Get(ctx context.Context, id uuid.UUID) (domain.SybilCluster, error)
	Members(ctx context.Context, id uuid.UUID) ([]domain.SybilClusterMember, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status, reviewedBy string, at time.Time, event OutboxEvent) error
	// ActiveClusterFor returns the non-dismissed cluster containing did.
	ActiveClusterFor(ctx context.Context, did string) (domain.SybilCluster, []domain.SybilClusterMember, error)
	// ApplyBanPlan bans core members, monitors peripheral members, marks the
	// cluster banned and enqueues the audit event in a single transaction.
	ApplyBanPlan(ctx context.Context, plan ClusterBanPlan, event OutboxEvent) error
}

// FlagPage is one cursor page of behavioral flags.
type FlagPage struct {
	Flags   []domain.BehavioralFlag
	HasMore bool
}

// FlagRepository stores heuristic detections for moderator review.
type FlagRepository interface {
	Create(ctx context.Context, flag domain.BehavioralFlag) error
	List(ctx context.Context, status string, afterKey time.Time, afterID uuid.UUID, limit int) (FlagPage, error)
	Get(ctx context.Context, id uuid.UUID) (domain.BehavioralFlag, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// CommunityRepository reads the slice of community settings the anti-spam
// path consults. Community management itself is an external collaborator.
type CommunityRepository interface {
	FilterWords(ctx context.Context, communityDid string) ([]string, error)
}

// ModerationQueueRepository holds content pending review.
type ModerationQueueRepository interface {
	Enqueue(ctx context.Context, entry domain.ModerationQueueEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListForCommunity(ctx context.Context, communityDid string, limit int) ([]domain.ModerationQueueEntry, error)
}

// OutboxEvent is an event enqueued transactionally with the state change
// it describes.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord is a stored outbox row as seen by the publish worker.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository separates transactional writes from broker delivery.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
