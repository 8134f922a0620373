package postgres

import (
	"time"

	"github.com/google/uuid"
)

type accountModel struct {
	Did             string     `gorm:"column:did;primaryKey"`
	Role            string     `gorm:"column:role"`
	IsBanned        bool       `gorm:"column:is_banned"`
	Standing        string     `gorm:"column:standing"`
	PdsHost         string     `gorm:"column:pds_host"`
	ReputationScore float64    `gorm:"column:reputation_score"`
	FirstSeenAt     time.Time  `gorm:"column:first_seen_at"`
	BannedAt        *time.Time `gorm:"column:banned_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (accountModel) TableName() string { return "accounts" }

type postModel struct {
	PostID    uuid.UUID `gorm:"column:post_id;type:uuid;default:gen_random_uuid();primaryKey"`
	AuthorDid string    `gorm:"column:author_did"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (postModel) TableName() string { return "posts" }

type interactionEdgeModel struct {
	SourceDid         string    `gorm:"column:source_did;primaryKey"`
	TargetDid         string    `gorm:"column:target_did;primaryKey"`
	Weight            float64   `gorm:"column:weight"`
	LastInteractionAt time.Time `gorm:"column:last_interaction_at"`
}

func (interactionEdgeModel) TableName() string { return "interaction_edges" }

type trustSeedModel struct {
	Did       string    `gorm:"column:did;primaryKey"`
	AddedBy   string    `gorm:"column:added_by"`
	Reason    string    `gorm:"column:reason"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (trustSeedModel) TableName() string { return "trust_seeds" }

type pdsTrustFactorModel struct {
	PdsHost     string    `gorm:"column:pds_host;primaryKey"`
	TrustFactor float64   `gorm:"column:trust_factor"`
	IsDefault   bool      `gorm:"column:is_default"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (pdsTrustFactorModel) TableName() string { return "pds_trust_factors" }

type trustScoreModel struct {
	Did        string    `gorm:"column:did;primaryKey"`
	Score      float64   `gorm:"column:score"`
	ComputedAt time.Time `gorm:"column:computed_at"`
}

func (trustScoreModel) TableName() string { return "trust_scores" }

type trustRunModel struct {
	RunID      uuid.UUID `gorm:"column:run_id;type:uuid;primaryKey"`
	TotalNodes int       `gorm:"column:total_nodes"`
	TotalEdges int       `gorm:"column:total_edges"`
	Iterations int       `gorm:"column:iterations"`
	Converged  bool      `gorm:"column:converged"`
	DurationMs int64     `gorm:"column:duration_ms"`
	ComputedAt time.Time `gorm:"column:computed_at"`
}

func (trustRunModel) TableName() string { return "trust_graph_runs" }

type sybilClusterModel struct {
	ClusterID         uuid.UUID  `gorm:"column:cluster_id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClusterHash       string     `gorm:"column:cluster_hash"`
	InternalEdgeCount int        `gorm:"column:internal_edge_count"`
	ExternalEdgeCount int        `gorm:"column:external_edge_count"`
	MemberCount       int        `gorm:"column:member_count"`
	Status            string     `gorm:"column:status"`
	ReviewedBy        *string    `gorm:"column:reviewed_by"`
	ReviewedAt        *time.Time `gorm:"column:reviewed_at"`
	DetectedAt        time.Time  `gorm:"column:detected_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (sybilClusterModel) TableName() string { return "sybil_clusters" }

type clusterMemberModel struct {
	ClusterID     uuid.UUID `gorm:"column:cluster_id;type:uuid;primaryKey"`
	Did           string    `gorm:"column:did;primaryKey"`
	RoleInCluster string    `gorm:"column:role_in_cluster"`
	JoinedAt      time.Time `gorm:"column:joined_at"`
}

func (clusterMemberModel) TableName() string { return "sybil_cluster_members" }

type behavioralFlagModel struct {
	FlagID       uuid.UUID `gorm:"column:flag_id;type:uuid;primaryKey"`
	FlagType     string    `gorm:"column:flag_type"`
	AffectedDids string    `gorm:"column:affected_dids;type:jsonb"`
	Details      string    `gorm:"column:details"`
	CommunityDid string    `gorm:"column:community_did"`
	Status       string    `gorm:"column:status"`
	DetectedAt   time.Time `gorm:"column:detected_at"`
}

func (behavioralFlagModel) TableName() string { return "behavioral_flags" }

type moderationQueueModel struct {
	EntryID      uuid.UUID `gorm:"column:entry_id;type:uuid;primaryKey"`
	ContentURI   string    `gorm:"column:content_uri"`
	ContentType  string    `gorm:"column:content_type"`
	AuthorDid    string    `gorm:"column:author_did"`
	CommunityDid string    `gorm:"column:community_did"`
	QueueReason  string    `gorm:"column:queue_reason"`
	MatchedWords string    `gorm:"column:matched_words;type:jsonb"`
	Reasons      string    `gorm:"column:reasons;type:jsonb"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (moderationQueueModel) TableName() string { return "moderation_queue" }

type communitySettingsModel struct {
	CommunityDid string    `gorm:"column:community_did;primaryKey"`
	FilterWords  string    `gorm:"column:filter_words;type:jsonb"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (communitySettingsModel) TableName() string { return "community_settings" }

type trustOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (trustOutboxModel) TableName() string { return "trust_outbox" }
