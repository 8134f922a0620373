package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/barazo-forum/barazo-trust/internal/domain"
)

// Actor is the authenticated caller threaded from the HTTP/gRPC adapters.
type Actor struct {
	Did       string
	Role      string
	RequestID string
}

// Cursor is the decoded opaque pagination cursor: strictly-less-than
// comparison on the (SortKey, ID) tuple.
type Cursor struct {
	SortKey time.Time `json:"sort_key"`
	ID      uuid.UUID `json:"id"`
}

// ComputeStats reports one trust-graph recomputation.
type ComputeStats struct {
	TotalNodes      int   `json:"total_nodes"`
	TotalEdges      int   `json:"total_edges"`
	Iterations      int   `json:"iterations"`
	Converged       bool  `json:"converged"`
	DurationMs      int64 `json:"duration_ms"`
	ClustersFlagged int   `json:"clusters_flagged"`
}

// GraphStatus is the read-side view of the graph and its last computation.
type GraphStatus struct {
	NodeCount  int64         `json:"node_count"`
	EdgeCount  int64         `json:"edge_count"`
	LastRun    *ComputeStats `json:"last_run,omitempty"`
	ComputedAt *time.Time    `json:"computed_at,omitempty"`
}

// RateLimitResult answers one synchronous write-budget check.
type RateLimitResult struct {
	RateLimited bool   `json:"rate_limited"`
	Class       string `json:"class"`
	Budget      int    `json:"budget"`
}

// ContentCheckRequest is the content-path input to anti-spam checks.
type ContentCheckRequest struct {
	ContentURI   string
	ContentType  string
	AuthorDid    string
	CommunityDid string
	Text         string
}

// AntiSpamResult reports whether content was held and every matched reason.
type AntiSpamResult struct {
	Held    bool                `json:"held"`
	Reasons []domain.HoldReason `json:"reasons"`
}

// BanPropagationResult reports one propagation check after an account ban.
type BanPropagationResult struct {
	Propagated bool `json:"propagated"`
	BanCount   int  `json:"ban_count"`
}

// ClusterPage is one page of clusters plus the cursor for the next.
type ClusterPage struct {
	Clusters   []ClusterSummary `json:"clusters"`
	NextCursor *Cursor          `json:"next_cursor,omitempty"`
}

// ClusterSummary decorates a stored cluster with its read-time ratio.
type ClusterSummary struct {
	domain.SybilCluster
	SuspicionRatio float64 `json:"suspicion_ratio"`
}

// ClusterDetail is a cluster with enriched member rows.
type ClusterDetail struct {
	ClusterSummary
	Members []MemberDetail `json:"members"`
}

// MemberDetail joins membership with the member's current account state
// and trust score for moderator context.
type MemberDetail struct {
	Did           string    `json:"did"`
	RoleInCluster string    `json:"role_in_cluster"`
	JoinedAt      time.Time `json:"joined_at"`
	TrustScore    float64   `json:"trust_score"`
	IsBanned      bool      `json:"is_banned"`
	Standing      string    `json:"standing"`
	PdsHost       string    `json:"pds_host,omitempty"`
}

// FlagPage is one page of behavioral flags.
type FlagPage struct {
	Flags      []domain.BehavioralFlag `json:"flags"`
	NextCursor *Cursor                 `json:"next_cursor,omitempty"`
}
