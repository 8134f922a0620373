package domain

// Outbound moderation events emitted after successful state transitions.
// The core only enqueues them; delivery semantics belong to the caller of
// the outbox worker.
const (
	EventTrustGraphRecomputed = "trust.graph.recomputed"
	EventClusterFlagged       = "trust.cluster.flagged"
	EventClusterStatusChanged = "trust.cluster.status_changed"
	EventClusterBanned        = "trust.cluster.banned"
	EventBanPropagated        = "trust.ban.propagated"
	EventBehavioralFlagRaised = "trust.flag.raised"
	EventContentHeld          = "trust.content.held"
)
