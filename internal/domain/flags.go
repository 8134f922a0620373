package domain

import (
	"time"

	"github.com/google/uuid"
)

// Behavioral flag types raised by heuristics, independent of the
// cluster/ban pipeline. Moderators review and resolve them.
const (
	FlagBurstVoting             = "burst_voting"
	FlagLowInteractionDiversity = "low_interaction_diversity"
)

const (
	FlagPending     = "pending"
	FlagDismissed   = "dismissed"
	FlagActionTaken = "action_taken"
)

// ValidFlagStatus reports whether s is a known flag resolution state.
func ValidFlagStatus(s string) bool {
	return s == FlagPending || s == FlagDismissed || s == FlagActionTaken
}

// BehavioralFlag records one heuristic detection for moderator review.
type BehavioralFlag struct {
	ID           uuid.UUID `json:"id"`
	FlagType     string    `json:"flag_type"`
	AffectedDids []string  `json:"affected_dids"`
	Details      string    `json:"details"`
	CommunityDid string    `json:"community_did,omitempty"`
	Status       string    `json:"status"`
	DetectedAt   time.Time `json:"detected_at"`
}

// ModerationQueueEntry is content held pending review; deleted once reviewed.
type ModerationQueueEntry struct {
	ID           uuid.UUID    `json:"id"`
	ContentURI   string       `json:"content_uri"`
	ContentType  string       `json:"content_type"`
	AuthorDid    string       `json:"author_did"`
	CommunityDid string       `json:"community_did"`
	QueueReason  string       `json:"queue_reason"`
	MatchedWords []string     `json:"matched_words,omitempty"`
	Reasons      []HoldReason `json:"reasons"`
	CreatedAt    time.Time    `json:"created_at"`
}
