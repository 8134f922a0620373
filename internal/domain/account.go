package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Moderation standing applied to an account by the ban-propagation path.
// "monitored" accounts keep posting but their content is filtered by default.
const (
	StandingActive    = "active"
	StandingMonitored = "monitored"
	StandingBanned    = "banned"
)

// Account is the slice of the identity store this subsystem reads and,
// for ban state only, writes. The identity subsystem owns everything else.
type Account struct {
	Did             string     `json:"did"`
	Role            string     `json:"role"`
	IsBanned        bool       `json:"is_banned"`
	Standing        string     `json:"standing"`
	PdsHost         string     `json:"pds_host"`
	ReputationScore float64    `json:"reputation_score"`
	FirstSeenAt     time.Time  `json:"first_seen_at"`
	BannedAt        *time.Time `json:"banned_at,omitempty"`
}

// IsImplicitSeed reports whether the account anchors trust propagation
// without an explicit TrustSeed row. Moderators and admins are unioned
// with curated seeds at computation time, never stored as seeds.
func (a Account) IsImplicitSeed() bool {
	return a.Role == RoleModerator || a.Role == RoleAdmin
}

// AgeAt returns account age at the given instant; zero for unseen accounts.
func (a Account) AgeAt(now time.Time) time.Duration {
	if a.FirstSeenAt.IsZero() || a.FirstSeenAt.After(now) {
		return 0
	}
	return now.Sub(a.FirstSeenAt)
}

// ValidateDid applies the minimal structural check this service needs:
// a non-empty "did:<method>:<id>" identifier. Full DID resolution belongs
// to the identity layer.
func ValidateDid(did string) error {
	did = strings.TrimSpace(did)
	parts := strings.SplitN(did, ":", 3)
	if len(parts) != 3 || parts[0] != "did" || parts[1] == "" || parts[2] == "" {
		return fmt.Errorf("%w: malformed did %q", ErrInvalidInput, did)
	}
	return nil
}
