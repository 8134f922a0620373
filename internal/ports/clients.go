package ports

import "context"

// SpamLabelClient queries the external moderation-label service. A spam
// label forces new-account treatment in the rate limiter regardless of age.
type SpamLabelClient interface {
	IsSpamLabeled(ctx context.Context, did string) (bool, error)
	BatchIsSpamLabeled(ctx context.Context, dids []string) (map[string]bool, error)
}
