package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/barazo-forum/barazo-trust/internal/domain"
)

// IsAccountTrusted reports whether the account bypasses rate limiting and
// age classification entirely: post count at or above the community's
// threshold, no spam label, and no current trust score sitting below the
// low-trust cutoff once weighted by the account's PDS factor. Accounts
// absent from the last propagation run are judged on post count alone.
func (s *Service) IsAccountTrusted(ctx context.Context, did, communityDid string, trustedPostThreshold int) (bool, error) {
	if trustedPostThreshold <= 0 {
		trustedPostThreshold = s.cfg.AntiSpam.TrustedPostThreshold
	}
	labeled, err := s.labels.IsSpamLabeled(ctx, did)
	if err != nil {
		// Label-service outage must not grant trust.
		slog.Default().WarnContext(ctx, "spam label lookup failed",
			"module", "application",
			"operation", "is_account_trusted",
			"outcome", "failure",
			"error", err,
		)
		return false, nil
	}
	if labeled {
		return false, nil
	}
	posts, err := s.accounts.PostCount(ctx, did)
	if err != nil {
		return false, fmt.Errorf("post count for %s: %w", did, err)
	}
	if posts < trustedPostThreshold {
		return false, nil
	}

	score, err := s.scores.Get(ctx, did)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return true, nil
	case err != nil:
		return false, fmt.Errorf("trust score for %s: %w", did, err)
	}
	host := ""
	if acct, aerr := s.accounts.Get(ctx, did); aerr == nil {
		host = acct.PdsHost
	}
	return score.Score*s.pdsFactorFor(ctx, host) >= s.cfg.Trust.LowTrustCutoff, nil
}

// pdsFactorFor resolves the trust multiplier for one identity host from
// the PDS trust table: the host's own row, else the default row, else 1.0.
func (s *Service) pdsFactorFor(ctx context.Context, host string) float64 {
	rows, err := s.pdsFactors.List(ctx)
	if err != nil {
		return 1.0
	}
	factor := 1.0
	for _, row := range rows {
		if row.PdsHost == host {
			return row.TrustFactor
		}
		if row.IsDefault {
			factor = row.TrustFactor
		}
	}
	return factor
}

// CheckWriteRateLimit answers the synchronous per-write budget check. It
// never blocks: it increments the caller's minute-bucket counter and
// compares against the class budget. Trusted accounts bypass budgeting;
// trust is decided from post count, spam labels and the current trust
// score weighted by the PDS table. Counter-store outages fail open and
// are logged.
func (s *Service) CheckWriteRateLimit(ctx context.Context, did, communityDid string) (RateLimitResult, error) {
	if err := domain.ValidateDid(did); err != nil {
		return RateLimitResult{}, err
	}
	now := s.nowFn()

	trusted, err := s.IsAccountTrusted(ctx, did, communityDid, s.cfg.AntiSpam.TrustedPostThreshold)
	if err != nil {
		return RateLimitResult{}, err
	}
	if trusted {
		return RateLimitResult{RateLimited: false, Class: domain.AccountClassTrusted}, nil
	}

	acct, err := s.accounts.Get(ctx, did)
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("account lookup for %s: %w", did, err)
	}
	labeled, labelErr := s.labels.IsSpamLabeled(ctx, did)
	if labelErr != nil {
		labeled = false
	}
	posts, err := s.accounts.PostCount(ctx, did)
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("post count for %s: %w", did, err)
	}
	class := domain.ClassifyAccount(acct, labeled, posts, now, s.cfg.AntiSpam)
	if class == domain.AccountClassTrusted {
		// Post count qualifies but the trusted check above said no, so the
		// trust score overrules the promotion. Fall back to the age classes.
		if acct.AgeAt(now) < s.cfg.AntiSpam.NewAccountAge {
			class = domain.AccountClassNew
		} else {
			class = domain.AccountClassEstablished
		}
	}
	budget := s.cfg.AntiSpam.BudgetFor(class)

	key := rateLimitKey(did, now)
	count, err := s.counters.Incr(ctx, key, 2*time.Minute)
	if err != nil {
		slog.Default().ErrorContext(ctx, "rate limit counter unavailable, failing open",
			"module", "application",
			"operation", "check_write_rate_limit",
			"outcome", "failure",
			"did", did,
			"error", err,
		)
		return RateLimitResult{RateLimited: false, Class: class, Budget: budget}, nil
	}

	return RateLimitResult{
		RateLimited: count > int64(budget),
		Class:       class,
		Budget:      budget,
	}, nil
}

// rateLimitKey buckets write attempts into fixed minute windows per DID.
func rateLimitKey(did string, now time.Time) string {
	return fmt.Sprintf("trust:ratelimit:%s:%d", did, now.Unix()/60)
}

// RunAntiSpamChecks runs the content-level triggers. Matches hold the
// content for moderation instead of rejecting the request; every matched
// reason is recorded for moderator context.
func (s *Service) RunAntiSpamChecks(ctx context.Context, req ContentCheckRequest) (AntiSpamResult, error) {
	if err := domain.ValidateDid(req.AuthorDid); err != nil {
		return AntiSpamResult{}, err
	}
	now := s.nowFn()

	acct, err := s.accounts.Get(ctx, req.AuthorDid)
	if err != nil {
		return AntiSpamResult{}, fmt.Errorf("account lookup for %s: %w", req.AuthorDid, err)
	}
	labeled, labelErr := s.labels.IsSpamLabeled(ctx, req.AuthorDid)
	if labelErr != nil {
		labeled = false
	}
	posts, err := s.accounts.PostCount(ctx, req.AuthorDid)
	if err != nil {
		return AntiSpamResult{}, fmt.Errorf("post count for %s: %w", req.AuthorDid, err)
	}
	recent, err := s.accounts.RecentPostCount(ctx, req.AuthorDid, s.cfg.AntiSpam.BurstWindow, now)
	if err != nil {
		return AntiSpamResult{}, fmt.Errorf("recent post count for %s: %w", req.AuthorDid, err)
	}
	var filterWords []string
	if req.CommunityDid != "" {
		filterWords, err = s.communities.FilterWords(ctx, req.CommunityDid)
		if err != nil {
			return AntiSpamResult{}, fmt.Errorf("community filter words: %w", err)
		}
	}

	reasons := domain.EvaluateContent(domain.ContentCheck{
		ContentURI:   req.ContentURI,
		ContentType:  req.ContentType,
		AuthorDid:    req.AuthorDid,
		CommunityDid: req.CommunityDid,
		Text:         req.Text,
		SpamLabeled:  labeled,
		AuthorAge:    acct.AgeAt(now),
		PostCount:    posts,
		RecentPosts:  recent + 1, // this attempt included
		FilterWords:  filterWords,
	}, s.cfg.AntiSpam)
	if len(reasons) == 0 {
		return AntiSpamResult{Held: false}, nil
	}

	entry := domain.ModerationQueueEntry{
		ID:           uuid.New(),
		ContentURI:   req.ContentURI,
		ContentType:  req.ContentType,
		AuthorDid:    req.AuthorDid,
		CommunityDid: req.CommunityDid,
		QueueReason:  reasons[0].Reason,
		MatchedWords: reasons[0].MatchedWords,
		Reasons:      reasons,
		CreatedAt:    now,
	}
	if err := s.queue.Enqueue(ctx, entry); err != nil {
		return AntiSpamResult{}, fmt.Errorf("enqueue moderation entry: %w", err)
	}

	for _, r := range reasons {
		if r.Reason != domain.HoldReasonBurstPosts {
			continue
		}
		flag := domain.BehavioralFlag{
			ID:           uuid.New(),
			FlagType:     domain.FlagBurstVoting,
			AffectedDids: []string{req.AuthorDid},
			Details:      fmt.Sprintf("%d posts inside %s window", recent+1, s.cfg.AntiSpam.BurstWindow),
			CommunityDid: req.CommunityDid,
			Status:       domain.FlagPending,
			DetectedAt:   now,
		}
		if err := s.flags.Create(ctx, flag); err != nil {
			slog.Default().WarnContext(ctx, "burst flag write failed",
				"module", "application",
				"operation", "run_anti_spam_checks",
				"outcome", "failure",
				"error", err,
			)
		}
	}

	s.enqueueEvent(ctx, domain.EventContentHeld, req.AuthorDid, map[string]any{
		"content_uri":   req.ContentURI,
		"author_did":    req.AuthorDid,
		"community_did": req.CommunityDid,
		"queue_reason":  entry.QueueReason,
	})
	return AntiSpamResult{Held: true, Reasons: reasons}, nil
}
