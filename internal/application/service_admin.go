package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/barazo-forum/barazo-trust/internal/domain"
)

// ListSeeds returns the explicit curated seed set.
func (s *Service) ListSeeds(ctx context.Context, actor Actor) ([]domain.TrustSeed, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: seed management requires admin", domain.ErrForbidden)
	}
	return s.seeds.List(ctx)
}

// AddSeed registers an explicit trust seed. The account must exist and
// must not be banned: seeding a banned account would anchor propagation
// on exactly the accounts the system is defending against.
func (s *Service) AddSeed(ctx context.Context, actor Actor, did, reason string) (domain.TrustSeed, error) {
	if actor.Role != domain.RoleAdmin {
		return domain.TrustSeed{}, fmt.Errorf("%w: seed management requires admin", domain.ErrForbidden)
	}
	if err := domain.ValidateDid(did); err != nil {
		return domain.TrustSeed{}, err
	}
	acct, err := s.accounts.Get(ctx, did)
	if err != nil {
		return domain.TrustSeed{}, err
	}
	if acct.IsBanned {
		return domain.TrustSeed{}, fmt.Errorf("%w: cannot seed a banned account", domain.ErrInvalidInput)
	}
	seed := domain.TrustSeed{
		Did:       did,
		AddedBy:   actor.Did,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: s.nowFn(),
	}
	if err := s.seeds.Add(ctx, seed); err != nil {
		return domain.TrustSeed{}, fmt.Errorf("add trust seed: %w", err)
	}
	return seed, nil
}

// RemoveSeed drops an explicit seed. Implicit moderator/admin seeds are
// derived per run and cannot be removed here.
func (s *Service) RemoveSeed(ctx context.Context, actor Actor, did string) error {
	if actor.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: seed management requires admin", domain.ErrForbidden)
	}
	if err := domain.ValidateDid(did); err != nil {
		return err
	}
	return s.seeds.Remove(ctx, did)
}

// ListPdsFactors returns every per-host factor including the default row.
func (s *Service) ListPdsFactors(ctx context.Context, actor Actor) ([]domain.PdsTrustFactor, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: pds factor management requires admin", domain.ErrForbidden)
	}
	return s.pdsFactors.List(ctx)
}

// UpsertPdsFactor creates or updates one host's multiplier after input
// validation. Takes effect on the next recomputation, never retroactively.
func (s *Service) UpsertPdsFactor(ctx context.Context, actor Actor, host string, factor float64, isDefault bool) (domain.PdsTrustFactor, error) {
	if actor.Role != domain.RoleAdmin {
		return domain.PdsTrustFactor{}, fmt.Errorf("%w: pds factor management requires admin", domain.ErrForbidden)
	}
	if err := domain.ValidatePdsTrustFactor(host, factor); err != nil {
		return domain.PdsTrustFactor{}, err
	}
	row := domain.PdsTrustFactor{
		PdsHost:     strings.ToLower(strings.TrimSpace(host)),
		TrustFactor: factor,
		IsDefault:   isDefault,
		UpdatedAt:   s.nowFn(),
	}
	if err := s.pdsFactors.Upsert(ctx, row); err != nil {
		return domain.PdsTrustFactor{}, fmt.Errorf("upsert pds factor: %w", err)
	}
	return row, nil
}

// ListFlags pages behavioral flags for moderator review, newest first.
func (s *Service) ListFlags(ctx context.Context, actor Actor, status string, cursor *Cursor, limit int) (FlagPage, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleModerator {
		return FlagPage{}, fmt.Errorf("%w: flag review requires a moderation role", domain.ErrForbidden)
	}
	if status != "" && !domain.ValidFlagStatus(status) {
		return FlagPage{}, fmt.Errorf("%w: unknown flag status %q", domain.ErrInvalidInput, status)
	}
	limit = clampLimit(limit)

	afterKey := time.Time{}
	afterID := uuid.Nil
	if cursor != nil {
		afterKey = cursor.SortKey
		afterID = cursor.ID
	}
	page, err := s.flags.List(ctx, status, afterKey, afterID, limit)
	if err != nil {
		return FlagPage{}, fmt.Errorf("list flags: %w", err)
	}
	out := FlagPage{Flags: page.Flags}
	if page.HasMore && len(page.Flags) > 0 {
		last := page.Flags[len(page.Flags)-1]
		out.NextCursor = &Cursor{SortKey: last.DetectedAt, ID: last.ID}
	}
	return out, nil
}

// ResolveFlag moves a flag out of pending review.
func (s *Service) ResolveFlag(ctx context.Context, actor Actor, id uuid.UUID, status string) (domain.BehavioralFlag, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleModerator {
		return domain.BehavioralFlag{}, fmt.Errorf("%w: flag review requires a moderation role", domain.ErrForbidden)
	}
	if status != domain.FlagDismissed && status != domain.FlagActionTaken {
		return domain.BehavioralFlag{}, fmt.Errorf("%w: flag resolution must be %s or %s",
			domain.ErrInvalidInput, domain.FlagDismissed, domain.FlagActionTaken)
	}
	flag, err := s.flags.Get(ctx, id)
	if err != nil {
		return domain.BehavioralFlag{}, err
	}
	if flag.Status != domain.FlagPending {
		return domain.BehavioralFlag{}, fmt.Errorf("%w: flag %s already resolved", domain.ErrConflict, id)
	}
	if err := s.flags.UpdateStatus(ctx, id, status); err != nil {
		return domain.BehavioralFlag{}, fmt.Errorf("update flag status: %w", err)
	}
	flag.Status = status
	return flag, nil
}

// GetTrustScore reads one account's current score. Accounts absent from
// the last run score zero.
func (s *Service) GetTrustScore(ctx context.Context, did string) (domain.TrustScore, error) {
	if err := domain.ValidateDid(did); err != nil {
		return domain.TrustScore{}, err
	}
	score, err := s.scores.Get(ctx, did)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.TrustScore{Did: did}, nil
	}
	return score, err
}

// ListModerationQueue returns held content for one community.
func (s *Service) ListModerationQueue(ctx context.Context, actor Actor, communityDid string, limit int) ([]domain.ModerationQueueEntry, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleModerator {
		return nil, fmt.Errorf("%w: moderation queue requires a moderation role", domain.ErrForbidden)
	}
	return s.queue.ListForCommunity(ctx, communityDid, clampLimit(limit))
}

// ReleaseModerationEntry removes one held entry after review.
func (s *Service) ReleaseModerationEntry(ctx context.Context, actor Actor, id uuid.UUID) error {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleModerator {
		return fmt.Errorf("%w: moderation queue requires a moderation role", domain.ErrForbidden)
	}
	return s.queue.Delete(ctx, id)
}
