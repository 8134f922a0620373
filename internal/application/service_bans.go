package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/barazo-forum/barazo-trust/internal/domain"
)

// CheckBanPropagation runs after an operator bans an account. It counts
// how many accounts tied to the target are already banned and, past the
// threshold, places the rest under monitoring rather than auto-banning
// them. The triggering ban stands whatever happens here.
func (s *Service) CheckBanPropagation(ctx context.Context, actor Actor, targetDid string) (BanPropagationResult, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleModerator {
		return BanPropagationResult{}, fmt.Errorf("%w: ban propagation requires a moderation role", domain.ErrForbidden)
	}
	if err := domain.ValidateDid(targetDid); err != nil {
		return BanPropagationResult{}, err
	}
	now := s.nowFn()

	linked, clusterID, err := s.linkedDids(ctx, targetDid)
	if err != nil {
		return BanPropagationResult{}, err
	}
	if len(linked) == 0 {
		return BanPropagationResult{}, nil
	}

	accounts, err := s.accounts.GetMany(ctx, linked)
	if err != nil {
		return BanPropagationResult{}, fmt.Errorf("load linked accounts: %w", err)
	}
	banned := 0
	var remaining []string
	for _, did := range linked {
		acct, ok := accounts[did]
		if !ok {
			continue
		}
		if acct.IsBanned {
			banned++
		} else {
			remaining = append(remaining, did)
		}
	}

	result := BanPropagationResult{BanCount: banned}
	if banned < s.cfg.Trust.BanPropagationThreshold || len(remaining) == 0 {
		return result, nil
	}

	event := newOutboxEvent(domain.EventBanPropagated, targetDid, now, map[string]any{
		"target_did":     targetDid,
		"cluster_id":     clusterID,
		"banned_count":   banned,
		"monitored_dids": remaining,
		"triggered_by":   actor.Did,
	})
	if err := s.accounts.MonitorAll(ctx, remaining, now, event); err != nil {
		// The triggering ban stands; the rolled-back cascade is reported so
		// the operator can retry.
		slog.Default().ErrorContext(ctx, "monitoring demotion failed",
			"module", "application",
			"operation", "check_ban_propagation",
			"outcome", "failure",
			"target_did", targetDid,
			"error", err,
		)
		return result, fmt.Errorf("monitoring demotion for %s: %w", targetDid, err)
	}
	result.Propagated = true
	return result, nil
}

// linkedDids resolves the accounts tied to the target: its active cluster
// when one exists, otherwise direct high-weight neighbors.
func (s *Service) linkedDids(ctx context.Context, targetDid string) ([]string, string, error) {
	cluster, members, err := s.clusters.ActiveClusterFor(ctx, targetDid)
	switch {
	case err == nil:
		dids := make([]string, 0, len(members))
		for _, m := range members {
			if m.Did != targetDid {
				dids = append(dids, m.Did)
			}
		}
		return dids, cluster.ID.String(), nil
	case errors.Is(err, domain.ErrNotFound):
		neighbors, nerr := s.edges.NeighborsAbove(ctx, targetDid, s.cfg.Trust.HighWeightEdge)
		if nerr != nil {
			return nil, "", fmt.Errorf("load high-weight neighbors: %w", nerr)
		}
		return neighbors, "", nil
	default:
		return nil, "", fmt.Errorf("load cluster for %s: %w", targetDid, err)
	}
}
