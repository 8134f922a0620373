package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/barazo-forum/barazo-trust/internal/domain"
	"github.com/barazo-forum/barazo-trust/internal/ports"
)

const recomputeGateKey = "trust:recompute"

// ComputeTrustGraph runs the full batch: snapshot, propagation, score
// replacement and cluster detection. It is operator-triggered, guarded by
// the cooldown gate, and never runs on the request path.
func (s *Service) ComputeTrustGraph(ctx context.Context, actor Actor) (ComputeStats, error) {
	if actor.Role != domain.RoleAdmin {
		return ComputeStats{}, fmt.Errorf("%w: trust recompute requires admin", domain.ErrForbidden)
	}

	acquired, err := s.gate.TryAcquire(ctx, recomputeGateKey, s.cfg.Trust.RecomputeCooldown)
	if err != nil {
		return ComputeStats{}, fmt.Errorf("acquire recompute gate: %w", err)
	}
	if !acquired {
		return ComputeStats{}, domain.ErrRecomputeCooldown
	}

	started := s.nowFn()
	edges, err := s.edges.ListAll(ctx)
	if err != nil {
		return ComputeStats{}, fmt.Errorf("load edges: %w", err)
	}
	snap := domain.BuildSnapshot(edges)

	seedSet, err := s.loadSeedSet(ctx)
	if err != nil {
		return ComputeStats{}, err
	}
	factors, err := s.loadPdsFactors(ctx, snap)
	if err != nil {
		return ComputeStats{}, err
	}

	res := domain.PropagateTrust(snap, seedSet, factors, s.cfg.Trust)
	computedAt := s.nowFn()

	scores := make([]domain.TrustScore, len(snap.Dids))
	for i, did := range snap.Dids {
		scores[i] = domain.TrustScore{Did: did, Score: domain.ClampScore(res.Scores[i]), ComputedAt: computedAt}
	}

	stats := ports.TrustRunStats{
		RunID:      uuid.New(),
		TotalNodes: len(snap.Dids),
		TotalEdges: snap.EdgeCount,
		Iterations: res.Iterations,
		Converged:  res.Converged,
		DurationMs: computedAt.Sub(started).Milliseconds(),
		ComputedAt: computedAt,
	}
	payload, _ := json.Marshal(map[string]any{
		"run_id":       stats.RunID.String(),
		"total_nodes":  stats.TotalNodes,
		"total_edges":  stats.TotalEdges,
		"iterations":   stats.Iterations,
		"converged":    stats.Converged,
		"triggered_by": actor.Did,
	})
	event := ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    domain.EventTrustGraphRecomputed,
		PartitionKey: stats.RunID.String(),
		Payload:      payload,
		OccurredAt:   computedAt,
	}
	if err := s.scores.ReplaceAll(ctx, scores, stats, event); err != nil {
		return ComputeStats{}, fmt.Errorf("replace trust scores: %w", err)
	}

	detected := domain.DetectClusters(snap, res.Scores, s.cfg.Trust)
	reconciled, err := s.clusters.ReconcileDetected(ctx, detected, computedAt)
	if err != nil {
		return ComputeStats{}, fmt.Errorf("reconcile clusters: %w", err)
	}
	for _, c := range reconciled {
		if c.Status != domain.ClusterFlagged || !c.DetectedAt.Equal(computedAt) {
			continue
		}
		s.enqueueEvent(ctx, domain.EventClusterFlagged, c.ID.String(), map[string]any{
			"cluster_id":      c.ID.String(),
			"cluster_hash":    c.ClusterHash,
			"member_count":    c.MemberCount,
			"suspicion_ratio": c.SuspicionRatio(),
		})
	}

	s.raiseDiversityFlags(ctx, snap, computedAt)

	if !res.Converged {
		slog.Default().WarnContext(ctx, "trust propagation hit iteration cap",
			"module", "application",
			"operation", "compute_trust_graph",
			"outcome", "partial",
			"iterations", res.Iterations,
		)
	}

	return ComputeStats{
		TotalNodes:      stats.TotalNodes,
		TotalEdges:      stats.TotalEdges,
		Iterations:      stats.Iterations,
		Converged:       stats.Converged,
		DurationMs:      stats.DurationMs,
		ClustersFlagged: len(detected),
	}, nil
}

// TrustGraphStatus reports graph size and the last completed run.
func (s *Service) TrustGraphStatus(ctx context.Context, actor Actor) (GraphStatus, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleModerator {
		return GraphStatus{}, fmt.Errorf("%w: graph status requires a moderation role", domain.ErrForbidden)
	}
	edgeCount, err := s.edges.Count(ctx)
	if err != nil {
		return GraphStatus{}, err
	}
	status := GraphStatus{EdgeCount: edgeCount}
	run, err := s.scores.LastRun(ctx)
	if err == nil {
		status.NodeCount = int64(run.TotalNodes)
		status.ComputedAt = &run.ComputedAt
		status.LastRun = &ComputeStats{
			TotalNodes: run.TotalNodes,
			TotalEdges: run.TotalEdges,
			Iterations: run.Iterations,
			Converged:  run.Converged,
			DurationMs: run.DurationMs,
		}
	}
	return status, nil
}

// loadSeedSet unions explicit curated seeds with implicit moderator/admin
// seeds at computation time.
func (s *Service) loadSeedSet(ctx context.Context) (map[string]bool, error) {
	seeds, err := s.seeds.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trust seeds: %w", err)
	}
	set := make(map[string]bool, len(seeds))
	for _, seed := range seeds {
		set[seed.Did] = true
	}
	staff, err := s.accounts.ListByRoles(ctx, []string{domain.RoleModerator, domain.RoleAdmin})
	if err != nil {
		return nil, fmt.Errorf("load implicit seeds: %w", err)
	}
	for _, acct := range staff {
		if !acct.IsBanned {
			set[acct.Did] = true
		}
	}
	return set, nil
}

// loadPdsFactors resolves the per-node trust multiplier from each node's
// identity host, falling back to the default row for unmodeled hosts.
func (s *Service) loadPdsFactors(ctx context.Context, snap *domain.GraphSnapshot) ([]float64, error) {
	rows, err := s.pdsFactors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pds factors: %w", err)
	}
	byHost := make(map[string]float64, len(rows))
	fallback := 1.0
	for _, row := range rows {
		byHost[row.PdsHost] = row.TrustFactor
		if row.IsDefault {
			fallback = row.TrustFactor
		}
	}

	accounts, err := s.accounts.GetMany(ctx, snap.Dids)
	if err != nil {
		return nil, fmt.Errorf("load accounts for pds factors: %w", err)
	}
	factors := make([]float64, len(snap.Dids))
	for i, did := range snap.Dids {
		factors[i] = fallback
		if acct, ok := accounts[did]; ok {
			if f, ok := byHost[acct.PdsHost]; ok {
				factors[i] = f
			}
		}
	}
	return factors, nil
}

// raiseDiversityFlags flags accounts whose accumulated weight concentrates
// on very few counterparties: heavy activity with no interaction diversity
// is a grooming pattern worth a moderator's look, not an automatic action.
func (s *Service) raiseDiversityFlags(ctx context.Context, snap *domain.GraphSnapshot, at time.Time) {
	const minWeight, maxPartners = 10.0, 2
	for node, neighbors := range snap.Adjacency {
		if len(neighbors) == 0 || len(neighbors) > maxPartners {
			continue
		}
		total := 0.0
		affected := []string{snap.Dids[node]}
		for _, nb := range neighbors {
			total += nb.Weight
			affected = append(affected, snap.Dids[nb.Node])
		}
		if total < minWeight {
			continue
		}
		flag := domain.BehavioralFlag{
			ID:           uuid.New(),
			FlagType:     domain.FlagLowInteractionDiversity,
			AffectedDids: affected,
			Details:      fmt.Sprintf("weight %.1f concentrated on %d partner(s)", total, len(neighbors)),
			Status:       domain.FlagPending,
			DetectedAt:   at,
		}
		if err := s.flags.Create(ctx, flag); err != nil {
			slog.Default().WarnContext(ctx, "behavioral flag write failed",
				"module", "application",
				"operation", "raise_diversity_flag",
				"outcome", "failure",
				"error", err,
			)
		}
	}
}

// newOutboxEvent builds an event for repositories that enqueue inside the
// same transaction as the state change.
func newOutboxEvent(eventType, partitionKey string, at time.Time, body map[string]any) ports.OutboxEvent {
	payload, _ := json.Marshal(body)
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      payload,
		OccurredAt:   at,
	}
}

// enqueueEvent writes a best-effort outbox event outside any transaction.
// Transitions that need transactional audit pass events into repositories.
func (s *Service) enqueueEvent(ctx context.Context, eventType, partitionKey string, body map[string]any) {
	event := newOutboxEvent(eventType, partitionKey, s.nowFn(), body)
	if err := s.outbox.Enqueue(ctx, event); err != nil {
		slog.Default().WarnContext(ctx, "outbox enqueue failed",
			"module", "application",
			"operation", "enqueue_event",
			"outcome", "failure",
			"event_type", eventType,
			"error", err,
		)
	}
}
