package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TrustSeed is an explicit admin-curated anchor for score propagation.
type TrustSeed struct {
	Did       string    `json:"did"`
	AddedBy   string    `json:"added_by"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// PdsTrustFactor weights an account's trust contribution by the host that
// serves its identity. Exactly one row carries IsDefault and acts as the
// fallback for unmodeled hosts.
type PdsTrustFactor struct {
	PdsHost     string    `json:"pds_host"`
	TrustFactor float64   `json:"trust_factor"`
	IsDefault   bool      `json:"is_default"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidatePdsTrustFactor rejects out-of-range factors and malformed hosts
// before anything touches storage.
func ValidatePdsTrustFactor(host string, factor float64) error {
	if factor < 0 || factor > 1 {
		return fmt.Errorf("%w: trust factor %v outside [0,1]", ErrInvalidInput, factor)
	}
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" || strings.ContainsAny(host, " /:@") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return fmt.Errorf("%w: malformed pds host %q", ErrInvalidInput, host)
	}
	return nil
}

// TrustScore is one account's propagated score. Rows are wholly replaced by
// each batch run, never interpolated between runs.
type TrustScore struct {
	Did        string    `json:"did"`
	Score      float64   `json:"score"`
	ComputedAt time.Time `json:"computed_at"`
}

// TrustSettings is the immutable per-run configuration for propagation and
// cluster detection. Loaded once per operation and threaded explicitly.
type TrustSettings struct {
	Epsilon            float64
	MaxIterations      int
	Damping            float64
	LowTrustCutoff     float64
	MinClusterSize     int
	SuspicionThreshold float64
	RecomputeCooldown  time.Duration
	// HighWeightEdge is the direct-link fallback threshold used by ban
	// propagation when an account has no cluster membership.
	HighWeightEdge float64
	// BanPropagationThreshold is the number of banned accounts linked to a
	// target before remaining linked accounts are placed under monitoring.
	BanPropagationThreshold int
}

// PropagationResult reports one propagation run over a snapshot.
type PropagationResult struct {
	Scores     []float64
	Iterations int
	Converged  bool
}

// PropagateTrust runs damped iterative score propagation over the snapshot.
//
// Seeds start at 1.0 and are re-pinned after every iteration; everyone else
// starts at 0.0. A node's next score is the weighted average of its
// neighbors' previous scores, each neighbor weighted by edge weight times
// the neighbor's PDS trust factor, then damped toward 0 so scores cannot
// inflate past their sources. Iteration stops when the largest per-node
// delta drops below epsilon, or at the cap with Converged=false.
func PropagateTrust(s *GraphSnapshot, seeds map[string]bool, pdsFactor []float64, cfg TrustSettings) PropagationResult {
	n := len(s.Dids)
	scores := make([]float64, n)
	next := make([]float64, n)
	seedIdx := make([]bool, n)
	for did := range seeds {
		if i, ok := s.NodeIndex(did); ok {
			seedIdx[i] = true
			scores[i] = 1.0
		}
	}

	damping := cfg.Damping
	if damping <= 0 || damping > 1 {
		damping = 0.85
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 50
	}
	epsilon := cfg.Epsilon
	if epsilon <= 0 {
		epsilon = 1e-4
	}

	iterations := 0
	converged := false
	for iterations < maxIter {
		iterations++
		maxDelta := 0.0
		for v := 0; v < n; v++ {
			var weighted, total float64
			for _, nb := range s.Adjacency[v] {
				w := nb.Weight * pdsFactor[nb.Node]
				weighted += w * scores[nb.Node]
				total += w
			}
			val := 0.0
			if total > 0 {
				val = damping * (weighted / total)
			}
			if seedIdx[v] {
				val = 1.0
			}
			next[v] = val
			if d := math.Abs(val - scores[v]); d > maxDelta {
				maxDelta = d
			}
		}
		scores, next = next, scores
		if maxDelta < epsilon {
			converged = true
			break
		}
	}
	return PropagationResult{Scores: scores, Iterations: iterations, Converged: converged}
}

// ClampScore bounds a score into [0,1].
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
