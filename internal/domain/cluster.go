package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Cluster lifecycle. New detections start flagged; operators move them to
// monitoring, dismissed or banned. Banned and dismissed are terminal,
// except that re-banning a banned cluster is an idempotent no-op.
const (
	ClusterFlagged    = "flagged"
	ClusterMonitoring = "monitoring"
	ClusterDismissed  = "dismissed"
	ClusterBanned     = "banned"
)

const (
	ClusterRoleCore       = "core"
	ClusterRolePeripheral = "peripheral"
)

// ValidClusterStatus reports whether s names a known lifecycle state.
func ValidClusterStatus(s string) bool {
	switch s {
	case ClusterFlagged, ClusterMonitoring, ClusterDismissed, ClusterBanned:
		return true
	}
	return false
}

// CanTransitionCluster encodes the allowed lifecycle moves.
func CanTransitionCluster(from, to string) bool {
	switch from {
	case ClusterFlagged:
		return to == ClusterMonitoring || to == ClusterDismissed || to == ClusterBanned
	case ClusterMonitoring:
		return to == ClusterDismissed || to == ClusterBanned
	case ClusterBanned:
		// idempotent re-ban only
		return to == ClusterBanned
	default:
		return false
	}
}

// SybilCluster is a flagged densely-interconnected low-trust component.
type SybilCluster struct {
	ID                uuid.UUID  `json:"id"`
	ClusterHash       string     `json:"cluster_hash"`
	InternalEdgeCount int        `json:"internal_edge_count"`
	ExternalEdgeCount int        `json:"external_edge_count"`
	MemberCount       int        `json:"member_count"`
	Status            string     `json:"status"`
	ReviewedBy        string     `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
	DetectedAt        time.Time  `json:"detected_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// SuspicionRatio is recomputed at read time, never stored redundantly.
// Zero-edge components score 0 by convention.
func (c SybilCluster) SuspicionRatio() float64 {
	total := c.InternalEdgeCount + c.ExternalEdgeCount
	if total == 0 {
		return 0
	}
	return float64(c.InternalEdgeCount) / float64(total)
}

// SybilClusterMember ties a DID to a cluster with its structural role.
// Invariant: a DID belongs to at most one active (non-dismissed) cluster.
type SybilClusterMember struct {
	ClusterID     uuid.UUID `json:"cluster_id"`
	Did           string    `json:"did"`
	RoleInCluster string    `json:"role_in_cluster"`
	JoinedAt      time.Time `json:"joined_at"`
}

// DetectedCluster is the detector's output before persistence reconciles it
// against existing rows by hash.
type DetectedCluster struct {
	ClusterHash       string
	InternalEdgeCount int
	ExternalEdgeCount int
	Members           []DetectedMember
	SuspicionRatio    float64
	MeanTrust         float64
}

type DetectedMember struct {
	Did    string
	Role   string
	Degree int
}

// ClusterHash derives a stable identity from the sorted member DID set so
// repeated runs recognize "the same" cluster instead of duplicating rows.
func ClusterHash(dids []string) string {
	sorted := append([]string(nil), dids...)
	sort.Strings(sorted)
	h := sha256.New()
	for _, did := range sorted {
		h.Write([]byte(did))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DetectClusters partitions the low-trust subgraph (nodes scoring below
// LowTrustCutoff) into connected components and flags the components
// matching the sybil signature: at least MinClusterSize members and
// suspicion ratio above threshold. Edges from a member to a higher-trust
// neighbor count as external, so a brigading bridge into the honest graph
// raises the external count rather than absorbing the cluster into the
// main component. Members with degree above the component median are core,
// the rest peripheral.
func DetectClusters(s *GraphSnapshot, scores []float64, cfg TrustSettings) []DetectedCluster {
	minSize := cfg.MinClusterSize
	if minSize <= 0 {
		minSize = 3
	}
	lowTrust := make([]bool, len(s.Dids))
	for i := range lowTrust {
		lowTrust[i] = scores[i] < cfg.LowTrustCutoff
	}

	var out []DetectedCluster
	for _, members := range s.ComponentsAmong(lowTrust) {
		if len(members) < minSize {
			continue
		}

		// Adjacent low-trust nodes share a component by construction, so
		// the include mask doubles as the membership test.
		internal, external := 0, 0
		trustSum := 0.0
		for _, m := range members {
			trustSum += scores[m]
			for _, nb := range s.Adjacency[m] {
				if lowTrust[nb.Node] {
					internal++ // counted from both endpoints, halved below
				} else {
					external++
				}
			}
		}
		internal /= 2

		cluster := DetectedCluster{
			InternalEdgeCount: internal,
			ExternalEdgeCount: external,
			MeanTrust:         trustSum / float64(len(members)),
		}
		total := internal + external
		if total > 0 {
			cluster.SuspicionRatio = float64(internal) / float64(total)
		}
		if cluster.SuspicionRatio <= cfg.SuspicionThreshold {
			continue
		}

		degrees := make([]int, len(members))
		dids := make([]string, len(members))
		for i, m := range members {
			degrees[i] = s.Degree(m)
			dids[i] = s.Dids[m]
		}
		median := medianDegree(degrees)
		for i, m := range members {
			role := ClusterRolePeripheral
			if s.Degree(m) > median {
				role = ClusterRoleCore
			}
			cluster.Members = append(cluster.Members, DetectedMember{Did: s.Dids[m], Role: role, Degree: degrees[i]})
		}
		sort.Slice(cluster.Members, func(i, j int) bool { return cluster.Members[i].Did < cluster.Members[j].Did })
		cluster.ClusterHash = ClusterHash(dids)
		out = append(out, cluster)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClusterHash < out[j].ClusterHash })
	return out
}

func medianDegree(degrees []int) int {
	if len(degrees) == 0 {
		return 0
	}
	sorted := append([]int(nil), degrees...)
	sort.Ints(sorted)
	return sorted[len(sorted)/2]
}
