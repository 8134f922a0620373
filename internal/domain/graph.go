package domain

import (
	"strings"
	"time"
)

// Interaction kinds recorded by the content path. Weights accumulate on a
// single undirected edge per account pair.
const (
	InteractionReply           = "reply"
	InteractionReaction        = "reaction"
	InteractionCoParticipation = "co_participation"
)

// InteractionWeight returns the weight contribution of one interaction event.
// Replies are the strongest co-engagement signal, drive-by reactions the
// weakest shared-thread signal above co-participation.
func InteractionWeight(kind string) float64 {
	switch kind {
	case InteractionReply:
		return 1.0
	case InteractionReaction:
		return 0.5
	case InteractionCoParticipation:
		return 0.25
	default:
		return 0
	}
}

// InteractionEdge is one undirected weighted edge of the interaction graph.
// Invariant: SourceDid < TargetDid lexicographically, so each pair maps to
// exactly one row and repeated interaction accumulates weight.
type InteractionEdge struct {
	SourceDid         string    `json:"source_did"`
	TargetDid         string    `json:"target_did"`
	Weight            float64   `json:"weight"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
}

// NormalizeEdge orders an account pair into canonical edge form.
// Returns ErrSelfInteraction for self-loops.
func NormalizeEdge(a, b string) (string, string, error) {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == b {
		return "", "", ErrSelfInteraction
	}
	if a > b {
		a, b = b, a
	}
	return a, b, nil
}

// GraphSnapshot is the adjacency arena built once per batch run. Nodes are
// indexed by position; edges reference node indexes. Built from rows, not
// live object references, so there is no cyclic structure to manage.
type GraphSnapshot struct {
	Dids      []string
	index     map[string]int
	Adjacency [][]Neighbor
	EdgeCount int
}

// Neighbor is one adjacency entry: the peer node index and the edge weight.
type Neighbor struct {
	Node   int
	Weight float64
}

// BuildSnapshot constructs the arena from an edge list. Every DID appearing
// on an edge becomes a node; isolated accounts carry no trust signal and
// are left out deliberately.
func BuildSnapshot(edges []InteractionEdge) *GraphSnapshot {
	s := &GraphSnapshot{index: make(map[string]int)}
	nodeOf := func(did string) int {
		if i, ok := s.index[did]; ok {
			return i
		}
		i := len(s.Dids)
		s.index[did] = i
		s.Dids = append(s.Dids, did)
		s.Adjacency = append(s.Adjacency, nil)
		return i
	}
	for _, e := range edges {
		if e.SourceDid == e.TargetDid || e.Weight <= 0 {
			continue
		}
		u, v := nodeOf(e.SourceDid), nodeOf(e.TargetDid)
		s.Adjacency[u] = append(s.Adjacency[u], Neighbor{Node: v, Weight: e.Weight})
		s.Adjacency[v] = append(s.Adjacency[v], Neighbor{Node: u, Weight: e.Weight})
		s.EdgeCount++
	}
	return s
}

// NodeIndex resolves a DID to its arena index.
func (s *GraphSnapshot) NodeIndex(did string) (int, bool) {
	i, ok := s.index[did]
	return i, ok
}

// Degree returns the number of incident edges for a node.
func (s *GraphSnapshot) Degree(node int) int {
	return len(s.Adjacency[node])
}

// ComponentsAmong partitions the included nodes into connected components
// via union-find. Only edges with both endpoints included are unioned, so
// an edge crossing the include boundary separates components instead of
// merging them.
func (s *GraphSnapshot) ComponentsAmong(include []bool) [][]int {
	n := len(s.Dids)
	parent := make([]int, n)
	rank := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if rank[ra] < rank[rb] {
			ra, rb = rb, ra
		}
		parent[rb] = ra
		if rank[ra] == rank[rb] {
			rank[ra]++
		}
	}
	for u, neighbors := range s.Adjacency {
		if !include[u] {
			continue
		}
		for _, nb := range neighbors {
			if include[nb.Node] {
				union(u, nb.Node)
			}
		}
	}

	groups := make(map[int][]int)
	for i := 0; i < n; i++ {
		if !include[i] {
			continue
		}
		root := find(i)
		groups[root] = append(groups[root], i)
	}
	out := make([][]int, 0, len(groups))
	for _, members := range groups {
		out = append(out, members)
	}
	return out
}
