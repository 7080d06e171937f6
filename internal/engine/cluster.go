package engine

import (
	"fmt"
	"sort"

	"github.com/dvloznov/recon-engine/internal/domain"
)

type scoredEdge struct {
	i, j  int
	score float64
}

// Cluster groups transactions within one feed that likely represent the
// same event. An edge exists between two transactions when their score
// clears PossibleThreshold (the amount gate is inside Score itself).
//
// Under PolicyComponent, groups are connected components: if A~B and B~C,
// all three cluster even when A and C score lower. This deliberately
// favors recall; callers needing stricter behavior raise the threshold or
// switch to PolicyClique, which only groups transactions that each clear
// the threshold against every other member.
//
// Singletons are never emitted, groups are disjoint, and output order
// follows the first member's position in the feed.
func Cluster(txns []domain.Transaction, s Settings) ([]domain.DuplicateGroup, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(txns) < 2 {
		return nil, nil
	}

	edges := candidateEdges(txns, s)
	var members [][]int
	switch s.ClusterPolicy {
	case PolicyClique:
		members = cliqueMembers(txns, edges, s)
	default:
		members = componentMembers(len(txns), edges)
	}

	groups := make([]domain.DuplicateGroup, 0, len(members))
	for _, idxs := range members {
		if len(idxs) < 2 {
			continue
		}
		groups = append(groups, buildGroup(txns, idxs, s))
	}
	return groups, nil
}

func candidateEdges(txns []domain.Transaction, s Settings) []scoredEdge {
	var edges []scoredEdge
	for i := 0; i < len(txns); i++ {
		for j := i + 1; j < len(txns); j++ {
			score := Score(txns[i], txns[j], s)
			if score >= s.PossibleThreshold {
				edges = append(edges, scoredEdge{i: i, j: j, score: score})
			}
		}
	}
	return edges
}

// componentMembers returns connected components over the candidate edges,
// each sorted by feed position, ordered by their first member.
func componentMembers(n int, edges []scoredEdge) [][]int {
	uf := newUnionFind(n)
	for _, e := range edges {
		uf.union(e.i, e.j)
	}

	byRoot := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		byRoot[root] = append(byRoot[root], i)
	}

	var members [][]int
	for _, idxs := range byRoot {
		if len(idxs) < 2 {
			continue
		}
		sort.Ints(idxs)
		members = append(members, idxs)
	}
	sort.Slice(members, func(a, b int) bool { return members[a][0] < members[b][0] })
	return members
}

// cliqueMembers greedily grows groups in feed order, admitting a
// transaction only if it clears the threshold against every member
// already in the group.
func cliqueMembers(txns []domain.Transaction, edges []scoredEdge, s Settings) [][]int {
	adjacent := make(map[int]map[int]bool, len(txns))
	for _, e := range edges {
		if adjacent[e.i] == nil {
			adjacent[e.i] = make(map[int]bool)
		}
		if adjacent[e.j] == nil {
			adjacent[e.j] = make(map[int]bool)
		}
		adjacent[e.i][e.j] = true
		adjacent[e.j][e.i] = true
	}

	claimed := make([]bool, len(txns))
	var members [][]int
	for i := 0; i < len(txns); i++ {
		if claimed[i] || len(adjacent[i]) == 0 {
			continue
		}
		group := []int{i}
		for j := i + 1; j < len(txns); j++ {
			if claimed[j] {
				continue
			}
			compatible := true
			for _, m := range group {
				if !adjacent[m][j] {
					compatible = false
					break
				}
			}
			if compatible {
				group = append(group, j)
			}
		}
		if len(group) < 2 {
			continue
		}
		for _, m := range group {
			claimed[m] = true
		}
		members = append(members, group)
	}
	return members
}

func buildGroup(txns []domain.Transaction, idxs []int, s Settings) domain.DuplicateGroup {
	// Group ids derive from the anchor member so repeated calls over the
	// same input produce identical results.
	group := domain.DuplicateGroup{
		GroupID:      fmt.Sprintf("grp_%s", txns[idxs[0]].ID),
		Label:        domain.LabelDefinite,
		Transactions: make([]domain.Transaction, 0, len(idxs)),
	}

	// representativeScore is the weakest accepted edge in the group;
	// the definite label requires every pair to clear the definite
	// threshold, including pairs merged transitively.
	minEdge := 1.0
	for a := 0; a < len(idxs); a++ {
		for b := a + 1; b < len(idxs); b++ {
			score := Score(txns[idxs[a]], txns[idxs[b]], s)
			if score < s.DefiniteThreshold {
				group.Label = domain.LabelPossible
			}
			if score >= s.PossibleThreshold && score < minEdge {
				minEdge = score
			}
		}
	}
	group.RepresentativeScore = minEdge

	for _, idx := range idxs {
		group.Transactions = append(group.Transactions, txns[idx])
	}
	return group
}

// unionFind is a minimal disjoint-set with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		// Attach the higher root to the lower so roots stay
		// deterministic regardless of edge order.
		if ra < rb {
			u.parent[rb] = ra
		} else {
			u.parent[ra] = rb
		}
	}
}
