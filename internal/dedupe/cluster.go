package dedupe

import (
	"github.com/matsen/pubmerge/internal/record"
)

// reviewGraph is an undirected graph over batch positions whose edges are
// review pairs.
type reviewGraph struct {
	adj   [][]int   // Neighbors per position
	score []float64 // Best edge score per position
}

func newReviewGraph(n int) *reviewGraph {
	return &reviewGraph{
		adj:   make([][]int, n),
		score: make([]float64, n),
	}
}

func (g *reviewGraph) addEdge(p Pair) {
	g.adj[p.I] = append(g.adj[p.I], p.J)
	g.adj[p.J] = append(g.adj[p.J], p.I)
	g.score[p.I] = max(g.score[p.I], p.Score)
	g.score[p.J] = max(g.score[p.J], p.Score)
}

// bitset tracks visited positions.
type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i int)      { b[i/64] |= 1 << (uint(i) % 64) }
func (b bitset) has(i int) bool { return b[i/64]&(1<<(uint(i)%64)) != 0 }

// BuildGroups groups records linked by review pairs into connected components.
//
// Seeds are taken in ascending batch position, so groups come out ordered
// by their lowest member and members are sorted by position. Records with
// no review edge appear in no group. removed may be nil.
func BuildGroups(recs []record.Record, pairs []Pair, removed []bool) []Group {
	n := len(recs)
	g := newReviewGraph(n)
	for _, p := range pairs {
		if p.Verdict == VerdictReview {
			g.addEdge(p)
		}
	}

	visited := newBitset(n)
	var groups []Group
	queue := make([]int, 0, n)

	for seed := 0; seed < n; seed++ {
		if visited.has(seed) || len(g.adj[seed]) == 0 {
			continue
		}

		// BFS from seed; component collects positions in visit order.
		component := newBitset(n)
		visited.set(seed)
		component.set(seed)
		queue = append(queue[:0], seed)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range g.adj[cur] {
				if visited.has(next) {
					continue
				}
				visited.set(next)
				component.set(next)
				queue = append(queue, next)
			}
		}

		group := Group{Index: len(groups)}
		for i := seed; i < n; i++ {
			if !component.has(i) {
				continue
			}
			group.Members = append(group.Members, Member{
				Record:      recs[i],
				Index:       i,
				Similarity:  g.score[i],
				AutoRemoved: removed != nil && removed[i],
			})
		}
		groups = append(groups, group)
	}

	return groups
}
