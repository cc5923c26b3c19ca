package dedupe

import (
	"github.com/matsen/pubmerge/internal/record"
)

// PriorityEntry ranks one (source, origin detail) combination.
// An empty OriginDetail matches any detail of the source.
type PriorityEntry struct {
	Source       string `yaml:"source" json:"source"`
	OriginDetail string `yaml:"origin_detail,omitempty" json:"origin_detail,omitempty"`
}

// PriorityTable is an ordered ranking where earlier entries win.
type PriorityTable []PriorityEntry

// Priority returns the rank of a record; lower wins.
// An exact (source, detail) entry is preferred over a source wildcard.
// Records matching no entry rank after every listed entry.
func (t PriorityTable) Priority(r record.Record) int {
	wildcard := -1
	for i, e := range t {
		if e.Source != r.Source {
			continue
		}
		if e.OriginDetail == r.OriginDetail && r.OriginDetail != "" {
			return i
		}
		if e.OriginDetail == "" && wildcard < 0 {
			wildcard = i
		}
	}
	if wildcard >= 0 {
		return wildcard
	}
	return len(t)
}

// ranker caches priorities for the records of one batch.
type ranker struct {
	ranks []int
}

func newRanker(recs []record.Record, t PriorityTable) ranker {
	ranks := make([]int, len(recs))
	for i, r := range recs {
		ranks[i] = t.Priority(r)
	}
	return ranker{ranks: ranks}
}

// better reports whether batch position a outranks b.
// Equal priorities fall back to batch order.
func (rk ranker) better(a, b int) bool {
	if rk.ranks[a] != rk.ranks[b] {
		return rk.ranks[a] < rk.ranks[b]
	}
	return a < b
}

// split returns the (keep, remove) positions of a pair.
func (rk ranker) split(p Pair) (int, int) {
	if rk.better(p.I, p.J) {
		return p.I, p.J
	}
	return p.J, p.I
}
