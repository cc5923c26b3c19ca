package dedupe

import (
	"github.com/matsen/pubmerge/internal/record"
)

// Resolution is the outcome of priority resolution over duplicate pairs.
type Resolution struct {
	Removed []bool // Indexed by batch position
	Log     []LogEntry
}

// ResolveDuplicates decides which records of duplicate pairs are removed.
//
// Every record that loses at least one pair is removed, so the outcome does
// not depend on pair order, and the best-ranked record of each chain of
// duplicates always survives. A removed record is logged once, against the
// best-ranked surviving record it lost to, or its best-ranked winner if all
// of them were removed too.
func ResolveDuplicates(recs []record.Record, pairs []Pair, priority PriorityTable) Resolution {
	rk := newRanker(recs, priority)
	n := len(recs)

	removed := make([]bool, n)
	for _, p := range pairs {
		if p.Verdict != VerdictDuplicate {
			continue
		}
		_, drop := rk.split(p)
		removed[drop] = true
	}

	// Attribute each removal to one winner.
	winner := make([]int, n)
	via := make([]MatchedBy, n)
	for i := range winner {
		winner[i] = -1
	}
	for _, p := range pairs {
		if p.Verdict != VerdictDuplicate {
			continue
		}
		keep, drop := rk.split(p)
		cur := winner[drop]
		if cur < 0 || preferWinner(rk, removed, keep, cur) {
			winner[drop] = keep
			via[drop] = p.MatchedBy
		}
	}

	res := Resolution{Removed: removed}
	for i, w := range winner {
		if w < 0 {
			continue
		}
		kept := recs[w]
		res.Log = append(res.Log, LogEntry{
			Removed:   recs[i],
			KeptID:    kept.ID,
			KeptTitle: kept.Title,
			KeptDOI:   kept.DOI,
			Reason:    RemovalReason,
			MatchedBy: via[i],
		})
	}
	return res
}

// preferWinner reports whether candidate is a better log target than cur.
// Surviving winners come first, then rank.
func preferWinner(rk ranker, removed []bool, candidate, cur int) bool {
	if removed[candidate] != removed[cur] {
		return !removed[candidate]
	}
	return rk.better(candidate, cur)
}

// sameCanonical reports whether both records come from the canonical source.
func sameCanonical(a, b record.Record, canonical string) bool {
	return canonical != "" && a.Source == canonical && b.Source == canonical
}
