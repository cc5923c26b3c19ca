// Package dedupe classifies, resolves, and clusters duplicate records within a batch.
package dedupe

import (
	"github.com/matsen/pubmerge/internal/record"
)

// Verdict is the classification of an unordered record pair.
type Verdict string

const (
	VerdictDistinct  Verdict = "distinct"  // Not the same publication
	VerdictReview    Verdict = "review"    // Ambiguous, needs a human
	VerdictDuplicate Verdict = "duplicate" // Same publication, auto-resolved
)

// strength orders verdicts from weakest to strongest.
func (v Verdict) strength() int {
	switch v {
	case VerdictDuplicate:
		return 2
	case VerdictReview:
		return 1
	default:
		return 0
	}
}

// MatchedBy records which evidence produced a non-distinct verdict.
type MatchedBy string

const (
	MatchedByNone       MatchedBy = ""
	MatchedByDOI        MatchedBy = "doi"
	MatchedByTitle      MatchedBy = "title"      // Exact normalized title
	MatchedBySimilarity MatchedBy = "similarity" // Jaro-Winkler score
)

// RemovalReason is the reason tag on every automatic removal.
const RemovalReason = "duplicate by title/DOI match"

// Batch is the unit of deduplication: the records of one author or
// grouping key, from all sources, in caller order.
type Batch struct {
	Key     string
	Records []record.Record
}

// Normalized holds the comparison forms of a record.
type Normalized struct {
	Title string
	DOI   string
}

// Pair is a classified pair of batch positions with I < J.
type Pair struct {
	I, J      int
	Verdict   Verdict
	Score     float64 // Similarity score, 0 unless computed
	MatchedBy MatchedBy
}

// Member is one record inside a review group.
type Member struct {
	Record     record.Record
	Index      int     // Position in the batch
	Similarity float64 // Highest score against a group neighbor
	// AutoRemoved marks records already removed as duplicates. They stay in
	// the group so chains through them remain visible, but never survive.
	AutoRemoved bool
}

// Group is a maximal set of records linked by review verdicts.
type Group struct {
	Index   int      // Position in review order
	Members []Member // Sorted by batch position
}

// IDs returns the member record ids in order.
func (g Group) IDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.Record.ID
	}
	return ids
}

// Contains reports whether the group has a member with the given id.
func (g Group) Contains(id string) bool {
	_, ok := g.Member(id)
	return ok
}

// Member returns the member with the given id.
func (g Group) Member(id string) (Member, bool) {
	for _, m := range g.Members {
		if m.Record.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// LogEntry records one automatically removed record.
type LogEntry struct {
	Removed   record.Record `json:"removed"`
	KeptID    string        `json:"kept_id"`
	KeptTitle string        `json:"kept_title"`
	KeptDOI   string        `json:"kept_doi,omitempty"`
	Reason    string        `json:"reason"`
	MatchedBy MatchedBy     `json:"matched_by"`
}

// Summary holds the counts reported for a batch.
type Summary struct {
	Initial       int `json:"initial"`
	Final         int `json:"final"`
	AutoRemoved   int `json:"auto_removed"`
	PendingReview int `json:"pending_review"` // Records awaiting a decision
	ReviewGroups  int `json:"review_groups"`
}

// Result is the outcome of deduplicating one batch before human review.
// It is owned by the caller and must be treated as read-only.
type Result struct {
	Key     string
	Records []record.Record // The batch as given

	// Survivors are records neither removed nor awaiting review, in batch order.
	Survivors []record.Record
	Removed   map[string]bool // Ids of auto-removed records
	Log       []LogEntry      // In batch order of the removed record
	Groups    []Group
	Pairs     []Pair // Non-distinct pairs, in (I, J) order

	Summary Summary
}
