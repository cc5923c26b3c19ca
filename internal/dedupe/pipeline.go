package dedupe

import "fmt"

// Run deduplicates one batch.
//
// All pairs are classified; duplicate pairs are resolved by priority and
// review pairs are clustered into groups for human review. Run only fails
// on invalid options or on missing or repeated record ids. Bad titles and
// DOIs never fail a batch; they just never match anything.
func Run(b Batch, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := checkIDs(b); err != nil {
		return nil, err
	}

	logger := opts.logger()
	recs := b.Records
	n := len(recs)

	norms := make([]Normalized, n)
	for i, r := range recs {
		norms[i] = Normalize(r)
	}

	c := NewClassifier(opts)
	var pairs []Pair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v, score, by := c.Classify(norms[i], norms[j])
			if v == VerdictDuplicate && sameCanonical(recs[i], recs[j], opts.CanonicalSource) {
				logger.Debug().
					Str("a", recs[i].ID).
					Str("b", recs[j].ID).
					Str("matched_by", string(by)).
					Msg("ignoring duplicate within canonical source")
				continue
			}
			if v == VerdictDistinct {
				continue
			}
			pairs = append(pairs, Pair{I: i, J: j, Verdict: v, Score: score, MatchedBy: by})
		}
	}

	res := ResolveDuplicates(recs, pairs, opts.Priority)
	for _, e := range res.Log {
		logger.Debug().
			Str("removed", e.Removed.ID).
			Str("kept", e.KeptID).
			Str("matched_by", string(e.MatchedBy)).
			Msg("auto-removed duplicate")
	}

	groups := BuildGroups(recs, pairs, res.Removed)

	inGroup := make([]bool, n)
	pending := 0
	for _, g := range groups {
		for _, m := range g.Members {
			inGroup[m.Index] = true
			if !m.AutoRemoved {
				pending++
			}
		}
	}

	result := &Result{
		Key:     b.Key,
		Records: recs,
		Removed: make(map[string]bool, len(res.Log)),
		Log:     res.Log,
		Groups:  groups,
		Pairs:   pairs,
	}
	for i, r := range recs {
		switch {
		case res.Removed[i]:
			result.Removed[r.ID] = true
		case !inGroup[i]:
			result.Survivors = append(result.Survivors, r)
		}
	}

	result.Summary = Summary{
		Initial:       n,
		Final:         len(result.Survivors),
		AutoRemoved:   len(res.Log),
		PendingReview: pending,
		ReviewGroups:  len(groups),
	}

	logger.Info().
		Int("initial", result.Summary.Initial).
		Int("auto_removed", result.Summary.AutoRemoved).
		Int("review_groups", result.Summary.ReviewGroups).
		Int("pending_review", result.Summary.PendingReview).
		Msg("batch deduplicated")

	return result, nil
}

// checkIDs verifies every record has an id unique within the batch.
func checkIDs(b Batch) error {
	seen := make(map[string]int, len(b.Records))
	for i, r := range b.Records {
		if r.ID == "" {
			return &RecordError{Batch: b.Key, Index: i, Err: ErrMissingID}
		}
		if first, ok := seen[r.ID]; ok {
			return &RecordError{
				Batch: b.Key, Index: i, ID: r.ID,
				Err: fmt.Errorf("%w (first seen at %d)", ErrDuplicateID, first),
			}
		}
		seen[r.ID] = i
	}
	return nil
}
