package dedupe

import (
	"github.com/matsen/pubmerge/internal/normalize"
	"github.com/matsen/pubmerge/internal/record"
	"github.com/matsen/pubmerge/internal/similarity"
)

// Classifier applies the two-threshold policy to record pairs.
type Classifier struct {
	Mode            Mode
	MatchThreshold  int
	ReviewThreshold int
}

// NewClassifier returns a classifier for the given options.
func NewClassifier(opts Options) Classifier {
	return Classifier{
		Mode:            opts.Mode,
		MatchThreshold:  opts.MatchThreshold,
		ReviewThreshold: opts.ReviewThreshold,
	}
}

// Normalize computes the comparison forms of a record.
func Normalize(r record.Record) Normalized {
	return Normalized{
		Title: normalize.Title(r.Title),
		DOI:   normalize.DOI(r.DOI),
	}
}

// Classify decides the verdict for a pair of normalized records.
// DOI equality is checked first and wins in either mode. A pair with an
// empty title on either side and no DOI match is always distinct.
func (c Classifier) Classify(a, b Normalized) (Verdict, float64, MatchedBy) {
	if a.DOI != "" && a.DOI == b.DOI {
		return VerdictDuplicate, 0, MatchedByDOI
	}
	if a.Title == "" || b.Title == "" {
		return VerdictDistinct, 0, MatchedByNone
	}

	if c.Mode != ModeApproximate {
		if a.Title == b.Title {
			return VerdictDuplicate, 0, MatchedByTitle
		}
		return VerdictDistinct, 0, MatchedByNone
	}

	score := similarity.JaroWinkler(a.Title, b.Title)
	v := c.VerdictForScore(score)
	if v == VerdictDistinct {
		return v, score, MatchedByNone
	}
	return v, score, MatchedBySimilarity
}

// VerdictForScore maps a similarity score to a verdict. Both comparisons
// are strict, so a score equal to a threshold falls into the weaker verdict.
func (c Classifier) VerdictForScore(score float64) Verdict {
	switch {
	case score > float64(c.MatchThreshold)/100:
		return VerdictDuplicate
	case score > float64(c.ReviewThreshold)/100:
		return VerdictReview
	default:
		return VerdictDistinct
	}
}
