package dedupe

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Mode selects how titles are compared.
type Mode string

const (
	// ModeStandard matches on DOI or exact normalized title only.
	ModeStandard Mode = "standard"
	// ModeApproximate adds Jaro-Winkler similarity with two thresholds.
	ModeApproximate Mode = "approximate"
)

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStandard, ModeApproximate:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (valid: %s, %s)", s, ModeStandard, ModeApproximate)
}

// Options configures one deduplication run.
type Options struct {
	Mode Mode

	// Percentages: a score above MatchThreshold/100 is a duplicate, a score
	// above ReviewThreshold/100 needs review. Only used in approximate mode.
	MatchThreshold  int
	ReviewThreshold int

	Priority PriorityTable

	// CanonicalSource names the source trusted to be internally unique.
	// Duplicate pairs with both records from it never cause a removal.
	// Empty disables the rule.
	CanonicalSource string

	// Logger receives debug events for removals and a per-batch summary.
	// Nil discards them.
	Logger *zerolog.Logger
}

// Validate checks the options for contract violations.
func (o Options) Validate() error {
	if _, err := ParseMode(string(o.Mode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if o.Mode == ModeApproximate {
		if o.MatchThreshold < 0 || o.MatchThreshold > 100 {
			return fmt.Errorf("%w: match threshold %d outside [0, 100]", ErrInvalidOptions, o.MatchThreshold)
		}
		if o.ReviewThreshold < 0 || o.ReviewThreshold > 100 {
			return fmt.Errorf("%w: review threshold %d outside [0, 100]", ErrInvalidOptions, o.ReviewThreshold)
		}
		if o.ReviewThreshold > o.MatchThreshold {
			return fmt.Errorf("%w: review threshold %d exceeds match threshold %d",
				ErrInvalidOptions, o.ReviewThreshold, o.MatchThreshold)
		}
	}
	return nil
}

func (o Options) logger() *zerolog.Logger {
	if o.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return o.Logger
}
