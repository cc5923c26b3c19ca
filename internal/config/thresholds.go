package config

import (
	"errors"
	"fmt"
)

// Bounds for user-adjustable thresholds, in percent.
const (
	MinMatch  = 90
	MaxMatch  = 100
	MinReview = 80
	MaxReview = 96
)

// ErrInvalidConfig matches every *ConfigError under errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError reports a configuration value that breaks a contract.
type ConfigError struct {
	Field string
	Value any
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s = %v: %s", e.Field, e.Value, e.Msg)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Thresholds holds the match and review percentages for approximate mode.
type Thresholds struct {
	Match  int `yaml:"match"`
	Review int `yaml:"review"`
}

// DefaultThresholds returns match 95, review 88.
func DefaultThresholds() Thresholds {
	return Thresholds{Match: 95, Review: 88}
}

// SetMatch clamps v into bounds and stores it. If the review threshold is
// no longer below it, review drops to v-1.
//
// The setters keep review strictly below match, even on a tie, the way the
// paired threshold sliders clamp each other. Validate only rejects
// review > match, so a config file may set them equal.
func (t *Thresholds) SetMatch(v int) {
	t.Match = clamp(v, MinMatch, MaxMatch)
	if t.Match <= t.Review {
		t.Review = clamp(t.Match-1, MinReview, MaxReview)
	}
}

// SetReview clamps v into bounds and stores it. If the match threshold is
// no longer above it, match rises to v+1.
func (t *Thresholds) SetReview(v int) {
	t.Review = clamp(v, MinReview, MaxReview)
	if t.Review >= t.Match {
		t.Match = clamp(t.Review+1, MinMatch, MaxMatch)
	}
}

// Validate rejects out-of-range values and a review threshold above match.
func (t Thresholds) Validate() error {
	if t.Match < MinMatch || t.Match > MaxMatch {
		return &ConfigError{Field: "thresholds.match", Value: t.Match,
			Msg: fmt.Sprintf("outside [%d, %d]", MinMatch, MaxMatch)}
	}
	if t.Review < MinReview || t.Review > MaxReview {
		return &ConfigError{Field: "thresholds.review", Value: t.Review,
			Msg: fmt.Sprintf("outside [%d, %d]", MinReview, MaxReview)}
	}
	if t.Review > t.Match {
		return &ConfigError{Field: "thresholds.review", Value: t.Review,
			Msg: fmt.Sprintf("exceeds match threshold %d", t.Match)}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
