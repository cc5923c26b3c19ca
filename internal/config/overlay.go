package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/matsen/pubmerge/internal/dedupe"
)

// EnvPrefix prefixes environment overrides, e.g. PUBMERGE_MATCH.
const EnvPrefix = "PUBMERGE"

// Override keys understood by Overlay. Flags bound under these names and
// PUBMERGE_* variables both count.
const (
	KeyMode      = "mode"
	KeyMatch     = "match"
	KeyReview    = "review"
	KeyCanonical = "canonical"
	KeyGroupBy   = "group-by"
	KeyPageSize  = "page-size"
	KeyPriority  = "priority"
	KeyLogLevel  = "log-level"
)

// NewViper returns a viper instance reading PUBMERGE_* variables,
// with dashes in keys mapped to underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Overlay applies every key set in v on top of c. Thresholds go through
// the clamping setters, match first.
func Overlay(c *Config, v *viper.Viper) error {
	if v.IsSet(KeyMode) {
		c.Mode = v.GetString(KeyMode)
	}
	if v.IsSet(KeyMatch) {
		c.Thresholds.SetMatch(v.GetInt(KeyMatch))
	}
	if v.IsSet(KeyReview) {
		c.Thresholds.SetReview(v.GetInt(KeyReview))
	}
	if v.IsSet(KeyCanonical) {
		c.CanonicalSource = v.GetString(KeyCanonical)
	}
	if v.IsSet(KeyGroupBy) {
		c.GroupBy = v.GetString(KeyGroupBy)
	}
	if v.IsSet(KeyPageSize) {
		c.PageSize = v.GetInt(KeyPageSize)
	}
	if v.IsSet(KeyLogLevel) {
		c.LogLevel = v.GetString(KeyLogLevel)
	}
	if v.IsSet(KeyPriority) {
		p, err := ParsePriority(v.GetString(KeyPriority))
		if err != nil {
			return err
		}
		c.Priority = p
	}
	return nil
}

// ParsePriority parses a comma-separated ranking of source[:detail]
// entries, best first. "primary,secondary:journal,secondary" ranks primary
// records first, then secondary journal records, then other secondary ones.
func ParsePriority(s string) ([]dedupe.PriorityEntry, error) {
	var out []dedupe.PriorityEntry
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		src, detail, _ := strings.Cut(part, ":")
		src = strings.TrimSpace(src)
		if src == "" {
			return nil, &ConfigError{Field: "priority", Value: part, Msg: "missing source name"}
		}
		out = append(out, dedupe.PriorityEntry{Source: src, OriginDetail: strings.TrimSpace(detail)})
	}
	if len(out) == 0 {
		return nil, &ConfigError{Field: "priority", Value: s, Msg: "no entries"}
	}
	return out, nil
}

// FormatPriority renders entries in the form ParsePriority accepts.
func FormatPriority(entries []dedupe.PriorityEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		if e.OriginDetail == "" {
			parts[i] = e.Source
		} else {
			parts[i] = fmt.Sprintf("%s:%s", e.Source, e.OriginDetail)
		}
	}
	return strings.Join(parts, ",")
}
