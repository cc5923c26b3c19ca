// Package record defines the publication record handled by the deduplication core.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Well-known source names.
const (
	SourcePrimary   = "primary"
	SourceSecondary = "secondary"
)

// Keys of the core fields in the flat JSON form.
const (
	KeyID           = "id"
	KeySource       = "source"
	KeyTitle        = "title"
	KeyDOI          = "doi"
	KeyOriginDetail = "origin_detail"
)

// Record represents one publication from one source.
//
// The core reads the fixed fields and never inspects Extra, which carries
// source-specific columns through to the output untouched.
type Record struct {
	ID           string // Caller-assigned, unique within a batch
	Source       string // primary, secondary-A, ...
	Title        string
	DOI          string // May carry a https://doi.org/ prefix
	OriginDetail string // Sub-source tag, used only for priority ranking

	Extra map[string]any
}

// Get returns an extra field by name.
func (r Record) Get(key string) (any, bool) {
	v, ok := r.Extra[key]
	return v, ok
}

// GetString returns an extra field formatted as a string.
// Missing and null fields yield "".
func (r Record) GetString(key string) string {
	v, ok := r.Extra[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Clone returns a copy that shares nothing mutable with r.
func (r Record) Clone() Record {
	c := r
	if r.Extra != nil {
		c.Extra = maps.Clone(r.Extra)
	}
	return c
}

// MarshalJSON writes the record as one flat object. HTML characters in
// titles are written as-is.
func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Extra)+5)
	for k, v := range r.Extra {
		m[k] = v
	}
	m[KeyID] = r.ID
	m[KeySource] = r.Source
	m[KeyTitle] = r.Title
	m[KeyDOI] = r.DOI
	if r.OriginDetail != "" {
		m[KeyOriginDetail] = r.OriginDetail
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON reads a flat object. Core keys that are null or missing
// become empty strings; non-string core values are formatted.
// Numbers are kept as json.Number so large integer ids survive intact.
// Non-scalar extra values are rejected.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("record must be a JSON object")
	}

	*r = Record{
		ID:           takeString(m, KeyID),
		Source:       takeString(m, KeySource),
		Title:        takeString(m, KeyTitle),
		DOI:          takeString(m, KeyDOI),
		OriginDetail: takeString(m, KeyOriginDetail),
	}

	for k, v := range m {
		switch v.(type) {
		case nil, string, json.Number, float64, bool:
		default:
			return fmt.Errorf("field %q: only scalar values are supported", k)
		}
	}
	if len(m) > 0 {
		r.Extra = m
	}
	return nil
}

// takeString removes key from m and returns its value as a string.
func takeString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	delete(m, key)
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprint(t)
	}
}

// SourceRecords is the ordered output of one source for one fetch.
type SourceRecords struct {
	Source  string
	Records []Record
}

// Concat joins source outputs in argument order. Records without a Source
// are stamped with the source they came from.
func Concat(sources ...SourceRecords) []Record {
	n := 0
	for _, s := range sources {
		n += len(s.Records)
	}

	out := make([]Record, 0, n)
	for _, s := range sources {
		for _, r := range s.Records {
			if r.Source == "" {
				r.Source = s.Source
			}
			out = append(out, r)
		}
	}
	return out
}
