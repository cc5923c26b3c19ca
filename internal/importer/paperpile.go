// Package importer converts external library exports into source records.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/matsen/pubmerge/internal/record"
)

// OriginPaperpile is the origin detail stamped on imported records, so a
// priority entry like "secondary:paperpile" can rank them.
const OriginPaperpile = "paperpile"

// Extra field names set on imported records.
const (
	FieldAuthor      = "author"  // Last name of the first author
	FieldAuthors     = "authors" // "Last, First; Last, First"
	FieldJournal     = "journal"
	FieldYear        = "year"
	FieldPDF         = "pdf" // Main PDF attachment, relative to the library root
	FieldPaperpileID = "paperpile_id"
)

// ErrNoIdentity is returned for an entry with neither a title nor a DOI.
var ErrNoIdentity = errors.New("entry has no title or doi")

// FlexibleString can unmarshal from either string or number JSON values.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

// PaperpileEntry is the part of a Paperpile JSON export entry that
// becomes a record.
type PaperpileEntry struct {
	ID        string `json:"_id"`
	Citekey   string `json:"citekey"`
	DOI       string `json:"doi"`
	Title     string `json:"title"`
	Journal   string `json:"journal"`
	Published struct {
		Year FlexibleString `json:"year"`
	} `json:"published"`
	Author []struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"author"`
	Attachments []struct {
		ArticlePDF int    `json:"article_pdf"` // 1 = main PDF, 0 = supplement
		Filename   string `json:"filename"`
	} `json:"attachments"`
}

// ParsePaperpile converts a Paperpile JSON export into records of source.
// Only malformed JSON is an error; entries that cannot be used are skipped
// and reported one error each.
func ParsePaperpile(data []byte, source string) (record.SourceRecords, []error, error) {
	out := record.SourceRecords{Source: source}

	var entries []PaperpileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return out, nil, fmt.Errorf("parsing Paperpile JSON: %w", err)
	}

	var skipped []error
	for i, entry := range entries {
		r, err := entryToRecord(entry, source)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("entry %d (%s): %w", i+1, entry.Citekey, err))
			continue
		}
		if r.ID == "" {
			r.ID = source + "-" + strconv.Itoa(i+1)
		}
		out.Records = append(out.Records, r)
	}
	return out, skipped, nil
}

// ReadPaperpile reads a Paperpile export file.
func ReadPaperpile(path, source string) (record.SourceRecords, []error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return record.SourceRecords{Source: source}, nil, fmt.Errorf("reading Paperpile export: %w", err)
	}
	return ParsePaperpile(data, source)
}

func entryToRecord(entry PaperpileEntry, source string) (record.Record, error) {
	if strings.TrimSpace(entry.Title) == "" && strings.TrimSpace(entry.DOI) == "" {
		return record.Record{}, ErrNoIdentity
	}

	// Use citekey as ID, falling back to Paperpile ID if no citekey
	id := entry.Citekey
	if id == "" {
		id = entry.ID
	}

	extra := map[string]any{}
	if len(entry.Author) > 0 {
		extra[FieldAuthor] = entry.Author[0].Last
		names := make([]string, len(entry.Author))
		for i, a := range entry.Author {
			names[i] = strings.TrimSuffix(a.Last+", "+a.First, ", ")
		}
		extra[FieldAuthors] = strings.Join(names, "; ")
	}
	if entry.Journal != "" {
		extra[FieldJournal] = entry.Journal
	}
	if y := entry.Published.Year.String(); y != "" {
		extra[FieldYear] = y
	}
	for _, att := range entry.Attachments {
		if att.ArticlePDF == 1 {
			extra[FieldPDF] = att.Filename
			break
		}
	}
	if entry.ID != "" {
		extra[FieldPaperpileID] = entry.ID
	}

	r := record.Record{
		ID:           id,
		Source:       source,
		Title:        entry.Title,
		DOI:          entry.DOI,
		OriginDetail: OriginPaperpile,
	}
	if len(extra) > 0 {
		r.Extra = extra
	}
	return r, nil
}
