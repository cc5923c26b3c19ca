// Package export writes merged records in bibliography formats.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matsen/pubmerge/internal/record"
)

// Extra fields read from a record. Paperpile imports set all of them;
// JSONL sources may carry any subset.
const (
	FieldAuthors = "authors" // "Last, First; Last, First"
	FieldJournal = "journal"
	FieldYear    = "year"
)

// ToBibTeX converts a record to a BibTeX entry keyed by its id.
func ToBibTeX(r record.Record) string {
	venue := r.GetString(FieldJournal)
	entryType := determineEntryType(venue)
	var b strings.Builder

	fmt.Fprintf(&b, "@%s{%s,\n", entryType, r.ID)

	if authors := r.GetString(FieldAuthors); authors != "" {
		fmt.Fprintf(&b, "  author = {%s},\n", formatAuthors(authors))
	}

	fmt.Fprintf(&b, "  title = {%s},\n", escapeLatex(r.Title))

	if venue != "" {
		fieldName := "journal"
		if entryType == "inproceedings" {
			fieldName = "booktitle"
		}
		fmt.Fprintf(&b, "  %s = {%s},\n", fieldName, escapeLatex(venue))
	}

	if year := r.GetString(FieldYear); year != "" {
		fmt.Fprintf(&b, "  year = {%s},\n", year)
	}

	if r.DOI != "" {
		fmt.Fprintf(&b, "  doi = {%s},\n", r.DOI)
	}

	b.WriteString("}\n")
	return b.String()
}

// WriteBibTeX writes records as BibTeX entries separated by blank lines.
func WriteBibTeX(w io.Writer, recs []record.Record) error {
	for i, r := range recs {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, ToBibTeX(r)); err != nil {
			return fmt.Errorf("writing entry %s: %w", r.ID, err)
		}
	}
	return nil
}

// WriteBibTeXFile writes records to a .bib file, replacing existing content.
func WriteBibTeXFile(path string, recs []record.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteBibTeX(f, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// determineEntryType returns the BibTeX entry type for a venue.
func determineEntryType(venue string) string {
	v := strings.ToLower(venue)
	if strings.Contains(v, "proceedings") ||
		strings.Contains(v, "conference") ||
		strings.Contains(v, "workshop") ||
		strings.Contains(v, "symposium") {
		return "inproceedings"
	}
	return "article"
}

// formatAuthors converts "Last, First; Last" to "Last, First and Last".
func formatAuthors(authors string) string {
	parts := strings.Split(authors, ";")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, escapeLatex(p))
		}
	}
	return strings.Join(out, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\textbackslash{}`,
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
