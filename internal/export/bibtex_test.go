package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/pubmerge/internal/record"
)

func TestToBibTeX_BasicArticle(t *testing.T) {
	r := record.Record{
		ID:    "Smith2026-ab",
		DOI:   "10.1234/test",
		Title: "Test Paper Title",
		Extra: map[string]any{
			FieldAuthors: "Smith, John; Doe, Jane",
			FieldJournal: "Nature",
			FieldYear:    2026.0,
		},
	}

	got := ToBibTeX(r)

	for _, want := range []string{
		"@article{Smith2026-ab,\n",
		"  author = {Smith, John and Doe, Jane},\n",
		"  title = {Test Paper Title},\n",
		"  journal = {Nature},\n",
		"  year = {2026},\n",
		"  doi = {10.1234/test},\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ToBibTeX() missing %q, got:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "}\n") {
		t.Errorf("ToBibTeX() should end with }, got:\n%s", got)
	}
}

func TestToBibTeX_Inproceedings(t *testing.T) {
	r := record.Record{
		ID:    "Conference2026",
		Title: "A Conference Paper",
		Extra: map[string]any{FieldJournal: "Proceedings of ICML 2026"},
	}

	got := ToBibTeX(r)
	if !strings.HasPrefix(got, "@inproceedings{Conference2026,") {
		t.Errorf("ToBibTeX() should start with @inproceedings, got:\n%s", got)
	}
	if !strings.Contains(got, "booktitle = {Proceedings of ICML 2026}") {
		t.Errorf("ToBibTeX() should use booktitle, got:\n%s", got)
	}
}

func TestToBibTeX_MinimalRecord(t *testing.T) {
	got := ToBibTeX(record.Record{ID: "r1", Title: "Only a title"})
	want := "@article{r1,\n  title = {Only a title},\n}\n"
	if got != want {
		t.Errorf("ToBibTeX() = %q, want %q", got, want)
	}
}

func TestEscapeLatex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Plain text", "Plain text"},
		{"A & B", `A \& B`},
		{"50% off", `50\% off`},
		{"$100", `\$100`},
		{"snake_case", `snake\_case`},
		{"{braces}", `\{braces\}`},
		{"~tilde", `\textasciitilde{}tilde`},
		{`a\b`, `a\textbackslash{}b`},
	}
	for _, tt := range tests {
		if got := escapeLatex(tt.input); got != tt.want {
			t.Errorf("escapeLatex(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatAuthors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Smith, John", "Smith, John"},
		{"Smith, John; Doe", "Smith, John and Doe"},
		{" Smith ;; Doe, J. ; ", "Smith and Doe, J."},
	}
	for _, tt := range tests {
		if got := formatAuthors(tt.input); got != tt.want {
			t.Errorf("formatAuthors(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestWriteBibTeXFile(t *testing.T) {
	recs := []record.Record{
		{ID: "a", Title: "First"},
		{ID: "b", Title: "Second"},
	}
	path := filepath.Join(t.TempDir(), "out.bib")
	if err := WriteBibTeXFile(path, recs); err != nil {
		t.Fatalf("WriteBibTeXFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var want bytes.Buffer
	want.WriteString(ToBibTeX(recs[0]))
	want.WriteString("\n")
	want.WriteString(ToBibTeX(recs[1]))
	if string(data) != want.String() {
		t.Errorf("file = %q, want %q", data, want.String())
	}
}
