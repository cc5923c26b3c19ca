package pdf

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/matsen/pubmerge/internal/record"
)

// Backfiller fills empty DOI and title fields from PDFs named by an extra
// field of each record.
type Backfiller struct {
	Field string // Extra field holding the PDF path
	Root  string // Base for relative paths; empty means the working directory

	Logger *zerolog.Logger

	// Extraction hooks; nil uses ExtractDOI and ExtractTitle.
	DOI   func(path string) (string, error)
	Title func(path string) (string, error)
}

// Stats counts what a backfill changed.
type Stats struct {
	DOIs   int `json:"dois"`
	Titles int `json:"titles"`
	Failed int `json:"failed"`
}

// Fill updates recs in place. Extraction failures are logged and leave the
// record as it was.
func (b *Backfiller) Fill(recs []record.Record) Stats {
	var st Stats
	if b.Field == "" {
		return st
	}
	logger := b.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	extractDOI, extractTitle := b.DOI, b.Title
	if extractDOI == nil {
		extractDOI = ExtractDOI
	}
	if extractTitle == nil {
		extractTitle = ExtractTitle
	}

	for i := range recs {
		r := &recs[i]
		p := r.GetString(b.Field)
		if p == "" || (r.DOI != "" && r.Title != "") {
			continue
		}
		if b.Root != "" && !filepath.IsAbs(p) {
			p = filepath.Join(b.Root, p)
		}

		if r.DOI == "" {
			doi, err := extractDOI(p)
			if err != nil {
				st.Failed++
				logger.Warn().Err(err).Str("id", r.ID).Str("pdf", p).Msg("DOI backfill failed")
			} else {
				r.DOI = doi
				st.DOIs++
				logger.Debug().Str("id", r.ID).Str("doi", doi).Msg("DOI filled from PDF")
			}
		}
		if r.Title == "" {
			title, err := extractTitle(p)
			if err != nil || title == "" {
				continue
			}
			r.Title = title
			st.Titles++
		}
	}
	return st
}
