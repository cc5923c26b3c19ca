package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/matsen/pubmerge/internal/batch"
	"github.com/matsen/pubmerge/internal/config"
	"github.com/matsen/pubmerge/internal/dedupe"
	"github.com/matsen/pubmerge/internal/export"
	"github.com/matsen/pubmerge/internal/importer"
	"github.com/matsen/pubmerge/internal/pdf"
	"github.com/matsen/pubmerge/internal/record"
	"github.com/matsen/pubmerge/internal/review"
	"github.com/matsen/pubmerge/internal/storage"
)

// runOptions holds the run command flags that are not configuration keys.
type runOptions struct {
	Sources     []string // name=path
	Out         string
	LogOut      string
	BibOut      string
	AuditDB     string
	Interactive bool
	KeepAll     bool
	PDFField    string
	PDFRoot     string
}

var runFlags runOptions

func init() {
	f := runCmd.Flags()
	f.StringArrayVar(&runFlags.Sources, "source", nil, "Source as name=path to a JSONL file, repeatable, in priority-independent input order")
	f.String(config.KeyMode, "", "Matching mode: standard or approximate")
	f.Int(config.KeyMatch, 0, "Match threshold percent (90-100)")
	f.Int(config.KeyReview, 0, "Review threshold percent (80-96)")
	f.String(config.KeyCanonical, "", `Source trusted to be internally unique ("" disables)`)
	f.String(config.KeyGroupBy, "", "Extra field that partitions records into batches")
	f.String(config.KeyPriority, "", "Source ranking, best first, e.g. primary,secondary:journal,secondary")
	f.Int(config.KeyPageSize, 0, "Group members shown per review page")
	f.StringVar(&runFlags.Out, "out", "merged.jsonl", "Where to write surviving records")
	f.StringVar(&runFlags.LogOut, "log-out", "", "Where to write the dedup log (JSONL)")
	f.StringVar(&runFlags.BibOut, "bib-out", "", "Also write surviving records as BibTeX")
	f.StringVar(&runFlags.AuditDB, "audit-db", "", "SQLite database recording this run")
	f.BoolVar(&runFlags.Interactive, "interactive", false, "Review ambiguous groups at the terminal")
	f.BoolVar(&runFlags.KeepAll, "keep-all", false, "Keep every member of every review group")
	f.StringVar(&runFlags.PDFField, "pdf-field", "", "Extra field holding a PDF path used to fill missing DOIs")
	f.StringVar(&runFlags.PDFRoot, "pdf-root", "", "Base directory for relative PDF paths")
	runCmd.MarkFlagsMutuallyExclusive("interactive", "keep-all")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run --source name=path [--source name=path ...]",
	Short: "Merge sources and remove duplicates",
	Long: `Merge sources and remove duplicates.

Each source is a JSONL file of flat records with id, title, doi and any
extra fields, or a Paperpile JSON export (a path ending in .json).
Records are batched by the group-by field and deduplicated within each
batch.

Examples:
  pubmerge run --source primary=lab.jsonl --source secondary=scholar.jsonl
  pubmerge run --source primary=a.jsonl --source secondary=b.jsonl --interactive
  pubmerge run --source primary=a.jsonl --mode standard --log-out removed.jsonl
  pubmerge run --source primary=lab.jsonl --source secondary=paperpile.json --pdf-field pdf --pdf-root ~/Papers`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		resp, err := runMerge(cmd.Context(), runFlags, appConfig, &logger, cmd.InOrStdin(), cmd.ErrOrStderr())
		if resp != nil {
			if humanOutput {
				printRunHuman(cmd.OutOrStdout(), resp)
			} else if outErr := outputJSON(cmd.OutOrStdout(), resp); outErr != nil && err == nil {
				err = outErr
			}
		}
		return err
	},
}

// SourceStat reports what was read from one source.
type SourceStat struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Records int    `json:"records"`
	Skipped int    `json:"skipped"`
}

// PendingGroup identifies a review group left undecided.
type PendingGroup struct {
	Batch string   `json:"batch"`
	Index int      `json:"index"`
	IDs   []string `json:"ids"`
}

// RunResponse is the result of the run command.
type RunResponse struct {
	RunID    string         `json:"run_id,omitempty"`
	Sources  []SourceStat   `json:"sources"`
	Batches  int            `json:"batches"`
	Summary  dedupe.Summary `json:"summary"`
	Pending  []PendingGroup `json:"pending,omitempty"`
	Out      string         `json:"out"`
	LogOut   string         `json:"log_out,omitempty"`
	BibOut   string         `json:"bib_out,omitempty"`
	Backfill *pdf.Stats     `json:"backfill,omitempty"`
}

// runMerge does the work of the run command. Prompts use in and promptOut.
// A non-nil response is returned whenever outputs were written, including
// when review groups remain pending.
func runMerge(ctx context.Context, ro runOptions, cfg *config.Config, logger *zerolog.Logger,
	in io.Reader, promptOut io.Writer) (*RunResponse, error) {
	if len(ro.Sources) == 0 {
		return nil, withCode(ExitError, errors.New("at least one --source name=path is required"))
	}

	resp := &RunResponse{Out: ro.Out, LogOut: ro.LogOut, BibOut: ro.BibOut}
	var sources []record.SourceRecords
	for _, spec := range ro.Sources {
		name, path, err := parseSourceSpec(spec)
		if err != nil {
			return nil, withCode(ExitError, err)
		}
		src, skipped, err := readSource(name, config.ExpandPath(path), logger)
		if err != nil {
			return nil, withCode(ExitDataError, fmt.Errorf("source %s: %w", name, err))
		}
		sources = append(sources, src)
		resp.Sources = append(resp.Sources, SourceStat{Name: name, Path: path, Records: len(src.Records), Skipped: skipped})
	}
	recs := record.Concat(sources...)

	if ro.PDFField != "" {
		bf := &pdf.Backfiller{Field: ro.PDFField, Root: config.ExpandPath(ro.PDFRoot), Logger: logger}
		st := bf.Fill(recs)
		resp.Backfill = &st
	}

	batches := batch.Split(recs, cfg.GroupBy)
	resp.Batches = len(batches)
	runner := &batch.Runner{
		Options: cfg.Options(),
		Logger:  logger,
		Progress: func(done, total int, key string) {
			logger.Info().Int("done", done).Int("total", total).Str("batch", key).Msg("deduplicating")
		},
	}
	results, err := runner.Run(ctx, batches)
	if err != nil {
		return nil, err
	}

	var audit *storage.Audit
	if ro.AuditDB != "" {
		audit, err = storage.OpenAudit(config.ExpandPath(ro.AuditDB))
		if err != nil {
			return nil, fmt.Errorf("opening audit database: %w", err)
		}
		defer audit.Close()
		if resp.RunID, err = audit.BeginRun(cfg); err != nil {
			return nil, err
		}
		for _, res := range results {
			if err := audit.RecordBatch(resp.RunID, res); err != nil {
				return nil, err
			}
		}
	}

	sessions := make([]*review.Session, len(results))
	for i, res := range results {
		sessions[i] = review.NewSession(res)
		sessions[i].SetPageSize(cfg.PageSize)
	}

	var reviewErr error
	switch {
	case ro.KeepAll:
		reviewErr = keepAll(sessions, audit, resp.RunID)
	case ro.Interactive:
		reviewErr = reviewInteractive(sessions, audit, resp.RunID, in, promptOut)
	}
	if reviewErr != nil && !errors.Is(reviewErr, errReviewStopped) {
		return nil, reviewErr
	}

	var survivors []record.Record
	var entries []dedupe.LogEntry
	summaries := make([]dedupe.Summary, len(sessions))
	for i, s := range sessions {
		survivors = append(survivors, s.Survivors()...)
		entries = append(entries, results[i].Log...)
		summaries[i] = s.Summary()
		if s.Complete() {
			continue
		}
		for _, g := range results[i].Groups[s.Cursor():] {
			resp.Pending = append(resp.Pending, PendingGroup{Batch: s.Key(), Index: g.Index, IDs: g.IDs()})
		}
	}
	resp.Summary = batch.Total(summaries...)

	if err := storage.WriteRecords(config.ExpandPath(ro.Out), survivors); err != nil {
		return nil, withCode(ExitError, err)
	}
	if ro.LogOut != "" {
		if err := storage.WriteLog(config.ExpandPath(ro.LogOut), entries); err != nil {
			return nil, withCode(ExitError, err)
		}
	}
	if ro.BibOut != "" {
		if err := export.WriteBibTeXFile(config.ExpandPath(ro.BibOut), survivors); err != nil {
			return nil, withCode(ExitError, err)
		}
	}
	if audit != nil {
		if err := audit.FinishRun(resp.RunID, resp.Summary); err != nil {
			return resp, err
		}
	}

	logger.Info().
		Int("initial", resp.Summary.Initial).
		Int("final", resp.Summary.Final).
		Int("auto_removed", resp.Summary.AutoRemoved).
		Int("pending_review", resp.Summary.PendingReview).
		Msg("run finished")

	if len(resp.Pending) > 0 {
		return resp, withCode(ExitReviewPending,
			fmt.Errorf("%d review groups pending; rerun with --interactive or --keep-all", len(resp.Pending)))
	}
	return resp, nil
}

// readSource reads a JSONL file, or a Paperpile export when the path ends
// in .json, and returns how many entries were skipped.
func readSource(name, path string, logger *zerolog.Logger) (record.SourceRecords, int, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		src, skipped, err := importer.ReadPaperpile(path, name)
		for _, e := range skipped {
			logger.Warn().Err(e).Str("source", name).Str("path", path).Msg("skipping Paperpile entry")
		}
		return src, len(skipped), err
	}

	src, skipped, err := storage.ReadSource(path, name)
	for _, s := range skipped {
		logger.Warn().Err(s.Err).Str("source", name).Str("path", s.Path).Int("line", s.Line).Msg("skipping malformed record")
	}
	return src, len(skipped), err
}

// parseSourceSpec splits "name=path".
func parseSourceSpec(spec string) (name, path string, err error) {
	name, path, ok := strings.Cut(spec, "=")
	name, path = strings.TrimSpace(name), strings.TrimSpace(path)
	if !ok || name == "" || path == "" {
		return "", "", fmt.Errorf("invalid --source %q: want name=path", spec)
	}
	return name, path, nil
}

func keepAll(sessions []*review.Session, audit *storage.Audit, runID string) error {
	for _, s := range sessions {
		for !s.Complete() {
			sel, err := s.Selection()
			if err != nil {
				return err
			}
			if err := s.SubmitSelection(sel); err != nil {
				return err
			}
			if err := recordLast(audit, runID, s); err != nil {
				return err
			}
		}
	}
	return nil
}

func reviewInteractive(sessions []*review.Session, audit *storage.Audit, runID string, in io.Reader, out io.Writer) error {
	p := newPrompter(in, out)
	var auditErr error
	for _, s := range sessions {
		p.decided = func(review.Decision) {
			if err := recordLast(audit, runID, s); err != nil && auditErr == nil {
				auditErr = err
			}
		}
		if err := p.review(s); err != nil {
			return err
		}
		if auditErr != nil {
			return auditErr
		}
	}
	if total := countGroups(sessions); total > 0 {
		fmt.Fprintf(out, "Reviewed all %d groups.\n", total)
	}
	return nil
}

func recordLast(audit *storage.Audit, runID string, s *review.Session) error {
	if audit == nil {
		return nil
	}
	ds := s.Decisions()
	return audit.RecordDecision(runID, s.Key(), ds[len(ds)-1])
}

func countGroups(sessions []*review.Session) int {
	n := 0
	for _, s := range sessions {
		n += s.GroupCount()
	}
	return n
}

func printRunHuman(w io.Writer, resp *RunResponse) {
	for _, s := range resp.Sources {
		fmt.Fprintf(w, "Read %d records from %s (%s)", s.Records, s.Name, s.Path)
		if s.Skipped > 0 {
			fmt.Fprintf(w, ", skipped %d malformed lines", s.Skipped)
		}
		fmt.Fprintln(w)
	}
	if resp.Backfill != nil {
		fmt.Fprintf(w, "Filled %d DOIs and %d titles from PDFs (%d failed)\n",
			resp.Backfill.DOIs, resp.Backfill.Titles, resp.Backfill.Failed)
	}
	fmt.Fprintf(w, "Batches: %d\n", resp.Batches)
	printSummaryHuman(w, resp.Summary)
	for _, g := range resp.Pending {
		fmt.Fprintf(w, "Pending: batch %q group %d: %s\n", g.Batch, g.Index, formatIDList(g.IDs))
	}
	fmt.Fprintf(w, "Wrote %s\n", resp.Out)
	if resp.LogOut != "" {
		fmt.Fprintf(w, "Wrote %s\n", resp.LogOut)
	}
	if resp.BibOut != "" {
		fmt.Fprintf(w, "Wrote %s\n", resp.BibOut)
	}
	if resp.RunID != "" {
		fmt.Fprintf(w, "Run id: %s\n", resp.RunID)
	}
}
