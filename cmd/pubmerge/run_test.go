package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/pubmerge/internal/config"
	"github.com/matsen/pubmerge/internal/dedupe"
	"github.com/matsen/pubmerge/internal/storage"
)

const primaryJSONL = `{"id":"A","title":"Deep Learning for Y","doi":"10.1/abc","author":"smith"}
{"id":"C","title":"Neural nets in medicine","author":"jones"}
`

const secondaryJSONL = `{"id":"B","title":"deep learning for y","doi":"https://doi.org/10.1/ABC","author":"smith"}
{"id":"D","title":"Neural networks in modern medicine","author":"jones"}
not json
{"id":"X","title":"Bird migration patterns","author":"jones"}
`

type fixture struct {
	dir  string
	opts runOptions
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
		return p
	}
	return fixture{
		dir: dir,
		opts: runOptions{
			Sources: []string{
				"primary=" + write("primary.jsonl", primaryJSONL),
				"secondary=" + write("secondary.jsonl", secondaryJSONL),
			},
			Out:    filepath.Join(dir, "merged.jsonl"),
			LogOut: filepath.Join(dir, "log.jsonl"),
		},
	}
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func outputIDs(t *testing.T, path string) []string {
	t.Helper()
	recs, skipped, err := storage.ReadRecords(path)
	require.NoError(t, err)
	require.Empty(t, skipped)
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

func TestRunMerge_PendingReview(t *testing.T) {
	f := newFixture(t)

	resp, err := runMerge(context.Background(), f.opts, config.Default(), nopLogger(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, ExitReviewPending, exitCodeFor(err))
	require.NotNil(t, resp)

	assert.Equal(t, 2, resp.Batches)
	assert.Equal(t, 1, resp.Sources[1].Skipped)
	require.Len(t, resp.Pending, 1)
	assert.Equal(t, PendingGroup{Batch: "jones", Index: 0, IDs: []string{"C", "D"}}, resp.Pending[0])
	assert.Equal(t, 5, resp.Summary.Initial)
	assert.Equal(t, 1, resp.Summary.AutoRemoved)
	assert.Equal(t, 2, resp.Summary.PendingReview)

	assert.Equal(t, []string{"A", "X"}, outputIDs(t, f.opts.Out), "auto-resolved survivors are written")
	data, err := os.ReadFile(f.opts.LogOut)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	var entry dedupe.LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "B", entry.Removed.ID)
	assert.Equal(t, "A", entry.KeptID)
	assert.Equal(t, dedupe.MatchedByDOI, entry.MatchedBy)
}

func TestRunMerge_KeepAll(t *testing.T) {
	f := newFixture(t)
	f.opts.KeepAll = true

	resp, err := runMerge(context.Background(), f.opts, config.Default(), nopLogger(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Pending)
	assert.Equal(t, 4, resp.Summary.Final)
	assert.Equal(t, []string{"A", "X", "C", "D"}, outputIDs(t, f.opts.Out))
}

func TestRunMerge_Interactive(t *testing.T) {
	f := newFixture(t)
	f.opts.Interactive = true
	f.opts.AuditDB = filepath.Join(f.dir, "audit.db")

	var prompt bytes.Buffer
	resp, err := runMerge(context.Background(), f.opts, config.Default(), nopLogger(),
		strings.NewReader("?\n2\n\n"), &prompt)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "X", "C"}, outputIDs(t, f.opts.Out))
	assert.Contains(t, prompt.String(), `Batch "jones", group 1 of 1`)
	assert.Contains(t, prompt.String(), "Commands:")

	a, err := storage.OpenAudit(f.opts.AuditDB)
	require.NoError(t, err)
	defer a.Close()

	run, err := a.GetRun(resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, resp.Summary, run.Summary)
	assert.Equal(t, 2, run.Batches)

	decisions, err := a.Decisions(resp.RunID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "jones", decisions[0].Batch)
	assert.Equal(t, []string{"C"}, decisions[0].Kept)
	assert.Equal(t, []string{"D"}, decisions[0].Discarded)
}

func TestRunMerge_InteractiveQuitLeavesPending(t *testing.T) {
	f := newFixture(t)
	f.opts.Interactive = true

	resp, err := runMerge(context.Background(), f.opts, config.Default(), nopLogger(),
		strings.NewReader("q\n"), &bytes.Buffer{})
	assert.Equal(t, ExitReviewPending, exitCodeFor(err))
	require.NotNil(t, resp)
	assert.Len(t, resp.Pending, 1)
}

func TestRunMerge_StandardModeSingleBatch(t *testing.T) {
	f := newFixture(t)
	cfg := config.Default()
	cfg.Mode = "standard"
	cfg.GroupBy = ""

	resp, err := runMerge(context.Background(), f.opts, cfg, nopLogger(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Batches)
	assert.Equal(t, []string{"A", "C", "D", "X"}, outputIDs(t, f.opts.Out))
}

func TestRunMerge_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := runMerge(context.Background(), runOptions{}, config.Default(), nopLogger(), nil, nil)
	assert.Equal(t, ExitError, exitCodeFor(err))

	bad := f.opts
	bad.Sources = []string{"nopath"}
	_, err = runMerge(context.Background(), bad, config.Default(), nopLogger(), nil, nil)
	assert.Equal(t, ExitError, exitCodeFor(err))

	missing := f.opts
	missing.Sources = []string{"primary=" + filepath.Join(f.dir, "missing.jsonl")}
	_, err = runMerge(context.Background(), missing, config.Default(), nopLogger(), nil, nil)
	assert.Equal(t, ExitDataError, exitCodeFor(err))

	dupPath := filepath.Join(f.dir, "dup.jsonl")
	require.NoError(t, os.WriteFile(dupPath, []byte(`{"id":"A","title":"x"}`+"\n"+`{"id":"A","title":"y"}`+"\n"), 0644))
	dup := f.opts
	dup.Sources = []string{"primary=" + dupPath}
	_, err = runMerge(context.Background(), dup, config.Default(), nopLogger(), nil, nil)
	assert.Equal(t, ExitDataError, exitCodeFor(err))
}

func TestParseSourceSpec(t *testing.T) {
	tests := []struct {
		spec     string
		name     string
		path     string
		wantFail bool
	}{
		{"primary=a.jsonl", "primary", "a.jsonl", false},
		{" secondary = dir/b=c.jsonl ", "secondary", "dir/b=c.jsonl", false},
		{"primary", "", "", true},
		{"=a.jsonl", "", "", true},
		{"primary=", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			name, path, err := parseSourceSpec(tt.spec)
			if tt.wantFail {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.path, path)
		})
	}
}

func TestRunMerge_PaperpileSource(t *testing.T) {
	f := newFixture(t)
	export := filepath.Join(f.dir, "paperpile.json")
	require.NoError(t, os.WriteFile(export, []byte(`[
		{"_id": "pp1", "citekey": "Smith2020", "doi": "doi:10.1/ABC", "title": "Deep learning for Y",
		 "author": [{"first": "A", "last": "smith"}]},
		{"_id": "pp2", "title": ""}
	]`), 0644))
	f.opts.Sources = []string{f.opts.Sources[0], "secondary=" + export}
	f.opts.KeepAll = true
	f.opts.BibOut = filepath.Join(f.dir, "merged.bib")

	resp, err := runMerge(context.Background(), f.opts, config.Default(), nopLogger(), nil, nil)
	require.NoError(t, err)
	bib, err := os.ReadFile(f.opts.BibOut)
	require.NoError(t, err)
	assert.Contains(t, string(bib), "@article{A,\n  title = {Deep Learning for Y},\n  doi = {10.1/abc},\n}\n")
	assert.Contains(t, string(bib), "@article{C,")
	assert.Equal(t, SourceStat{Name: "secondary", Path: export, Records: 1, Skipped: 1}, resp.Sources[1])
	assert.Equal(t, 1, resp.Summary.AutoRemoved)
	assert.Equal(t, []string{"A", "C"}, outputIDs(t, f.opts.Out))
}
