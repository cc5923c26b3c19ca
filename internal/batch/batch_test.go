package batch

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/pubmerge/internal/dedupe"
	"github.com/matsen/pubmerge/internal/record"
)

func rec(id, src, title string, extra map[string]any) record.Record {
	return record.Record{ID: id, Source: src, Title: title, Extra: extra}
}

func options() dedupe.Options {
	return dedupe.Options{
		Mode:            dedupe.ModeApproximate,
		MatchThreshold:  95,
		ReviewThreshold: 88,
		Priority:        dedupe.PriorityTable{{Source: "primary"}, {Source: "secondary"}},
		CanonicalSource: "primary",
	}
}

func TestSplit(t *testing.T) {
	recs := []record.Record{
		rec("1", "primary", "a", map[string]any{"author": "smith"}),
		rec("2", "primary", "b", map[string]any{"author": "jones"}),
		rec("3", "secondary", "c", nil),
		rec("4", "secondary", "d", map[string]any{"author": "smith"}),
		rec("5", "secondary", "e", map[string]any{"author": float64(7)}),
	}

	batches := Split(recs, "author")
	require.Len(t, batches, 4)

	keys := make([]string, len(batches))
	for i, b := range batches {
		keys[i] = b.Key
	}
	assert.Equal(t, []string{"smith", "jones", "", "7"}, keys)
	assert.Equal(t, "1", batches[0].Records[0].ID)
	assert.Equal(t, "4", batches[0].Records[1].ID)

	all := Split(recs, "")
	require.Len(t, all, 1)
	assert.Len(t, all[0].Records, 5)

	assert.Empty(t, Split(nil, "author"))
}

func TestRunner_PerBatchIDs(t *testing.T) {
	// The same id in two batches is fine: ids are scoped to a batch.
	batches := []dedupe.Batch{
		{Key: "a", Records: []record.Record{rec("x", "primary", "Alpha", nil)}},
		{Key: "b", Records: []record.Record{rec("x", "primary", "Beta", nil)}},
	}
	r := &Runner{Options: options()}
	results, err := r.Run(context.Background(), batches)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[1].Key)
}

func TestRunner_LogsBatchKeyOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	r := &Runner{Options: options(), Logger: &logger}

	_, err := r.Run(context.Background(), []dedupe.Batch{
		{Key: "smith", Records: []record.Record{rec("x", "primary", "Alpha", nil)}},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Equal(t, 1, strings.Count(line, `"batch":"smith"`), line)
	}
}

func TestRunner_ErrorNamesBatch(t *testing.T) {
	batches := []dedupe.Batch{
		{Key: "good", Records: []record.Record{rec("x", "primary", "Alpha", nil)}},
		{Key: "bad", Records: []record.Record{rec("x", "primary", "A", nil), rec("x", "secondary", "B", nil)}},
	}
	r := &Runner{Options: options()}
	results, err := r.Run(context.Background(), batches)
	assert.ErrorIs(t, err, dedupe.ErrDuplicateID)
	assert.Contains(t, err.Error(), `batch "bad"`)
	assert.Len(t, results, 1, "finished batches are returned")
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{Options: options()}
	results, err := r.Run(ctx, []dedupe.Batch{{Key: "a"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestRunner_ProgressThrottled(t *testing.T) {
	batches := make([]dedupe.Batch, 10)
	for i := range batches {
		batches[i] = dedupe.Batch{Key: string(rune('a' + i))}
	}

	var calls [][2]int
	r := &Runner{
		Options:  options(),
		Interval: time.Hour,
		Progress: func(done, total int, _ string) {
			calls = append(calls, [2]int{done, total})
		},
	}
	_, err := r.Run(context.Background(), batches)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 10}, {10, 10}}, calls, "first and last only")
}

func TestTotal(t *testing.T) {
	got := Total(
		dedupe.Summary{Initial: 3, Final: 1, PendingReview: 2, ReviewGroups: 1},
		dedupe.Summary{Initial: 2, Final: 1, AutoRemoved: 1},
	)
	assert.Equal(t, dedupe.Summary{Initial: 5, Final: 2, AutoRemoved: 1, PendingReview: 2, ReviewGroups: 1}, got)
}
