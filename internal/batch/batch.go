// Package batch partitions records by a grouping field and deduplicates
// each partition independently.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/matsen/pubmerge/internal/dedupe"
	"github.com/matsen/pubmerge/internal/logging"
	"github.com/matsen/pubmerge/internal/record"
)

// DefaultProgressInterval is the minimum time between progress reports.
const DefaultProgressInterval = time.Second

// Split groups records by the extra field key. Batches appear in the order
// their key is first seen and keep input order inside. Records without the
// field land in the batch with key "". An empty key yields a single batch.
func Split(recs []record.Record, key string) []dedupe.Batch {
	var out []dedupe.Batch
	index := make(map[string]int)
	for _, r := range recs {
		k := ""
		if key != "" {
			k = r.GetString(key)
		}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, dedupe.Batch{Key: k})
		}
		out[i].Records = append(out[i].Records, r)
	}
	return out
}

// Progress receives the number of finished batches out of total, along
// with the key of the batch just finished.
type Progress func(done, total int, key string)

// Runner deduplicates a sequence of batches with shared options.
type Runner struct {
	Options dedupe.Options
	Logger  *zerolog.Logger

	// Progress, if set, is called after the first batch, at most once per
	// Interval afterwards, and always after the last batch.
	Progress Progress
	Interval time.Duration
}

// Run deduplicates every batch in order. Cancellation is checked between
// batches; results for finished batches are returned with the error.
func (r *Runner) Run(ctx context.Context, batches []dedupe.Batch) ([]*dedupe.Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	throttle := rate.Sometimes{First: 1, Interval: interval}

	results := make([]*dedupe.Result, 0, len(batches))
	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("stopped after %d of %d batches: %w", i, len(batches), err)
		}

		opts := r.Options
		opts.Logger = logging.WithBatch(logger, b.Key)
		res, err := dedupe.Run(b, opts)
		if err != nil {
			return results, fmt.Errorf("batch %q: %w", b.Key, err)
		}
		results = append(results, res)

		if r.Progress != nil {
			done := i + 1
			if done == len(batches) {
				r.Progress(done, len(batches), b.Key)
			} else {
				throttle.Do(func() { r.Progress(done, len(batches), b.Key) })
			}
		}
	}
	return results, nil
}

// Total sums batch summaries.
func Total(summaries ...dedupe.Summary) dedupe.Summary {
	var t dedupe.Summary
	for _, s := range summaries {
		t.Initial += s.Initial
		t.Final += s.Final
		t.AutoRemoved += s.AutoRemoved
		t.PendingReview += s.PendingReview
		t.ReviewGroups += s.ReviewGroups
	}
	return t
}
