// Package batch runs groups of jobs with bounded concurrency.
//
// Jobs are partitioned into consecutive groups of at most Width; all
// jobs in a group run concurrently and the next group starts only once
// the whole group has settled. This bounds peak request concurrency
// against the completion service. There is no per-batch wall-clock
// ceiling beyond each job's own attempt timeout: a job always settles
// (success, error, or timeout), so the scheduler always advances.
package batch

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"pagesmith/internal/job"
	"pagesmith/internal/llmclient"
)

// DefaultWidth is the batch width used when the caller passes zero.
const DefaultWidth = 3

// Options controls one scheduler run.
type Options struct {
	// Width caps the number of jobs in flight at once.
	Width int
	// Retry is applied uniformly to every job.
	Retry  llmclient.RetryPolicy
	Logger zerolog.Logger
}

// Run executes all jobs in consecutive groups of at most Width.
// Failures settle the owning job and never abort the remaining
// groups; partial success is the expected outcome. Run returns once
// every job has settled, or early when ctx ends (jobs launched so far
// still settle through their error paths).
func Run(ctx context.Context, jobs []*job.Job, opts Options) {
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}

	for start := 0; start < len(jobs); start += width {
		end := start + width
		if end > len(jobs) {
			end = len(jobs)
		}
		group := jobs[start:end]
		opts.Logger.Debug().
			Int("group_start", start).
			Int("group_size", len(group)).
			Int("width", width).
			Msg("batch: launching group")

		var g errgroup.Group
		for _, jb := range group {
			g.Go(func() error {
				jb.Run(ctx, opts.Retry)
				return nil
			})
		}
		// Jobs convert their own failures into error settlements, so
		// Wait only synchronizes; it never reports an error.
		_ = g.Wait()

		if ctx.Err() != nil {
			opts.Logger.Warn().Err(ctx.Err()).Msg("batch: context ended, skipping remaining groups")
			return
		}
	}
}
