package rompatch

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// A Job is one patch to apply as part of ApplyAll.
type Job struct {
	Name   string
	Patch  []byte
	Source []byte
}

// A Result holds the outcome of a Job. Target is nil if Err is set.
type Result struct {
	Name   string
	Target []byte
	Err    error
}

// ApplyAll applies every job with at most limit running at once. A limit
// below one means no limit. Results are returned in the same order as
// jobs. A failing job does not stop the others; the returned error
// combines every job error, in job order, and is nil if all jobs succeeded.
func ApplyAll(ctx context.Context, jobs []Job, limit int) ([]Result, error) {
	var (
		g       errgroup.Group
		results = make([]Result, len(jobs))
	)

	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, job := range jobs {
		g.Go(func() error {
			results[i].Name = job.Name

			target, err := applyJob(ctx, job)
			if err != nil {
				results[i].Err = fmt.Errorf("rompatch: %s: %w", job.Name, err)

				return nil
			}

			results[i].Target = target

			return nil
		})
	}

	_ = g.Wait()

	var merr *multierror.Error

	for _, result := range results {
		if result.Err != nil {
			merr = multierror.Append(merr, result.Err)
		}
	}

	return results, merr.ErrorOrNil()
}

func applyJob(ctx context.Context, job Job) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return Patch(job.Patch, job.Source)
}
