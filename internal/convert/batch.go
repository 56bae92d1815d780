package convert

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Job is one file to convert.
type Job struct {
	// Step is the overlay step number, 0 for the bypass conversion.
	Step   int
	Input  string
	Output string
}

type stepKey struct{}

// withStep records the step being converted in ctx, for converters that
// label their work with it.
func withStep(ctx context.Context, step int) context.Context {
	return context.WithValue(ctx, stepKey{}, step)
}

func stepFromContext(ctx context.Context) int {
	step, _ := ctx.Value(stepKey{}).(int)
	return step
}

// RunBatch converts jobs with conv.
//
// Jobs run one at a time in order unless parallel > 1 and the converter is
// Concurrent, in which case up to parallel jobs run at once. The first
// failure stops the batch: jobs not yet started are skipped and its error
// is returned. Outputs already produced are left in place.
func RunBatch(ctx context.Context, conv Converter, jobs []Job, parallel int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if parallel <= 1 || !conv.Concurrent() {
		for _, job := range jobs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := convertOne(ctx, conv, job, logger); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return convertOne(gctx, conv, job, logger)
		})
	}
	return g.Wait()
}

func convertOne(ctx context.Context, conv Converter, job Job, logger *slog.Logger) error {
	logger.Info("converting", "step", job.Step, "output", job.Output)
	if err := conv.Convert(withStep(ctx, job.Step), job.Input, job.Output); err != nil {
		return fmt.Errorf("step %d (%s): %w", job.Step, job.Input, err)
	}
	return nil
}
