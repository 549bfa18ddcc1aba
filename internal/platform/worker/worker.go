// Package worker provides the ticker loop that drives the periodic batch
// jobs: catalog-wide heat recompute and nightly recommendation regeneration.
// Interrupted batches are safe to abandon; the next tick overwrites every
// row it reaches.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const logFieldJob = "job"

// Job is a named periodic task. Run receives the loop context and must
// handle its own error reporting; a failing job never stops the loop.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Config configures a ticker loop.
type Config struct {
	// Name identifies the loop for logging.
	Name string

	// Jobs are the periodic tasks to run, each on its own ticker.
	Jobs []Job

	// RunOnStart runs every job once before the first tick.
	RunOnStart bool

	// Logger for the loop. Nil means no logging.
	Logger *zerolog.Logger
}

// Run drives the jobs until the context is canceled. It returns a wrapped
// context error on cancellation.
func Run(ctx context.Context, cfg Config) error {
	logger := getLogger(cfg.Logger)
	logger.Info().Str("loop", cfg.Name).Msg("starting scheduler loop")

	defer logger.Info().Str("loop", cfg.Name).Msg("scheduler loop stopped")

	if len(cfg.Jobs) == 0 {
		<-ctx.Done()

		return fmt.Errorf("scheduler loop %s: %w", cfg.Name, ctx.Err())
	}

	if cfg.RunOnStart {
		for _, job := range cfg.Jobs {
			runJob(ctx, job, logger)
		}
	}

	tickers := make([]*time.Ticker, len(cfg.Jobs))
	cases := make([]<-chan time.Time, len(cfg.Jobs))

	for i, job := range cfg.Jobs {
		if job.Interval > 0 {
			tickers[i] = time.NewTicker(job.Interval)
			cases[i] = tickers[i].C
		}
	}

	defer func() {
		for _, t := range tickers {
			if t != nil {
				t.Stop()
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("scheduler loop %s: %w", cfg.Name, ctx.Err())
		default:
		}

		for i, job := range cfg.Jobs {
			if cases[i] == nil {
				continue
			}

			select {
			case <-cases[i]:
				runJob(ctx, job, logger)
			default:
			}
		}

		if err := Wait(ctx, pollInterval); err != nil {
			return err
		}
	}
}

// pollInterval is the sleep between ticker checks to avoid busy-waiting.
const pollInterval = 100 * time.Millisecond

func runJob(ctx context.Context, job Job, logger *zerolog.Logger) {
	if job.Run == nil {
		return
	}

	defer RecoverPanic(logger, job.Name)

	logger.Debug().Str(logFieldJob, job.Name).Msg("running job")
	job.Run(ctx)
}

// Wait blocks until the duration elapses or the context is canceled.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}

// RunWithTimeout runs fn with a timeout derived from the parent context.
func RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return fn(timeoutCtx)
}

// RecoverPanic recovers from panics in a job and logs them.
func RecoverPanic(logger *zerolog.Logger, job string) {
	if r := recover(); r != nil {
		logger.Error().
			Interface("panic", r).
			Str(logFieldJob, job).
			Msg("recovered from panic")
	}
}

func getLogger(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		nop := zerolog.Nop()

		return &nop
	}

	return logger
}
