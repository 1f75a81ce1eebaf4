// Package task runs fire-and-forget side effects. A failed task is logged
// and never propagates to the operation that scheduled it.
package task

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Runner struct {
	log     zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRunner(log zerolog.Logger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{log: log.With().Str("component", "task").Logger(), timeout: timeout}
}

// Submit schedules fn on its own goroutine with a fresh context, detached
// from the caller's request lifetime. Panics are recovered and logged.
func (r *Runner) Submit(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error().Str("task", name).Interface("panic", rec).Msg("task panicked")
			}
		}()

		if err := fn(ctx); err != nil {
			r.log.Error().Str("task", name).Err(err).Msg("task failed")
			return
		}
		r.log.Debug().Str("task", name).Msg("task completed")
	}()
}

// Wait blocks until all submitted tasks finish. Used on shutdown and in
// tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
