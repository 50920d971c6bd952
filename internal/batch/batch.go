// SPDX-License-Identifier: MIT

// Package batch runs independent jobs on a bounded goroutine pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

type (
	// Job processes one input.
	Job[I, R any] func(ctx context.Context, input I) (R, error)

	// Result holds the outcome of one Job.
	Result[R any] struct {
		Value R
		Err   error
	}

	// Option defines the Run functional option type.
	Option func(*settings)

	settings struct {
		workers int
		logger  logrus.FieldLogger
	}
)

// ErrPanicked is returned for a job that panicked.
var ErrPanicked = errors.New("recovery from panic")

// WithWorkers configures the pool size; values below 1 use the CPU count.
func WithWorkers(workers int) Option { return func(s *settings) { s.workers = workers } }

// WithLogger configures the logger option.
func WithLogger(logger logrus.FieldLogger) Option { return func(s *settings) { s.logger = logger } }

// Run executes job over every input, returning the results in input order.
//
// Job failures are reported per Result; err is only set when the pool cannot be started.
// Inputs not yet submitted when ctx is cancelled fail with the context's error.
func Run[I, R any](ctx context.Context, inputs []I, job Job[I, R], options ...Option) (results []Result[R], err error) {
	s := settings{workers: runtime.NumCPU(), logger: logrus.New()}
	for _, opt := range options {
		opt(&s)
	}
	if s.workers < 1 {
		s.workers = runtime.NumCPU()
	}

	pool, err := ants.NewPool(s.workers, ants.WithLogger(s.logger), ants.WithPanicHandler(func(p any) {
		s.logger.Errorf("batch worker panic: %v", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("start pool: %w", err)
	}
	defer pool.Release()

	results = make([]Result[R], len(inputs))

	var wg sync.WaitGroup
	for index := range inputs {
		if err := ctx.Err(); err != nil {
			results[index].Err = err
			continue
		}

		wg.Add(1)
		task := func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[index].Err = fmt.Errorf("%w: %v", ErrPanicked, r)
				}
			}()

			results[index].Value, results[index].Err = job(ctx, inputs[index])
		}

		if err := pool.Submit(task); err != nil {
			wg.Done()
			results[index].Err = fmt.Errorf("submit job %d: %w", index, err)
		}
	}
	wg.Wait()

	s.logger.Debugf("batch completed %d job(s) on %d worker(s)", len(inputs), s.workers)

	return results, nil
}

// Errors joins the failures of results, nil when every job succeeded.
func Errors[R any](results []Result[R]) error {
	errs := make([]error, 0, len(results))
	for _, result := range results {
		if result.Err != nil {
			errs = append(errs, result.Err)
		}
	}

	return errors.Join(errs...)
}
