// SPDX-License-Identifier: MIT
package batch

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	inputs := []string{"1", "2", "x", "4", "boom"}
	errParse := errors.New("parse")

	job := func(_ context.Context, in string) (int, error) {
		if in == "boom" {
			panic("boom")
		}

		// Later inputs finish first.
		n, err := strconv.Atoi(in)
		if err != nil {
			return 0, errParse
		}
		time.Sleep(time.Duration(5-n) * time.Millisecond)

		return n * 10, nil
	}

	results, err := Run(context.Background(), inputs, job, WithWorkers(3))
	require.NoError(t, err)
	require.Len(t, results, len(inputs))

	assert.Equal(t, 10, results[0].Value)
	assert.Equal(t, 20, results[1].Value)
	assert.ErrorIs(t, results[2].Err, errParse)
	assert.Equal(t, 40, results[3].Value)
	assert.ErrorIs(t, results[4].Err, ErrPanicked)

	joined := Errors(results)
	assert.ErrorIs(t, joined, errParse)
	assert.ErrorIs(t, joined, ErrPanicked)
}

func TestRun_Bounded(t *testing.T) {
	var running, peak atomic.Int32

	job := func(context.Context, int) (struct{}, error) {
		now := running.Add(1)
		for {
			old := peak.Load()
			if now <= old || peak.CompareAndSwap(old, now) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)

		return struct{}{}, nil
	}

	results, err := Run(context.Background(), make([]int, 20), job, WithWorkers(2))
	require.NoError(t, err)
	assert.NoError(t, Errors(results))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results, err := Run(ctx, []int{1, 2, 3}, func(context.Context, int) (int, error) {
		calls.Add(1)
		return 0, nil
	})
	require.NoError(t, err)

	assert.Zero(t, calls.Load())
	for _, result := range results {
		assert.ErrorIs(t, result.Err, context.Canceled)
	}
}

func TestErrors_Empty(t *testing.T) {
	assert.NoError(t, Errors([]Result[int]{{Value: 1}, {Value: 2}}))
	assert.NoError(t, Errors[int](nil))
}
