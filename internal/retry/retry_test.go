package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		Timeout:      200 * time.Millisecond,
		BaseInterval: time.Millisecond,
		MaxBackoff:   5 * time.Millisecond,
	}
}

func TestBackoffIsCapped(t *testing.T) {
	for attempt := 0; attempt < 64; attempt++ {
		d := Backoff(attempt, 10*time.Millisecond, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
		assert.Greater(t, d, time.Duration(0))
	}
}

func TestRunExecutesWhenReady(t *testing.T) {
	var polls atomic.Int32
	err := Run(context.Background(), fastConfig(), Funcs{
		Determine: func() Action {
			if polls.Add(1) < 3 {
				return Wait
			}
			return Execute
		},
		Exec: func(int) bool { return true },
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), polls.Load())
}

func TestRunRetriesFailedExecute(t *testing.T) {
	calls := 0
	err := Run(context.Background(), fastConfig(), Funcs{
		Determine: func() Action { return Execute },
		Exec: func(attempt int) bool {
			calls++
			return attempt == 2
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRunAbort(t *testing.T) {
	err := Run(context.Background(), fastConfig(), Funcs{
		Determine: func() Action { return Abort },
		Exec:      func(int) bool { t.Fatal("must not execute"); return true },
	})
	assert.ErrorIs(t, err, ErrAborted)
}

func TestRunTimesOut(t *testing.T) {
	start := time.Now()
	err := WaitUntil(context.Background(), fastConfig(), func() bool { return false }, nil)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRunAttemptsExhausted(t *testing.T) {
	cfg := fastConfig()
	cfg.Attempts = 2
	err := WaitUntil(context.Background(), cfg, func() bool { return false }, nil)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig()
	cfg.Timeout = 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := WaitUntil(ctx, cfg, func() bool { return false }, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}
