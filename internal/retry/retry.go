package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

var (
	// ErrExhausted is returned when the attempts or the time budget ran out
	// before the executor could run.
	ErrExhausted = errors.New("retry: exhausted")
	// ErrAborted is returned when the executor asked to stop.
	ErrAborted = errors.New("retry: aborted")
)

// Action is what the retry loop should do next.
type Action int

const (
	Abort   Action = iota // stop the loop
	Wait                  // sleep and ask again
	Execute               // run the executor
)

func (a Action) String() string {
	switch a {
	case Abort:
		return "abort"
	case Wait:
		return "wait"
	case Execute:
		return "execute"
	default:
		return "unknown"
	}
}

// Config holds retry settings. A zero Attempts means the loop is bounded only
// by Timeout and the context.
type Config struct {
	Attempts     int
	Timeout      time.Duration
	BaseInterval time.Duration
	MaxBackoff   time.Duration
}

// DefaultConfig returns the settings used for negotiation waits.
func DefaultConfig() Config {
	return Config{
		Timeout:      3 * time.Second,
		BaseInterval: 20 * time.Millisecond,
		MaxBackoff:   250 * time.Millisecond,
	}
}

// Backoff computes exponential backoff with +/-10% jitter.
func Backoff(attempt int, baseInterval, maxBackoff time.Duration) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	d := baseInterval << attempt
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	return time.Duration(int64(d) * int64(9+rand.IntN(3)) / 10)
}

// Executor is something that can run once conditions allow it.
type Executor interface {
	// DetermineAction decides what the loop does next.
	DetermineAction() Action
	// Execute runs the operation and returns true when the loop should stop.
	Execute(attempt int) bool
}

// Funcs adapts a pair of functions to Executor.
type Funcs struct {
	Determine func() Action
	Exec      func(attempt int) bool
}

func (f Funcs) DetermineAction() Action { return f.Determine() }

func (f Funcs) Execute(attempt int) bool { return f.Exec(attempt) }

// Run drives executor until it finishes, aborts, or the budget runs out.
func Run(ctx context.Context, cfg Config, executor Executor) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for i := 0; cfg.Attempts <= 0 || i < cfg.Attempts; i++ {
		if err := ctx.Err(); err != nil {
			return budgetErr(err)
		}

		switch executor.DetermineAction() {
		case Abort:
			return ErrAborted
		case Execute:
			if executor.Execute(i) {
				return nil
			}
		}

		d := Backoff(i, cfg.BaseInterval, cfg.MaxBackoff)
		if timer == nil {
			timer = time.NewTimer(d)
		} else {
			timer.Reset(d)
		}
		select {
		case <-ctx.Done():
			return budgetErr(ctx.Err())
		case <-timer.C:
		}
	}
	return ErrExhausted
}

// WaitUntil polls ready until it reports true. stop, when non-nil, aborts the wait.
func WaitUntil(ctx context.Context, cfg Config, ready, stop func() bool) error {
	return Run(ctx, cfg, Funcs{
		Determine: func() Action {
			if stop != nil && stop() {
				return Abort
			}
			if ready() {
				return Execute
			}
			return Wait
		},
		Exec: func(int) bool { return true },
	})
}

func budgetErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrExhausted
	}
	return err
}
