// Package poll holds the bounded polling primitive and the randomized delays used
// while waiting on a client-rendered page.
package poll

import (
	"context"
	"math/rand"
	"time"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Config bounds a poll.
type Config struct {
	// Attempts is the number of times the predicate is evaluated.
	Attempts int
	// Interval is the pause between attempts.
	Interval time.Duration
	// SleepFirst pauses before the first evaluation as well, for waits that start
	// right after an action whose effect cannot be visible yet.
	SleepFirst bool
}

// Check reports whether the awaited condition holds.
type Check func(ctx context.Context) (bool, error)

// Until evaluates check until it reports true or the attempt budget is spent.
// An exhausted budget is not an error: Until returns (false, nil). Errors from
// check and context cancellation are returned as is.
func Until(ctx context.Context, cfg Config, sleep Sleeper, check Check) (bool, error) {
	if sleep == nil {
		sleep = Sleep
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if cfg.SleepFirst || attempt > 1 {
			if err := sleep(ctx, cfg.Interval); err != nil {
				return false, err
			}
		}

		done, err := check(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
	}

	return false, nil
}

// Range is a closed interval of durations for randomized waits.
type Range struct {
	Min time.Duration `mapstructure:"min"`
	Max time.Duration `mapstructure:"max"`
}

// Pick returns a uniformly distributed duration in [Min, Max].
func (r Range) Pick(rng *rand.Rand) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rng.Int63n(int64(r.Max-r.Min)+1))
}
