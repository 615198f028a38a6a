package runtime

import (
	"context"
	"time"

	"github.com/docker/go-units"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/system"
)

// Backoff is an explicit retry policy. It is a value: Retry returns the
// advanced copy instead of mutating shared state.
type Backoff struct {
	Attempt     int
	MaxAttempts int
	Interval    time.Duration
}

// Exhausted reports whether no attempts remain.
func (b Backoff) Exhausted() bool {
	return b.Attempt >= b.MaxAttempts
}

// Budget is the longest time the policy can spend sleeping.
func (b Backoff) Budget() time.Duration {
	if b.MaxAttempts <= 1 {
		return 0
	}
	return time.Duration(b.MaxAttempts-1) * b.Interval
}

// String describes the policy for progress messages.
func (b Backoff) String() string {
	return units.HumanDuration(b.Budget())
}

// Retry calls fn until it succeeds or policy runs out of attempts, sleeping
// policy.Interval on clock between attempts. It returns the advanced policy
// and the last error.
func Retry(ctx context.Context, policy Backoff, clock system.Clock, fn func(ctx context.Context, attempt int) error) (Backoff, error) {
	var err error
	for !policy.Exhausted() {
		policy.Attempt++
		if err = fn(ctx, policy.Attempt); err == nil {
			return policy, nil
		}
		if policy.Exhausted() {
			break
		}
		if serr := clock.Sleep(ctx, policy.Interval); serr != nil {
			return policy, serr
		}
	}
	return policy, err
}
