package automation

import (
	"context"
	"time"
)

// Policy bounds a poll loop.
type Policy struct {
	Attempts int
	Interval time.Duration
}

// Probe checks the remote state once. A non-nil error aborts the poll.
type Probe func(ctx context.Context, attempt int) (bool, error)

// PollResult describes a finished poll.
type PollResult struct {
	Satisfied bool
	Attempts  int
	Elapsed   time.Duration
}

// Exhausted reports whether every attempt ran without satisfying the probe.
func (r PollResult) Exhausted() bool {
	return !r.Satisfied
}

// Poll runs probe up to policy.Attempts times, sleeping policy.Interval
// between attempts. Running out of attempts is reported through the result,
// never as an error; errors come from the probe or from ctx.
func Poll(ctx context.Context, policy Policy, probe Probe) (PollResult, error) {
	attempts := max(policy.Attempts, 1)
	start := time.Now()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for attempt := 1; ; attempt++ {
		ok, err := probe(ctx, attempt)
		if err != nil {
			return PollResult{Attempts: attempt, Elapsed: time.Since(start)}, err
		}
		if ok {
			return PollResult{Satisfied: true, Attempts: attempt, Elapsed: time.Since(start)}, nil
		}
		if attempt >= attempts {
			return PollResult{Attempts: attempt, Elapsed: time.Since(start)}, nil
		}

		if timer == nil {
			timer = time.NewTimer(policy.Interval)
		} else {
			timer.Reset(policy.Interval)
		}
		select {
		case <-ctx.Done():
			return PollResult{Attempts: attempt, Elapsed: time.Since(start)}, ctx.Err()
		case <-timer.C:
		}
	}
}
