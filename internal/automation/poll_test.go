package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll_ExhaustsWithinBudget(t *testing.T) {
	calls := 0
	res, err := Poll(context.Background(), Policy{Attempts: 5, Interval: 200 * time.Millisecond},
		func(context.Context, int) (bool, error) {
			calls++
			return false, nil
		})

	require.NoError(t, err)
	assert.True(t, res.Exhausted())
	assert.Equal(t, 5, res.Attempts)
	assert.Equal(t, 5, calls)
	assert.GreaterOrEqual(t, res.Elapsed, 750*time.Millisecond)
	assert.Less(t, res.Elapsed, 1500*time.Millisecond)
}

func TestPoll_StopsWhenSatisfied(t *testing.T) {
	res, err := Poll(context.Background(), Policy{Attempts: 10, Interval: time.Millisecond},
		func(_ context.Context, attempt int) (bool, error) {
			return attempt == 3, nil
		})

	require.NoError(t, err)
	assert.True(t, res.Satisfied)
	assert.Equal(t, 3, res.Attempts)
}

func TestPoll_ProbeErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	res, err := Poll(context.Background(), Policy{Attempts: 10, Interval: time.Millisecond},
		func(_ context.Context, attempt int) (bool, error) {
			if attempt == 2 {
				return false, boom
			}
			return false, nil
		})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, res.Attempts)
}

func TestPoll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Poll(ctx, Policy{Attempts: 100, Interval: time.Second},
		func(context.Context, int) (bool, error) { return false, nil })

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestPoll_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	res, err := Poll(context.Background(), Policy{}, func(context.Context, int) (bool, error) {
		calls++
		return false, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, res.Exhausted())
}
