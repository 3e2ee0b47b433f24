package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fast(extra ...Option) []Option {
	return append([]Option{WithInitialDelay(time.Millisecond), WithMaxDelay(2 * time.Millisecond), WithJitter(0)}, extra...)
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, fast(WithMaxAttempts(5))...)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	base := errors.New("bad config")
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(base)
	}, fast()...)

	assert.ErrorIs(t, err, base)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var retried []int
	err := Do(context.Background(), func(context.Context) error {
		return errors.New("down")
	}, fast(WithMaxAttempts(3), WithOnRetry(func(a int, _ error, _ time.Duration) { retried = append(retried, a) }))...)

	assert.EqualError(t, err, "down")
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoWithData(t *testing.T) {
	v, err := DoWithData(context.Background(), func(context.Context) (int, error) { return 42, nil })

	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}
