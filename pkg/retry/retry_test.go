package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries int) *Config {
	return &Config{
		MaxRetries:    retries,
		BackoffFactor: 2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
	}
}

func TestRetry_SuccessOnFirstTry(t *testing.T) {
	counter := 0
	err := NewRetrier(fastConfig(3)).Do(context.Background(), func() error {
		counter++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, counter)
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	counter := 0
	var retried []int

	err := NewRetrier(fastConfig(3)).Do(context.Background(), func() error {
		counter++
		if counter < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, func(attempt int, err error) {
		retried = append(retried, attempt)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, counter)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetry_MaxRetriesExceeded(t *testing.T) {
	expectedErr := errors.New("permanent error")
	counter := 0

	err := NewRetrier(fastConfig(2)).Do(context.Background(), func() error {
		counter++
		return expectedErr
	})

	require.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 3, counter, "initial try + 2 retries")
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	retrier := NewRetrier(&Config{
		MaxRetries:    5,
		BackoffFactor: 2,
		InitialDelay:  time.Second,
		MaxDelay:      time.Second,
	})

	err := retrier.Do(ctx, func() error {
		cancel()
		return errors.New("operation error after cancel")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetry_Backoff(t *testing.T) {
	config := &Config{
		MaxRetries:    2,
		BackoffFactor: 2.0,
		InitialDelay:  20 * time.Millisecond,
		MaxDelay:      time.Second,
	}

	start := time.Now()
	_ = NewRetrier(config).Do(context.Background(), func() error {
		return errors.New("error")
	})
	elapsed := time.Since(start)

	// 20ms then 40ms between the three attempts.
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	cause := errors.New("bad request")
	counter := 0

	err := NewRetrier(fastConfig(5)).Do(context.Background(), func() error {
		counter++
		return Permanent(cause)
	})

	assert.Equal(t, 1, counter)
	assert.Same(t, cause, err)
	assert.Nil(t, Permanent(nil))
}

func TestNewDefaultRetrier(t *testing.T) {
	r := NewDefaultRetrier()
	require.NotNil(t, r)
	assert.Equal(t, NewDefaultConfig(), r.config)

	counter := 0
	err := r.Do(context.Background(), func() error {
		counter++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counter)
}
