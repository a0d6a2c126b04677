package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "insightminer/pkg/errors"
	"insightminer/pkg/logger"
)

func testConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, testConfig())

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeNetwork, "connection reset", 0)
		}
		return nil
	}, testConfig())

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	cause := errs.New(errs.ErrorTypeServerError, "upstream boom", 502)
	err := Do(func() error {
		calls++
		return cause
	}, testConfig())

	assert.Equal(t, 3, calls, "exactly MaxAttempts calls, no more")

	var exhausted *errs.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "download timeout after 3 retries")
}

func TestDoFatalErrorShortCircuits(t *testing.T) {
	fatalTypes := []errs.ErrorType{
		errs.ErrorTypeRateLimit,
		errs.ErrorTypeAuth,
		errs.ErrorTypeNotFound,
		errs.ErrorTypePrivate,
		errs.ErrorTypeValidation,
		errs.ErrorTypeChallenge,
	}

	for _, errType := range fatalTypes {
		t.Run(string(errType), func(t *testing.T) {
			calls := 0
			cause := errs.New(errType, "nope", 0)
			err := Do(func() error {
				calls++
				return cause
			}, testConfig())

			assert.Equal(t, 1, calls, "fatal errors abort without further attempts")
			assert.Same(t, cause, err, "the original error is returned, not an exhaustion wrapper")
		})
	}
}

func TestDoUntypedErrorsAreRetried(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errors.New("something flaky")
	}, testConfig())

	assert.Equal(t, 3, calls)
	assert.True(t, errs.IsExhausted(err))
}

func TestDoContextCancelStopsWaiting(t *testing.T) {
	cfg := testConfig()
	cfg.Backoff = &ConstantBackoff{Delay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cfg.Context = ctx

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeNetwork, "down", 0)
	}, cfg)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoOnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := testConfig()
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	Do(func() error {
		return errs.New(errs.ErrorTypeNetwork, "down", 0)
	}, cfg)

	// Called before each retry, not after the final attempt
	assert.Equal(t, []int{0, 1}, attempts)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	result, err := DoWithResult(func() (string, error) {
		calls++
		if calls < 2 {
			return "", errs.New(errs.ErrorTypeNetwork, "down", 0)
		}
		return "payload", nil
	}, testConfig())

	require.NoError(t, err)
	assert.Equal(t, "payload", result)
	assert.Equal(t, 2, calls)
}

func TestExponentialBackoffDoubles(t *testing.T) {
	eb := DefaultExponentialBackoff()

	assert.Equal(t, 1*time.Second, eb.BaseFor(0))
	assert.Equal(t, 2*time.Second, eb.BaseFor(1))
	assert.Equal(t, 4*time.Second, eb.BaseFor(2))
	assert.Equal(t, 8*time.Second, eb.BaseFor(3))
}

func TestExponentialBackoffCapped(t *testing.T) {
	eb := DefaultExponentialBackoff()
	assert.Equal(t, eb.MaxDelay, eb.BaseFor(30))
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	eb := DefaultExponentialBackoff()

	for i := 0; i < 50; i++ {
		delay := eb.NextDelay(1)
		assert.GreaterOrEqual(t, delay, 2*time.Second+eb.JitterMin)
		assert.LessOrEqual(t, delay, 2*time.Second+eb.JitterMax)
	}
}

func TestWaitRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Wait(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)

	assert.NoError(t, Wait(ctx, 0), "zero delay never blocks")
}

func TestRetrierWithMaxAttempts(t *testing.T) {
	calls := 0
	r := NewRetrier(testConfig()).WithMaxAttempts(2)

	r.Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeNetwork, "down", 0)
	})

	assert.Equal(t, 2, calls)
}
