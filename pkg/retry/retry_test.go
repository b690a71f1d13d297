package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "lodgeworks/pkg/errors"
	"lodgeworks/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.LevelError, Service: "test"})
}

func fastOptions() Options {
	return Options{
		MaxAttempts:     3,
		BackoffBase:     time.Millisecond,
		SlowOpThreshold: time.Second,
	}
}

func TestRetryable_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"app error", apperrors.ResourceUnavailable("conflict"), false},
		{"duplicate key", mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}, false},
		{"bad value", mongo.CommandError{Code: 2}, false},
		{"failed to parse", mongo.CommandError{Code: 9}, false},
		{"unauthorized", mongo.CommandError{Code: 13}, false},
		{"namespace not found", mongo.CommandError{Code: 26}, false},
		{"document validation", mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 121}}}, false},
		{"network error", errors.New("connection reset by peer"), true},
		{"server selection", mongo.CommandError{Code: 6, Message: "host unreachable"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	r := New(testLogger(), fastOptions())

	calls := 0
	err := r.Do(context.Background(), "insert", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	r := New(testLogger(), fastOptions())

	calls := 0
	err := r.Do(context.Background(), "find", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("i/o timeout")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustedRetriesBecomeStoreUnavailable(t *testing.T) {
	r := New(testLogger(), fastOptions())

	calls := 0
	err := r.Do(context.Background(), "find", func(ctx context.Context) error {
		calls++
		return errors.New("connection refused")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnavailable))
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	r := New(testLogger(), fastOptions())

	calls := 0
	err := r.Do(context.Background(), "insert", func(ctx context.Context) error {
		calls++
		return mongo.CommandError{Code: 9, Message: "failed to parse"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, apperrors.IsAppError(err))
}

func TestDo_AppErrorPassesThroughUnretried(t *testing.T) {
	r := New(testLogger(), fastOptions())

	conflict := apperrors.ResourceUnavailable("dates conflict with an existing booking")
	calls := 0
	err := r.Do(context.Background(), "create_hold", func(ctx context.Context) error {
		calls++
		return conflict
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, conflict, err)
}

func TestDo_UnhealthyFailsFastWithoutCallingStore(t *testing.T) {
	opts := fastOptions()
	opts.Health = StaticHealth(false)
	r := New(testLogger(), opts)

	calls := 0
	err := r.Do(context.Background(), "find", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, 0, calls)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnavailable))
}

func TestDo_BreakerOpensAfterConsecutiveTransientFailures(t *testing.T) {
	r := New(testLogger(), fastOptions())
	ctx := context.Background()

	// Two exhausted calls produce six consecutive transient failures,
	// past the breaker's trip point.
	for i := 0; i < 2; i++ {
		_ = r.Do(ctx, "find", func(ctx context.Context) error {
			return errors.New("connection refused")
		})
	}

	calls := 0
	err := r.Do(ctx, "find", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, 0, calls, "open breaker must not consume an attempt")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnavailable))
}

func TestProbe_StopPinsUnhealthy(t *testing.T) {
	probe := NewProbe(testLogger(), func(ctx context.Context) error { return nil }, 10*time.Millisecond)
	probe.Start()
	assert.True(t, probe.Healthy())

	probe.Stop()
	assert.False(t, probe.Healthy())
}

func TestProbe_MarksUnhealthyOnFailedPing(t *testing.T) {
	failing := errors.New("no reachable servers")
	probe := NewProbe(testLogger(), func(ctx context.Context) error { return failing }, 5*time.Millisecond)
	probe.Start()
	defer probe.Stop()

	assert.Eventually(t, func() bool { return !probe.Healthy() }, time.Second, 5*time.Millisecond)
}
