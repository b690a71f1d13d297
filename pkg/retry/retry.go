// Package retry wraps every store call with error-classified retries and a
// health-gated fast path. Transient failures (network, timeouts, server
// selection) are retried with exponential backoff; malformed queries, auth
// failures, missing namespaces, duplicate keys and business errors fail
// immediately. A circuit breaker fed by transient failures and an injected
// health probe short-circuit calls to StoreUnavailable while the store is
// known to be down, without consuming a retry.
package retry

import (
	"context"
	"errors"
	"time"

	apperrors "lodgeworks/pkg/errors"
	"lodgeworks/pkg/logger"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
)

// Mongo server error codes that no amount of retrying will fix.
const (
	codeBadValue           = 2
	codeFailedToParse      = 9
	codeUnauthorized       = 13
	codeAuthFailed         = 18
	codeNamespaceNotFound  = 26
	codeNamespaceExists    = 48
	codeDocumentValidation = 121
)

// HealthSignal reports whether the store is believed reachable. The
// production signal is a periodic ping probe; tests inject transitions
// directly.
type HealthSignal interface {
	Healthy() bool
}

type Options struct {
	MaxAttempts     int
	BackoffBase     time.Duration
	SlowOpThreshold time.Duration
	Health          HealthSignal
}

type Retryer struct {
	log             *logger.Logger
	maxAttempts     int
	backoffBase     time.Duration
	slowOpThreshold time.Duration
	health          HealthSignal
	breaker         *gobreaker.CircuitBreaker
}

func New(log *logger.Logger, opts Options) *Retryer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 100 * time.Millisecond
	}
	if opts.SlowOpThreshold <= 0 {
		opts.SlowOpThreshold = time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "store",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Store circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// Only transient store faults count against the breaker; business
		// errors and malformed queries say nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil || !Retryable(err)
		},
	})

	return &Retryer{
		log:             log,
		maxAttempts:     opts.MaxAttempts,
		backoffBase:     opts.BackoffBase,
		slowOpThreshold: opts.SlowOpThreshold,
		health:          opts.Health,
		breaker:         breaker,
	}
}

// Retryable classifies an error. AppErrors carry business meaning and are
// never retried. Mongo duplicate keys, parse/validation failures, auth
// errors and missing namespaces are permanent; everything else (network
// faults, timeouts, server selection) is considered transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if apperrors.IsAppError(err) {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return false
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && permanentCode(cmdErr.Code) {
		return false
	}
	var writeExc mongo.WriteException
	if errors.As(err, &writeExc) {
		for _, we := range writeExc.WriteErrors {
			if permanentCode(int32(we.Code)) {
				return false
			}
		}
	}

	return true
}

func permanentCode(code int32) bool {
	switch code {
	case codeBadValue, codeFailedToParse, codeUnauthorized, codeAuthFailed,
		codeNamespaceNotFound, codeNamespaceExists, codeDocumentValidation:
		return true
	}
	return false
}

// Do runs fn with the configured retry policy. The operation name is only
// used for logging.
func (r *Retryer) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if r.health != nil && !r.health.Healthy() {
		r.log.Warn("Store marked unhealthy, failing fast", "op", op)
		return apperrors.StoreUnavailable("store is unhealthy", nil)
	}

	start := time.Now()
	var err error
	attempts := 0

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		attempts = attempt
		_, err = r.breaker.Execute(func() (any, error) {
			return nil, fn(ctx)
		})
		if err == nil {
			break
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			r.log.Warn("Store circuit open, failing fast", "op", op, "attempt", attempt)
			return apperrors.StoreUnavailable("store circuit is open", err)
		}

		if !Retryable(err) {
			break
		}

		if attempt < r.maxAttempts {
			backoff := r.backoffBase * (1 << (attempt - 1))
			r.log.Warn("Retrying store operation",
				"op", op,
				"attempt", attempt,
				"backoff", backoff,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return apperrors.StoreUnavailable("store operation cancelled", ctx.Err())
			case <-time.After(backoff):
			}
		}
	}

	elapsed := time.Since(start)
	if elapsed > r.slowOpThreshold {
		r.log.Warn("Slow store operation",
			"op", op,
			"attempts", attempts,
			"elapsed_ms", elapsed.Milliseconds(),
			"failed", err != nil,
		)
	}

	if err != nil {
		r.log.Error("Store operation failed",
			"op", op,
			"attempts", attempts,
			"elapsed_ms", elapsed.Milliseconds(),
			"error", err,
		)
		if Retryable(err) {
			return apperrors.StoreUnavailable("store unreachable after retries", err)
		}
		return err
	}

	r.log.Debug("Store operation completed",
		"op", op,
		"attempts", attempts,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return nil
}
