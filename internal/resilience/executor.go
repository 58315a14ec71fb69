// Package resilience guards calls to qdrant and OpenAI with a circuit breaker
// per operation and optional retries.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Class tells the Executor how to treat an error returned by a call.
type Class int

const (
	// Permanent errors are returned at once and count against the breaker.
	Permanent Class = iota
	// Transient errors are retried until attempts run out.
	Transient
	// Ignored errors are returned at once and leave the breaker untouched,
	// e.g. a caller that went away.
	Ignored
)

// Classifier maps an error to its Class.
type Classifier func(error) Class

// Classify is the default Classifier. Cancellation is Ignored, everything
// else is Permanent.
func Classify(err error) Class {
	if errors.Is(err, context.Canceled) {
		return Ignored
	}
	return Permanent
}

// ErrCircuitOpen is returned instead of calling an operation whose breaker
// is open or saturated while half-open.
var ErrCircuitOpen = errors.New("circuit open")

// Executor runs named operations. Each operation name gets its own breaker,
// so a failing qdrant does not block OpenAI calls.
type Executor struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(cfg Config, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		cfg:      cfg.withDefaults(),
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

// Execute runs fn as operation. A nil classify uses Classify. Calling
// Execute on a nil Executor runs fn directly.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil callback for %s", operation)
	}
	if e == nil {
		return fn(ctx)
	}
	if classify == nil {
		classify = Classify
	}

	if !e.cfg.Breaker.Enabled {
		return e.retry(ctx, operation, fn, classify)
	}

	_, err := e.breaker(operation, classify).Execute(func() (struct{}, error) {
		return struct{}{}, e.retry(ctx, operation, fn, classify)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", operation, ErrCircuitOpen)
	}
	return err
}

func (e *Executor) retry(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.cfg.Attempts == 1 {
		return fn(ctx)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.BaseDelay
	b.MaxInterval = e.cfg.MaxDelay
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.cfg.Attempts-1)), ctx)

	return backoff.RetryNotify(func() error {
		err := fn(ctx)
		if err != nil && classify(err) != Transient {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		e.logger.Warn("Retrying operation", "operation", operation, "wait", wait, "error", err)
	})
}

func (e *Executor) breaker(operation string, classify Classifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[operation]; ok {
		return cb
	}

	s := e.cfg.Breaker
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        operation,
		MaxRequests: s.HalfOpenCalls,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= s.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		IsExcluded: func(err error) bool {
			return classify(err) == Ignored
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("Circuit breaker state changed", "operation", name, "from", from.String(), "to", to.String())
		},
	})
	e.breakers[operation] = cb
	return cb
}
