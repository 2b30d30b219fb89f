package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/lychee-technology/datamimic"
	"go.uber.org/zap"
)

// CircuitBreaker is a lightweight in-memory circuit breaker.
type CircuitBreaker struct {
	mu           sync.Mutex
	failures     []time.Time
	threshold    int
	window       time.Duration
	openUntil    time.Time
	openDuration time.Duration
	now          func() time.Time
}

// NewCircuitBreaker opens after threshold failures within window and stays open for openDuration.
func NewCircuitBreaker(threshold int, window, openDuration time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:    threshold,
		window:       window,
		openDuration: openDuration,
		failures:     make([]time.Time, 0, threshold),
		now:          time.Now,
	}
}

// RecordFailure records a failure occurrence and opens the breaker if threshold exceeded.
func (cb *CircuitBreaker) RecordFailure() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cutoff := now.Add(-cb.window)
	i := 0
	for ; i < len(cb.failures); i++ {
		if cb.failures[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		cb.failures = append([]time.Time{}, cb.failures[i:]...)
	}
	cb.failures = append(cb.failures, now)

	if len(cb.failures) >= cb.threshold {
		cb.openUntil = now.Add(cb.openDuration)
	}
}

// RecordSuccess resets failure history when operations succeed.
func (cb *CircuitBreaker) RecordSuccess() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = cb.failures[:0]
	cb.openUntil = time.Time{}
}

// IsOpen returns true if the breaker is currently open.
func (cb *CircuitBreaker) IsOpen() bool {
	if cb == nil {
		return false
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.now().Before(cb.openUntil)
}

// GuardedStore skips increments while a remote counter store keeps failing, so a down
// database costs one timeout per window instead of one per request.
type GuardedStore struct {
	next    datamimic.CounterStore
	breaker *CircuitBreaker
}

// Guard wraps next with breaker.
func Guard(next datamimic.CounterStore, breaker *CircuitBreaker) *GuardedStore {
	return &GuardedStore{next: next, breaker: breaker}
}

func (g *GuardedStore) Increment(ctx context.Context, counter datamimic.Counter) error {
	if g.breaker.IsOpen() {
		return datamimic.NewCounterError("counter store unavailable", nil).WithDetail("counter", string(counter))
	}
	if err := g.next.Increment(ctx, counter); err != nil {
		g.breaker.RecordFailure()
		if g.breaker.IsOpen() {
			zap.S().Warnw("counter store circuit opened", "err", err)
		}
		return err
	}
	g.breaker.RecordSuccess()
	return nil
}

// Load always reaches the store so /usage reports real failures.
func (g *GuardedStore) Load(ctx context.Context) (*datamimic.UsageStats, error) {
	return g.next.Load(ctx)
}

// Ping checks the wrapped store and closes the breaker when it answers.
func (g *GuardedStore) Ping(ctx context.Context) error {
	if err := Ping(ctx, g.next); err != nil {
		return err
	}
	g.breaker.RecordSuccess()
	return nil
}

func (g *GuardedStore) Close() error { return g.next.Close() }
