// Package retry re-runs an operation with capped exponential backoff and jitter.
// Remote content fetches mark transient failures with Retryable; the sqlite
// store retries on a busy lock through a predicate instead.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Retryable marks err as transient. Nil stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// Permanent marks err as final: Do returns it unwrapped without another attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// Policy shapes the attempts of a Retrier. Zero fields take the defaults
// noted below.
type Policy struct {
	// Attempts counts the first call too (3).
	Attempts int
	// Base is the delay before the first retry (100ms).
	Base time.Duration
	// Cap bounds every delay (30s).
	Cap time.Duration
	// Factor multiplies the delay after each retry (2).
	Factor float64
	// Jitter spreads each delay by up to ±Jitter of itself. 0 disables it.
	Jitter float64
	// ShouldRetry classifies errors. Nil retries only Retryable errors.
	ShouldRetry func(error) bool
	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retrier runs operations under one Policy.
type Retrier struct {
	p Policy
}

// New fills in Policy defaults.
func New(p Policy) *Retrier {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.Base <= 0 {
		p.Base = 100 * time.Millisecond
	}
	if p.Cap <= 0 {
		p.Cap = 30 * time.Second
	}
	if p.Factor < 1 {
		p.Factor = 2
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		p.Jitter = 0
	}
	return &Retrier{p: p}
}

// ContentRetrier is used for remote content fetches. It backs off quickly
// enough that a slow content host is not hammered.
func ContentRetrier(onRetry func(attempt int, err error, delay time.Duration)) *Retrier {
	return New(Policy{
		Attempts: 3,
		Base:     250 * time.Millisecond,
		Cap:      5 * time.Second,
		Jitter:   0.2,
		OnRetry:  onRetry,
	})
}

// StoreRetrier is used for local store writes that hit a busy lock.
func StoreRetrier(busy func(error) bool) *Retrier {
	return New(Policy{
		Attempts:    4,
		Base:        20 * time.Millisecond,
		Cap:         500 * time.Millisecond,
		Jitter:      0.05,
		ShouldRetry: busy,
	})
}

// Do calls op until it succeeds, returns a non-retryable error, the attempts
// run out or ctx ends. Retryable and Permanent markers are stripped from the
// returned error.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var last error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return unmark(last)
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		last = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if !r.shouldRetry(err) || attempt >= r.p.Attempts {
			return unmark(err)
		}

		delay := r.backoff(attempt)
		if r.p.OnRetry != nil {
			r.p.OnRetry(attempt, err, delay)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return unmark(last)
		case <-timer.C:
		}
	}
}

func (r *Retrier) shouldRetry(err error) bool {
	if r.p.ShouldRetry != nil {
		return r.p.ShouldRetry(err)
	}
	return IsRetryable(err)
}

// backoff returns Base*Factor^(attempt-1), capped, with jitter applied.
func (r *Retrier) backoff(attempt int) time.Duration {
	d := float64(r.p.Base) * math.Pow(r.p.Factor, float64(attempt-1))
	d = math.Min(d, float64(r.p.Cap))
	if r.p.Jitter > 0 {
		d += d * r.p.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(math.Max(d, 0))
}

func unmark(err error) error {
	if r, ok := err.(*retryableError); ok {
		return r.err
	}
	return err
}
