// Package circuitbreaker stops a failing remote content source from slowing
// down every read. After Settings.Trips consecutive failures calls fail fast
// with ErrOpen until the cooldown elapses, then a single trial call decides
// whether the circuit closes again.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the position of the breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets one trial call through at a time.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrOpen is returned without calling fn while the circuit is open
// or while a half-open trial is already in flight.
var ErrOpen = errors.New("circuit breaker is open")

// Settings configure a Breaker. Zero fields take the defaults noted below.
type Settings struct {
	Name string
	// Trips is the number of consecutive failures that open the circuit (5).
	Trips int
	// Recoveries is the number of half-open successes that close it (1).
	Recoveries int
	// Cooldown is how long the circuit stays open (30s).
	Cooldown time.Duration
	// Counts decides whether an error is a failure. Nil counts every error.
	Counts func(error) bool
	// OnStateChange observes transitions. It runs under the breaker lock.
	OnStateChange func(name string, from, to State)
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Breaker is safe for concurrent use.
type Breaker struct {
	set Settings

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	trial     bool
}

// New returns a closed breaker.
func New(set Settings) *Breaker {
	if set.Trips <= 0 {
		set.Trips = 5
	}
	if set.Recoveries <= 0 {
		set.Recoveries = 1
	}
	if set.Cooldown <= 0 {
		set.Cooldown = 30 * time.Second
	}
	if set.Clock == nil {
		set.Clock = time.Now
	}
	return &Breaker{set: set}
}

// ForContent is the breaker of the remote content source: three straight
// failures switch the provider to default material for a minute.
func ForContent(onStateChange func(name string, from, to State)) *Breaker {
	return New(Settings{
		Name:          "content",
		Trips:         3,
		Recoveries:    1,
		Cooldown:      time.Minute,
		OnStateChange: onStateChange,
	})
}

// Execute calls fn unless the circuit rejects it and records the outcome.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// State returns the current state. An open circuit whose cooldown has
// elapsed still reports StateOpen until the next call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen reports whether calls are currently rejected.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.set.Clock().Sub(b.openedAt) < b.set.Cooldown {
			return ErrOpen
		}
		b.transition(StateHalfOpen)
		b.trial = true
	case StateHalfOpen:
		if b.trial {
			return ErrOpen
		}
		b.trial = true
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trial = false
	failed := err != nil && (b.set.Counts == nil || b.set.Counts(err))
	if !failed {
		b.failures = 0
		b.successes++
		if b.state == StateHalfOpen && b.successes >= b.set.Recoveries {
			b.transition(StateClosed)
		}
		return
	}

	b.successes = 0
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.set.Trips {
		b.openedAt = b.set.Clock()
		b.transition(StateOpen)
	}
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.failures, b.successes = 0, 0
	if b.set.OnStateChange != nil {
		b.set.OnStateChange(b.set.Name, from, to)
	}
}
