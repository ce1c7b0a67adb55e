package ratelimit

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/KirkDiggler/applebot/internal/common/clock"
)

// Config holds configuration for a send window
type Config struct {
	// Limit is the number of sends allowed inside Span
	Limit int

	// Span is how far back a send still counts against Limit
	Span time.Duration

	// Poll is the pause between pruning passes while over the limit
	Poll time.Duration

	// Clock is optional; the system clock is used otherwise
	Clock clock.Clock
}

// DefaultConfig returns the limits Discord enforced on message creation:
// 30 messages per 15 seconds, re-checked every second
func DefaultConfig() *Config {
	return &Config{
		Limit: 30,
		Span:  15 * time.Second,
		Poll:  time.Second,
	}
}

// Window is a coarse sliding-window throttle. Every attempt is recorded as
// an offset from the window's start; once more than Limit offsets are held,
// Wait prunes the ones older than Span and polls until the count drops.
type Window struct {
	mu      sync.Mutex
	limit   int
	span    time.Duration
	poll    time.Duration
	clock   clock.Clock
	start   time.Time
	entries []time.Duration
}

// New creates a new send window
func New(cfg *Config) (*Window, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	if cfg.Span <= 0 || cfg.Poll <= 0 {
		return nil, errors.New("span and poll must be positive")
	}

	c := cfg.Clock
	if c == nil {
		c = &clock.DefaultClock{}
	}

	return &Window{
		limit: cfg.Limit,
		span:  cfg.Span,
		poll:  cfg.Poll,
		clock: c,
		start: c.Now(),
	}, nil
}

// Wait records a send attempt and blocks until the window holds at most
// Limit entries. It returns early only if ctx ends, and then the attempt is
// no longer counted.
func (w *Window) Wait(ctx context.Context) error {
	w.mu.Lock()
	entry := w.elapsed()
	w.entries = append(w.entries, entry)
	w.mu.Unlock()

	for {
		if w.prune() {
			return nil
		}

		log.Printf("Send window full (%d/%d), waiting %s", w.Len(), w.limit, w.poll)

		if ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case <-w.clock.After(w.poll):
			}
		}

		if err := ctx.Err(); err != nil {
			w.forget(entry)
			return err
		}
	}
}

// forget removes one recorded attempt unless it has already aged out
func (w *Window) forget(entry time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := len(w.entries) - 1; i >= 0; i-- {
		if w.entries[i] == entry {
			w.entries = append(w.entries[:i], w.entries[i+1:]...)
			return
		}
	}
}

// Len returns the number of recorded attempts still held
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// prune drops entries older than Span once the window is over its limit and
// reports whether the window is now within it
func (w *Window) prune() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.entries) <= w.limit {
		return true
	}

	cutoff := w.elapsed() - w.span
	drop := 0
	for drop < len(w.entries) && w.entries[drop] < cutoff {
		drop++
	}
	w.entries = w.entries[drop:]

	return len(w.entries) <= w.limit
}

// elapsed must be called with mu held
func (w *Window) elapsed() time.Duration {
	return w.clock.Now().Sub(w.start)
}
