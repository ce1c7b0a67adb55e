package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/KirkDiggler/applebot/internal/common/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWindow(t *testing.T) (*Window, *clock.Fake) {
	t.Helper()

	fake := clock.NewFake(time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	cfg.Clock = fake

	w, err := New(cfg)
	require.NoError(t, err)
	return w, fake
}

func TestWaitUnderLimitDoesNotSleep(t *testing.T) {
	w, fake := newTestWindow(t)

	for i := 0; i < 30; i++ {
		require.NoError(t, w.Wait(context.Background()))
	}

	assert.Empty(t, fake.Sleeps())
	assert.Equal(t, 30, w.Len())
}

func TestThirtyFirstSendWaitsForOldestToAgeOut(t *testing.T) {
	w, fake := newTestWindow(t)
	start := fake.Now()

	for i := 0; i < 30; i++ {
		require.NoError(t, w.Wait(context.Background()))
	}

	require.NoError(t, w.Wait(context.Background()))

	// the first 30 sends are only older than 15s once more than 15s passed
	waited := fake.Now().Sub(start)
	assert.Greater(t, waited, 15*time.Second)
	assert.LessOrEqual(t, waited, 16*time.Second)
	for _, d := range fake.Sleeps() {
		assert.Equal(t, time.Second, d)
	}
	// every entry, the 31st included, was recorded at the same instant
	assert.Equal(t, 0, w.Len())
}

func TestWindowFullOfRecentSendsBlocksUntilShrunk(t *testing.T) {
	w, fake := newTestWindow(t)

	// 30 sends spread across the last 2 seconds
	for i := 0; i < 30; i++ {
		require.NoError(t, w.Wait(context.Background()))
		fake.Advance(2 * time.Second / 30)
	}
	before := fake.Now()

	require.NoError(t, w.Wait(context.Background()))

	assert.NotEmpty(t, fake.Sleeps())
	assert.GreaterOrEqual(t, fake.Now().Sub(before), 13*time.Second)
	assert.LessOrEqual(t, w.Len(), 30)
}

func TestSpacedSendsAreNeverDelayed(t *testing.T) {
	w, fake := newTestWindow(t)

	for i := 0; i < 100; i++ {
		require.NoError(t, w.Wait(context.Background()))
		fake.Advance(16 * time.Second)
	}

	assert.Empty(t, fake.Sleeps())
}

func TestWaitHonoursContext(t *testing.T) {
	blocked := make(chan time.Time)
	w, err := New(&Config{Limit: 1, Span: time.Minute, Poll: time.Second, Clock: &stalledClock{now: time.Now(), ch: blocked}})
	require.NoError(t, err)

	require.NoError(t, w.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Wait(ctx), context.Canceled)

	// the abandoned attempt does not count against later sends
	assert.Equal(t, 1, w.Len())
}

func TestCancelledWaitOnlyForgetsItsOwnEntry(t *testing.T) {
	w, fake := newTestWindow(t)

	for i := 0; i < 30; i++ {
		require.NoError(t, w.Wait(context.Background()))
	}

	fake.Advance(5 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Wait(ctx), context.Canceled)
	assert.Equal(t, 30, w.Len())

	// the 30 earlier sends still hold the window until they age out
	before := fake.Now()
	require.NoError(t, w.Wait(context.Background()))
	assert.Greater(t, fake.Now().Sub(before), 10*time.Second)
}

func TestNewValidation(t *testing.T) {
	testCases := []struct {
		name string
		cfg  *Config
	}{
		{name: "nil config", cfg: nil},
		{name: "zero limit", cfg: &Config{Span: time.Second, Poll: time.Second}},
		{name: "zero span", cfg: &Config{Limit: 1, Poll: time.Second}},
		{name: "zero poll", cfg: &Config{Limit: 1, Span: time.Second}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg)
			assert.Error(t, err)
		})
	}
}

// stalledClock never fires After, so only ctx can end a wait
type stalledClock struct {
	now time.Time
	ch  chan time.Time
}

func (c *stalledClock) Now() time.Time                         { return c.now }
func (c *stalledClock) After(d time.Duration) <-chan time.Time { return c.ch }
