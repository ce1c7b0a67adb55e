package discord

import (
	"context"
	"log"
	"time"

	"github.com/KirkDiggler/applebot/internal/common/clock"
	"github.com/KirkDiggler/applebot/internal/transport"
)

// heartbeat keeps one gateway session alive. It stops as soon as the live
// generation moves past its own or its context ends.
type heartbeat struct {
	generation int64
	interval   time.Duration
	margin     time.Duration
	clock      clock.Clock

	live func() int64
	send func(frame *transport.Frame) error
}

func (h *heartbeat) wait() time.Duration {
	if h.interval <= h.margin {
		return h.interval
	}
	return h.interval - h.margin
}

func (h *heartbeat) run(ctx context.Context) {
	wait := h.wait()
	log.Printf("Starting heartbeat for session %d every %s", h.generation, wait)

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.clock.After(wait):
		}

		if ctx.Err() != nil || h.live() != h.generation {
			log.Printf("Heartbeat for session %d stopped", h.generation)
			return
		}

		frame, err := newHeartbeatFrame(h.clock)
		if err != nil {
			log.Printf("Error building heartbeat: %v", err)
			return
		}

		if err := h.send(frame); err != nil {
			return
		}
	}
}

func newHeartbeatFrame(c clock.Clock) (*transport.Frame, error) {
	return transport.NewFrame(opHeartbeat, c.Now().UnixMilli())
}

// startHeartbeat starts the heartbeat for c unless one is already running
// for its generation
func (b *Bot) startHeartbeat(c *connection, intervalMs int64) {
	if intervalMs <= 0 {
		log.Printf("Ignoring heartbeat interval %d for session %d", intervalMs, c.generation)
		return
	}

	prev := b.heartbeatGen.Load()
	if prev == c.generation || !b.heartbeatGen.CompareAndSwap(prev, c.generation) {
		return
	}

	hb := &heartbeat{
		generation: c.generation,
		interval:   time.Duration(intervalMs) * time.Millisecond,
		margin:     b.margin,
		clock:      b.clock,
		live:       b.generation.Load,
		send: func(frame *transport.Frame) error {
			return b.writeHeartbeat(c, frame)
		},
	}

	go hb.run(c.ctx)
}

// writeHeartbeat sends on c directly. A failed write replaces the session.
func (b *Bot) writeHeartbeat(c *connection, frame *transport.Frame) error {
	err := c.conn.WriteFrame(frame)
	if err == nil {
		return nil
	}

	log.Printf("Error sending heartbeat for session %d: %v", c.generation, err)

	if c.ctx.Err() == nil {
		b.replace(b.runContext(), c)
	}
	return err
}

// heartbeatNow answers a server heartbeat request
func (b *Bot) heartbeatNow(c *connection) {
	frame, err := newHeartbeatFrame(b.clock)
	if err != nil {
		log.Printf("Error building heartbeat: %v", err)
		return
	}

	if err := c.conn.WriteFrame(frame); err != nil {
		log.Printf("Error sending requested heartbeat: %v", err)
	}
}
