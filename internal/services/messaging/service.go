package messaging

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/KirkDiggler/applebot/internal/clients/discordapi"
	"github.com/KirkDiggler/applebot/internal/common/clock"
	"github.com/KirkDiggler/applebot/internal/models"
	"github.com/KirkDiggler/applebot/internal/services/ratelimit"
)

// DefaultThrottlePause is how long a send waits after a 429 before its retry
const DefaultThrottlePause = 30 * time.Second

// Config holds configuration for the messaging service
type Config struct {
	API     discordapi.API
	Window  *ratelimit.Window
	Session Session

	// Clock is optional; the system clock is used otherwise
	Clock clock.Clock

	// ThrottlePause overrides DefaultThrottlePause when positive
	ThrottlePause time.Duration
}

// service implements the Service interface
type service struct {
	// mu is held for the whole of a send, retries and pauses included
	mu sync.Mutex

	api           discordapi.API
	window        *ratelimit.Window
	session       Session
	clock         clock.Clock
	throttlePause time.Duration
}

// New creates a new messaging service
func New(cfg *Config) (*service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.API == nil {
		return nil, ErrNilAPI
	}

	if cfg.Window == nil {
		return nil, ErrNilWindow
	}

	if cfg.Session == nil {
		return nil, ErrNilSession
	}

	c := cfg.Clock
	if c == nil {
		c = &clock.DefaultClock{}
	}

	pause := cfg.ThrottlePause
	if pause <= 0 {
		pause = DefaultThrottlePause
	}

	return &service{
		api:           cfg.API,
		window:        cfg.Window,
		session:       cfg.Session,
		clock:         c,
		throttlePause: pause,
	}, nil
}

// Send posts msg as a reply in the channel of its origin. A throttled send
// is retried once after a pause; a forbidden one is dropped; anything else
// replaces the session and is retried once.
func (s *service) Send(ctx context.Context, msg *models.OutboundMessage) error {
	if msg == nil {
		return ErrNilMessage
	}

	origin, ok := msg.Origin.(*models.DiscordMessage)
	if !ok || origin == nil {
		log.Printf("Error sending message: cannot reply to %T", msg.Origin)
		return ErrUnsupportedKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.window.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for send window: %w", err)
	}

	generation, err := s.post(ctx, origin.ChannelID, msg.Content)
	if err == nil {
		return nil
	}

	switch {
	case discordapi.IsThrottled(err):
		log.Printf("Send to channel %s throttled, retrying in %s", origin.ChannelID, s.throttlePause)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.throttlePause):
		}

		if _, err := s.post(ctx, origin.ChannelID, msg.Content); err != nil {
			log.Printf("Error sending message to channel %s after throttle pause: %v", origin.ChannelID, err)
			return fmt.Errorf("sending after throttle: %w", err)
		}
		return nil

	case discordapi.IsForbidden(err):
		log.Printf("Not allowed to send to channel %s, dropping message", origin.ChannelID)
		return fmt.Errorf("sending to channel %s: %w", origin.ChannelID, err)

	default:
		log.Printf("Error sending message to channel %s, reconnecting: %v", origin.ChannelID, err)

		// only the session whose token failed is replaced; if another caller
		// got there first the send goes out on the newer one
		if err := s.session.ReplaceSession(ctx, generation); err != nil {
			return fmt.Errorf("reconnecting after failed send: %w", err)
		}

		if _, err := s.post(ctx, origin.ChannelID, msg.Content); err != nil {
			log.Printf("Error sending message to channel %s after reconnect: %v", origin.ChannelID, err)
			return fmt.Errorf("sending after reconnect: %w", err)
		}
		return nil
	}
}

// post sends with the current credentials and reports the session
// generation they belonged to
func (s *service) post(ctx context.Context, channelID, content string) (int64, error) {
	token, generation := s.session.Credentials()

	return generation, s.api.CreateMessage(ctx, &discordapi.CreateMessageInput{
		Token:     token,
		ChannelID: channelID,
		Content:   content,
	})
}
