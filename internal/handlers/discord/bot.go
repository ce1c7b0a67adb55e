package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KirkDiggler/applebot/internal/clients/discordapi"
	"github.com/KirkDiggler/applebot/internal/common/clock"
	"github.com/KirkDiggler/applebot/internal/models"
	"github.com/KirkDiggler/applebot/internal/repositories/guild"
	"github.com/KirkDiggler/applebot/internal/repositories/session"
	"github.com/KirkDiggler/applebot/internal/services/authorization"
	"github.com/KirkDiggler/applebot/internal/services/messaging"
	"github.com/KirkDiggler/applebot/internal/services/ratelimit"
	"github.com/KirkDiggler/applebot/internal/transport"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// DefaultHeartbeatMargin is subtracted from the server's heartbeat
	// interval so beats arrive before the deadline
	DefaultHeartbeatMargin = 10 * time.Second

	defaultLoginRetry    = time.Second
	defaultLoginThrottle = 30 * time.Second
)

var (
	// ErrNotRunning is returned when a session is needed but Run is not active
	ErrNotRunning = errors.New("discord platform is not running")

	// ErrNotConnected is returned when there is no live gateway connection
	ErrNotConnected = errors.New("no live gateway connection")
)

// MessageHandler is called for every message the platform receives
type MessageHandler func(b *Bot, msg *models.DiscordMessage)

// Bot is the Discord gateway platform. It keeps one live gateway session,
// mirrors guild state from gateway events and delivers outbound messages.
type Bot struct {
	api       discordapi.API
	guilds    guild.Repository
	sessions  session.Repository
	authz     authorization.Service
	messenger messaging.Service
	clock     clock.Clock
	dialer    *websocket.Dialer
	limiter   *rate.Limiter
	onMessage MessageHandler

	email         string
	password      string
	ownerID       string
	margin        time.Duration
	loginRetry    time.Duration
	loginThrottle time.Duration

	// connMu serializes reconnects and guards live. The handshake runs with
	// it held, so nothing but the handshake reads from a new connection.
	connMu sync.Mutex
	live   *connection

	generation   atomic.Int64
	heartbeatGen atomic.Int64
	state        atomic.Value

	// mu guards the fields below
	mu        sync.RWMutex
	runCtx    context.Context
	token     string
	tokenGen  int64
	selfID    string
	game      string
	sessionID string
}

// Config holds the configuration for the bot
type Config struct {
	// Email and Password are the account credentials used to log in
	Email    string
	Password string

	// OwnerID is elevated in every guild and may trigger the bot with its
	// own account; empty disables it
	OwnerID string

	// Game is shown as the bot's "Playing" status after each connect
	Game string

	// API is the Discord REST client
	API discordapi.API

	// Guilds is optional; an in-memory cache is used otherwise
	Guilds guild.Repository

	// Sessions is optional; when set every completed handshake is recorded
	Sessions session.Repository

	// SendWindow is optional; the default Discord send limits are used otherwise
	SendWindow *ratelimit.Window

	// ReconnectLimiter is optional and paces connection attempts
	ReconnectLimiter *rate.Limiter

	// Dialer is optional; websocket.DefaultDialer is used otherwise
	Dialer *websocket.Dialer

	// Clock is optional; the system clock is used otherwise
	Clock clock.Clock

	// HeartbeatMargin overrides DefaultHeartbeatMargin when positive
	HeartbeatMargin time.Duration

	// OnMessage receives every message from other users. It runs on its own
	// goroutine and may call Send.
	OnMessage MessageHandler
}

// New creates a new Discord platform
func New(cfg *Config) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Email == "" || cfg.Password == "" {
		return nil, errors.New("email and password cannot be empty")
	}

	if cfg.API == nil {
		return nil, errors.New("api client cannot be nil")
	}

	c := cfg.Clock
	if c == nil {
		c = &clock.DefaultClock{}
	}

	guilds := cfg.Guilds
	if guilds == nil {
		guilds = guild.NewMemory()
	}

	window := cfg.SendWindow
	if window == nil {
		windowCfg := ratelimit.DefaultConfig()
		windowCfg.Clock = c

		var err error
		window, err = ratelimit.New(windowCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create send window: %w", err)
		}
	}

	limiter := cfg.ReconnectLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(5*time.Second), 2)
	}

	margin := cfg.HeartbeatMargin
	if margin <= 0 {
		margin = DefaultHeartbeatMargin
	}

	authz, err := authorization.New(&authorization.Config{
		Guilds:  guilds,
		OwnerID: cfg.OwnerID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization service: %w", err)
	}

	bot := &Bot{
		api:           cfg.API,
		guilds:        guilds,
		sessions:      cfg.Sessions,
		authz:         authz,
		clock:         c,
		dialer:        cfg.Dialer,
		limiter:       limiter,
		onMessage:     cfg.OnMessage,
		email:         cfg.Email,
		password:      cfg.Password,
		ownerID:       cfg.OwnerID,
		game:          cfg.Game,
		margin:        margin,
		loginRetry:    defaultLoginRetry,
		loginThrottle: defaultLoginThrottle,
	}

	messenger, err := messaging.New(&messaging.Config{
		API:     cfg.API,
		Window:  window,
		Session: bot,
		Clock:   c,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging service: %w", err)
	}
	bot.messenger = messenger

	bot.setState(models.PlatformStateNotReady)
	return bot, nil
}

// State returns the platform's lifecycle state
func (b *Bot) State() models.PlatformState {
	if s, ok := b.state.Load().(models.PlatformState); ok {
		return s
	}
	return models.PlatformStateNotReady
}

func (b *Bot) setState(s models.PlatformState) {
	b.state.Store(s)
}

// Token returns the token of the current login
func (b *Bot) Token() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token
}

// Credentials returns the token of the current login and the generation of
// the session it was issued to
func (b *Bot) Credentials() (string, int64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token, b.tokenGen
}

// SelfID returns the bot's own user ID once READY has been received
func (b *Bot) SelfID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.selfID
}

// Send delivers a reply to the channel its origin was posted in
func (b *Bot) Send(ctx context.Context, msg *models.OutboundMessage) error {
	if b.messenger == nil {
		return ErrNotRunning
	}
	return b.messenger.Send(ctx, msg)
}

// CheckElevatedStatus reports whether the author of msg is elevated in the
// guild it was posted in
func (b *Bot) CheckElevatedStatus(ctx context.Context, msg models.Message) bool {
	if b.authz == nil {
		return false
	}
	return b.authz.CheckElevated(ctx, msg)
}

// SetGame changes the "Playing" status. The name is kept and re-applied
// after every reconnect.
func (b *Bot) SetGame(ctx context.Context, name string) error {
	b.mu.Lock()
	b.game = name
	b.mu.Unlock()

	frame, err := transport.NewFrame(opPresence, newPresencePayload(name))
	if err != nil {
		return err
	}

	return b.sendFrame(ctx, frame)
}

// Reconnect replaces the live gateway session. Calls that overlap an
// in-flight reconnect return once it completes instead of starting another.
func (b *Bot) Reconnect(ctx context.Context) error {
	return b.reconnect(ctx, b.generation.Load())
}

// ReplaceSession replaces the session of the given generation. Once that
// session has been replaced by someone else it returns without reconnecting.
func (b *Bot) ReplaceSession(ctx context.Context, generation int64) error {
	return b.reconnect(ctx, generation)
}

// Guilds returns a copy of every cached guild
func (b *Bot) Guilds(ctx context.Context) ([]*models.Guild, error) {
	return b.guilds.ListGuilds(ctx)
}

// sendFrame writes a frame on the live connection. A failed write replaces
// the session and the frame is written once more on the new one.
func (b *Bot) sendFrame(ctx context.Context, frame *transport.Frame) error {
	c := b.current()
	if c == nil {
		return ErrNotConnected
	}

	err := c.conn.WriteFrame(frame)
	if err == nil {
		return nil
	}

	var connErr *transport.ConnectionError
	if !errors.As(err, &connErr) {
		return err
	}

	if err := b.reconnect(ctx, c.generation); err != nil {
		return fmt.Errorf("reconnecting after failed write: %w", err)
	}

	c = b.current()
	if c == nil {
		return ErrNotConnected
	}
	return c.conn.WriteFrame(frame)
}

// current returns the live connection, waiting for any reconnect in flight
func (b *Bot) current() *connection {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	return b.live
}

func (b *Bot) runContext() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.runCtx
}
