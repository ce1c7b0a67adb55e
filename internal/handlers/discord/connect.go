package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/KirkDiggler/applebot/internal/clients/discordapi"
	"github.com/KirkDiggler/applebot/internal/models"
	"github.com/KirkDiggler/applebot/internal/repositories/session"
	"github.com/KirkDiggler/applebot/internal/transport"
)

// handshakeTimeout bounds the wait for READY after identifying
const handshakeTimeout = time.Minute

// connection is one gateway session. A new one, with a new generation, is
// created for every connect attempt.
type connection struct {
	generation int64
	conn       *transport.Conn
	url        string

	// ctx ends when the session is replaced or Run exits
	ctx    context.Context
	cancel context.CancelFunc
}

// Run connects to Discord and processes gateway events until ctx ends.
// Connection problems are logged and retried, never returned.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.runCtx != nil && b.runCtx.Err() == nil {
		b.mu.Unlock()
		return errors.New("discord platform is already running")
	}
	b.runCtx = ctx
	b.mu.Unlock()

	defer b.shutdown()

	for ctx.Err() == nil {
		c := b.current()
		if c == nil {
			if err := b.reconnect(ctx, b.generation.Load()); err != nil && ctx.Err() == nil {
				log.Printf("Error connecting to Discord: %v", err)

				select {
				case <-ctx.Done():
				case <-b.clock.After(b.loginRetry):
				}
			}
			continue
		}

		b.receive(ctx, c)
	}

	return nil
}

// receive reads frames from c until it fails or asks to be replaced
func (b *Bot) receive(ctx context.Context, c *connection) {
	for {
		frame, err := c.conn.ReadFrame()
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			var protoErr *transport.ProtocolError
			if errors.As(err, &protoErr) {
				log.Printf("Discarding malformed gateway frame: %v", err)
				continue
			}

			log.Printf("Lost connection to Discord: %v", err)
			b.replace(ctx, c)
			return
		}

		if result := b.handleFrame(c, frame); result.reconnect {
			b.replace(ctx, c)
			return
		}
	}
}

func (b *Bot) replace(ctx context.Context, c *connection) {
	if err := b.reconnect(ctx, c.generation); err != nil && ctx.Err() == nil {
		log.Printf("Error reconnecting to Discord: %v", err)
	}
}

// reconnect replaces the session of generation seen. If another caller has
// already replaced it by the time the lock is acquired, it returns nil.
func (b *Bot) reconnect(ctx context.Context, seen int64) error {
	runCtx := b.runContext()
	if runCtx == nil || runCtx.Err() != nil {
		return ErrNotRunning
	}

	// a caller's context may outlive Run; the attempt must not
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(runCtx, cancel)
	defer stop()

	b.connMu.Lock()
	defer b.connMu.Unlock()

	if b.generation.Load() != seen {
		return nil
	}

	if b.live == nil && seen == 0 {
		b.setState(models.PlatformStateConnecting)
	} else {
		b.setState(models.PlatformStateReconnecting)
		log.Printf("Reconnecting to Discord, replacing session %d", seen)
	}

	for {
		if runCtx.Err() != nil {
			return ErrNotRunning
		}

		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}

		err := b.connect(ctx, runCtx)
		if err == nil {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Printf("Error connecting to Discord: %v", err)
		b.setState(models.PlatformStateReconnecting)
	}
}

// connect runs one full connect attempt. Must be called with connMu held.
func (b *Bot) connect(ctx, runCtx context.Context) error {
	b.teardown(ctx)
	gen := b.generation.Add(1)

	if err := b.guilds.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear guild cache: %w", err)
	}

	token, err := b.login(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.token = token
	b.tokenGen = gen
	b.mu.Unlock()

	gateway, err := b.api.GetGateway(ctx, &discordapi.GetGatewayInput{Token: token})
	if err != nil {
		return fmt.Errorf("failed to get gateway: %w", err)
	}

	log.Printf("Connecting to %s", gateway.URL)

	conn, err := transport.Dial(ctx, gateway.URL, b.dialer)
	if err != nil {
		return err
	}

	connCtx, cancel := context.WithCancel(runCtx)
	c := &connection{
		generation: gen,
		conn:       conn,
		url:        gateway.URL,
		ctx:        connCtx,
		cancel:     cancel,
	}
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	b.setState(models.PlatformStateIdentifying)

	identify, err := transport.NewFrame(opIdentify, newIdentifyPayload(token))
	if err != nil {
		c.cancel()
		return err
	}

	if err := conn.WriteFrame(identify); err != nil {
		c.cancel()
		return fmt.Errorf("failed to identify: %w", err)
	}

	if err := b.handshake(c); err != nil {
		c.cancel()
		return err
	}

	b.live = c
	b.setState(models.PlatformStateSteadyState)
	log.Printf("Connected to Discord as %s (session %d)", b.SelfID(), gen)

	b.recordSession(ctx, c)
	b.applyGame(c)

	return nil
}

// login fetches a token, pausing longer when throttled. It only gives up
// when ctx ends.
func (b *Bot) login(ctx context.Context) (string, error) {
	for {
		out, err := b.api.Login(ctx, &discordapi.LoginInput{
			Email:    b.email,
			Password: b.password,
		})
		if err == nil && out.Token != "" {
			return out.Token, nil
		}
		if err == nil {
			err = errors.New("login returned an empty token")
		}

		pause := b.loginRetry
		if discordapi.IsThrottled(err) {
			pause = b.loginThrottle
			log.Printf("Login throttled, retrying in %s", pause)
		} else {
			log.Printf("Error logging in to Discord: %v", err)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-b.clock.After(pause):
		}
	}
}

// handshake processes frames on a new connection until READY arrives
func (b *Bot) handshake(c *connection) error {
	timer := time.AfterFunc(handshakeTimeout, func() {
		c.conn.Close()
	})
	defer timer.Stop()

	for {
		frame, err := c.conn.ReadFrame()
		if err != nil {
			var protoErr *transport.ProtocolError
			if errors.As(err, &protoErr) {
				log.Printf("Discarding malformed gateway frame: %v", err)
				continue
			}
			return fmt.Errorf("handshake failed: %w", err)
		}

		result := b.handleFrame(c, frame)
		if result.reconnect {
			return errors.New("gateway closed the session during handshake")
		}
		if result.ready {
			return nil
		}
	}
}

// teardown drops the live session. Must be called with connMu held.
func (b *Bot) teardown(ctx context.Context) {
	if b.live == nil {
		return
	}

	b.live.cancel()
	b.live.conn.Close()
	b.live = nil

	b.endSession(ctx)
}

// shutdown runs when Run exits
func (b *Bot) shutdown() {
	b.connMu.Lock()
	defer b.connMu.Unlock()

	b.teardown(context.Background())
	b.generation.Add(1)
	b.setState(models.PlatformStateNotReady)

	log.Println("Disconnected from Discord")
}

func (b *Bot) applyGame(c *connection) {
	b.mu.RLock()
	game := b.game
	b.mu.RUnlock()

	if game == "" {
		return
	}

	frame, err := transport.NewFrame(opPresence, newPresencePayload(game))
	if err != nil {
		log.Printf("Error building presence update: %v", err)
		return
	}

	if err := c.conn.WriteFrame(frame); err != nil {
		log.Printf("Error setting game to %q: %v", game, err)
	}
}

func (b *Bot) recordSession(ctx context.Context, c *connection) {
	if b.sessions == nil {
		return
	}

	guilds, err := b.guilds.ListGuilds(ctx)
	if err != nil {
		log.Printf("Error listing guilds: %v", err)
	}

	out, err := b.sessions.RecordSession(ctx, &session.RecordSessionInput{
		Generation: c.generation,
		GatewayURL: c.url,
		UserID:     b.SelfID(),
		GuildCount: len(guilds),
		StartedAt:  b.clock.Now(),
	})
	if err != nil {
		log.Printf("Error recording gateway session: %v", err)
		return
	}

	b.mu.Lock()
	b.sessionID = out.Session.ID
	b.mu.Unlock()
}

func (b *Bot) endSession(ctx context.Context) {
	b.mu.Lock()
	id := b.sessionID
	b.sessionID = ""
	b.mu.Unlock()

	if b.sessions == nil || id == "" {
		return
	}

	err := b.sessions.EndSession(context.WithoutCancel(ctx), &session.EndSessionInput{
		SessionID: id,
		EndedAt:   b.clock.Now(),
	})
	if err != nil {
		log.Printf("Error ending gateway session %s: %v", id, err)
	}
}
