package discord

import (
	"context"
	"log"

	"github.com/KirkDiggler/applebot/internal/models"
	"github.com/KirkDiggler/applebot/internal/repositories/guild"
	"github.com/KirkDiggler/applebot/internal/transport"
)

// frameResult tells the reader what a frame means for the session
type frameResult struct {
	// ready is set once READY has been applied
	ready bool

	// reconnect is set when the session must be replaced
	reconnect bool
}

// handleFrame applies one inbound frame for connection c. No frame is fatal;
// anything that cannot be applied is logged and dropped.
func (b *Bot) handleFrame(c *connection, frame *transport.Frame) frameResult {
	// frames already read from a replaced session must not touch state that
	// now belongs to its successor
	if c.ctx.Err() != nil || c.generation != b.generation.Load() {
		log.Printf("Dropping opcode %d from replaced session %d", frame.Op, c.generation)
		return frameResult{}
	}

	switch frame.Op {
	case opDispatch:
		return frameResult{ready: b.dispatch(c, frame)}

	case opHello:
		var hello helloPayload
		if err := frame.Decode(&hello); err != nil {
			log.Printf("Error decoding hello: %v", err)
			return frameResult{}
		}
		b.startHeartbeat(c, hello.HeartbeatInterval)

	case opHeartbeat:
		b.heartbeatNow(c)

	case opHeartbeatAck:

	case opReconnect:
		log.Printf("Discord requested a reconnect of session %d", c.generation)
		return frameResult{reconnect: true}

	case opInvalidSession:
		log.Printf("Discord invalidated session %d", c.generation)
		return frameResult{reconnect: true}

	default:
		log.Printf("Unknown gateway opcode %d", frame.Op)
	}

	return frameResult{}
}

// dispatch routes an op 0 event and reports whether it completed the
// handshake
func (b *Bot) dispatch(c *connection, frame *transport.Frame) bool {
	ctx := c.ctx

	switch frame.T {
	case EventReady:
		return b.handleReady(ctx, c, frame)
	case EventMessageCreate:
		b.handleMessageCreate(frame)
	case EventGuildCreate:
		b.handleGuildCreate(ctx, frame)
	case EventGuildDelete:
		b.handleGuildDelete(ctx, frame)
	case EventGuildMemberAdd:
		b.handleMemberAdd(ctx, frame)
	case EventGuildMemberUpdate:
		b.handleMemberUpdate(ctx, frame)
	case EventGuildMemberRemove:
		b.handleMemberRemove(ctx, frame)
	case EventGuildRoleCreate, EventGuildRoleUpdate:
		b.handleRoleUpsert(ctx, frame)
	case EventGuildRoleDelete:
		b.handleRoleDelete(ctx, frame)
	case EventChannelCreate, EventChannelUpdate:
		b.handleChannelUpsert(ctx, frame)
	case EventChannelDelete:
		b.handleChannelDelete(ctx, frame)
	default:
		if !ignoredEvents[frame.T] {
			log.Printf("Unknown Discord event %q", frame.T)
		}
	}

	return false
}

func (b *Bot) handleReady(ctx context.Context, c *connection, frame *transport.Frame) bool {
	var ready readyPayload
	if err := frame.Decode(&ready); err != nil {
		log.Printf("Error decoding %s: %v", frame.T, err)
		return false
	}

	guilds := make([]*models.Guild, 0, len(ready.Guilds))
	for i := range ready.Guilds {
		guilds = append(guilds, ready.Guilds[i].toModel())
	}

	if err := b.guilds.ReplaceGuilds(ctx, &guild.ReplaceGuildsInput{Guilds: guilds}); err != nil {
		log.Printf("Error loading guild snapshot: %v", err)
	}

	b.mu.Lock()
	b.selfID = ready.User.ID
	b.mu.Unlock()

	if ready.HeartbeatInterval > 0 {
		b.startHeartbeat(c, ready.HeartbeatInterval)
	}

	log.Printf("Ready packet received from Discord with %d guilds", len(guilds))
	return true
}

func (b *Bot) handleMessageCreate(frame *transport.Frame) {
	var payload messagePayload
	if err := frame.Decode(&payload); err != nil {
		log.Printf("Error decoding %s: %v", frame.T, err)
		return
	}

	// the owner may drive the bot from its own account for testing
	if payload.Author.ID == b.SelfID() && payload.Author.ID != b.ownerID {
		return
	}

	if b.onMessage == nil {
		return
	}

	msg := payload.toModel()
	go b.onMessage(b, msg)
}

func (b *Bot) handleGuildCreate(ctx context.Context, frame *transport.Frame) {
	var payload guildPayload
	if err := frame.Decode(&payload); err != nil {
		log.Printf("Error decoding %s: %v", frame.T, err)
		return
	}

	if payload.Unavailable {
		return
	}

	if err := b.guilds.UpsertGuild(ctx, &guild.UpsertGuildInput{Guild: payload.toModel()}); err != nil {
		log.Printf("Error caching guild %s: %v", payload.ID, err)
	}
}

func (b *Bot) handleGuildDelete(ctx context.Context, frame *transport.Frame) {
	var payload guildDeletePayload
	if err := frame.Decode(&payload); err != nil {
		log.Printf("Error decoding %s: %v", frame.T, err)
		return
	}

	// an unavailable guild is an outage, not a removal
	if payload.Unavailable {
		return
	}

	if err := b.guilds.DeleteGuild(ctx, &guild.DeleteGuildInput{GuildID: payload.ID}); err != nil {
		log.Printf("Error removing guild %s: %v", payload.ID, err)
	}
}

func (b *Bot) handleMemberAdd(ctx context.Context, frame *transport.Frame) {
	var payload memberPayload
	if err := frame.Decode(&payload); err != nil {
		log.Printf("Error decoding %s: %v", frame.T, err)
		return
	}

	err := b.guilds.AddMember(ctx, &guild.AddMemberInput{
		GuildID: payload.GuildID,
		Member:  payload.toModel(),
	})
	if err != nil {
		log.Printf("Error adding member %s to guild %s: %v", payload.User.ID, payload.GuildID, err)
	}
}

func (b *Bot) handleMemberUpdate(ctx context.Context, frame *transport.Frame) {
	var payload memberPayload
	if err := frame.Decode(&payload); err != nil {
		log.Printf("Error decoding %s: %v", frame.T, err)
		return
	}

	err := b.guilds.UpdateMemberRoles(ctx, &guild.UpdateMemberRolesInput{
		GuildID: payload.GuildID,
		UserID:  payload.User.ID,
		RoleIDs: payload.Roles,
	})
	if err != nil {
		log.Printf("Error updating roles of member %s in guild %s: %v", payload.User.ID, payload.GuildID, err)
	}
}

func (b *Bot) handleMemberRemove(ctx context.Context, frame *transport.Frame) {
	var payload memberRemovePayload
	if err := frame.Decode(&payload); err != nil {
		log.Printf("Error decoding %s: %v", frame.T, err)
		return
	}

	err := b.guilds.RemoveMember(ctx, &guild.RemoveMemberInput{
		GuildID: payload.GuildID,
		UserID:  payload.User.ID,
	})
	if err != nil {
		log.Printf("Error removing member %s from guild %s: %v", payload.User.ID, payload.GuildID, err)
	}
}

func (b *Bot) handleRoleUpsert(ctx context.Context, frame *transport.Frame) {
	var payload roleEventPayload
	if err := frame.Decode(&payload); err != nil {
		log.Printf("Error decoding %s: %v", frame.T, err)
		return
	}

	err := b.guilds.UpsertRole(ctx, &guild.UpsertRoleInput{
		GuildID: payload.GuildID,
		Role:    payload.Role.toModel(),
	})
	if err != nil {
		log.Printf("Error applying %s for role %s in guild %s: %v", frame.T, payload.Role.ID, payload.GuildID, err)
	}
}

func (b *Bot) handleRoleDelete(ctx context.Context, frame *transport.Frame) {
	var payload roleDeletePayload
	if err := frame.Decode(&payload); err != nil {
		log.Printf("Error decoding %s: %v", frame.T, err)
		return
	}

	err := b.guilds.DeleteRole(ctx, &guild.DeleteRoleInput{
		GuildID: payload.GuildID,
		RoleID:  payload.RoleID,
	})
	if err != nil {
		log.Printf("Error deleting role %s in guild %s: %v", payload.RoleID, payload.GuildID, err)
	}
}

func (b *Bot) handleChannelUpsert(ctx context.Context, frame *transport.Frame) {
	var payload channelPayload
	if err := frame.Decode(&payload); err != nil {
		log.Printf("Error decoding %s: %v", frame.T, err)
		return
	}

	// direct message channels belong to no guild
	if payload.GuildID == "" {
		return
	}

	err := b.guilds.UpsertChannel(ctx, &guild.UpsertChannelInput{
		GuildID: payload.GuildID,
		Channel: payload.toModel(),
	})
	if err != nil {
		log.Printf("Error caching channel %s in guild %s: %v", payload.ID, payload.GuildID, err)
	}
}

func (b *Bot) handleChannelDelete(ctx context.Context, frame *transport.Frame) {
	var payload channelPayload
	if err := frame.Decode(&payload); err != nil {
		log.Printf("Error decoding %s: %v", frame.T, err)
		return
	}

	if payload.GuildID == "" {
		return
	}

	err := b.guilds.DeleteChannel(ctx, &guild.DeleteChannelInput{
		GuildID:   payload.GuildID,
		ChannelID: payload.ID,
	})
	if err != nil {
		log.Printf("Error removing channel %s from guild %s: %v", payload.ID, payload.GuildID, err)
	}
}
