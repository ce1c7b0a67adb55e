package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"

	"github.com/KirkDiggler/applebot/internal/models"
	"github.com/bwmarrin/discordgo"
)

// Gateway opcodes
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opPresence       = 3
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// gatewayVersion is the protocol version sent with identify
const gatewayVersion = 3

// Dispatch event names
const (
	EventReady             = "READY"
	EventMessageCreate     = "MESSAGE_CREATE"
	EventMessageUpdate     = "MESSAGE_UPDATE"
	EventMessageAck        = "MESSAGE_ACK"
	EventGuildCreate       = "GUILD_CREATE"
	EventGuildDelete       = "GUILD_DELETE"
	EventGuildMemberAdd    = "GUILD_MEMBER_ADD"
	EventGuildMemberUpdate = "GUILD_MEMBER_UPDATE"
	EventGuildMemberRemove = "GUILD_MEMBER_REMOVE"
	EventGuildRoleCreate   = "GUILD_ROLE_CREATE"
	EventGuildRoleUpdate   = "GUILD_ROLE_UPDATE"
	EventGuildRoleDelete   = "GUILD_ROLE_DELETE"
	EventChannelCreate     = "CHANNEL_CREATE"
	EventChannelUpdate     = "CHANNEL_UPDATE"
	EventChannelDelete     = "CHANNEL_DELETE"
	EventTypingStart       = "TYPING_START"
	EventVoiceStateUpdate  = "VOICE_STATE_UPDATE"
	EventPresenceUpdate    = "PRESENCE_UPDATE"
)

// ignoredEvents arrive constantly and carry nothing the cache tracks
var ignoredEvents = map[string]bool{
	EventTypingStart:      true,
	EventMessageAck:       true,
	EventVoiceStateUpdate: true,
	EventMessageUpdate:    true,
	EventPresenceUpdate:   true,
}

// flexInt64 decodes numbers that the gateway sends either as JSON numbers
// or as decimal strings
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}

	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", data, err)
	}
	*f = flexInt64(v)
	return nil
}

// flexString decodes fields that older protocol versions sent as strings
// and newer ones send as numbers
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid string or number %s: %w", data, err)
	}
	*f = flexString(n.String())
	return nil
}

type identifyPayload struct {
	Token      string             `json:"token"`
	Version    int                `json:"v"`
	Properties identifyProperties `json:"properties"`
}

type identifyProperties struct {
	OS              string `json:"os"`
	Browser         string `json:"browser"`
	Device          string `json:"device"`
	Referrer        string `json:"referrer"`
	ReferringDomain string `json:"referring_domain"`
}

func newIdentifyPayload(token string) *identifyPayload {
	return &identifyPayload{
		Token:   token,
		Version: gatewayVersion,
		Properties: identifyProperties{
			OS:      runtime.GOOS,
			Browser: "applebot",
			Device:  "applebot",
		},
	}
}

// newPresencePayload builds the op 3 payload for a "Playing <name>" status.
// An empty name clears the activity.
func newPresencePayload(name string) *discordgo.UpdateStatusData {
	status := &discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{},
		Status:     string(discordgo.StatusOnline),
	}

	if name != "" {
		status.Activities = append(status.Activities, &discordgo.Activity{
			Name: name,
			Type: discordgo.ActivityTypeGame,
		})
	}

	return status
}

type helloPayload struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type readyPayload struct {
	// HeartbeatInterval is only present on older protocol versions
	HeartbeatInterval int64          `json:"heartbeat_interval"`
	User              userPayload    `json:"user"`
	Guilds            []guildPayload `json:"guilds"`
}

type userPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type guildPayload struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	OwnerID     string           `json:"owner_id"`
	Unavailable bool             `json:"unavailable"`
	Roles       []rolePayload    `json:"roles"`
	Members     []memberPayload  `json:"members"`
	Channels    []channelPayload `json:"channels"`
}

type rolePayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Permissions flexInt64 `json:"permissions"`
}

type memberPayload struct {
	GuildID string      `json:"guild_id"`
	User    userPayload `json:"user"`
	Roles   []string    `json:"roles"`
}

type channelPayload struct {
	ID                   string             `json:"id"`
	GuildID              string             `json:"guild_id"`
	Name                 string             `json:"name"`
	Type                 flexString         `json:"type"`
	Position             int                `json:"position"`
	PermissionOverwrites []overwritePayload `json:"permission_overwrites"`
}

type overwritePayload struct {
	ID    string     `json:"id"`
	Type  flexString `json:"type"`
	Allow flexInt64  `json:"allow"`
	Deny  flexInt64  `json:"deny"`
}

type messagePayload struct {
	ID        string      `json:"id"`
	ChannelID string      `json:"channel_id"`
	Content   string      `json:"content"`
	Author    userPayload `json:"author"`
}

type memberRemovePayload struct {
	GuildID string      `json:"guild_id"`
	User    userPayload `json:"user"`
}

type roleEventPayload struct {
	GuildID string      `json:"guild_id"`
	Role    rolePayload `json:"role"`
}

type roleDeletePayload struct {
	GuildID string `json:"guild_id"`
	RoleID  string `json:"role_id"`
}

type guildDeletePayload struct {
	ID          string `json:"id"`
	Unavailable bool   `json:"unavailable"`
}

func (p *guildPayload) toModel() *models.Guild {
	g := &models.Guild{
		ID:       p.ID,
		Name:     p.Name,
		OwnerID:  p.OwnerID,
		Roles:    make([]*models.Role, 0, len(p.Roles)),
		Members:  make([]*models.Member, 0, len(p.Members)),
		Channels: make([]*models.Channel, 0, len(p.Channels)),
	}

	for i := range p.Roles {
		g.Roles = append(g.Roles, p.Roles[i].toModel())
	}
	for i := range p.Members {
		g.Members = append(g.Members, p.Members[i].toModel())
	}
	for i := range p.Channels {
		g.Channels = append(g.Channels, p.Channels[i].toModel())
	}

	return g
}

func (p *rolePayload) toModel() *models.Role {
	return &models.Role{
		ID:          p.ID,
		Name:        p.Name,
		Permissions: int64(p.Permissions),
	}
}

func (p *memberPayload) toModel() *models.Member {
	roleIDs := make([]string, len(p.Roles))
	copy(roleIDs, p.Roles)

	return &models.Member{
		ID:      p.User.ID,
		Name:    p.User.Username,
		RoleIDs: roleIDs,
	}
}

func (p *channelPayload) toModel() *models.Channel {
	c := &models.Channel{
		ID:         p.ID,
		Name:       p.Name,
		Type:       string(p.Type),
		Position:   p.Position,
		Overwrites: make([]*models.PermissionOverwrite, 0, len(p.PermissionOverwrites)),
	}

	for _, o := range p.PermissionOverwrites {
		c.Overwrites = append(c.Overwrites, &models.PermissionOverwrite{
			ID:    o.ID,
			Type:  string(o.Type),
			Allow: int64(o.Allow),
			Deny:  int64(o.Deny),
		})
	}

	return c
}

func (p *messagePayload) toModel() *models.DiscordMessage {
	return &models.DiscordMessage{
		Sender:    p.Author.Username,
		Content:   p.Content,
		UserID:    p.Author.ID,
		ChannelID: p.ChannelID,
		ID:        p.ID,
	}
}
