package guild

import "github.com/KirkDiggler/applebot/internal/models"

// ReplaceGuildsInput contains the READY snapshot
type ReplaceGuildsInput struct {
	Guilds []*models.Guild
}

// UpsertGuildInput contains a full guild payload
type UpsertGuildInput struct {
	Guild *models.Guild
}

// DeleteGuildInput identifies a guild to remove
type DeleteGuildInput struct {
	GuildID string
}

// AddMemberInput contains a member joining a guild
type AddMemberInput struct {
	GuildID string
	Member  *models.Member
}

// RemoveMemberInput identifies a member leaving a guild
type RemoveMemberInput struct {
	GuildID string
	UserID  string
}

// UpdateMemberRolesInput contains a member's new role set
type UpdateMemberRolesInput struct {
	GuildID string
	UserID  string
	RoleIDs []string
}

// UpsertRoleInput contains a created or updated role
type UpsertRoleInput struct {
	GuildID string
	Role    *models.Role
}

// DeleteRoleInput identifies a role to remove
type DeleteRoleInput struct {
	GuildID string
	RoleID  string
}

// UpsertChannelInput contains a created or updated channel
type UpsertChannelInput struct {
	GuildID string
	Channel *models.Channel
}

// DeleteChannelInput identifies a channel to remove
type DeleteChannelInput struct {
	GuildID   string
	ChannelID string
}

// GetGuildInput contains parameters for retrieving a guild
type GetGuildInput struct {
	GuildID string
}

// GetGuildByChannelInput contains parameters for resolving a channel's guild
type GetGuildByChannelInput struct {
	ChannelID string
}
