package guild

import (
	"context"

	"github.com/KirkDiggler/applebot/internal/models"
)

// Repository is the local mirror of guild state built from gateway events.
// Everything returned is a copy; callers never share memory with the cache.
// Mutations return ctx.Err() once ctx is done.
type Repository interface {
	// ReplaceGuilds discards all cached state and loads a READY snapshot
	ReplaceGuilds(ctx context.Context, input *ReplaceGuildsInput) error

	// Clear discards all cached state
	Clear(ctx context.Context) error

	// UpsertGuild adds a guild or replaces the cached copy with the same ID
	UpsertGuild(ctx context.Context, input *UpsertGuildInput) error

	// DeleteGuild removes a guild
	DeleteGuild(ctx context.Context, input *DeleteGuildInput) error

	// AddMember adds a member to a guild, replacing any member with the same ID
	AddMember(ctx context.Context, input *AddMemberInput) error

	// RemoveMember removes a member from a guild
	RemoveMember(ctx context.Context, input *RemoveMemberInput) error

	// UpdateMemberRoles replaces a member's role IDs wholesale
	UpdateMemberRoles(ctx context.Context, input *UpdateMemberRolesInput) error

	// UpsertRole creates a role or updates the one with the same ID
	UpsertRole(ctx context.Context, input *UpsertRoleInput) error

	// DeleteRole removes a role
	DeleteRole(ctx context.Context, input *DeleteRoleInput) error

	// UpsertChannel creates a channel or updates the one with the same ID
	UpsertChannel(ctx context.Context, input *UpsertChannelInput) error

	// DeleteChannel removes a channel
	DeleteChannel(ctx context.Context, input *DeleteChannelInput) error

	// GetGuild retrieves a guild by ID
	GetGuild(ctx context.Context, input *GetGuildInput) (*models.Guild, error)

	// GetGuildByChannel retrieves the single guild that contains a channel
	GetGuildByChannel(ctx context.Context, input *GetGuildByChannelInput) (*models.Guild, error)

	// ListGuilds retrieves every cached guild in snapshot order
	ListGuilds(ctx context.Context) ([]*models.Guild, error)
}
