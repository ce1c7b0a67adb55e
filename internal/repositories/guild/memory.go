package guild

import (
	"context"
	"sync"

	"github.com/KirkDiggler/applebot/internal/models"
)

// memoryRepository implements the Repository interface in process memory.
// Gateway events mutate it from the receive loop while authorization checks
// read it from host goroutines, so every access goes through mu. Mutations
// check ctx under the write lock: once a session's context is cancelled its
// late events can no longer land, even after Clear.
type memoryRepository struct {
	mu     sync.RWMutex
	guilds []*models.Guild
}

// NewMemory creates an empty in-memory guild cache
func NewMemory() *memoryRepository {
	return &memoryRepository{}
}

// ReplaceGuilds discards all cached state and loads a READY snapshot
func (r *memoryRepository) ReplaceGuilds(ctx context.Context, input *ReplaceGuildsInput) error {
	if input == nil {
		return ErrInvalidInput
	}

	guilds := make([]*models.Guild, 0, len(input.Guilds))
	for _, g := range input.Guilds {
		if g == nil || g.ID == "" {
			continue
		}
		guilds = upsertGuild(guilds, g.Clone())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	r.guilds = guilds

	return nil
}

// Clear discards all cached state
func (r *memoryRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	r.guilds = nil
	r.mu.Unlock()
	return nil
}

// UpsertGuild adds a guild or replaces the cached copy with the same ID
func (r *memoryRepository) UpsertGuild(ctx context.Context, input *UpsertGuildInput) error {
	if input == nil || input.Guild == nil || input.Guild.ID == "" {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	r.guilds = upsertGuild(r.guilds, input.Guild.Clone())

	return nil
}

// DeleteGuild removes a guild
func (r *memoryRepository) DeleteGuild(ctx context.Context, input *DeleteGuildInput) error {
	if input == nil || input.GuildID == "" {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	for i, g := range r.guilds {
		if g.ID == input.GuildID {
			r.guilds = append(r.guilds[:i:i], r.guilds[i+1:]...)
			return nil
		}
	}

	return ErrGuildNotFound
}

// AddMember adds a member to a guild, replacing any member with the same ID
func (r *memoryRepository) AddMember(ctx context.Context, input *AddMemberInput) error {
	if input == nil || input.Member == nil || input.Member.ID == "" {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	g := r.findGuild(input.GuildID)
	if g == nil {
		return ErrGuildNotFound
	}

	member := &models.Member{
		ID:      input.Member.ID,
		Name:    input.Member.Name,
		RoleIDs: append([]string(nil), input.Member.RoleIDs...),
	}

	members := make([]*models.Member, 0, len(g.Members)+1)
	for _, m := range g.Members {
		if m.ID != member.ID {
			members = append(members, m)
		}
	}
	g.Members = append(members, member)

	return nil
}

// RemoveMember removes a member from a guild
func (r *memoryRepository) RemoveMember(ctx context.Context, input *RemoveMemberInput) error {
	if input == nil || input.UserID == "" {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	g := r.findGuild(input.GuildID)
	if g == nil {
		return ErrGuildNotFound
	}

	members := make([]*models.Member, 0, len(g.Members))
	for _, m := range g.Members {
		if m.ID != input.UserID {
			members = append(members, m)
		}
	}
	if len(members) == len(g.Members) {
		return ErrMemberNotFound
	}
	g.Members = members

	return nil
}

// UpdateMemberRoles replaces a member's role IDs wholesale
func (r *memoryRepository) UpdateMemberRoles(ctx context.Context, input *UpdateMemberRolesInput) error {
	if input == nil || input.UserID == "" {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	g := r.findGuild(input.GuildID)
	if g == nil {
		return ErrGuildNotFound
	}

	var matches []*models.Member
	for _, m := range g.Members {
		if m.ID == input.UserID {
			matches = append(matches, m)
		}
	}

	switch len(matches) {
	case 0:
		return ErrMemberNotFound
	case 1:
		matches[0].RoleIDs = append([]string(nil), input.RoleIDs...)
		return nil
	default:
		return ErrAmbiguousMatch
	}
}

// UpsertRole creates a role or updates the one with the same ID
func (r *memoryRepository) UpsertRole(ctx context.Context, input *UpsertRoleInput) error {
	if input == nil || input.Role == nil || input.Role.ID == "" {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	g := r.findGuild(input.GuildID)
	if g == nil {
		return ErrGuildNotFound
	}

	var matches []*models.Role
	for _, role := range g.Roles {
		if role.ID == input.Role.ID {
			matches = append(matches, role)
		}
	}

	switch len(matches) {
	case 0:
		role := *input.Role
		g.Roles = append(g.Roles, &role)
		return nil
	case 1:
		matches[0].Name = input.Role.Name
		matches[0].Permissions = input.Role.Permissions
		return nil
	default:
		return ErrAmbiguousMatch
	}
}

// DeleteRole removes a role
func (r *memoryRepository) DeleteRole(ctx context.Context, input *DeleteRoleInput) error {
	if input == nil || input.RoleID == "" {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	g := r.findGuild(input.GuildID)
	if g == nil {
		return ErrGuildNotFound
	}

	roles := make([]*models.Role, 0, len(g.Roles))
	for _, role := range g.Roles {
		if role.ID != input.RoleID {
			roles = append(roles, role)
		}
	}

	switch len(g.Roles) - len(roles) {
	case 0:
		return ErrRoleNotFound
	case 1:
		g.Roles = roles
		return nil
	default:
		return ErrAmbiguousMatch
	}
}

// UpsertChannel creates a channel or updates the one with the same ID
func (r *memoryRepository) UpsertChannel(ctx context.Context, input *UpsertChannelInput) error {
	if input == nil || input.Channel == nil || input.Channel.ID == "" {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	g := r.findGuild(input.GuildID)
	if g == nil {
		return ErrGuildNotFound
	}

	channel := input.Channel.Clone()
	for i, c := range g.Channels {
		if c.ID == channel.ID {
			g.Channels[i] = channel
			return nil
		}
	}
	g.Channels = append(g.Channels, channel)

	return nil
}

// DeleteChannel removes a channel
func (r *memoryRepository) DeleteChannel(ctx context.Context, input *DeleteChannelInput) error {
	if input == nil || input.ChannelID == "" {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	g := r.findGuild(input.GuildID)
	if g == nil {
		return ErrGuildNotFound
	}

	for i, c := range g.Channels {
		if c.ID == input.ChannelID {
			g.Channels = append(g.Channels[:i:i], g.Channels[i+1:]...)
			return nil
		}
	}

	return ErrChannelNotFound
}

// GetGuild retrieves a guild by ID
func (r *memoryRepository) GetGuild(ctx context.Context, input *GetGuildInput) (*models.Guild, error) {
	if input == nil || input.GuildID == "" {
		return nil, ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	g := r.findGuild(input.GuildID)
	if g == nil {
		return nil, ErrGuildNotFound
	}

	return g.Clone(), nil
}

// GetGuildByChannel retrieves the single guild that contains a channel.
// A channel listed by more than one guild is reported as ErrAmbiguousMatch.
func (r *memoryRepository) GetGuildByChannel(ctx context.Context, input *GetGuildByChannelInput) (*models.Guild, error) {
	if input == nil || input.ChannelID == "" {
		return nil, ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *models.Guild
	for _, g := range r.guilds {
		if !g.HasChannel(input.ChannelID) {
			continue
		}
		if found != nil {
			return nil, ErrAmbiguousMatch
		}
		found = g
	}

	if found == nil {
		return nil, ErrGuildNotFound
	}

	return found.Clone(), nil
}

// ListGuilds retrieves every cached guild in snapshot order
func (r *memoryRepository) ListGuilds(ctx context.Context) ([]*models.Guild, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Guild, 0, len(r.guilds))
	for _, g := range r.guilds {
		out = append(out, g.Clone())
	}

	return out, nil
}

// findGuild must be called with mu held
func (r *memoryRepository) findGuild(guildID string) *models.Guild {
	for _, g := range r.guilds {
		if g.ID == guildID {
			return g
		}
	}
	return nil
}

func upsertGuild(guilds []*models.Guild, g *models.Guild) []*models.Guild {
	for i, existing := range guilds {
		if existing.ID == g.ID {
			guilds[i] = g
			return guilds
		}
	}
	return append(guilds, g)
}
