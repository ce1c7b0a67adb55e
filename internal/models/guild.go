package models

// Guild is the cached mirror of a Discord server
type Guild struct {
	// ID is the Discord guild ID
	ID string

	// Name is the display name of the guild
	Name string

	// OwnerID is the user ID of the guild owner
	OwnerID string

	// Roles are kept in the order the gateway delivered them
	Roles []*Role

	// Members are the guild members known to this client
	Members []*Member

	// Channels are the guild's text and voice channels
	Channels []*Channel
}

// Role is a named permission set inside a guild
type Role struct {
	ID          string
	Name        string
	Permissions int64
}

// Member is a user's membership in a guild
type Member struct {
	// ID is the Discord user ID
	ID string

	// Name is the username at the time it was last seen
	Name string

	// RoleIDs should reference roles of the owning guild, but may briefly
	// point at roles that have not been created yet while events replay
	RoleIDs []string
}

// Channel is a guild channel
type Channel struct {
	ID         string
	Name       string
	Type       string
	Position   int
	Overwrites []*PermissionOverwrite
}

// PermissionOverwrite adjusts permissions for a role or member in one channel
type PermissionOverwrite struct {
	ID    string
	Type  string
	Allow int64
	Deny  int64
}

// HasChannel reports whether the guild contains the channel
func (g *Guild) HasChannel(channelID string) bool {
	for _, c := range g.Channels {
		if c.ID == channelID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the guild
func (g *Guild) Clone() *Guild {
	if g == nil {
		return nil
	}

	out := &Guild{
		ID:       g.ID,
		Name:     g.Name,
		OwnerID:  g.OwnerID,
		Roles:    make([]*Role, 0, len(g.Roles)),
		Members:  make([]*Member, 0, len(g.Members)),
		Channels: make([]*Channel, 0, len(g.Channels)),
	}

	for _, r := range g.Roles {
		role := *r
		out.Roles = append(out.Roles, &role)
	}

	for _, m := range g.Members {
		member := &Member{ID: m.ID, Name: m.Name, RoleIDs: append([]string(nil), m.RoleIDs...)}
		out.Members = append(out.Members, member)
	}

	for _, c := range g.Channels {
		out.Channels = append(out.Channels, c.Clone())
	}

	return out
}

// Clone returns a deep copy of the channel
func (c *Channel) Clone() *Channel {
	if c == nil {
		return nil
	}

	out := &Channel{ID: c.ID, Name: c.Name, Type: c.Type, Position: c.Position}
	for _, o := range c.Overwrites {
		overwrite := *o
		out.Overwrites = append(out.Overwrites, &overwrite)
	}
	return out
}
