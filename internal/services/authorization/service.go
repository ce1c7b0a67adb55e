package authorization

import (
	"context"
	"log"

	"github.com/KirkDiggler/applebot/internal/models"
	"github.com/KirkDiggler/applebot/internal/repositories/guild"
	"github.com/bwmarrin/discordgo"
)

const (
	// ElevatedRoleName is the role that grants elevated status
	ElevatedRoleName = "AppleBot Operator"

	// ElevatedPermission is the Manage Messages bit. It is not consulted by
	// CheckElevated; role names are the contract.
	ElevatedPermission int64 = discordgo.PermissionManageMessages
)

// Config holds configuration for the evaluator
type Config struct {
	// Guilds is the cache the decision is derived from
	Guilds guild.Repository

	// OwnerID is a user that is elevated everywhere; empty disables it
	OwnerID string
}

// service implements the Service interface
type service struct {
	guilds  guild.Repository
	ownerID string
}

// New creates a new authorization evaluator
func New(cfg *Config) (*service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.Guilds == nil {
		return nil, ErrNilGuildRepo
	}

	return &service{
		guilds:  cfg.Guilds,
		ownerID: cfg.OwnerID,
	}, nil
}

// CheckElevated reports whether the author of message is elevated. Anything
// that cannot be resolved unambiguously from the cache is treated as not
// elevated.
func (s *service) CheckElevated(ctx context.Context, message models.Message) bool {
	msg, ok := message.(*models.DiscordMessage)
	if !ok || msg == nil {
		log.Printf("Error checking elevated status: got %T, expected *models.DiscordMessage", message)
		return false
	}

	g, err := s.guilds.GetGuildByChannel(ctx, &guild.GetGuildByChannelInput{
		ChannelID: msg.ChannelID,
	})
	if err != nil {
		return false
	}

	if g.OwnerID == msg.UserID {
		return true
	}

	if s.ownerID != "" && msg.UserID == s.ownerID {
		return true
	}

	var member *models.Member
	for _, m := range g.Members {
		if m.ID != msg.UserID {
			continue
		}
		if member != nil {
			return false
		}
		member = m
	}
	if member == nil {
		return false
	}

	for _, role := range memberRoles(g, member) {
		if role.Name == ElevatedRoleName {
			return true
		}
	}

	return false
}

// memberRoles intersects the member's role IDs with the guild's roles.
// IDs with no matching role are skipped.
func memberRoles(g *models.Guild, member *models.Member) []*models.Role {
	held := make(map[string]struct{}, len(member.RoleIDs))
	for _, id := range member.RoleIDs {
		held[id] = struct{}{}
	}

	var roles []*models.Role
	for _, role := range g.Roles {
		if _, ok := held[role.ID]; ok {
			roles = append(roles, role)
		}
	}
	return roles
}
