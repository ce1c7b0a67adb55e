package models

import (
	"time"
)

// GatewaySession is the persisted record of one gateway connection
type GatewaySession struct {
	// ID is the unique identifier for this session record
	ID string

	// Generation is the local, monotonically increasing session counter
	Generation int64

	// GatewayURL is the websocket endpoint the session connected to
	GatewayURL string

	// UserID is the bot's own user ID as reported by READY
	UserID string

	// GuildCount is the number of guilds in the READY snapshot
	GuildCount int

	// StartedAt is when the handshake completed
	StartedAt time.Time

	// EndedAt is when the session was replaced; zero while active
	EndedAt time.Time

	// Active indicates if this is the live session
	Active bool
}
