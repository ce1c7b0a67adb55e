package session

import (
	"time"

	"github.com/KirkDiggler/applebot/internal/models"
)

// RecordSessionInput contains the details of a completed handshake
type RecordSessionInput struct {
	Generation int64
	GatewayURL string
	UserID     string
	GuildCount int
	StartedAt  time.Time
}

// RecordSessionOutput contains the stored session
type RecordSessionOutput struct {
	Session *models.GatewaySession
}

// EndSessionInput contains parameters for ending a session
type EndSessionInput struct {
	SessionID string
	EndedAt   time.Time
}

// GetSessionInput contains parameters for retrieving a session
type GetSessionInput struct {
	SessionID string
}

// ListSessionsInput contains parameters for listing sessions
type ListSessionsInput struct {
	// Limit caps the number of sessions returned; zero means 20
	Limit int
}

// ListSessionsOutput contains the listed sessions
type ListSessionsOutput struct {
	Sessions []*models.GatewaySession
}
