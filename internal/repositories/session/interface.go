package session

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/KirkDiggler/applebot/internal/repositories/session Repository

import (
	"context"

	"github.com/KirkDiggler/applebot/internal/models"
)

// Repository persists the history of gateway sessions
type Repository interface {
	// RecordSession stores a new active session and ends the previous one
	RecordSession(ctx context.Context, input *RecordSessionInput) (*RecordSessionOutput, error)

	// EndSession marks a session as no longer active
	EndSession(ctx context.Context, input *EndSessionInput) error

	// GetSession retrieves a session by ID
	GetSession(ctx context.Context, input *GetSessionInput) (*models.GatewaySession, error)

	// GetActiveSession retrieves the live session, if any
	GetActiveSession(ctx context.Context) (*models.GatewaySession, error)

	// ListSessions retrieves the most recent sessions, newest first
	ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error)
}
