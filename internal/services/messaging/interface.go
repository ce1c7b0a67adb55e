package messaging

//go:generate mockgen -package=mocks -destination=mocks/mock_messaging.go github.com/KirkDiggler/applebot/internal/services/messaging Session

import (
	"context"

	"github.com/KirkDiggler/applebot/internal/models"
)

// Service delivers outbound chat messages under the platform's send policy
type Service interface {
	// Send posts msg to the channel its origin came from. Sends are
	// serialized and paced by the send window.
	Send(ctx context.Context, msg *models.OutboundMessage) error
}

// Session is the gateway session a send depends on
type Session interface {
	// Credentials returns the bearer token of the current login and the
	// generation of the session it was issued to
	Credentials() (token string, generation int64)

	// ReplaceSession replaces the session of the given generation. It does
	// nothing when that session has already been replaced.
	ReplaceSession(ctx context.Context, generation int64) error
}
