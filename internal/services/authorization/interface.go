package authorization

import (
	"context"

	"github.com/KirkDiggler/applebot/internal/models"
)

// Service decides whether a message author has elevated status, which lets
// the host bypass command cooldowns and restrictions
type Service interface {
	// CheckElevated reports whether the author of message is elevated in the
	// guild the message was posted in
	CheckElevated(ctx context.Context, message models.Message) bool
}
