package discordapi

//go:generate mockgen -package=mocks -destination=mocks/mock_api.go github.com/KirkDiggler/applebot/internal/clients/discordapi API

import "context"

// API is the subset of the Discord REST API the gateway client needs
type API interface {
	// Login exchanges account credentials for a bearer token
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	// GetGateway resolves the websocket URL to connect to
	GetGateway(ctx context.Context, input *GetGatewayInput) (*GetGatewayOutput, error)

	// CreateMessage posts a message to a channel
	CreateMessage(ctx context.Context, input *CreateMessageInput) error
}
