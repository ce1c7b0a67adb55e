package discordapi

// LoginInput contains account credentials
type LoginInput struct {
	Email    string
	Password string
}

// LoginOutput contains the issued token
type LoginOutput struct {
	Token string
}

// GetGatewayInput contains parameters for gateway discovery
type GetGatewayInput struct {
	Token string
}

// GetGatewayOutput contains the gateway websocket URL
type GetGatewayOutput struct {
	URL string
}

// CreateMessageInput contains parameters for posting a message
type CreateMessageInput struct {
	Token     string
	ChannelID string
	Content   string
}
