package models

// Message is the platform-neutral view of an inbound chat message that the
// command host works with
type Message interface {
	// GetSender returns the display name of the author
	GetSender() string

	// GetContent returns the raw message text
	GetContent() string
}

// DiscordMessage is a normalized MESSAGE_CREATE event
type DiscordMessage struct {
	// Sender is the author's username
	Sender string

	// Content is the message text
	Content string

	// UserID is the author's Discord user ID
	UserID string

	// ChannelID is the channel the message was posted in
	ChannelID string

	// ID is the Discord message ID
	ID string
}

// GetSender returns the author's username
func (m *DiscordMessage) GetSender() string {
	return m.Sender
}

// GetContent returns the message text
func (m *DiscordMessage) GetContent() string {
	return m.Content
}

// OutboundMessage is a reply the host wants delivered
type OutboundMessage struct {
	// Origin is the message being replied to; it decides the target channel
	Origin Message

	// Content is the text to post
	Content string
}
