package messaging

// MessagingError is a custom error type for send errors
type MessagingError string

// Error implements the error interface
func (e MessagingError) Error() string {
	return string(e)
}

const (
	ErrNilConfig       MessagingError = "config cannot be nil"
	ErrNilAPI          MessagingError = "api client cannot be nil"
	ErrNilWindow       MessagingError = "send window cannot be nil"
	ErrNilSession      MessagingError = "session cannot be nil"
	ErrNilMessage      MessagingError = "message cannot be nil"
	ErrUnsupportedKind MessagingError = "origin is not a discord message"
)
