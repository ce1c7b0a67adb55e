package authorization

// AuthorizationError is a custom error type for evaluator setup errors
type AuthorizationError string

// Error implements the error interface
func (e AuthorizationError) Error() string {
	return string(e)
}

const (
	ErrNilConfig    AuthorizationError = "config cannot be nil"
	ErrNilGuildRepo AuthorizationError = "guild repository cannot be nil"
)
