package guild

// CacheError is returned when an event cannot be applied to the cache
type CacheError string

// Error implements the error interface
func (e CacheError) Error() string {
	return string(e)
}

const (
	ErrGuildNotFound   CacheError = "guild not found"
	ErrMemberNotFound  CacheError = "member not found"
	ErrRoleNotFound    CacheError = "role not found"
	ErrChannelNotFound CacheError = "channel not found"
	ErrAmbiguousMatch  CacheError = "more than one cached entity matched"
	ErrInvalidInput    CacheError = "input is missing required fields"
)
