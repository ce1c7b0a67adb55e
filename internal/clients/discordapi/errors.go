package discordapi

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// StatusCode returns the HTTP status of a REST failure, or 0 when err did not
// come from a non-2xx response
func StatusCode(err error) int {
	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		return http.StatusTooManyRequests
	}

	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return 0
	}
	return restErr.Response.StatusCode
}

// IsThrottled reports whether the API answered 429 Too Many Requests
func IsThrottled(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}

// IsForbidden reports whether the API answered 403 Forbidden
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}
