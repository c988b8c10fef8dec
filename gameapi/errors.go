package gameapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError represents a non-2xx/3xx response from the game API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status %d, body: %s", e.StatusCode, e.Body)
}

// transientStatuses are upstream conditions worth retrying: rate limits
// and temporary gateway/availability failures.
var transientStatuses = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// IsTransient reports whether err is a retryable remote failure. The
// structured status on APIError is authoritative; for wrapped or foreign
// errors the message is matched as a fallback.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return transientStatuses[apiErr.StatusCode]
	}

	msg := err.Error()
	for status := range transientStatuses {
		if strings.Contains(msg, fmt.Sprintf("status %d", status)) {
			return true
		}
	}
	return false
}
