package middleware

import (
	"net/http"
	"time"
)

// Timeout bounds a handler with http.TimeoutHandler. It buffers the response,
// so it must not wrap websocket routes.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	message := `{"message":"request timed out","code":"REQUEST_TIMEOUT"}`

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, message)
	}
}
