package timeout

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds the request context. Reads observe the deadline. Store
// writes and notification hand-offs run detached from it, so a write that
// started is completed and followed by its notification.
func Timeout(timeout time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}
