package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const sessionContextKey contextKey = "guestSession"

const SessionHeader = "X-Session-Id"

// GuestSession attaches a per-browser session id to the request. The id
// owns the guest's cart and wizard session in redis. A missing or malformed
// header gets a fresh id, echoed back so the client can keep it.
func GuestSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
			if _, err := uuid.Parse(sessionID); err != nil {
				sessionID = uuid.NewString()
			}
			w.Header().Set(SessionHeader, sessionID)
			ctx := context.WithValue(r.Context(), sessionContextKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSessionID(ctx context.Context) string {
	if value, ok := ctx.Value(sessionContextKey).(string); ok {
		return value
	}
	return ""
}
