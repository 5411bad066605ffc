package middleware

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/membersync/internal/core"
)

// ActorHeader names the user on whose behalf the call is made.
const ActorHeader = "X-Actor-ID"

// Actor stores the caller's identity, IP and user agent on the request
// context for the service and audit log. It must run after TrustedRealIP so
// RemoteAddr already holds the client address. A missing actor is left for
// the service to reject on the operations that need one.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := core.RequestMeta{
			ActorID:   strings.TrimSpace(r.Header.Get(ActorHeader)),
			IPAddress: r.RemoteAddr,
			UserAgent: r.UserAgent(),
		}
		next.ServeHTTP(w, r.WithContext(core.WithRequestMeta(r.Context(), meta)))
	})
}
