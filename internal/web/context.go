package web

import (
	"net/http"

	"github.com/JonMunkholm/membersync/internal/core"
)

// actorID returns the acting user set by the Actor middleware.
func actorID(r *http.Request) string {
	return core.RequestMetaFrom(r.Context()).ActorID
}
