package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/membersync/internal/core"
)

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	member, err := s.service.FindMember(r.Context(), chi.URLParam(r, "memberNumber"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// handleCreateMember creates a member from a JSON core.NewMember body.
// The member number is always allocated by the server.
func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	if actorID(r) == "" {
		s.respondError(w, r, core.ErrMissingActor)
		return
	}

	var in core.NewMember
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err))
		return
	}

	member, err := s.service.CreateMember(r.Context(), in, actorID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}
