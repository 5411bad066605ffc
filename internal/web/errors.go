package web

// errors.go turns service errors into JSON responses.
//
// Every error is logged server-side with the request ID, and the client gets
// the core.MapError message and code, never the technical error text.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/membersync/internal/core"
	"github.com/JonMunkholm/membersync/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// errBadRequest marks request problems found by the handlers themselves.
var errBadRequest = errors.New("bad request")

type statusRule struct {
	err    error
	status int
}

// statusRules is checked with errors.Is, in order. ErrApplyFailed comes
// first because it wraps the cause of the rollback, which may itself be a
// not-found error.
var statusRules = []statusRule{
	{core.ErrApplyFailed, http.StatusUnprocessableEntity},

	{core.ErrJobNotFound, http.StatusNotFound},
	{core.ErrMemberNotFound, http.StatusNotFound},

	{core.ErrWrongState, http.StatusConflict},
	{core.ErrHasRowErrors, http.StatusConflict},
	{core.ErrApplyInProgress, http.StatusConflict},

	{core.ErrUnreadableFile, http.StatusBadRequest},
	{core.ErrEmptySheet, http.StatusBadRequest},
	{core.ErrMissingColumns, http.StatusBadRequest},
	{core.ErrTooManyRows, http.StatusBadRequest},
	{core.ErrInvalidMonthKey, http.StatusBadRequest},
	{core.ErrMissingActor, http.StatusBadRequest},
	{core.ErrInvalidMember, http.StatusBadRequest},
	{errBadRequest, http.StatusBadRequest},

	{core.ErrTooManyImports, http.StatusTooManyRequests},

	{context.DeadlineExceeded, http.StatusGatewayTimeout},
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	for _, rule := range statusRules {
		if errors.Is(err, rule.err) {
			return rule.status
		}
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped JSON error. Errors with no
// user-facing mapping are unexpected and logged at error level.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError && !core.IsUserFacing(err) {
		level = slog.LevelError
	}
	logging.WithFields(r.Context(),
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
	).Log(r.Context(), level, "request error", "error", err.Error())

	if errors.Is(err, core.ErrTooManyImports) {
		w.Header().Set("Retry-After", "5")
	}

	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	// Handler-level validation messages are safe to show as-is.
	if errors.Is(err, errBadRequest) {
		resp.Error = err.Error()
		resp.Code = "REQ000"
		resp.Message = "The request is malformed"
		resp.Action = ""
	}
	writeJSON(w, status, resp)
}
