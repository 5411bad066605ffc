// Package logging configures log/slog for the service and derives
// request- and import-scoped loggers from a context.
//
// Request IDs set by chi's RequestID middleware are attached automatically,
// so every line written while serving a request can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs the global slog logger and returns it.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) *slog.Logger {
	return setup(os.Stdout, level, format)
}

func setup(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns the default logger enriched with the request ID
// stored by chi's RequestID middleware, if any.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

// WithFields returns a request-scoped logger with additional fields.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}

// ForImport returns a logger carrying the import job and acting user.
// Either value may be empty, in which case it is omitted.
//
//	log := logging.ForImport(ctx, job.ID, actorID)
//	log.Info("import applied", "created", counts.Created)
func ForImport(ctx context.Context, jobID, actorID string) *slog.Logger {
	logger := FromContext(ctx)
	if jobID != "" {
		logger = logger.With("import_job_id", jobID)
	}
	if actorID != "" {
		logger = logger.With("actor_id", actorID)
	}
	return logger
}
