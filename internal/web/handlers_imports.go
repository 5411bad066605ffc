package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/membersync/internal/core"
)

// multipartMemory is how much of a multipart upload is kept in memory
// before spilling to temp files.
const multipartMemory = 10 << 20

// applyWriteSlack leaves time to write the apply response after the
// transaction's own deadline.
const applyWriteSlack = 10 * time.Second

// handleValidate accepts a multipart upload with a "file" part and a
// "monthKey" field and returns the validation preview.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("%w: file exceeds %d bytes", errBadRequest, maxSize))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: expected multipart form: %v", errBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: missing file", errBadRequest))
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		s.respondError(w, r, fmt.Errorf("%w: file exceeds %d bytes", errBadRequest, maxSize))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(data)) > maxSize {
		s.respondError(w, r, fmt.Errorf("%w: file exceeds %d bytes", errBadRequest, maxSize))
		return
	}

	result, err := s.service.Validate(r.Context(), core.ValidateInput{
		FileName: header.Filename,
		Data:     data,
		MonthKey: strings.TrimSpace(r.FormValue("monthKey")),
		ActorID:  actorID(r),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	// The server write timeout is shorter than IMPORT_APPLY_TIMEOUT.
	if d := s.cfg.Import.ApplyTimeout; d > 0 {
		_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(d + applyWriteSlack))
	}

	job, err := s.service.Apply(r.Context(), chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListChanges(w http.ResponseWriter, r *http.Request) {
	changes, err := s.service.Changes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if changes == nil {
		changes = []core.ImportChange{}
	}
	writeJSON(w, http.StatusOK, changes)
}

// handleListImports lists jobs filtered by the optional monthKey and status
// query parameters, paged by limit and offset.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r, "limit", 0)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	offset, err := parseIntParam(r, "offset", 0)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filter := core.JobFilter{
		MonthKey: strings.TrimSpace(r.URL.Query().Get("monthKey")),
		Limit:    limit,
		Offset:   offset,
	}
	if status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))); status != "" {
		switch core.JobStatus(status) {
		case core.JobValidated, core.JobApplied, core.JobFailed:
			filter.Status = core.JobStatus(status)
		default:
			s.respondError(w, r, fmt.Errorf("%w: unknown status %q", errBadRequest, status))
			return
		}
	}

	jobs, err := s.service.List(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []core.ImportJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}
