package orchestrator

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfdesk/internal/artifact"
	"github.com/local/pdfdesk/internal/document"
	"github.com/local/pdfdesk/internal/jobs"
	"github.com/local/pdfdesk/internal/workspace"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeError maps domain errors onto status codes. Errors it does not know
// get fallback.
func writeError(w http.ResponseWriter, err error, fallback int) {
	var stateErr *document.StateError
	code := fallback
	switch {
	case errors.Is(err, workspace.ErrNotFound),
		errors.Is(err, workspace.ErrClosed),
		errors.Is(err, document.ErrNotFound),
		errors.Is(err, artifact.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, workspace.ErrBusy),
		errors.Is(err, workspace.ErrWrongTool),
		errors.Is(err, workspace.ErrNoDocuments),
		errors.Is(err, workspace.ErrNothingSelected),
		errors.Is(err, workspace.ErrNoValidRanges),
		errors.As(err, &stateErr):
		code = http.StatusConflict
	case errors.Is(err, document.ErrRangeIndex),
		errors.Is(err, document.ErrRangeField):
		code = http.StatusBadRequest
	case errors.Is(err, jobs.ErrQueueFull),
		errors.Is(err, jobs.ErrStopped):
		code = http.StatusServiceUnavailable
	}
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", code).Msg("request failed")
	}
	jsonError(w, err.Error(), code)
}

// decode reads an optional JSON body into v. An empty body leaves v as is.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type jobResponse struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
}

func acceptedJob(w http.ResponseWriter, jobID string) {
	writeJSON(w, http.StatusAccepted, jobResponse{JobID: jobID, StatusURL: "/api/jobs/" + jobID})
}
