package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cryotrack/cryotrack-core/internal/calibration"
	"github.com/cryotrack/cryotrack-core/internal/cylinder"
)

// envelope is the fixed response shape consumed by the browser UI:
// {status: "success"|"error", data?|message?, code?}. Code mirrors the
// HTTP status and exists because the UI reads it from the body.
type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort write
	}
}

// writeSuccess writes a success envelope.
func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Status: "success", Data: data})
}

// writeError writes an error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Status: "error", Message: message, Code: status})
}

// writeStoreError maps domain sentinel errors onto the web envelope.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cylinder.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "invalid cylinder name")
	case errors.Is(err, cylinder.ErrNotFound):
		writeError(w, http.StatusNotFound, "cylinder not found")
	case errors.Is(err, cylinder.ErrForbidden):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, cylinder.ErrExists):
		writeError(w, http.StatusConflict, "cylinder already exists")
	case errors.Is(err, calibration.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid calibration input")
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
