package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cryotrack/cryotrack-core/internal/cylinder"
)

// handleListCylinders returns every cylinder the caller may see.
func (s *Server) handleListCylinders(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context(), accessFrom(r))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, records)
}

// handleGetCylinder returns one cylinder, optionally with recent history
// (?history=1).
func (s *Server) handleGetCylinder(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	withHistory := r.URL.Query().Get("history") != ""

	rec, err := s.store.Get(r.Context(), accessFrom(r), name, withHistory)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}

type createCylinderRequest struct {
	Name    string `json:"name"`
	Company string `json:"company"`
}

// handleCreateCylinder provisions a new cylinder with a fresh device ID.
func (s *Server) handleCreateCylinder(w http.ResponseWriter, r *http.Request) {
	var req createCylinderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	rec, err := s.store.Create(r.Context(), accessFrom(r), req.Name, req.Company)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, cylinder.Decorate(rec))
}

// handleUpdateCylinder applies the allow-listed descriptive fields.
// Unknown fields in the body are ignored; immutable fields (device ID,
// calibration, readings) cannot be written through this path.
func (s *Server) handleUpdateCylinder(w http.ResponseWriter, r *http.Request) {
	var fields cylinder.UpdateFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := s.store.Update(r.Context(), accessFrom(r), chi.URLParam(r, "name"), fields)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, cylinder.Decorate(rec))
}

// handleDeleteCylinder removes a cylinder, its identity-index entry, and
// its history.
func (s *Server) handleDeleteCylinder(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.Delete(r.Context(), accessFrom(r), name); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"name": name})
}

// handleHistory returns history entries, optionally limited to the last
// ?hours=N. Level and pressure are computed with the current calibration.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	var timeRange time.Duration
	if v := r.URL.Query().Get("hours"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours < 0 {
			writeError(w, http.StatusBadRequest, "invalid hours parameter")
			return
		}
		timeRange = time.Duration(hours) * time.Hour
	}

	entries, err := s.store.History(r.Context(), accessFrom(r), chi.URLParam(r, "name"), timeRange)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, entries)
}

// handleExportHistory streams the full history log as a CSV download.
func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	// Access and existence are checked before any output; after the header
	// is written there is no way to switch to an error envelope.
	if _, err := s.store.Get(r.Context(), accessFrom(r), name, false); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))

	if err := s.store.ExportCSV(r.Context(), accessFrom(r), name, w); err != nil {
		s.logger.Error("csv export failed", "name", name, "error", err)
	}
}

// handleListCalibrations returns the calibration audit trail.
func (s *Server) handleListCalibrations(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.CalibrationEvents(r.Context(), accessFrom(r), chi.URLParam(r, "name"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, events)
}

type levelCalibrationRequest struct {
	LowADC  *int `json:"l0"`
	HighADC *int `json:"l1"`
}

// handleCalibrateLevel performs two-point level calibration against the
// record's configured volume.
func (s *Server) handleCalibrateLevel(w http.ResponseWriter, r *http.Request) {
	var req levelCalibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LowADC == nil || req.HighADC == nil {
		writeError(w, http.StatusBadRequest, "l0 and l1 are required")
		return
	}

	rec, err := s.store.CalibrateLevel(r.Context(), accessFrom(r), chi.URLParam(r, "name"), *req.LowADC, *req.HighADC)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, cylinder.Decorate(rec))
}

type pressureCalibrationRequest struct {
	LowADC       *int     `json:"p0"`
	HighADC      *int     `json:"p1"`
	LowPressure  *float64 `json:"prss0"`
	HighPressure *float64 `json:"prss1"`
}

// handleCalibratePressure performs two-point pressure calibration.
func (s *Server) handleCalibratePressure(w http.ResponseWriter, r *http.Request) {
	var req pressureCalibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LowADC == nil || req.HighADC == nil || req.LowPressure == nil || req.HighPressure == nil {
		writeError(w, http.StatusBadRequest, "p0, p1, prss0 and prss1 are required")
		return
	}

	rec, err := s.store.CalibratePressure(r.Context(), accessFrom(r), chi.URLParam(r, "name"),
		*req.LowADC, *req.HighADC, *req.LowPressure, *req.HighPressure)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, cylinder.Decorate(rec))
}
