package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Device endpoint. The path and protocol are fixed by deployed firmware.
	r.Get("/module", s.handleModule)

	// Web API routes
	r.Route("/api/v1", func(r chi.Router) {
		// No auth required
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)

			r.Route("/cylinders", func(r chi.Router) {
				r.Get("/", s.handleListCylinders)
				r.Post("/", s.handleCreateCylinder)

				r.Route("/{name}", func(r chi.Router) {
					r.Get("/", s.handleGetCylinder)
					r.Patch("/", s.handleUpdateCylinder)
					r.Delete("/", s.handleDeleteCylinder)
					r.Get("/history", s.handleHistory)
					r.Get("/history/export", s.handleExportHistory)
					r.Get("/calibrations", s.handleListCalibrations)
					r.Post("/calibrate/level", s.handleCalibrateLevel)
					r.Post("/calibrate/pressure", s.handleCalibratePressure)
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
