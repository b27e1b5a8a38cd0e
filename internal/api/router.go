// Package api exposes the analysis pipeline as a JSON HTTP API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter creates a chi router with all API routes mounted under /v1
func NewRouter(svc Service, logger *zap.Logger) chi.Router {
	h := NewHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/citations/validate", h.ValidateCitations)

		r.Route("/documents/{id}", func(r chi.Router) {
			r.Get("/shepard", h.Shepard)
			r.Get("/treatment", h.Treatment)
			r.Get("/network", h.Network)
			r.Get("/influence", h.Influence)
			r.Post("/track", h.Track)
			r.Get("/trends", h.Trends)
			r.Get("/history", h.History)
		})

		r.Get("/bridges", h.Bridges)

		r.Get("/alerts", h.Alerts)
		r.Post("/alerts/{id}/ack", h.Acknowledge)
	})

	return r
}
