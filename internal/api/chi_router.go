// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/retrainer/internal/middleware"
)

// NewRouter builds the chi route tree.
func NewRouter(h *Handler, mw *ChiMiddleware) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())

	r.Get("/", h.Home)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/status", h.Status)
		r.Post("/predict", h.Predict)
		r.Post("/samples", h.AddSample)
		r.Post("/samples/simulate", h.SimulateSamples)
		r.Post("/retrain", h.Retrain)
		r.Get("/models", h.ListModels)
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}
