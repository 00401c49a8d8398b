// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/retrainer/internal/ingest"
	"github.com/tomtom215/retrainer/internal/models"
	"github.com/tomtom215/retrainer/internal/registry"
	"github.com/tomtom215/retrainer/internal/retrain"
	"github.com/tomtom215/retrainer/internal/samples"
	"github.com/tomtom215/retrainer/internal/serving"
)

// backgroundRunTimeout bounds a retraining run started without ?wait=true.
const backgroundRunTimeout = 30 * time.Minute

// Trainer runs the retraining pipeline.
type Trainer interface {
	Run(ctx context.Context) (*retrain.Decision, error)
	Status() retrain.Status
}

// Predictor answers predictions.
type Predictor interface {
	Predict(hours float64) (serving.Prediction, error)
	Current() *serving.Loaded
}

// Ingester stores samples and reports ledger progress.
type Ingester interface {
	Add(ctx context.Context, s samples.Sample) (int, error)
	Simulate(ctx context.Context, n int) (int, error)
	Status(ctx context.Context) (ingest.Report, error)
}

// ModelCatalog lists stored models.
type ModelCatalog interface {
	Versions(ctx context.Context) ([]int, error)
	Records(ctx context.Context) ([]registry.Record, error)
}

// HandlerConfig holds handler settings.
type HandlerConfig struct {
	Threshold int

	// RetrainMinInterval is the minimum spacing of API-triggered runs.
	// 0 disables the throttle.
	RetrainMinInterval time.Duration
}

// Handler implements the API endpoints.
type Handler struct {
	trainer   Trainer
	predictor Predictor
	ingester  Ingester
	catalog   ModelCatalog
	config    HandlerConfig
	logger    zerolog.Logger

	retrainLimiter *rate.Limiter
	background     sync.WaitGroup
}

// NewHandler wires the endpoints.
func NewHandler(trainer Trainer, predictor Predictor, ingester Ingester, catalog ModelCatalog, cfg HandlerConfig, logger zerolog.Logger) *Handler {
	limit := rate.Inf
	if cfg.RetrainMinInterval > 0 {
		limit = rate.Every(cfg.RetrainMinInterval)
	}
	return &Handler{
		trainer:        trainer,
		predictor:      predictor,
		ingester:       ingester,
		catalog:        catalog,
		config:         cfg,
		logger:         logger.With().Str("component", "api").Logger(),
		retrainLimiter: rate.NewLimiter(limit, 1),
	}
}

// Wait blocks until background runs started by Retrain finish.
func (h *Handler) Wait() {
	h.background.Wait()
}

// Home handles GET /.
func (h *Handler) Home(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"message": "ML Service is Running!"}, time.Now())
}

// HealthLive handles GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady handles GET /api/v1/health/ready.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	if h.predictor.Current() == nil {
		respondError(w, http.StatusServiceUnavailable, "MODEL_NOT_READY", "No model loaded yet", nil)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"}, time.Now())
}

// Status handles GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report, err := h.ingester.Status(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STATUS_ERROR", "Failed to read ledger status", err)
		return
	}

	resp := models.StatusResponse{
		Ledger:     report,
		Controller: h.trainer.Status(),
	}
	if cur := h.predictor.Current(); cur != nil {
		loadedAt := cur.LoadedAt
		resp.Serving = models.ServingStatus{
			Ready:    true,
			Version:  cur.Version,
			Model:    cur.Model.String(),
			LoadedAt: &loadedAt,
		}
	}
	respondSuccess(w, http.StatusOK, resp, start)
}

// Predict handles POST /api/v1/predict.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.PredictRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.predictor.Predict(*req.HoursStudied)
	switch {
	case errors.Is(err, serving.ErrNotReady):
		respondError(w, http.StatusServiceUnavailable, "MODEL_NOT_READY", "Model is not trained yet", nil)
		return
	case errors.Is(err, serving.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "PREDICTION_ERROR", "Prediction failed", err)
		return
	}
	respondSuccess(w, http.StatusOK, p, start)
}

// AddSample handles POST /api/v1/samples.
func (h *Handler) AddSample(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.SampleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	count, err := h.ingester.Add(r.Context(), samples.Sample{Feature: *req.HoursStudied, Target: *req.Score})
	if err != nil {
		if errors.Is(err, samples.ErrInvalidSample) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Sample values must be finite numbers", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INGEST_ERROR", "Failed to store sample", err)
		return
	}
	respondSuccess(w, http.StatusCreated, h.sampleResponse(1, count), start)
}

// SimulateSamples handles POST /api/v1/samples/simulate.
func (h *Handler) SimulateSamples(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.SimulateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	count, err := h.ingester.Simulate(r.Context(), req.Count)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INGEST_ERROR", "Failed to store simulated samples", err)
		return
	}
	respondSuccess(w, http.StatusCreated, h.sampleResponse(req.Count, count), start)
}

func (h *Handler) sampleResponse(added, count int) models.SampleResponse {
	return models.SampleResponse{
		Added:     added,
		Count:     count,
		Threshold: h.config.Threshold,
		Ready:     count >= h.config.Threshold,
	}
}

// Retrain handles POST /api/v1/retrain. Without ?wait=true the run starts in
// the background and the response is 202.
func (h *Handler) Retrain(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.trainer.Status().Running {
		respondError(w, http.StatusConflict, "RUN_IN_PROGRESS", "A retraining run is already in progress", nil)
		return
	}
	if !h.retrainLimiter.Allow() {
		w.Header().Set("Retry-After", retryAfter(h.config.RetrainMinInterval))
		respondError(w, http.StatusTooManyRequests, "RETRAIN_THROTTLED", "Retraining was triggered too recently", nil)
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		d, err := h.trainer.Run(r.Context())
		if err != nil {
			if errors.Is(err, retrain.ErrRunInProgress) {
				respondError(w, http.StatusConflict, "RUN_IN_PROGRESS", "A retraining run is already in progress", nil)
				return
			}
			respondError(w, http.StatusInternalServerError, "RETRAIN_FAILED", err.Error(), err)
			return
		}
		respondSuccess(w, http.StatusOK, models.RetrainResponse{Accepted: true, Decision: d}, start)
		return
	}

	h.background.Add(1)
	go func() {
		defer h.background.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), backgroundRunTimeout)
		defer cancel()
		if _, err := h.trainer.Run(ctx); err != nil {
			h.logger.Error().Err(err).Msg("Background retraining run failed")
		}
	}()
	respondSuccess(w, http.StatusAccepted, models.RetrainResponse{Accepted: true, Message: "Retraining started"}, start)
}

// ListModels handles GET /api/v1/models.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	versions, err := h.catalog.Versions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "REGISTRY_ERROR", "Failed to list model versions", err)
		return
	}
	records, err := h.catalog.Records(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "REGISTRY_ERROR", "Failed to read model metadata", err)
		return
	}
	if versions == nil {
		versions = []int{}
	}
	if records == nil {
		records = []registry.Record{}
	}

	resp := models.ModelsResponse{Versions: versions, Records: records}
	if report, err := h.ingester.Status(r.Context()); err == nil {
		resp.CurrentVersion = report.CurrentVersion
	}
	respondSuccess(w, http.StatusOK, resp, start)
}

func retryAfter(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
