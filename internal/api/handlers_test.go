// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/config"
	"github.com/tomtom215/retrainer/internal/ingest"
	"github.com/tomtom215/retrainer/internal/ledger"
	"github.com/tomtom215/retrainer/internal/registry"
	"github.com/tomtom215/retrainer/internal/retrain"
	"github.com/tomtom215/retrainer/internal/samples"
	"github.com/tomtom215/retrainer/internal/serving"
)

type testEnv struct {
	router  http.Handler
	handler *Handler
	serving *serving.Adapter
	ingest  *ingest.Ingestor
}

const testThreshold = 20

func newTestEnv(t *testing.T, minInterval time.Duration) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := zerolog.Nop()

	store, err := samples.NewCSVStore(filepath.Join(dir, "new_data"), "", logger)
	if err != nil {
		t.Fatal(err)
	}
	reg, err := registry.New(filepath.Join(dir, "model"), logger)
	if err != nil {
		t.Fatal(err)
	}
	l := ledger.New(filepath.Join(dir, "counter.json"), logger)

	ctrl := retrain.NewController(retrain.Options{Training: config.TrainingConfig{
		Threshold:       testThreshold,
		TestSize:        0.2,
		Seed:            42,
		MinSplitSamples: 10,
		FitTimeout:      10 * time.Second,
	}}, l, store, reg, logger)
	adapter := serving.New(l, reg, logger)
	in := ingest.New(store, l, testThreshold, logger).WithSeed(3)

	h := NewHandler(ctrl, adapter, in, reg, HandlerConfig{Threshold: testThreshold, RetrainMinInterval: minInterval}, logger)
	mw := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedMethods: []string{http.MethodGet, http.MethodPost},
		RateLimitDisabled:  true,
	})
	return &testEnv{router: NewRouter(h, mw), handler: h, serving: adapter, ingest: in}
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: invalid JSON %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, env
}

func TestHome(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 0)
	code, env := e.do(t, http.MethodGet, "/", "")
	if code != http.StatusOK || env.Status != "success" {
		t.Fatalf("GET / = %d %+v", code, env)
	}
	var data map[string]string
	_ = json.Unmarshal(env.Data, &data)
	if data["message"] != "ML Service is Running!" {
		t.Errorf("message = %q", data["message"])
	}
}

func TestPredict_NotReady(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 0)

	code, env := e.do(t, http.MethodPost, "/api/v1/predict", `{"hours_studied": 5}`)
	if code != http.StatusServiceUnavailable || env.Error == nil || env.Error.Code != "MODEL_NOT_READY" {
		t.Errorf("predict before training = %d %+v", code, env.Error)
	}
	if code, _ := e.do(t, http.MethodGet, "/api/v1/health/ready", ""); code != http.StatusServiceUnavailable {
		t.Errorf("ready before training = %d", code)
	}
}

func TestPredict_Validation(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 0)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing field", `{}`, "VALIDATION_ERROR"},
		{"wrong type", `{"hours_studied": "five"}`, "INVALID_JSON"},
		{"not json", `hours=5`, "INVALID_JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := e.do(t, http.MethodPost, "/api/v1/predict", tt.body)
			if code != http.StatusBadRequest || env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("status %d, error %+v; want 400 %s", code, env.Error, tt.code)
			}
		})
	}
}

func TestEndToEnd_IngestTrainPredict(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 0)
	ctx := context.Background()

	code, env := e.do(t, http.MethodPost, "/api/v1/samples", `{"hours_studied": 4, "score": 41}`)
	if code != http.StatusCreated {
		t.Fatalf("add sample = %d %+v", code, env.Error)
	}
	var added struct {
		Count int  `json:"count"`
		Ready bool `json:"ready"`
	}
	_ = json.Unmarshal(env.Data, &added)
	if added.Count != 1 || added.Ready {
		t.Errorf("add sample response = %+v", added)
	}

	if code, env := e.do(t, http.MethodPost, "/api/v1/samples/simulate", `{"count": 30}`); code != http.StatusCreated {
		t.Fatalf("simulate = %d %+v", code, env.Error)
	}

	code, env = e.do(t, http.MethodPost, "/api/v1/retrain?wait=true", "")
	if code != http.StatusOK {
		t.Fatalf("retrain = %d %+v", code, env.Error)
	}
	var rr struct {
		Decision retrain.Decision `json:"decision"`
	}
	if err := json.Unmarshal(env.Data, &rr); err != nil {
		t.Fatal(err)
	}
	if rr.Decision.Outcome != retrain.OutcomePromoted || rr.Decision.NewVersion != 2 {
		t.Fatalf("decision = %+v", rr.Decision)
	}

	if _, err := e.serving.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	code, env = e.do(t, http.MethodPost, "/api/v1/predict", `{"hours_studied": 5}`)
	if code != http.StatusOK {
		t.Fatalf("predict = %d %+v", code, env.Error)
	}
	var p serving.Prediction
	_ = json.Unmarshal(env.Data, &p)
	if p.ModelVersion != 2 || p.Hours != 5 || p.PredictedScore < 40 || p.PredictedScore > 60 {
		t.Errorf("prediction = %+v", p)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/models", "")
	if code != http.StatusOK {
		t.Fatalf("models = %d", code)
	}
	var mr struct {
		CurrentVersion int               `json:"current_version"`
		Versions       []int             `json:"versions"`
		Records        []registry.Record `json:"records"`
	}
	_ = json.Unmarshal(env.Data, &mr)
	if mr.CurrentVersion != 2 || len(mr.Versions) != 1 || len(mr.Records) != 1 || mr.Records[0].DataPoints != 31 {
		t.Errorf("models = %+v", mr)
	}

	code, env = e.do(t, http.MethodGet, "/api/v1/status", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var sr struct {
		Ledger  ingest.Report `json:"ledger"`
		Serving struct {
			Ready   bool `json:"ready"`
			Version int  `json:"version"`
		} `json:"serving"`
	}
	_ = json.Unmarshal(env.Data, &sr)
	if sr.Ledger.Count != 0 || sr.Ledger.CurrentVersion != 2 || !sr.Serving.Ready || sr.Serving.Version != 2 {
		t.Errorf("status = %+v", sr)
	}
}

func TestRetrain_BelowThresholdSkips(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 0)

	code, env := e.do(t, http.MethodPost, "/api/v1/retrain?wait=true", "")
	if code != http.StatusOK {
		t.Fatalf("retrain = %d %+v", code, env.Error)
	}
	var rr struct {
		Decision retrain.Decision `json:"decision"`
	}
	_ = json.Unmarshal(env.Data, &rr)
	if rr.Decision.Outcome != retrain.OutcomeSkipped {
		t.Errorf("outcome = %s, want skipped", rr.Decision.Outcome)
	}
}

func TestRetrain_Background(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 0)

	code, _ := e.do(t, http.MethodPost, "/api/v1/retrain", "")
	if code != http.StatusAccepted {
		t.Fatalf("retrain = %d, want 202", code)
	}
	e.handler.Wait()
}

func TestRetrain_Throttled(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, time.Hour)

	if code, _ := e.do(t, http.MethodPost, "/api/v1/retrain?wait=true", ""); code != http.StatusOK {
		t.Fatalf("first retrain = %d", code)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/retrain?wait=true", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second retrain = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "3600" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}

func TestRouter_SecurityHeadersAndRequestID(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("live = %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, 0)
	mw := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"*"},
		RateLimitRequests:  2,
		RateLimitWindow:    time.Minute,
	})
	router := NewRouter(e.handler, mw)

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", last)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}
