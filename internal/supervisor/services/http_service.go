// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPServer is the part of *http.Server the service drives: a blocking
// listen loop and a graceful stop.
//
// ListenAndServe must block until the server stops and return
// http.ErrServerClosed after Shutdown. Shutdown must stop accepting new
// connections, wait for in-flight requests until ctx expires, and make
// ListenAndServe return. *http.Server meets this contract; tests use a fake
// that records the calls.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the retrainer's HTTP API under the supervisor's API
// layer.
//
// suture services block in Serve until their context ends, while
// http.Server blocks in ListenAndServe until something else stops it. The
// service bridges the two: the listen loop runs in its own goroutine and
// cancellation of the Serve context becomes a Shutdown bounded by
// shutdownTimeout, which lets a /retrain request that is mid-run finish its
// response before the process exits.
//
//	server := &http.Server{Addr: cfg.Server.Addr(), Handler: router}
//	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	name            string
}

// NewHTTPServerService wraps server. shutdownTimeout bounds how long
// Shutdown waits for open requests; a non-positive value means 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "http-server",
	}
}

// Serve implements suture.Service.
//
// Lifecycle:
//  1. ListenAndServe starts in a goroutine.
//  2. If the listener fails first (for example the port is taken), Serve
//     returns the wrapped error and the supervisor restarts the service
//     with backoff.
//  3. If ctx ends first, Serve calls Shutdown on a fresh context limited to
//     shutdownTimeout, waits for the listen goroutine to exit, and returns
//     ctx.Err() so suture treats the stop as requested.
//
// http.ErrServerClosed is the normal result of Shutdown and is never
// reported as a failure. A Shutdown that runs past its timeout is.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// ctx is already canceled, so the drain gets its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String names the service in supervisor logs.
func (h *HTTPServerService) String() string {
	return h.name
}
