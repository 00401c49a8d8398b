// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package services

import (
	"context"
	"time"
)

// Reloader is satisfied by *serving.Adapter.
type Reloader interface {
	Run(ctx context.Context, interval time.Duration) error
}

// ServingReloadService keeps the serving adapter in step with the ledger.
type ServingReloadService struct {
	reloader Reloader
	interval time.Duration
}

// NewServingReloadService polls every interval, 30s if unset.
func NewServingReloadService(r Reloader, interval time.Duration) *ServingReloadService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ServingReloadService{reloader: r, interval: interval}
}

// Serve implements suture.Service.
func (s *ServingReloadService) Serve(ctx context.Context) error {
	return s.reloader.Run(ctx, s.interval)
}

func (s *ServingReloadService) String() string {
	return "serving-reload"
}
