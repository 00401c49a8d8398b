// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

// mockService runs until canceled, optionally failing its first n starts.
type mockService struct {
	name     string
	starts   atomic.Int32
	maxFails int32
}

func newMockService(name string, failFirst int) *mockService {
	return &mockService{name: name, maxFails: int32(failFirst)}
}

func (m *mockService) Serve(ctx context.Context) error {
	if n := m.starts.Add(1); n <= m.maxFails {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) StartCount() int32 { return m.starts.Load() }

func (m *mockService) String() string { return m.name }
