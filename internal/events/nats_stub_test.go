// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

//go:build !nats

package events

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestOpen_NATSRequiresBuildTag(t *testing.T) {
	t.Parallel()
	cfg := testEventsConfig()
	cfg.Backend = "nats"
	cfg.NATSURL = "nats://127.0.0.1:4222"
	if _, err := Open(cfg, zerolog.Nop()); !errors.Is(err, ErrNATSNotEnabled) {
		t.Errorf("Open() error = %v, want ErrNATSNotEnabled", err)
	}
}
