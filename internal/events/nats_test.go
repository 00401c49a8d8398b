// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

//go:build nats

package events

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/retrain"
)

func TestBus_EmbeddedNATS(t *testing.T) {
	if testing.Short() {
		t.Skip("embedded NATS skipped in short mode")
	}
	cfg := testEventsConfig()
	cfg.Backend = "nats"
	cfg.EmbeddedNATS = true
	cfg.NATSStoreDir = t.TempDir()

	bus, err := Open(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer bus.Close()

	received := make(chan *PromotionEvent, 1)
	router, err := bus.NewRouter("nats-test", func(_ context.Context, ev *PromotionEvent) error {
		received <- ev
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()
	<-router.Running()

	if err := bus.Notify(ctx, &retrain.Decision{Outcome: retrain.OutcomePromoted, Promoted: true, NewVersion: 2}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	select {
	case ev := <-received:
		if ev.NewVersion != 2 {
			t.Errorf("received %+v", ev)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("event not delivered over NATS")
	}
	_ = router.Close()
}
