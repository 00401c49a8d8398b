// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/retrainer/internal/config"
	"github.com/tomtom215/retrainer/internal/retrain"
)

func testEventsConfig() config.EventsConfig {
	return config.EventsConfig{
		Backend:      "gochannel",
		Topic:        "retrainer.test",
		MaxFailures:  2,
		BreakerReset: time.Minute,
	}
}

func TestPromotionEvent_RoundTrip(t *testing.T) {
	t.Parallel()
	d := &retrain.Decision{
		RunID:       "run-1",
		Outcome:     retrain.OutcomePromoted,
		Promoted:    true,
		BaseVersion: 2,
		OldVersion:  2,
		NewVersion:  3,
		OldAccuracy: 90.5,
		NewAccuracy: 93.25,
		ModelFile:   "v3.gob.gz",
		DataPoints:  210,
	}
	ev := NewPromotionEvent(d)
	data, err := ev.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodePromotionEvent(data)
	if err != nil {
		t.Fatalf("DecodePromotionEvent() error = %v", err)
	}
	if got.EventID != ev.EventID || got.NewVersion != 3 || got.OldVersion != 2 || !got.Promoted || got.ModelFile != "v3.gob.gz" {
		t.Errorf("decoded = %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Error("OccurredAt not set")
	}
}

func TestPromotionEvent_BootstrapHasNoOldVersion(t *testing.T) {
	t.Parallel()
	d := &retrain.Decision{
		Outcome:     retrain.OutcomePromoted,
		Promoted:    true,
		Bootstrap:   true,
		BaseVersion: 1,
		NewVersion:  2,
	}
	if ev := NewPromotionEvent(d); ev.OldVersion != 0 {
		t.Errorf("OldVersion = %d, want 0", ev.OldVersion)
	}
}

func TestDecodePromotionEvent_Invalid(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "not json", `{"outcome":"promoted"}`} {
		if _, err := DecodePromotionEvent([]byte(in)); err == nil {
			t.Errorf("DecodePromotionEvent(%q) succeeded", in)
		}
	}
}

func TestBus_NotifyDeliversToRouter(t *testing.T) {
	t.Parallel()
	bus, err := Open(testEventsConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer bus.Close()

	received := make(chan *PromotionEvent, 4)
	router, err := bus.NewRouter("test-handler", func(_ context.Context, ev *PromotionEvent) error {
		received <- ev
		return nil
	})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()
	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}

	// Skipped runs publish nothing.
	if err := bus.Notify(ctx, &retrain.Decision{Outcome: retrain.OutcomeSkipped}); err != nil {
		t.Fatal(err)
	}
	if err := bus.Notify(ctx, &retrain.Decision{RunID: "r", Outcome: retrain.OutcomePromoted, Promoted: true, NewVersion: 4}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	select {
	case ev := <-received:
		if ev.Outcome != "promoted" || ev.NewVersion != 4 || ev.RunID != "r" {
			t.Errorf("received %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
	select {
	case ev := <-received:
		t.Errorf("unexpected extra event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}

	_ = router.Close()
}

func TestBus_UnknownBackend(t *testing.T) {
	t.Parallel()
	cfg := testEventsConfig()
	cfg.Backend = "kafka"
	if _, err := Open(cfg, zerolog.Nop()); err == nil {
		t.Error("Open() with unknown backend succeeded")
	}
}

type failingPublisher struct {
	calls atomic.Int32
}

func (p *failingPublisher) Publish(string, ...*message.Message) error {
	p.calls.Add(1)
	return errors.New("transport down")
}

func (p *failingPublisher) Close() error { return nil }

func TestBus_BreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()
	pub := &failingPublisher{}
	bus := &Bus{
		publisher: pub,
		topic:     "retrainer.test",
		breaker:   newBreaker("events-breaker-test", 2, time.Minute, zerolog.Nop()),
		logger:    zerolog.Nop(),
	}
	ctx := context.Background()
	d := &retrain.Decision{Outcome: retrain.OutcomeDiscarded}

	for i := 0; i < 2; i++ {
		if err := bus.Notify(ctx, d); err == nil {
			t.Fatalf("Notify() #%d succeeded", i)
		}
	}
	err := bus.Notify(ctx, d)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Notify() after trip error = %v, want ErrOpenState", err)
	}
	if got := pub.calls.Load(); got != 2 {
		t.Errorf("publisher called %d times, want 2", got)
	}
}

func TestBus_Closed(t *testing.T) {
	t.Parallel()
	bus, err := Open(testEventsConfig(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := bus.Publish(context.Background(), &PromotionEvent{EventID: "x"}); !errors.Is(err, ErrBusClosed) {
		t.Errorf("Publish() after Close error = %v", err)
	}
}
