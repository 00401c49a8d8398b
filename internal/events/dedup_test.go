// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDeduplicate(t *testing.T) {
	t.Parallel()
	calls := 0
	fail := true
	h := Deduplicate(func(context.Context, *PromotionEvent) error {
		calls++
		if fail {
			return errors.New("reload failed")
		}
		return nil
	}, 16, time.Minute, zerolog.Nop())

	ctx := context.Background()
	ev := &PromotionEvent{EventID: "e1", NewVersion: 3}

	if err := h(ctx, ev); err == nil {
		t.Fatal("expected handler error")
	}
	fail = false
	if err := h(ctx, ev); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if err := h(ctx, ev); err != nil {
		t.Fatalf("duplicate error = %v", err)
	}
	if err := h(ctx, &PromotionEvent{EventID: "e2"}); err != nil {
		t.Fatal(err)
	}

	// failed attempt + successful retry + e2; the duplicate is dropped
	if calls != 3 {
		t.Errorf("handler called %d times, want 3", calls)
	}
}
