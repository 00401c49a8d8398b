// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/cache"
)

// Deduplicate wraps h so an event ID is handled at most once within ttl.
// JetStream redelivers unacked messages and the router retries failures,
// so the same event can arrive more than once. A failed event is forgotten
// so its retry is not dropped.
func Deduplicate(h Handler, size int, ttl time.Duration, logger zerolog.Logger) Handler {
	seen := cache.NewLRU[string, struct{}](size, ttl)
	return func(ctx context.Context, ev *PromotionEvent) error {
		if seen.Seen(ev.EventID) {
			logger.Debug().Str("event_id", ev.EventID).Msg("Dropping duplicate promotion event")
			return nil
		}
		if err := h(ctx, ev); err != nil {
			seen.Remove(ev.EventID)
			return err
		}
		return nil
	}
}
