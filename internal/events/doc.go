// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

/*
Package events publishes retraining outcomes on a Watermill message bus so
other components (the serving adapter in particular) can react to a new
model version without waiting for their polling interval.

Two transports are available:

  - gochannel: in-process Go channels. This is the default and needs no
    infrastructure.
  - nats: NATS JetStream through watermill-nats, optionally backed by an
    embedded nats-server. Build with -tags=nats to enable it.

Publishing goes through a gobreaker circuit breaker. When the transport keeps
failing the breaker opens and publishes fail fast until the reset timeout
passes. Event delivery is best effort: the ledger and registry are the
source of truth, and a missed event only delays a serving reload until the
next poll.

Usage:

	bus, err := events.Open(cfg.Events, logger)
	if err != nil {
	    return err
	}
	defer bus.Close()

	controller.AddNotifier(bus)

	router, err := bus.NewRouter("serving-reload", func(ctx context.Context, ev *events.PromotionEvent) error {
	    return adapter.Reload(ctx)
	})
*/
package events
