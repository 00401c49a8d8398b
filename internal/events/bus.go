// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/retrainer/internal/config"
	"github.com/tomtom215/retrainer/internal/logging"
	"github.com/tomtom215/retrainer/internal/metrics"
	"github.com/tomtom215/retrainer/internal/retrain"
)

var (
	// ErrBusClosed means the bus was used after Close.
	ErrBusClosed = errors.New("events: bus is closed")

	// ErrNATSNotEnabled means the nats backend was selected in a build
	// without the nats tag.
	ErrNATSNotEnabled = errors.New("events: NATS transport not available, build with -tags=nats")
)

// Handler processes one decoded promotion event.
type Handler func(ctx context.Context, ev *PromotionEvent) error

// Bus publishes and consumes promotion events.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	closers    []func() error

	topic   string
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  zerolog.Logger
	wmLog   watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// Open connects the configured transport.
func Open(cfg config.EventsConfig, logger zerolog.Logger) (*Bus, error) {
	logger = logger.With().Str("component", "events").Str("backend", cfg.Backend).Logger()
	wmLog := watermill.NewSlogLogger(logging.NewSlogLogger(logger))

	b := &Bus{
		topic:   cfg.Topic,
		breaker: newBreaker("events-"+cfg.Backend, cfg.MaxFailures, cfg.BreakerReset, logger),
		logger:  logger,
		wmLog:   wmLog,
	}

	switch cfg.Backend {
	case "", "gochannel":
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLog)
		b.publisher, b.subscriber = ch, ch
		b.closers = append(b.closers, ch.Close)
	case "nats":
		t, err := openNATS(cfg, wmLog)
		if err != nil {
			return nil, err
		}
		b.publisher, b.subscriber = t.publisher, t.subscriber
		b.closers = append(b.closers, t.closers...)
	default:
		return nil, fmt.Errorf("events: unknown backend %q", cfg.Backend)
	}

	logger.Info().Str("topic", cfg.Topic).Msg("Event bus ready")
	return b, nil
}

// Topic returns the promotion topic.
func (b *Bus) Topic() string {
	return b.topic
}

// Publish sends ev through the circuit breaker.
func (b *Bus) Publish(ctx context.Context, ev *PromotionEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	data, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode promotion event: %w", err)
	}
	msg := message.NewMessage(ev.EventID, data)
	msg.Metadata.Set("outcome", ev.Outcome)
	msg.Metadata.Set("run_id", ev.RunID)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}

	_, err = b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.publisher.Publish(b.topic, msg)
	})
	recordBreakerResult(b.breaker.Name(), err)
	metrics.RecordEventPublish(b.topic, err)
	if err != nil {
		return fmt.Errorf("publish promotion event: %w", err)
	}
	return nil
}

// Notify implements retrain.Notifier.
func (b *Bus) Notify(ctx context.Context, d *retrain.Decision) error {
	if d.Outcome == retrain.OutcomeSkipped || d.Outcome == retrain.OutcomeFailed {
		return nil
	}
	ev := NewPromotionEvent(d)
	if err := b.Publish(ctx, ev); err != nil {
		return err
	}
	b.logger.Debug().Str("event_id", ev.EventID).Str("outcome", ev.Outcome).Msg("Published retraining event")
	return nil
}

// NewRouter returns a Watermill router that feeds every event on the topic
// to h. Failed handlers are retried with backoff before the message is
// dropped.
func (b *Bus) NewRouter(name string, h Handler) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, b.wmLog)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)
	retry := middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2,
		Logger:          b.wmLog,
	}
	router.AddMiddleware(retry.Middleware)

	router.AddConsumerHandler(name, b.topic, b.subscriber, func(msg *message.Message) error {
		ev, err := DecodePromotionEvent(msg.Payload)
		if err != nil {
			// Undecodable payloads are acked and dropped.
			b.logger.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed event")
			metrics.RecordEventConsumed(name, err)
			return nil
		}
		ctx := msg.Context()
		if id := msg.Metadata.Get("correlation_id"); id != "" {
			ctx = logging.ContextWithCorrelationID(ctx, id)
		}
		err = h(ctx, ev)
		metrics.RecordEventConsumed(name, err)
		return err
	})
	return router, nil
}

// Close shuts down the transport.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
