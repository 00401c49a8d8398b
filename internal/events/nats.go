// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

//go:build nats

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/retrainer/internal/config"
)

type natsTransport struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	closers    []func() error
}

// openNATS connects a JetStream publisher and subscriber, starting an
// embedded server first when configured.
func openNATS(cfg config.EventsConfig, logger watermill.LoggerAdapter) (*natsTransport, error) {
	t := &natsTransport{}
	url := cfg.NATSURL

	if cfg.EmbeddedNATS {
		ns, err := startEmbeddedServer(cfg.NATSStoreDir)
		if err != nil {
			return nil, err
		}
		t.closers = append(t.closers, func() error {
			ns.Shutdown()
			ns.WaitForShutdown()
			return nil
		})
		url = ns.ClientURL()
		logger.Info("Embedded NATS server started", watermill.LogFields{"url": url})
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		t.close()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	t.publisher = pub
	t.closers = append(t.closers, pub.Close)

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: "retrainer",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			DurablePrefix: "retrainer",
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.DeliverNew(),
				natsgo.AckWait(30 * time.Second),
			},
		},
	}, logger)
	if err != nil {
		t.close()
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}
	t.subscriber = sub
	t.closers = append(t.closers, sub.Close)
	return t, nil
}

func (t *natsTransport) close() {
	for i := len(t.closers) - 1; i >= 0; i-- {
		_ = t.closers[i]() //nolint:errcheck // cleanup after a failed open
	}
}

func startEmbeddedServer(storeDir string) (*server.Server, error) {
	opts := &server.Options{
		ServerName: "retrainer-events",
		Host:       "127.0.0.1",
		Port:       server.RANDOM_PORT,
		JetStream:  true,
		StoreDir:   storeDir,
		NoSigs:     true,
	}
	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}
	return ns, nil
}
