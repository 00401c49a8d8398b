// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

//go:build !nats

package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/retrainer/internal/config"
)

type natsTransport struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	closers    []func() error
}

func openNATS(config.EventsConfig, watermill.LoggerAdapter) (*natsTransport, error) {
	return nil, ErrNATSNotEnabled
}
