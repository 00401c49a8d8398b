// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
)

// RouterFactory builds a fresh router. A closed watermill router cannot be
// run again, so every restart needs a new one.
type RouterFactory func() (*message.Router, error)

// EventRouterService runs a watermill router under supervision.
type EventRouterService struct {
	newRouter RouterFactory
	name      string
}

// NewEventRouterService creates the service.
func NewEventRouterService(name string, factory RouterFactory) *EventRouterService {
	return &EventRouterService{newRouter: factory, name: name}
}

// Serve implements suture.Service.
func (s *EventRouterService) Serve(ctx context.Context) error {
	router, err := s.newRouter()
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.New(s.name + ": router stopped")
}

func (s *EventRouterService) String() string {
	return s.name
}
