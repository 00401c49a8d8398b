// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

/*
Package services adapts retrainer components to suture.Service.

Each wrapper turns a component's lifecycle into Serve(ctx) error:

  - HTTPServerService: *http.Server with graceful shutdown
  - RetrainScheduler: periodic and on-startup retraining runs
  - ServingReloadService: the serving adapter's reload loop
  - EventRouterService: a watermill router consuming promotion events

Serve returns ctx.Err() on shutdown and any other error to request a
restart. Every wrapper implements fmt.Stringer so supervisor logs name it.
*/
package services
