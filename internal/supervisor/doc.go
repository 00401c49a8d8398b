// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

/*
Package supervisor runs the long-lived services of the retrainer daemon
under a suture v4 tree.

	RootSupervisor ("retrainer")
	├── TrainingSupervisor ("training-layer")
	│   └── RetrainScheduler (if schedule.enabled)
	├── ServingSupervisor ("serving-layer")
	│   ├── ServingReloadService
	│   └── EventRouterService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Each layer counts failures on its own, so a scheduler that keeps failing
backs off without restarting the HTTP server. Supervisor events are logged
through sutureslog using the slog adapter from the logging package.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(logger), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddTrainingService(services.NewRetrainScheduler(ctrl, cfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	return tree.Serve(ctx)

Service wrappers live in the services subpackage.
*/
package supervisor
