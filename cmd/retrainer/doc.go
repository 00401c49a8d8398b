// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

/*
Retrainer accumulates labeled samples and retrains a linear model once
enough new data has arrived. The candidate replaces the deployed model only
when it scores strictly better on held-out data.

Usage:

	retrainer [-c|--config path] <command> [arguments]
	retrainer <command> --help

Commands:

	serve                  run the HTTP API, serving reloads and the scheduler
	train                  run one retraining pass and exit
	add [n]                store n simulated samples (default 5)
	add --hours H --score S
	                       store one labeled sample
	status                 print progress toward the next retraining run

Configuration is layered: built-in defaults, then the YAML file named by
--config or CONFIG_PATH, then environment variables such as
RETRAIN_THRESHOLD or HTTP_PORT.

When GITHUB_ENV names a file, train appends MODEL_IMPROVED and the version
and accuracy variables to it so later CI steps can act on the result.

Build with -tags nats to publish promotion events over NATS JetStream.
The exit status is 1 on any error.
*/
package main
