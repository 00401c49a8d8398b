// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

/*
Package models defines the request and response structures of the HTTP API.

Every endpoint answers with the APIResponse envelope:

	{
	  "status": "success",
	  "data": {"hours": 5, "predicted_score": 51.2, "model_version": 3},
	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
	}

and on failure:

	{
	  "status": "error",
	  "error": {"code": "MODEL_NOT_READY", "message": "Model is not trained yet"},
	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
	}

Request structs carry validate tags checked by internal/validation.
*/
package models
