// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

// Package cache provides a bounded LRU with lazy TTL expiry. The event
// consumer uses it to drop redelivered promotion events.
package cache
