// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

/*
Package middleware provides HTTP middleware shared by the API router.

  - RequestID: takes X-Request-ID from the client or generates a UUID, echoes
    it in the response and stores it in the logging context together with a
    fresh correlation ID.
  - PrometheusMetrics: records request count, latency and in-flight requests.
    The endpoint label is the chi route pattern, not the raw path, so path
    parameters do not create new series.

Both are func(http.Handler) http.Handler and plug into chi's r.Use.
*/
package middleware
