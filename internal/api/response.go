// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

// Package api exposes the Shelfscout HTTP surface: recommendation
// synthesis, plan inspection, and the user library, all behind JWT
// bearer auth and a uniform error envelope.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/shelfscout/shelfscout/internal/logging"
	"github.com/shelfscout/shelfscout/internal/middleware"
)

// Error kinds surfaced to clients.
const (
	KindEmptyQuery       = "EmptyQuery"
	KindQuotaExceeded    = "QuotaExceeded"
	KindValidationFailed = "ValidationFailed"
	KindUnauthorized     = "Unauthorized"
	KindNotFound         = "NotFound"
	KindConflict         = "Conflict"
	KindLibraryFull      = "LibraryFull"
	KindInternalError    = "InternalError"
)

// ErrorBody is the uniform error envelope.
type ErrorBody struct {
	// Kind is the machine-readable error class.
	Kind string `json:"kind"`

	// Message is a human-readable explanation.
	Message string `json:"message"`

	// RetryAfterSeconds is set for quota rejections.
	RetryAfterSeconds int64 `json:"retry_after_seconds,omitempty"`
}

// ErrorResponse wraps ErrorBody with the request ID for tracing.
type ErrorResponse struct {
	Error     ErrorBody `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

// writeJSON renders a response body. Encoding failures are logged, not
// surfaced: headers are already gone.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("response encode failed")
	}
}

// writeError renders the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, status int, kind, message string, retryAfterSeconds int64) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorBody{
			Kind:              kind,
			Message:           message,
			RetryAfterSeconds: retryAfterSeconds,
		},
		RequestID: middleware.GetRequestID(r.Context()),
	})
}
