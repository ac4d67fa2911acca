// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/shelfscout/shelfscout/internal/catalog"
	"github.com/shelfscout/shelfscout/internal/config"
	"github.com/shelfscout/shelfscout/internal/library"
	"github.com/shelfscout/shelfscout/internal/middleware"
	"github.com/shelfscout/shelfscout/internal/quota"
	"github.com/shelfscout/shelfscout/internal/recommend"
)

// Handlers implements the HTTP endpoints.
type Handlers struct {
	cfg      *config.Config
	orch     *recommend.Orchestrator
	quota    *quota.Manager
	library  *library.Service
	catalog  *catalog.Catalog
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewHandlers creates the endpoint set.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandlers(
	cfg *config.Config,
	orch *recommend.Orchestrator,
	qm *quota.Manager,
	lib *library.Service,
	cat *catalog.Catalog,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		cfg:      cfg,
		orch:     orch,
		quota:    qm,
		library:  lib,
		catalog:  cat,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// recommendationRequest is the POST /recommendations body.
type recommendationRequest struct {
	Query   string `json:"query" validate:"required,min=1,max=500"`
	Count   int    `json:"count" validate:"omitempty,min=1,max=50"`
	Mode    string `json:"mode" validate:"omitempty,oneof=general personalized"`
	Filters struct {
		Category  string  `json:"category" validate:"omitempty,max=100"`
		MinRating float64 `json:"min_rating" validate:"omitempty,min=0,max=5"`
		Tone      string  `json:"tone" validate:"omitempty,oneof=Happy Sad Angry Suspenseful Surprising"`
	} `json:"filters"`
}

// Recommendations handles POST /api/v1/recommendations.
func (h *Handlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, KindUnauthorized, "missing identity", 0)
		return
	}

	var body recommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, KindValidationFailed, "malformed JSON body", 0)
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, KindValidationFailed, err.Error(), 0)
		return
	}

	result, err := h.orch.Recommend(r.Context(), recommend.Request{
		RequestID: middleware.GetRequestID(r.Context()),
		UserID:    identity.UserID,
		Plan:      identity.Plan,
		Query:     body.Query,
		Count:     body.Count,
		Mode:      recommend.Mode(body.Mode),
		Filters: recommend.Filters{
			Category:  body.Filters.Category,
			MinRating: body.Filters.MinRating,
			Tone:      body.Filters.Tone,
		},
	})
	if err != nil {
		h.writeRecommendError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeRecommendError maps pipeline errors onto the error envelope.
func (h *Handlers) writeRecommendError(w http.ResponseWriter, r *http.Request, err error) {
	var qerr *recommend.QuotaExceededError
	switch {
	case errors.Is(err, recommend.ErrEmptyQuery):
		writeError(w, r, http.StatusBadRequest, KindEmptyQuery, "query must not be blank", 0)
	case errors.As(err, &qerr):
		retryAfter := int64(qerr.Admission.RetryAfter / time.Second)
		writeError(w, r, http.StatusTooManyRequests, KindQuotaExceeded, qerr.Admission.Reason, retryAfter)
	default:
		h.logger.Error().Err(err).Msg("recommendation failed")
		writeError(w, r, http.StatusInternalServerError, KindInternalError, "internal error", 0)
	}
}

// planResponse is the GET /plan body.
type planResponse struct {
	Plan             string `json:"plan"`
	DailyLimit       int    `json:"daily_limit"`
	MonthlyLimit     int    `json:"monthly_limit"`
	LibraryLimit     int    `json:"library_limit"`
	DailyRemaining   int    `json:"daily_remaining"`
	MonthlyRemaining int    `json:"monthly_remaining"`
}

// Plan handles GET /api/v1/plan.
func (h *Handlers) Plan(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, KindUnauthorized, "missing identity", 0)
		return
	}

	remaining, err := h.quota.Remaining(r.Context(), identity.UserID, identity.Plan)
	if err != nil {
		h.logger.Error().Err(err).Msg("plan lookup failed")
		writeError(w, r, http.StatusInternalServerError, KindInternalError, "internal error", 0)
		return
	}

	limits := h.cfg.Limits(identity.Plan)
	writeJSON(w, http.StatusOK, planResponse{
		Plan:             identity.Plan,
		DailyLimit:       limits.DailySearches,
		MonthlyLimit:     limits.MonthlySearches,
		LibraryLimit:     limits.LibraryBooks,
		DailyRemaining:   remaining.DailyRemaining,
		MonthlyRemaining: remaining.MonthlyRemaining,
	})
}

// libraryAddRequest is the POST /library body.
type libraryAddRequest struct {
	Key string `json:"key" validate:"required,max=32"`
}

// LibraryList handles GET /api/v1/library.
func (h *Handlers) LibraryList(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, KindUnauthorized, "missing identity", 0)
		return
	}

	entries, err := h.library.List(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error().Err(err).Msg("library list failed")
		writeError(w, r, http.StatusInternalServerError, KindInternalError, "internal error", 0)
		return
	}
	if entries == nil {
		entries = []library.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": entries})
}

// LibraryAdd handles POST /api/v1/library. The saved book must exist in
// the catalog; its title and category are denormalized into the entry.
func (h *Handlers) LibraryAdd(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, KindUnauthorized, "missing identity", 0)
		return
	}

	var body libraryAddRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, KindValidationFailed, "malformed JSON body", 0)
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, KindValidationFailed, err.Error(), 0)
		return
	}

	book, found := h.catalog.Get(body.Key)
	if !found {
		writeError(w, r, http.StatusNotFound, KindNotFound, "unknown book", 0)
		return
	}

	entry := library.Entry{Key: body.Key, Title: book.Title, Category: book.PrimaryCategory()}
	err := h.library.Add(r.Context(), identity.UserID, identity.Plan, entry)
	switch {
	case errors.Is(err, library.ErrAlreadySaved):
		writeError(w, r, http.StatusConflict, KindConflict, "book already in library", 0)
	case errors.Is(err, library.ErrLibraryFull):
		writeError(w, r, http.StatusForbidden, KindLibraryFull, "library is at the plan limit", 0)
	case err != nil:
		h.logger.Error().Err(err).Msg("library add failed")
		writeError(w, r, http.StatusInternalServerError, KindInternalError, "internal error", 0)
	default:
		writeJSON(w, http.StatusCreated, entry)
	}
}

// LibraryRemove handles DELETE /api/v1/library/{key}.
func (h *Handlers) LibraryRemove(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, KindUnauthorized, "missing identity", 0)
		return
	}

	key := chi.URLParam(r, "key")
	err := h.library.Remove(r.Context(), identity.UserID, key)
	switch {
	case errors.Is(err, library.ErrNotFound):
		writeError(w, r, http.StatusNotFound, KindNotFound, "book not in library", 0)
	case err != nil:
		h.logger.Error().Err(err).Msg("library remove failed")
		writeError(w, r, http.StatusInternalServerError, KindInternalError, "internal error", 0)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Healthz handles GET /healthz.
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"catalog_books": h.catalog.Len(),
	})
}
