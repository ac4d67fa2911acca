// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// GoogleBooksConfig configures the enrichment client.
type GoogleBooksConfig struct {
	// BaseURL is the API root. Default: https://www.googleapis.com/books/v1.
	BaseURL string

	// APIKey is optional; unauthenticated requests have lower quotas.
	APIKey string

	// RequestsPerSecond caps outbound calls. Default: 5.
	RequestsPerSecond float64

	// Timeout is the per-request HTTP timeout. Default: 10s.
	Timeout time.Duration
}

// GoogleBooks fetches volume metadata from the Google Books API to
// enrich sparse catalog records. Outbound calls go through a rate
// limiter and a circuit breaker so a flaky upstream cannot stall
// enrichment passes.
type GoogleBooks struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]BookRecord]
	logger  zerolog.Logger
}

// NewGoogleBooks creates an enrichment client.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewGoogleBooks(cfg GoogleBooksConfig, logger zerolog.Logger) *GoogleBooks {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.googleapis.com/books/v1"
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "google-books",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &GoogleBooks{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: gobreaker.NewCircuitBreaker[[]BookRecord](settings),
		logger:  logger.With().Str("component", "google_books").Logger(),
	}
}

// Search queries volumes matching the query string.
func (g *GoogleBooks) Search(ctx context.Context, query string, maxResults int) ([]BookRecord, error) {
	if maxResults < 1 {
		maxResults = 10
	}
	if maxResults > 40 { // Google Books API limit
		maxResults = 40
	}
	return g.fetch(ctx, query, maxResults)
}

// ByISBN fetches a single volume by ISBN. Returns (zero, false, nil)
// when no volume matches.
func (g *GoogleBooks) ByISBN(ctx context.Context, isbn string) (BookRecord, bool, error) {
	records, err := g.fetch(ctx, "isbn:"+isbn, 1)
	if err != nil {
		return BookRecord{}, false, err
	}
	if len(records) == 0 {
		return BookRecord{}, false, nil
	}
	return records[0], true, nil
}

// Enrich merges Google Books metadata into catalog records that lack a
// description. Failures on individual records are logged and skipped.
func (g *GoogleBooks) Enrich(ctx context.Context, c *Catalog) int {
	enriched := 0
	for _, b := range c.All() {
		if b.Description != "" || b.IdentityKey() == "" {
			continue
		}
		remote, ok, err := g.ByISBN(ctx, b.IdentityKey())
		if err != nil {
			g.logger.Warn().Err(err).Str("isbn", b.IdentityKey()).Msg("enrichment lookup failed")
			continue
		}
		if !ok {
			continue
		}
		// Keep the local identity so the merge lands on the same key.
		remote.ISBN13, remote.ISBN10 = b.ISBN13, b.ISBN10
		c.Put(remote)
		enriched++
	}

	if enriched > 0 {
		g.logger.Info().Int("enriched", enriched).Msg("catalog enrichment complete")
	}
	return enriched
}

func (g *GoogleBooks) fetch(ctx context.Context, query string, maxResults int) ([]BookRecord, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	return g.breaker.Execute(func() ([]BookRecord, error) {
		return g.doFetch(ctx, query, maxResults)
	})
}

func (g *GoogleBooks) doFetch(ctx context.Context, query string, maxResults int) ([]BookRecord, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(maxResults))
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/volumes?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google books request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google books status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var payload volumesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	records := make([]BookRecord, 0, len(payload.Items))
	for _, item := range payload.Items {
		records = append(records, item.toRecord())
	}
	return records, nil
}

// volumesResponse mirrors the subset of the Google Books volumes
// response the catalog cares about.
type volumesResponse struct {
	Items []volumeItem `json:"items"`
}

type volumeItem struct {
	VolumeInfo struct {
		Title               string   `json:"title"`
		Authors             []string `json:"authors"`
		Description         string   `json:"description"`
		PublishedDate       string   `json:"publishedDate"`
		Categories          []string `json:"categories"`
		AverageRating       float64  `json:"averageRating"`
		RatingsCount        int      `json:"ratingsCount"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		ImageLinks struct {
			Thumbnail      string `json:"thumbnail"`
			SmallThumbnail string `json:"smallThumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

func (v volumeItem) toRecord() BookRecord {
	info := v.VolumeInfo
	b := BookRecord{
		Title:         info.Title,
		Authors:       info.Authors,
		Categories:    info.Categories,
		Description:   info.Description,
		AverageRating: info.AverageRating,
		RatingsCount:  info.RatingsCount,
	}

	for _, id := range info.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			b.ISBN13 = id.Identifier
		case "ISBN_10":
			b.ISBN10 = id.Identifier
		}
	}

	if info.ImageLinks.Thumbnail != "" {
		b.ThumbnailRefs = append(b.ThumbnailRefs, info.ImageLinks.Thumbnail)
	}
	if info.ImageLinks.SmallThumbnail != "" {
		b.ThumbnailRefs = append(b.ThumbnailRefs, info.ImageLinks.SmallThumbnail)
	}

	// publishedDate may be YYYY, YYYY-MM or YYYY-MM-DD.
	if len(info.PublishedDate) >= 4 {
		if year, err := strconv.Atoi(info.PublishedDate[:4]); err == nil {
			b.PublishedYear = year
		}
	}
	return b
}
