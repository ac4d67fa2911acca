// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

// Package catalog holds the book dataset: record identity, record
// merging and lookup, plus Google Books enrichment.
package catalog

import "strings"

// BookRecord is a catalog entry. Canonical identity is ISBN13, falling
// back to ISBN10. A record with neither is not uniquely identifiable and
// is never merged during deduplication.
type BookRecord struct {
	ISBN13        string   `json:"isbn13"`
	ISBN10        string   `json:"isbn10"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Categories    []string `json:"categories"`
	AverageRating float64  `json:"average_rating"`
	RatingsCount  int      `json:"ratings_count"`
	Description   string   `json:"description"`
	ThumbnailRefs []string `json:"thumbnail_refs,omitempty"`
	PublishedYear int      `json:"published_year"`

	// SimpleCategory is the coarse category assigned by classification
	// (Fiction, Nonfiction, Children's Fiction, ...). Empty until
	// classified.
	SimpleCategory string `json:"simple_category,omitempty"`

	// Emotions holds per-emotion scores (joy, sadness, anger, fear,
	// surprise) in [0, 1] when the dataset or classifier provides them.
	Emotions map[string]float64 `json:"emotions,omitempty"`
}

// IdentityKey returns the dedup key: ISBN13, else ISBN10, else empty.
// An empty key marks the record as always-unique.
func (b *BookRecord) IdentityKey() string {
	if b.ISBN13 != "" {
		return b.ISBN13
	}
	return b.ISBN10
}

// PrimaryCategory returns the coarse category when assigned, else the
// first raw category, else "Other".
func (b *BookRecord) PrimaryCategory() string {
	if b.SimpleCategory != "" {
		return b.SimpleCategory
	}
	if len(b.Categories) > 0 && b.Categories[0] != "" {
		return b.Categories[0]
	}
	return "Other"
}

// Richness counts non-empty fields. Used during dedup to pick the most
// complete duplicate as the surviving record.
func (b *BookRecord) Richness() int {
	n := 0
	for _, s := range []string{b.ISBN13, b.ISBN10, b.Title, b.Description, b.SimpleCategory} {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	if len(b.Authors) > 0 {
		n++
	}
	if len(b.Categories) > 0 {
		n++
	}
	if len(b.ThumbnailRefs) > 0 {
		n++
	}
	if b.AverageRating > 0 {
		n++
	}
	if b.RatingsCount > 0 {
		n++
	}
	if b.PublishedYear > 0 {
		n++
	}
	if len(b.Emotions) > 0 {
		n++
	}
	return n
}

// Merge combines two records for the same physical book: the richer
// record wins as the base and its empty fields are filled from the
// other. Neither input is modified.
func Merge(a, b BookRecord) BookRecord {
	base, other := a, b
	if b.Richness() > a.Richness() {
		base, other = b, a
	}

	if base.ISBN13 == "" {
		base.ISBN13 = other.ISBN13
	}
	if base.ISBN10 == "" {
		base.ISBN10 = other.ISBN10
	}
	if base.Title == "" {
		base.Title = other.Title
	}
	if base.Description == "" {
		base.Description = other.Description
	}
	if base.SimpleCategory == "" {
		base.SimpleCategory = other.SimpleCategory
	}
	if len(base.Authors) == 0 {
		base.Authors = other.Authors
	}
	if len(base.Categories) == 0 {
		base.Categories = other.Categories
	}
	if len(base.ThumbnailRefs) == 0 {
		base.ThumbnailRefs = other.ThumbnailRefs
	}
	if base.AverageRating == 0 {
		base.AverageRating = other.AverageRating
	}
	if base.RatingsCount == 0 {
		base.RatingsCount = other.RatingsCount
	}
	if base.PublishedYear == 0 {
		base.PublishedYear = other.PublishedYear
	}
	if len(base.Emotions) == 0 {
		base.Emotions = other.Emotions
	}
	return base
}
