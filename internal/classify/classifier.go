// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

// Package classify assigns coarse shelf categories and emotional tone
// scores to book text. Classification is lexical and deterministic:
// the same text always produces the same scores, which keeps the
// recommendation pipeline reproducible.
package classify

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// categoryMapping maps raw dataset categories to the coarse shelves
// surfaced to users. Unknown raw categories map to "Other".
var categoryMapping = map[string]string{
	"Fiction":                   "Fiction",
	"Juvenile Fiction":          "Children's Fiction",
	"Biography & Autobiography": "Nonfiction",
	"History":                   "Nonfiction",
	"Literary Criticism":        "Nonfiction",
	"Philosophy":                "Nonfiction",
	"Religion":                  "Nonfiction",
	"Comics & Graphic Novels":   "Fiction",
	"Drama":                     "Fiction",
	"Juvenile Nonfiction":       "Children's Nonfiction",
	"Science":                   "Nonfiction",
	"Poetry":                    "Fiction",
}

// labelKeywords drives the lexical classifier: hits against a label's
// keyword list raise that label's score.
var labelKeywords = map[string][]string{
	"Fiction":                   {"novel", "story", "tale", "saga", "adventure", "fiction"},
	"Juvenile Fiction":          {"children", "kids", "young reader", "picture book", "bedtime"},
	"Biography & Autobiography": {"biography", "autobiography", "memoir", "life of", "her life", "his life"},
	"History":                   {"history", "historical", "century", "empire", "war", "revolution"},
	"Literary Criticism":        {"criticism", "literary", "essays", "analysis of"},
	"Philosophy":                {"philosophy", "ethics", "metaphysics", "existential"},
	"Religion":                  {"religion", "faith", "spiritual", "theology", "scripture"},
	"Comics & Graphic Novels":   {"comic", "graphic novel", "manga", "illustrated"},
	"Drama":                     {"play", "drama", "theatre", "stage", "act one"},
	"Juvenile Nonfiction":       {"for kids", "facts", "learn about", "young people"},
	"Science":                   {"science", "physics", "biology", "chemistry", "research", "experiment"},
	"Poetry":                    {"poetry", "poems", "verse", "sonnet"},
	"Nonfiction":                {"guide", "history", "true", "science", "facts", "biography"},
}

// RawCategories returns the raw categories the classifier knows how to
// map, sorted for deterministic iteration.
func RawCategories() []string {
	out := make([]string, 0, len(categoryMapping))
	for raw := range categoryMapping {
		out = append(out, raw)
	}
	sort.Strings(out)
	return out
}

// MapCategory maps a raw dataset category to its coarse shelf.
func MapCategory(raw string) string {
	if simple, ok := categoryMapping[raw]; ok {
		return simple
	}
	return "Other"
}

// Classification is the result of classifying one text.
type Classification struct {
	PredictedCategory string             `json:"predicted_category"`
	SimpleCategory    string             `json:"simple_category"`
	Confidence        float64            `json:"confidence"`
	Scores            map[string]float64 `json:"confidence_scores"`
}

// Classifier scores text against candidate category labels using the
// keyword lexicon. It holds no mutable state and is safe for concurrent
// use.
type Classifier struct {
	logger zerolog.Logger
}

// NewClassifier creates a classifier.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewClassifier(logger zerolog.Logger) *Classifier {
	return &Classifier{logger: logger.With().Str("component", "classifier").Logger()}
}

// Classify scores text against the given labels and returns the best
// match. With no labels it classifies against the full raw category
// set. Texts matching no keywords get a uniform score over the labels
// with the lexically smallest label predicted, so the result is always
// well formed.
func (c *Classifier) Classify(text string, labels []string) Classification {
	if len(labels) == 0 {
		labels = RawCategories()
	}

	lowered := strings.ToLower(text)
	scores := make(map[string]float64, len(labels))
	total := 0.0
	for _, label := range labels {
		hits := 0.0
		for _, kw := range labelKeywords[label] {
			hits += float64(strings.Count(lowered, kw))
		}
		scores[label] = hits
		total += hits
	}

	if total == 0 {
		uniform := 1.0 / float64(len(labels))
		for _, label := range labels {
			scores[label] = uniform
		}
	} else {
		for label, hits := range scores {
			scores[label] = hits / total
		}
	}

	best := bestLabel(scores)
	return Classification{
		PredictedCategory: best,
		SimpleCategory:    MapCategory(best),
		Confidence:        scores[best],
		Scores:            scores,
	}
}

// CategorizeBook classifies a book. An existing raw category is trusted
// (confidence 1.0); otherwise the description is classified against the
// full raw category set.
func (c *Classifier) CategorizeBook(rawCategory, description string) Classification {
	if rawCategory != "" {
		return Classification{
			PredictedCategory: rawCategory,
			SimpleCategory:    MapCategory(rawCategory),
			Confidence:        1.0,
			Scores:            map[string]float64{rawCategory: 1.0},
		}
	}
	return c.Classify(description, nil)
}

// bestLabel returns the highest-scoring label, breaking ties by the
// lexically smaller label so the result does not depend on map order.
func bestLabel(scores map[string]float64) string {
	best, bestScore := "", -1.0
	for label, score := range scores {
		if score > bestScore || (score == bestScore && label < best) {
			best, bestScore = label, score
		}
	}
	return best
}
