// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package classify

import "strings"

// EmotionLabels lists the emotions the detector scores, in canonical
// order. The order is the tie-break for dominant-emotion selection.
var EmotionLabels = []string{"joy", "sadness", "anger", "fear", "surprise"}

// toneEmotion maps request tones to the emotion they select on.
var toneEmotion = map[string]string{
	"Happy":       "joy",
	"Sad":         "sadness",
	"Angry":       "anger",
	"Suspenseful": "fear",
	"Surprising":  "surprise",
}

// EmotionForTone returns the emotion a request tone filters on.
func EmotionForTone(tone string) (string, bool) {
	emotion, ok := toneEmotion[tone]
	return emotion, ok
}

// emotionKeywords is the scoring lexicon, one word list per emotion.
var emotionKeywords = map[string][]string{
	"joy":      {"joy", "happy", "delight", "wonderful", "love", "laugh", "heartwarming", "charming", "uplifting"},
	"sadness":  {"sad", "grief", "loss", "mourning", "tragedy", "tears", "lonely", "heartbreak", "melancholy"},
	"anger":    {"anger", "rage", "fury", "betrayal", "revenge", "injustice", "outrage"},
	"fear":     {"fear", "terror", "dread", "haunted", "dark", "danger", "sinister", "chilling", "suspense"},
	"surprise": {"surprise", "twist", "unexpected", "shocking", "astonishing", "revelation", "stunning"},
}

// EmotionResult is the outcome of scoring one text.
type EmotionResult struct {
	Dominant   string             `json:"dominant_emotion"`
	Confidence float64            `json:"emotion_confidence"`
	Scores     map[string]float64 `json:"all_emotions"`
}

// DetectEmotion scores text over the emotion labels. Scores are hit
// counts normalized to sum to 1. A text matching no lexicon words gets
// a uniform distribution with "joy" dominant by label order.
func (c *Classifier) DetectEmotion(text string) EmotionResult {
	lowered := strings.ToLower(text)
	scores := make(map[string]float64, len(EmotionLabels))
	total := 0.0
	for _, emotion := range EmotionLabels {
		hits := 0.0
		for _, kw := range emotionKeywords[emotion] {
			hits += float64(strings.Count(lowered, kw))
		}
		scores[emotion] = hits
		total += hits
	}

	if total == 0 {
		uniform := 1.0 / float64(len(EmotionLabels))
		for _, emotion := range EmotionLabels {
			scores[emotion] = uniform
		}
		return EmotionResult{Dominant: EmotionLabels[0], Confidence: uniform, Scores: scores}
	}

	dominant, best := "", -1.0
	for _, emotion := range EmotionLabels {
		scores[emotion] /= total
		if scores[emotion] > best {
			dominant, best = emotion, scores[emotion]
		}
	}
	return EmotionResult{Dominant: dominant, Confidence: best, Scores: scores}
}
