// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfscout/shelfscout/internal/agent"
	"github.com/shelfscout/shelfscout/internal/catalog"
	"github.com/shelfscout/shelfscout/internal/classify"
	"github.com/shelfscout/shelfscout/internal/config"
	"github.com/shelfscout/shelfscout/internal/fairness"
	"github.com/shelfscout/shelfscout/internal/library"
	"github.com/shelfscout/shelfscout/internal/metrics"
	"github.com/shelfscout/shelfscout/internal/popularity"
	"github.com/shelfscout/shelfscout/internal/quota"
	"github.com/shelfscout/shelfscout/internal/search"
)

// AgentID is the hub identity of the orchestrator.
const AgentID = "orchestrator-1"

// Signal names used in degradation reporting and metrics.
const (
	signalSearch         = "search"
	signalClassification = "classification"
	signalPopularity     = "popularity"
)

// Request sizing bounds.
const (
	defaultCount = 5
	maxCount     = 50
)

// Orchestrator synthesizes recommendations: it admits the request
// against quota, fans analysis out to the capability agents through the
// hub, joins their signals under a bounded deadline, and merges, ranks
// and audits the result. Safe for concurrent use.
type Orchestrator struct {
	cfg     *config.Config
	hub     *agent.Hub
	catalog *catalog.Catalog
	quota   *quota.Manager
	library *library.Service
	auditor *fairness.Auditor
	logger  zerolog.Logger
}

// NewOrchestrator creates the orchestrator.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewOrchestrator(
	cfg *config.Config,
	hub *agent.Hub,
	cat *catalog.Catalog,
	qm *quota.Manager,
	lib *library.Service,
	auditor *fairness.Auditor,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		hub:     hub,
		catalog: cat,
		quota:   qm,
		library: lib,
		auditor: auditor,
		logger:  logger.With().Str("component", "orchestrator").Logger(),
	}
}

// ID implements agent.Agent.
func (o *Orchestrator) ID() string { return AgentID }

// Capabilities implements agent.Agent.
func (o *Orchestrator) Capabilities() []string {
	return []string{"recommendation_synthesis", "book_suggestions"}
}

// Handle answers get_recommendations messages so other agents can
// request synthesis through the hub.
func (o *Orchestrator) Handle(ctx context.Context, msg agent.Message) (agent.Message, error) {
	if msg.Type != agent.TypeGetRecommendation {
		return agent.Message{}, fmt.Errorf("%w: %s", agent.ErrUnsupportedMessage, msg.Type)
	}
	req, ok := msg.Content.(Request)
	if !ok {
		return agent.Message{}, fmt.Errorf("%w: %s payload %T", agent.ErrUnsupportedMessage, msg.Type, msg.Content)
	}

	result, err := o.Recommend(ctx, req)
	if err != nil {
		return agent.Message{}, err
	}
	return msg.Reply(agent.TypeRecommendationResult, result), nil
}

// Recommend runs the synthesis pipeline. Quota admission happens before
// any adapter dispatch; a rejected request costs nothing downstream.
// Adapter failures degrade individual signals and never fail the
// request, so the result is deterministic given whichever signal set
// arrived in time.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) Recommend(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	req = o.prepareRequest(req)
	logger := o.requestLogger(req)

	if strings.TrimSpace(req.Query) == "" {
		metrics.RecommendationsTotal.WithLabelValues("empty_query").Inc()
		return nil, ErrEmptyQuery
	}

	adm, err := o.quota.Admit(ctx, req.UserID, req.Plan)
	if err != nil {
		if errors.Is(err, quota.ErrExceeded) {
			metrics.RecommendationsTotal.WithLabelValues("quota_exceeded").Inc()
			logger.Debug().Str("reason", adm.Reason).Msg("request rejected by quota")
			return nil, &QuotaExceededError{Admission: adm}
		}
		metrics.RecommendationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("quota admission: %w", err)
	}

	signals, degraded := o.fanOut(ctx, req)
	candidates := o.assemble(req, signals)
	candidates = applyFilters(req.Filters, candidates)
	o.score(ctx, req, candidates)
	rank(candidates)

	total := len(candidates)
	if len(candidates) > req.Count {
		candidates = candidates[:req.Count]
	}

	books := make([]catalog.BookRecord, len(candidates))
	for i := range candidates {
		books[i] = candidates[i].Book
	}
	report := o.auditor.Audit(books)

	o.recordHistory(ctx, req, logger)

	metrics.RecommendationsTotal.WithLabelValues("ok").Inc()
	metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
	logger.Debug().
		Int("candidates", total).
		Int("returned", len(candidates)).
		Strs("degraded", degraded).
		Msg("recommendation complete")

	return &Result{
		RequestID:  req.RequestID,
		Query:      req.Query,
		Candidates: candidates,
		Fairness:   report,
		Degraded:   degraded,
		Metadata: ResultMetadata{
			Mode:            req.Mode,
			TotalCandidates: total,
			LatencyMS:       time.Since(start).Milliseconds(),
			Timestamp:       time.Now().UTC(),
		},
	}, nil
}

// prepareRequest applies defaults and assigns a request ID.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) prepareRequest(req Request) Request {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.Count <= 0 {
		req.Count = defaultCount
	}
	if req.Count > maxCount {
		req.Count = maxCount
	}
	if req.Mode == "" {
		req.Mode = ModeGeneral
	}
	return req
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) requestLogger(req Request) zerolog.Logger {
	return o.logger.With().
		Str("request_id", req.RequestID).
		Str("user_id", req.UserID).
		Str("mode", string(req.Mode)).
		Logger()
}

// signalSet holds whichever adapter signals arrived in time. A nil
// entry means the signal degraded for this request.
type signalSet struct {
	search     *search.Result
	query      *classify.Classification
	popularity map[string]popularity.BookScore
}

// fanOut dispatches one message per signal concurrently and joins them
// under the adapter deadline. Signals that error, time out, or return
// a degraded payload are reported by name; the pipeline continues with
// whatever arrived.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) fanOut(ctx context.Context, req Request) (signalSet, []string) {
	fctx, cancel := context.WithTimeout(ctx, o.cfg.Adapters.Timeout)
	defer cancel()

	limit := req.Count * o.cfg.Adapters.SearchMultiplier
	dispatch := map[string]agent.Message{
		signalSearch: agent.NewMessage(AgentID, search.AgentID, agent.TypeSemanticSearch,
			search.Request{Query: req.Query, Limit: limit}, agent.PriorityHigh),
		signalClassification: agent.NewMessage(AgentID, classify.AgentID, agent.TypeClassifyText,
			classify.Request{Text: req.Query}, agent.PriorityMedium),
		signalPopularity: agent.NewMessage(AgentID, popularity.AgentID, agent.TypeAnalyzePopularity,
			popularity.Request{Books: o.catalog.All()}, agent.PriorityMedium),
	}

	type outcome struct {
		name  string
		reply agent.Message
		err   error
	}
	ch := make(chan outcome, len(dispatch))
	for name, msg := range dispatch {
		go func(name string, msg agent.Message) {
			started := time.Now()
			reply, err := o.hub.Send(fctx, msg)
			status := "ok"
			if err != nil {
				status = "degraded"
			}
			metrics.ObserveAdapter(name, status, time.Since(started))
			ch <- outcome{name: name, reply: reply, err: err}
		}(name, msg)
	}

	var set signalSet
	healthy := make(map[string]bool, len(dispatch))
	timer := time.NewTimer(o.cfg.Adapters.Timeout)
	defer timer.Stop()

join:
	for received := 0; received < len(dispatch); received++ {
		select {
		case out := <-ch:
			if out.err != nil {
				o.logger.Warn().Err(out.err).Str("signal", out.name).Msg("signal degraded")
				continue
			}
			healthy[out.name] = o.collect(&set, out.name, out.reply)
		case <-timer.C:
			break join
		}
	}

	degraded := make([]string, 0, len(dispatch))
	for name := range dispatch {
		if !healthy[name] {
			degraded = append(degraded, name)
		}
	}
	sort.Strings(degraded)
	return set, degraded
}

// collect stores one reply into the signal set. Reports whether the
// signal is usable.
func (o *Orchestrator) collect(set *signalSet, name string, reply agent.Message) bool {
	switch name {
	case signalSearch:
		result, ok := reply.Content.(search.Result)
		if !ok || result.Degraded {
			return false
		}
		set.search = &result
		return true

	case signalClassification:
		result, ok := reply.Content.(classify.Classification)
		if !ok {
			return false
		}
		set.query = &result
		return true

	case signalPopularity:
		analysis, ok := reply.Content.(popularity.Analysis)
		if !ok {
			return false
		}
		set.popularity = make(map[string]popularity.BookScore, len(analysis.Results))
		for _, r := range analysis.Results {
			set.popularity[r.Key] = r
		}
		return true
	}
	return false
}

// assemble builds the deduplicated candidate pool from the available
// signals. Search is the primary source; popularity contributes its own
// top books so strong sellers surface even when search misses them, and
// its scores annotate every candidate. Missing signals contribute 0.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) assemble(req Request, signals signalSet) []ScoredCandidate {
	byKey := make(map[string]int)
	candidates := make([]ScoredCandidate, 0, req.Count*o.cfg.Adapters.SearchMultiplier*2)

	upsert := func(c ScoredCandidate) {
		key := c.Book.IdentityKey()
		if key == "" {
			// Not uniquely identifiable: never merged.
			candidates = append(candidates, c)
			return
		}
		if i, ok := byKey[key]; ok {
			candidates[i] = mergeCandidates(candidates[i], c)
			return
		}
		byKey[key] = len(candidates)
		candidates = append(candidates, c)
	}

	if signals.search != nil {
		for _, m := range signals.search.Matches {
			book, ok := o.catalog.Get(m.Key)
			if !ok {
				continue
			}
			upsert(ScoredCandidate{Book: book, SemanticScore: m.Score})
		}
	}

	if signals.popularity != nil {
		for _, score := range topPopular(signals.popularity, req.Count*o.cfg.Adapters.SearchMultiplier) {
			book, ok := o.catalog.Get(score.Key)
			if !ok {
				continue
			}
			upsert(ScoredCandidate{Book: book, PopularityScore: score.OverallScore})
		}

		// Annotate search-sourced candidates too.
		for i := range candidates {
			if score, ok := signals.popularity[candidates[i].Book.IdentityKey()]; ok {
				if score.OverallScore > candidates[i].PopularityScore {
					candidates[i].PopularityScore = score.OverallScore
				}
			}
		}
	}

	if signals.query != nil {
		for i := range candidates {
			if candidates[i].Book.PrimaryCategory() == signals.query.SimpleCategory {
				candidates[i].ClassificationScore = signals.query.Confidence
			}
		}
	}

	return candidates
}

// mergeCandidates merges two candidates for the same identity key: the
// richer record survives and each signal keeps its best score.
//
//nolint:gocritic // hugeParam: candidates passed by value for immutability
func mergeCandidates(a, b ScoredCandidate) ScoredCandidate {
	merged := ScoredCandidate{Book: catalog.Merge(a.Book, b.Book)}
	merged.SemanticScore = maxFloat(a.SemanticScore, b.SemanticScore)
	merged.ClassificationScore = maxFloat(a.ClassificationScore, b.ClassificationScore)
	merged.PopularityScore = maxFloat(a.PopularityScore, b.PopularityScore)
	merged.AffinityScore = maxFloat(a.AffinityScore, b.AffinityScore)
	return merged
}

// topPopular returns the n best popularity scores, ordered score
// descending then key ascending for determinism.
func topPopular(scores map[string]popularity.BookScore, n int) []popularity.BookScore {
	out := make([]popularity.BookScore, 0, len(scores))
	for _, s := range scores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OverallScore != out[j].OverallScore {
			return out[i].OverallScore > out[j].OverallScore
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// applyFilters drops candidates violating the request's hard filters.
// Filters run after deduplication so a merged record is judged on its
// combined fields.
func applyFilters(f Filters, candidates []ScoredCandidate) []ScoredCandidate {
	toneEmotion := ""
	if f.Tone != "" {
		if emotion, ok := classify.EmotionForTone(f.Tone); ok {
			toneEmotion = emotion
		}
	}

	kept := candidates[:0]
	for i := range candidates {
		book := &candidates[i].Book
		if f.Category != "" && book.PrimaryCategory() != f.Category {
			continue
		}
		if f.MinRating > 0 && book.AverageRating < f.MinRating {
			continue
		}
		if toneEmotion != "" && dominantEmotion(book.Emotions) != toneEmotion {
			continue
		}
		kept = append(kept, candidates[i])
	}
	return kept
}

// dominantEmotion returns the highest-scoring emotion, ties broken by
// label order. Empty data yields "".
func dominantEmotion(emotions map[string]float64) string {
	dominant, best := "", -1.0
	for _, label := range classify.EmotionLabels {
		if score, ok := emotions[label]; ok && score > best {
			dominant, best = label, score
		}
	}
	return dominant
}

// score computes the combined score from normalized config weights. In
// personalized mode a genre affinity term joins the sum; affinity
// lookup failures degrade to zero affinity rather than failing the
// request.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) score(ctx context.Context, req Request, candidates []ScoredCandidate) {
	ws := o.cfg.Scoring.Semantic
	wc := o.cfg.Scoring.Classification
	wp := o.cfg.Scoring.Popularity
	wa := 0.0

	var affinity map[string]float64
	if req.Mode == ModePersonalized && o.library != nil {
		wa = o.cfg.Scoring.Affinity
		var err error
		affinity, err = o.library.GenreAffinity(ctx, req.UserID)
		if err != nil {
			o.logger.Warn().Err(err).Str("user_id", req.UserID).Msg("affinity lookup failed")
			affinity = nil
		}
	}

	norm := ws + wc + wp + wa
	if norm == 0 {
		return
	}

	for i := range candidates {
		c := &candidates[i]
		if affinity != nil {
			c.AffinityScore = affinity[c.Book.PrimaryCategory()]
		}
		c.CombinedScore = (ws*c.SemanticScore + wc*c.ClassificationScore + wp*c.PopularityScore + wa*c.AffinityScore) / norm
	}
}

// rank orders candidates deterministically: combined score descending,
// ratings count descending, then title ascending.
func rank(candidates []ScoredCandidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		if a.Book.RatingsCount != b.Book.RatingsCount {
			return a.Book.RatingsCount > b.Book.RatingsCount
		}
		return a.Book.Title < b.Book.Title
	})
}

// recordHistory appends the query to the user's search history, best
// effort.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (o *Orchestrator) recordHistory(ctx context.Context, req Request, logger zerolog.Logger) {
	if o.library == nil {
		return
	}
	if err := o.library.RecordSearch(ctx, req.UserID, req.Query); err != nil {
		logger.Warn().Err(err).Msg("history record failed")
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
