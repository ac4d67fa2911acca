// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

// Package recommend synthesizes book recommendations from independent
// analysis signals.
//
// The orchestrator is the only concurrent stage: it fans one message
// per signal (semantic search, query classification, popularity) out
// through the agent hub and joins them under a bounded deadline. Late
// or failed signals degrade to zero scores instead of failing the
// request. Everything after the join is synchronous and deterministic:
// candidate assembly, identity-key deduplication, hard filtering,
// weighted scoring, ordering, and the fairness audit.
//
// Quota admission runs before any dispatch, so a rejected request
// consumes no adapter work.
package recommend
