// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package agent defines the uniform contract every domain agent answers
// to, and the five concrete agents (glossary, hardware, module info,
// capstone, and the book-wide fallback).
package agent

import (
	"context"
	"iter"

	"github.com/kadirpekel/bookrag/pkg/bookrag"
)

// Agent answers a query scoped to a single domain.
type Agent interface {
	// Name is the agent's unique, lowercase snake-case identifier.
	Name() string

	// Domain is the closed-set tag this agent searches and presents itself
	// under.
	Domain() bookrag.Domain

	// Description is a short human-readable summary, returned by agent
	// introspection endpoints.
	Description() string

	// Keywords is the vocabulary CanHandle scores against. An agent must
	// declare at least three.
	Keywords() []string

	// CanHandle scores how well this agent fits query, in [0,1].
	// Deterministic, pure, no I/O — this is the only CPU-bound path and
	// must run in microseconds.
	CanHandle(query string) float32

	// Run performs retrieval, composes the prompt, and collects the full
	// completion into a single AgentResponse.
	Run(ctx context.Context, agentCtx bookrag.AgentContext) (bookrag.AgentResponse, error)

	// RunStream produces a finite, non-restartable sequence of events. A
	// well-formed caller stops at the first End or Error event; RunStream
	// guarantees exactly one of those is the last event yielded.
	RunStream(ctx context.Context, agentCtx bookrag.AgentContext) iter.Seq[bookrag.Event]
}

// minKeywords is the invariant every concrete agent's keyword set must
// satisfy.
const minKeywords = 3
