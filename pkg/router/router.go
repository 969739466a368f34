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

// Package router implements the Query Router: it scores every
// registered agent against a query, picks a primary and zero or more
// secondaries, and decides whether the answer needs multi-agent
// synthesis.
package router

import (
	"sort"
	"strings"

	"github.com/kadirpekel/bookrag/pkg/agent"
	"github.com/kadirpekel/bookrag/pkg/bookrag"
)

const (
	DefaultConfidenceThreshold = 0.3
	DefaultSecondaryTopK       = 2
)

// priorityOrder breaks ties among equal top scores. Agents not listed
// (the fallback) never compete for primary/secondary selection.
var priorityOrder = map[string]int{
	"glossary":    0,
	"hardware":    1,
	"module_info": 2,
	"capstone":    3,
}

// Config tunes the router's selection thresholds.
type Config struct {
	ConfidenceThreshold float32
	SecondaryTopK       int
}

func (c Config) withDefaults() Config {
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.SecondaryTopK <= 0 {
		c.SecondaryTopK = DefaultSecondaryTopK
	}
	return c
}

// Router scores registered agents and produces route decisions.
type Router struct {
	registry *agent.Registry
	cfg      Config
}

// New builds a Router over reg. Route does not panic when reg has no
// fallback set: a query below the confidence threshold then yields a
// RouteResult with an empty PrimaryAgent.
func New(reg *agent.Registry, cfg Config) *Router {
	return &Router{registry: reg, cfg: cfg.withDefaults()}
}

type scored struct {
	a     agent.Agent
	score float32
}

// Route scores every non-fallback agent against query and returns the
// route decision. It is deterministic: identical input yields identical
// output, since can_handle is pure and tie-breaking uses a fixed order.
func (r *Router) Route(query string) bookrag.RouteResult {
	fallback, _ := r.registry.Fallback()
	var candidates []scored
	for _, a := range r.registry.List() {
		if fallback != nil && a.Name() == fallback.Name() {
			continue
		}
		candidates = append(candidates, scored{a: a, score: a.CanHandle(query)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return rank(candidates[i].a.Name()) < rank(candidates[j].a.Name())
	})

	var top float32
	if len(candidates) > 0 {
		top = candidates[0].score
	}

	if top < r.cfg.ConfidenceThreshold {
		primary := ""
		if fallback != nil {
			primary = fallback.Name()
		}
		return bookrag.RouteResult{
			PrimaryAgent:  primary,
			Confidence:    top,
			RoutingReason: "no-match",
			IsMultiDomain: false,
		}
	}

	primary := candidates[0]
	limit := len(candidates)
	if limit > 3 {
		limit = 3
	}

	var secondaries []string
	for _, c := range candidates[1:limit] {
		if c.score >= r.cfg.ConfidenceThreshold {
			secondaries = append(secondaries, c.a.Name())
		}
	}
	if len(secondaries) > r.cfg.SecondaryTopK {
		secondaries = secondaries[:r.cfg.SecondaryTopK]
	}

	return bookrag.RouteResult{
		PrimaryAgent:    primary.a.Name(),
		SecondaryAgents: secondaries,
		Confidence:      primary.score,
		RoutingReason:   "confident-match",
		IsMultiDomain:   len(secondaries) > 0,
	}
}

// RoutePreview is Route exposed as a named, side-effect-free operation
// for clients that want to inspect routing without executing an agent.
func (r *Router) RoutePreview(query string) bookrag.RouteResult {
	return r.Route(query)
}

func rank(name string) int {
	if p, ok := priorityOrder[name]; ok {
		return p
	}
	return len(priorityOrder)
}

// SubQuery derives the scoped query passed to a secondary agent: the
// original query restricted to tokens matching the secondary's
// keywords, falling back to the full query if nothing matches.
func SubQuery(query string, secondary agent.Agent) string {
	tokens := strings.Fields(query)
	var kept []string
	for _, tok := range tokens {
		lower := strings.ToLower(strings.Trim(tok, ".,?!:;"))
		for _, kw := range secondary.Keywords() {
			if strings.Contains(lower, strings.ToLower(kw)) || strings.Contains(strings.ToLower(kw), lower) {
				kept = append(kept, tok)
				break
			}
		}
	}
	if len(kept) == 0 {
		return query
	}
	return strings.Join(kept, " ")
}
