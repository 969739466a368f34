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

// Package retrieval implements the Vector Retrieval Skill: domain-filtered
// nearest-neighbor search over chunk embeddings, with single-flight
// coalescing of concurrent identical requests.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kadirpekel/bookrag/pkg/bookrag"
	"github.com/kadirpekel/bookrag/pkg/embedder"
	"github.com/kadirpekel/bookrag/pkg/vector"
)

const (
	DefaultLimit = 5
	MaxLimit     = 20
)

// Config bounds the skill's request parameters.
type Config struct {
	Collection   string
	DefaultLimit int
	MaxLimit     int
	ScoreFloor   float32
}

// Skill performs domain-filtered nearest-neighbor search, embedding the
// query once per distinct request and sharing the downstream round trip
// across concurrent callers asking the same question.
type Skill struct {
	embedder embedder.Embedder
	store    vector.Provider
	cfg      Config
	metrics  *Metrics

	group singleflight.Group
}

// New builds a Skill and verifies, at startup, that the embedder's
// dimension matches the vector store collection's. A mismatch is a fatal
// startup error per the retrieval contract.
func New(ctx context.Context, e embedder.Embedder, store vector.Provider, cfg Config, metrics *Metrics) (*Skill, error) {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}

	storeDim, err := store.Dimension(ctx, cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("retrieval: failed to read collection dimension: %w", err)
	}
	if storeDim != 0 && storeDim != e.Dimension() {
		return nil, fmt.Errorf("retrieval: embedding dimension %d does not match collection %q dimension %d", e.Dimension(), cfg.Collection, storeDim)
	}

	return &Skill{embedder: e, store: store, cfg: cfg, metrics: metrics}, nil
}

// Request is one retrieval call's parameters.
type Request struct {
	Query        string
	DomainFilter bookrag.Domain
	Limit        int
	ScoreFloor   float32

	// Expand asks the skill to additionally search up to two
	// keyword-anchored reformulations of Query and merge the results by
	// score, sharpening recall for short or stopword-heavy queries.
	Expand bool
}

func normalizeKey(req Request) string {
	query := strings.ToLower(strings.Join(strings.Fields(req.Query), " "))
	return fmt.Sprintf("%s|%s|%d|%.3f", query, req.DomainFilter, req.Limit, req.ScoreFloor)
}

// Search returns the top-K passages for req, ordered by descending score.
// Concurrent calls sharing the same normalized (query, domain_filter,
// limit, score_floor) key share one downstream round trip.
func (s *Skill) Search(ctx context.Context, req Request) ([]bookrag.RetrievedPassage, error) {
	if req.Limit <= 0 {
		req.Limit = s.cfg.DefaultLimit
	}
	if req.Limit > s.cfg.MaxLimit {
		req.Limit = s.cfg.MaxLimit
	}
	if req.ScoreFloor <= 0 {
		req.ScoreFloor = s.cfg.ScoreFloor
	}

	if req.Expand {
		return s.searchExpanded(ctx, req)
	}

	key := normalizeKey(req)
	start := time.Now()

	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		return s.search(ctx, req)
	})

	if s.metrics != nil {
		s.metrics.RecordSearch(time.Since(start), err == nil, shared)
	}

	if err != nil {
		return nil, bookrag.NewError(bookrag.KindRetrievalUnavailable, "retrieval", "search", "vector search failed", err)
	}
	return v.([]bookrag.RetrievedPassage), nil
}

func (s *Skill) search(ctx context.Context, req Request) ([]bookrag.RetrievedPassage, error) {
	vec, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	filter := map[string]string{}
	if req.DomainFilter != "" {
		filter["domain"] = string(req.DomainFilter)
	}

	results, err := s.store.Search(ctx, s.cfg.Collection, vec, req.Limit, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	passages := make([]bookrag.RetrievedPassage, 0, len(results))
	for rank, r := range results {
		if r.Score < req.ScoreFloor {
			continue
		}
		passages = append(passages, bookrag.RetrievedPassage{
			Chunk: chunkFromMetadata(r.ID, r.Metadata),
			Score: r.Score,
			Rank:  rank,
		})
	}
	return passages, nil
}

// searchExpanded runs req plus up to two keyword-anchored reformulations
// of its query, merges the results by chunk, keeping each chunk's best
// score, and truncates back to req.Limit. Each variant still goes
// through Search, so it benefits from single-flight coalescing on its
// own normalized key.
func (s *Skill) searchExpanded(ctx context.Context, req Request) ([]bookrag.RetrievedPassage, error) {
	limit := req.Limit
	queries := append([]string{req.Query}, reformulate(req.Query)...)

	merged := make(map[string]bookrag.RetrievedPassage)
	for _, q := range queries {
		sub := req
		sub.Query = q
		sub.Expand = false

		passages, err := s.Search(ctx, sub)
		if err != nil {
			return nil, err
		}
		for _, p := range passages {
			if existing, ok := merged[p.ChunkID]; !ok || p.Score > existing.Score {
				merged[p.ChunkID] = p
			}
		}
	}

	out := make([]bookrag.RetrievedPassage, 0, len(merged))
	for _, p := range merged {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i
	}
	return out, nil
}

// stopwords are excluded when picking anchor words for reformulation;
// they carry no retrieval signal on their own.
var stopwords = map[string]bool{
	"what": true, "when": true, "where": true, "which": true, "who": true,
	"how": true, "why": true, "does": true, "do": true, "did": true,
	"is": true, "are": true, "was": true, "were": true, "the": true,
	"a": true, "an": true, "of": true, "in": true, "on": true, "for": true,
	"to": true, "and": true, "or": true, "with": true, "about": true,
	"this": true, "that": true, "these": true, "those": true, "its": true,
}

// reformulate derives up to two keyword-anchored reformulations of
// query: the first and last content words (non-stopwords longer than
// three characters), each standing alone as its own search query.
// Returns nil if query has fewer than two distinct content words.
func reformulate(query string) []string {
	var content []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(query) {
		trimmed := strings.ToLower(strings.Trim(w, ".,?!:;\"'()"))
		if len(trimmed) <= 3 || stopwords[trimmed] || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		content = append(content, trimmed)
	}
	if len(content) < 2 {
		return nil
	}
	return []string{content[0], content[len(content)-1]}
}

func chunkFromMetadata(id string, md map[string]any) bookrag.Chunk {
	str := func(key string) string {
		v, _ := md[key].(string)
		return v
	}
	return bookrag.Chunk{
		ChunkID:    id,
		DocumentID: str("document_id"),
		Text:       str("text"),
		Source:     str("source"),
		Title:      str("title"),
		Section:    str("section"),
		Domain:     bookrag.Domain(str("domain")),
	}
}

// CheckHealth verifies that the configured collection is reachable by
// asking the vector store for its dimension; the embedder is not called.
// Intended for a startup or liveness probe, not the request path.
func (s *Skill) CheckHealth(ctx context.Context) error {
	if _, err := s.store.Dimension(ctx, s.cfg.Collection); err != nil {
		return bookrag.NewError(bookrag.KindRetrievalUnavailable, "retrieval", "health_check", "vector store unreachable", err)
	}
	return nil
}

// Close releases the embedder and vector store.
func (s *Skill) Close() error {
	embedErr := s.embedder.Close()
	storeErr := s.store.Close()
	if embedErr != nil {
		return embedErr
	}
	return storeErr
}
