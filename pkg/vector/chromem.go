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

package vector

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemConfig configures the embedded chromem-go provider.
type ChromemConfig struct {
	// PersistPath for gob-file persistence. Empty means in-memory only.
	PersistPath string `yaml:"persist_path,omitempty"`

	// Compress enables gzip compression for persistence.
	Compress bool `yaml:"compress,omitempty"`
}

// ChromemProvider implements Provider using chromem-go, an embedded,
// dependency-free vector store. It is the default for local development
// and for tests, since it needs no running service.
type ChromemProvider struct {
	db          *chromem.DB
	dimension   int
	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

// NewChromemProvider creates a new chromem-backed provider.
func NewChromemProvider(cfg ChromemConfig) (*ChromemProvider, error) {
	var db *chromem.DB
	var err error

	if cfg.PersistPath != "" {
		if _, statErr := os.Stat(cfg.PersistPath); statErr == nil {
			db, err = chromem.NewPersistentDB(cfg.PersistPath, cfg.Compress)
			if err != nil {
				return nil, fmt.Errorf("chromem: failed to load persisted db: %w", err)
			}
		} else {
			db = chromem.NewDB()
		}
	} else {
		db = chromem.NewDB()
	}

	return &ChromemProvider{db: db, collections: make(map[string]*chromem.Collection)}, nil
}

// Name returns the provider name.
func (p *ChromemProvider) Name() string {
	return "chromem"
}

// Dimension returns the dimension observed from the last vector indexed
// into any collection of this provider, or 0 if nothing has been indexed
// yet (chromem has no schema to inspect). The collection argument is not
// consulted.
func (p *ChromemProvider) Dimension(ctx context.Context, collection string) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dimension, nil
}

func (p *ChromemProvider) getCollection(name string) (*chromem.Collection, error) {
	p.mu.RLock()
	if col, ok := p.collections[name]; ok {
		p.mu.RUnlock()
		return col, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if col, ok := p.collections[name]; ok {
		return col, nil
	}

	// Identity embedding function: vectors are always pre-computed by the
	// embedder skill, so this should never be invoked.
	identity := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("chromem: embedding function invoked but vectors must be pre-computed")
	}

	col, err := p.db.GetOrCreateCollection(name, nil, identity)
	if err != nil {
		return nil, fmt.Errorf("chromem: failed to get/create collection %q: %w", name, err)
	}
	p.collections[name] = col
	return col, nil
}

// Index adds a pre-embedded chunk to the collection. Exposed for tests
// and for the bundled local-development seed command; production
// ingestion lives outside the query-handling core.
func (p *ChromemProvider) Index(ctx context.Context, collection, id string, vector []float32, metadata map[string]string) error {
	col, err := p.getCollection(collection)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.dimension = len(vector)
	p.mu.Unlock()

	doc := chromem.Document{
		ID:       id,
		Metadata: metadata,
		Embedding: vector,
	}
	return col.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU())
}

// Search finds the topK nearest neighbors of vector in collection,
// restricted to documents whose metadata matches every key in filter.
func (p *ChromemProvider) Search(ctx context.Context, collection string, vector []float32, topK int, filter map[string]string) ([]Result, error) {
	col, err := p.getCollection(collection)
	if err != nil {
		return nil, err
	}

	n := col.Count()
	if n == 0 {
		return nil, nil
	}
	if topK > n {
		topK = n
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, filter, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: query failed: %w", err)
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		metadata := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			metadata[k] = v
		}
		out = append(out, Result{ID: r.ID, Score: r.Similarity, Metadata: metadata})
	}
	return out, nil
}

// Close is a no-op; chromem-go holds no external connection.
func (p *ChromemProvider) Close() error {
	return nil
}

var _ Provider = (*ChromemProvider)(nil)
