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

// Package vector abstracts nearest-neighbor search over chunk embeddings
// behind a single Provider interface, backed by interchangeable drivers
// (Qdrant, Pinecone, chromem-go).
package vector

import "context"

// Result is one nearest-neighbor match returned by a Provider.
//
// Metadata carries the payload schema the core depends on: "text",
// "source", "title", "section", "domain". A missing "domain" key means
// the chunk is untagged and only retrievable by an unfiltered search.
type Result struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// Provider performs cosine-similarity nearest-neighbor search over a
// named collection of chunk embeddings, optionally restricted by an
// equality filter on payload fields (used here to restrict by domain).
type Provider interface {
	// Name identifies the backend for logging and metrics.
	Name() string

	// Search returns up to topK nearest neighbors of vector, ordered by
	// descending score, honoring filter as an equality match on payload
	// keys. A nil or empty filter searches the whole collection.
	Search(ctx context.Context, collection string, vector []float32, topK int, filter map[string]string) ([]Result, error)

	// Dimension reports the vector width this backend's collection was
	// created with, when known. Returns 0 if the backend cannot report
	// it; retrieval.New then skips its dimension check.
	Dimension(ctx context.Context, collection string) (int, error)

	// Close releases any held connections.
	Close() error
}
