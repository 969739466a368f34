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

// Package embedder converts text to vector embeddings for semantic
// search, behind a single interface with interchangeable providers.
package embedder

import "context"

// Embedder produces vector embeddings from text.
type Embedder interface {
	// Embed converts a single piece of text to a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding vector width this provider
	// produces. retrieval.New checks that this matches the configured
	// collection at startup, when the vector store reports a dimension.
	Dimension() int

	// Model returns the model name in use, for logging.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}
