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

import "fmt"

// Config selects and configures one Provider implementation.
type Config struct {
	// Provider is one of "qdrant", "pinecone", "chromem".
	Provider string `yaml:"provider"`

	Qdrant   QdrantConfig   `yaml:"qdrant,omitempty"`
	Pinecone PineconeConfig `yaml:"pinecone,omitempty"`
	Chromem  ChromemConfig  `yaml:"chromem,omitempty"`
}

// New builds the configured Provider.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", "chromem":
		return NewChromemProvider(cfg.Chromem)
	case "qdrant":
		return NewQdrantProvider(cfg.Qdrant)
	case "pinecone":
		return NewPineconeProvider(cfg.Pinecone)
	default:
		return nil, fmt.Errorf("vector: unknown provider %q", cfg.Provider)
	}
}
