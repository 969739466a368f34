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

package embedder

import "fmt"

// Config selects and configures one Embedder implementation.
type Config struct {
	// Provider is one of "openai", "ollama".
	Provider string `yaml:"provider"`

	OpenAI OpenAIConfig `yaml:"openai,omitempty"`
	Ollama OllamaConfig `yaml:"ollama,omitempty"`
}

// New builds the configured Embedder.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaEmbedder(cfg.Ollama), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.OpenAI)
	default:
		return nil, fmt.Errorf("embedder: unknown provider %q", cfg.Provider)
	}
}
