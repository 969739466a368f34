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

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/kadirpekel/bookrag/pkg/httpclient"
)

// OllamaConfig configures the local Ollama embeddings provider.
type OllamaConfig struct {
	Host      string `yaml:"host,omitempty"`
	Model     string `yaml:"model,omitempty"`
	Dimension int    `yaml:"dimension,omitempty"`
}

// ollamaEmbedMu serializes all Ollama embedding requests: Ollama's llama
// runner aborts when it receives concurrent embedding requests on the
// same model.
var ollamaEmbedMu sync.Mutex

// OllamaEmbedder implements Embedder against a local Ollama server, for
// offline development without API keys.
type OllamaEmbedder struct {
	client    *httpclient.Client
	host      string
	model     string
	dimension int
}

// NewOllamaEmbedder creates an Ollama-backed embedder.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	host := cfg.Host
	if host == "" {
		host = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}
	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = 768
	}

	return &OllamaEmbedder{
		client:    httpclient.New(),
		host:      host,
		model:     model,
		dimension: dimension,
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed converts text to a vector embedding via a local Ollama server.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ollamaEmbedMu.Lock()
	defer ollamaEmbedMu.Unlock()

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embedder: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedder: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedder: Ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedder: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedder: Ollama returned status %d: %s", resp.StatusCode, raw)
	}

	var parsed ollamaEmbedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("embedder: failed to decode response: %w", err)
	}

	return parsed.Embedding, nil
}

// Dimension returns the configured embedding width.
func (e *OllamaEmbedder) Dimension() int { return e.dimension }

// Model returns the configured model name.
func (e *OllamaEmbedder) Model() string { return e.model }

// Close is a no-op; the underlying HTTP client needs no teardown.
func (e *OllamaEmbedder) Close() error { return nil }

var _ Embedder = (*OllamaEmbedder)(nil)
