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

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kadirpekel/bookrag/pkg/httpclient"
)

// AnthropicConfig configures the Anthropic Messages API provider.
type AnthropicConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
}

// AnthropicProvider implements Provider against the Anthropic Messages
// API, streaming over raw HTTP and server-sent events.
type AnthropicProvider struct {
	client    *httpclient.Client
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
}

// NewAnthropicProvider creates an Anthropic-backed Provider.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: Anthropic API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return &AnthropicProvider{
		client:    httpclient.New(httpclient.WithRetryStrategy(httpclient.DefaultStrategy)),
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Stream      bool               `json:"stream"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicStreamEvent struct {
	Type  string          `json:"type"`
	Delta *anthropicDelta `json:"delta"`
}

type anthropicErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateStreaming streams a chat completion from the Anthropic API.
func (p *AnthropicProvider) GenerateStreaming(ctx context.Context, systemPrompt string, history []Message, userPrompt string) (<-chan StreamChunk, error) {
	messages := make([]anthropicMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, anthropicMessage{Role: "user", Content: userPrompt})

	reqBody, err := json.Marshal(anthropicRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: 0,
		Stream:      true,
		System:      systemPrompt,
		Messages:    messages,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("llm: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: Anthropic request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		var parsed anthropicErrorResponse
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Message != "" {
			return nil, fmt.Errorf("llm: Anthropic returned status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("llm: Anthropic returned status %d: %s", resp.StatusCode, raw)
	}

	out := make(chan StreamChunk, streamChannelBufferSize)

	go func() {
		defer resp.Body.Close()
		defer close(out)

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")

			var event anthropicStreamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				continue
			}

			switch event.Type {
			case "content_block_delta":
				if event.Delta != nil && event.Delta.Text != "" {
					out <- StreamChunk{Type: "text", Text: event.Delta.Text}
				}
			case "message_stop":
				out <- StreamChunk{Type: "done"}
				return
			}
		}
		if err := scanner.Err(); err != nil {
			out <- StreamChunk{Type: "error", Error: fmt.Errorf("llm: failed to read stream: %w", err)}
			return
		}
		out <- StreamChunk{Type: "done"}
	}()

	return out, nil
}

// Model returns the configured model name.
func (p *AnthropicProvider) Model() string { return p.model }

// Close is a no-op; the underlying HTTP client needs no teardown.
func (p *AnthropicProvider) Close() error { return nil }

var _ Provider = (*AnthropicProvider)(nil)
