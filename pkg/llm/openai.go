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

	"github.com/kadirpekel/bookrag/pkg/httpclient"
)

// OpenAIConfig configures the OpenAI chat completions provider.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// OpenAIProvider implements Provider against the OpenAI chat completions
// API, streaming over raw HTTP and server-sent events.
type OpenAIProvider struct {
	client  *httpclient.Client
	apiKey  string
	baseURL string
	model   string
}

// NewOpenAIProvider creates an OpenAI-backed Provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: OpenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIProvider{
		client:  httpclient.New(httpclient.WithRetryStrategy(httpclient.DefaultStrategy)),
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
	}, nil
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	Stream      bool                `json:"stream"`
}

type openAIChatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateStreaming streams a chat completion from the OpenAI API.
func (p *OpenAIProvider) GenerateStreaming(ctx context.Context, systemPrompt string, history []Message, userPrompt string) (<-chan StreamChunk, error) {
	messages := make([]openAIChatMessage, 0, len(history)+2)
	messages = append(messages, openAIChatMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, openAIChatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, openAIChatMessage{Role: "user", Content: userPrompt})

	reqBody, err := json.Marshal(openAIChatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: 0,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("llm: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: OpenAI request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		var parsed openAIErrorResponse
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Message != "" {
			return nil, fmt.Errorf("llm: OpenAI returned status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("llm: OpenAI returned status %d: %s", resp.StatusCode, raw)
	}

	out := make(chan StreamChunk, streamChannelBufferSize)

	go func() {
		defer resp.Body.Close()
		defer close(out)

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadBytes('\n')
			if err != nil {
				if err == io.EOF {
					out <- StreamChunk{Type: "done"}
					return
				}
				out <- StreamChunk{Type: "error", Error: fmt.Errorf("llm: failed to read stream: %w", err)}
				return
			}

			line = bytes.TrimSpace(line)
			if len(line) == 0 || !bytes.HasPrefix(line, []byte("data: ")) {
				continue
			}
			data := bytes.TrimPrefix(line, []byte("data: "))
			if string(data) == "[DONE]" {
				out <- StreamChunk{Type: "done"}
				return
			}

			var chunk openAIChatStreamChunk
			if err := json.Unmarshal(data, &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if text := chunk.Choices[0].Delta.Content; text != "" {
				out <- StreamChunk{Type: "text", Text: text}
			}
		}
	}()

	return out, nil
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string { return p.model }

// Close is a no-op; the underlying HTTP client needs no teardown.
func (p *OpenAIProvider) Close() error { return nil }

var _ Provider = (*OpenAIProvider)(nil)
