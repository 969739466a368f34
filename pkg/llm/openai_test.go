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
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewOpenAIProviderRequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIProvider(OpenAIConfig{}); err == nil {
		t.Fatal("expected error when API key is empty")
	}
}

func TestNewOpenAIProviderDefaults(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}
	if p.Model() != "gpt-4o-mini" {
		t.Errorf("Model() = %v, want gpt-4o-mini", p.Model())
	}
}

func TestOpenAIProviderGenerateStreaming(t *testing.T) {
	events := []string{
		`{"choices":[{"delta":{"content":"Reg"}}]}`,
		`{"choices":[{"delta":{"content":"isters"}}]}`,
		`[DONE]`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization header = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, e := range events {
			fmt.Fprintf(w, "data: %s\n\n", e)
		}
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}

	ch, err := p.GenerateStreaming(context.Background(), "system", nil, "what is a register?")
	if err != nil {
		t.Fatalf("GenerateStreaming() error = %v", err)
	}

	var text strings.Builder
	var sawDone bool
	for chunk := range ch {
		switch chunk.Type {
		case "text":
			text.WriteString(chunk.Text)
		case "done":
			sawDone = true
		case "error":
			t.Fatalf("unexpected error chunk: %v", chunk.Error)
		}
	}

	if !sawDone {
		t.Error("expected a done chunk")
	}
	if got := text.String(); got != "Registers" {
		t.Errorf("streamed text = %q, want %q", got, "Registers")
	}
}

func TestOpenAIProviderGenerateStreamingHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}

	if _, err := p.GenerateStreaming(context.Background(), "system", nil, "query"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
