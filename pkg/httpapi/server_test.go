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

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kadirpekel/bookrag/pkg/agent"
	"github.com/kadirpekel/bookrag/pkg/llm"
	"github.com/kadirpekel/bookrag/pkg/pipeline"
	"github.com/kadirpekel/bookrag/pkg/retrieval"
	"github.com/kadirpekel/bookrag/pkg/router"
	"github.com/kadirpekel/bookrag/pkg/session"
	"github.com/kadirpekel/bookrag/pkg/vector"
)

type fakeEmbedder struct{ dimension int }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, f.dimension), nil
}
func (f *fakeEmbedder) Dimension() int { return f.dimension }
func (f *fakeEmbedder) Model() string  { return "fake" }
func (f *fakeEmbedder) Close() error   { return nil }

type fakeVectorStore struct{ dimension int }

func (f *fakeVectorStore) Name() string { return "fake" }
func (f *fakeVectorStore) Dimension(ctx context.Context, collection string) (int, error) {
	return f.dimension, nil
}
func (f *fakeVectorStore) Search(ctx context.Context, collection string, vec []float32, topK int, filter map[string]string) ([]vector.Result, error) {
	return nil, nil
}
func (f *fakeVectorStore) Close() error { return nil }

type fakeLLM struct{}

func (f *fakeLLM) GenerateStreaming(ctx context.Context, systemPrompt string, history []llm.Message, userPrompt string) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk, 2)
	ch <- llm.StreamChunk{Type: "text", Text: "hello"}
	ch <- llm.StreamChunk{Type: "done"}
	close(ch)
	return ch, nil
}
func (f *fakeLLM) Model() string { return "fake" }
func (f *fakeLLM) Close() error  { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	retr, err := retrieval.New(context.Background(),
		&fakeEmbedder{dimension: 4}, &fakeVectorStore{dimension: 4},
		retrieval.Config{Collection: "book"}, retrieval.NewMetrics(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("retrieval.New() error = %v", err)
	}

	provider := &fakeLLM{}
	reg := agent.NewRegistry()
	for _, a := range []agent.Agent{
		agent.NewGlossaryAgent(retr, provider),
		agent.NewFallbackAgent(retr, provider),
	} {
		if err := reg.Register(a); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	if err := reg.SetFallback("book"); err != nil {
		t.Fatalf("SetFallback() error = %v", err)
	}

	r := router.New(reg, router.Config{})
	store := session.NewMemoryStore(session.DefaultWindow)
	p := pipeline.New(reg, r, store, pipeline.Config{})
	return New(p, reg, []string{"*"})
}

func TestHandleListAgents(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/chatbot/agents", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body agentListResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if body.Total != 2 {
		t.Errorf("Total = %d, want 2", body.Total)
	}
}

func TestHandleGetAgentNotFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/chatbot/agents/nonexistent", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleRoutePreview(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(routeRequest{Query: "what is the definition of a register?"})
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/chat/route", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp routeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if resp.PrimaryAgent != "glossary" {
		t.Errorf("PrimaryAgent = %q, want glossary", resp.PrimaryAgent)
	}
}

func TestHandleChatStreamEmitsSSEEvents(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(chatRequest{Query: "what is the definition of a register?"})
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/chat/stream", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if !strings.Contains(rec.Body.String(), "data: ") {
		t.Error("body does not contain SSE data lines")
	}
	if !strings.Contains(rec.Body.String(), `"type":"end"`) {
		t.Error("body missing terminal end event")
	}
}

func TestHandleChatStreamRejectsEmptyQuery(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(chatRequest{Query: ""})
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/chat/stream", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), `"type":"error"`) {
		t.Error("body missing error event for empty query")
	}
}
