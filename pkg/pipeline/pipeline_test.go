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

package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kadirpekel/bookrag/pkg/agent"
	"github.com/kadirpekel/bookrag/pkg/bookrag"
	"github.com/kadirpekel/bookrag/pkg/llm"
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
	return []vector.Result{
		{ID: "c1", Score: 0.9, Metadata: map[string]any{"source": "ch1.md", "text": "A register stores a value."}},
	}, nil
}
func (f *fakeVectorStore) Close() error { return nil }

type fakeLLM struct{ text string }

func (f *fakeLLM) GenerateStreaming(ctx context.Context, systemPrompt string, history []llm.Message, userPrompt string) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk, 2)
	ch <- llm.StreamChunk{Type: "text", Text: f.text}
	ch <- llm.StreamChunk{Type: "done"}
	close(ch)
	return ch, nil
}
func (f *fakeLLM) Model() string { return "fake" }
func (f *fakeLLM) Close() error  { return nil }

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	retr, err := retrieval.New(context.Background(),
		&fakeEmbedder{dimension: 4}, &fakeVectorStore{dimension: 4},
		retrieval.Config{Collection: "book"}, retrieval.NewMetrics(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("retrieval.New() error = %v", err)
	}

	provider := &fakeLLM{text: "A register stores a value [Source 1]."}
	reg := agent.NewRegistry()
	for _, a := range []agent.Agent{
		agent.NewGlossaryAgent(retr, provider),
		agent.NewHardwareAgent(retr, provider),
		agent.NewModuleInfoAgent(retr, provider),
		agent.NewCapstoneAgent(retr, provider),
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
	return New(reg, r, store, Config{})
}

func TestChatStreamRejectsEmptyQuery(t *testing.T) {
	p := newTestPipeline(t)
	var events []bookrag.Event
	for ev := range p.ChatStream(context.Background(), "", "", nil) {
		events = append(events, ev)
	}
	if len(events) != 1 || events[0].Type != bookrag.EventError {
		t.Fatalf("events = %+v, want single error event", events)
	}
}

func TestChatStreamRejectsOverlongQuery(t *testing.T) {
	p := newTestPipeline(t)
	long := strings.Repeat("a", maxQueryLen+1)
	var events []bookrag.Event
	for ev := range p.ChatStream(context.Background(), long, "", nil) {
		events = append(events, ev)
	}
	if len(events) != 1 || events[0].Type != bookrag.EventError {
		t.Fatalf("events = %+v, want single error event", events)
	}
}

func TestChatStreamHappyPathEndsWithEnd(t *testing.T) {
	p := newTestPipeline(t)
	var events []bookrag.Event
	for ev := range p.ChatStream(context.Background(), "what is the definition of a register?", "", nil) {
		events = append(events, ev)
	}

	if len(events) == 0 {
		t.Fatal("expected events")
	}
	last := events[len(events)-1]
	if last.Type != bookrag.EventEnd {
		t.Errorf("last event = %+v, want end", last)
	}
	if last.AgentName != "glossary" {
		t.Errorf("AgentName = %q, want glossary", last.AgentName)
	}
}

func TestChatStreamPersistsHistoryForNamedSession(t *testing.T) {
	p := newTestPipeline(t)
	const sid = "session-1"

	for range p.ChatStream(context.Background(), "what is the definition of a register?", sid, nil) {
	}

	history, err := p.sessions.GetHistory(sid, session.DefaultWindow)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %+v, want 2 messages (user + assistant)", history)
	}
	if history[0].Role != bookrag.RoleUser || history[1].Role != bookrag.RoleAssistant {
		t.Errorf("history roles = %v, %v", history[0].Role, history[1].Role)
	}
}

func TestChatStreamDoesNotPersistAnonymousSession(t *testing.T) {
	p := newTestPipeline(t)
	for range p.ChatStream(context.Background(), "what is the definition of a register?", session.AnonymousSessionID, nil) {
	}

	history, err := p.sessions.GetHistory(session.AnonymousSessionID, session.DefaultWindow)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %+v, want none persisted for anonymous session", history)
	}
}

func TestChatDrainsStreamIntoSingleResponse(t *testing.T) {
	p := newTestPipeline(t)
	resp, err := p.Chat(context.Background(), "what is the definition of a register?", "", nil)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Response == "" {
		t.Error("Response is empty")
	}
	if len(resp.Citations) != 1 {
		t.Errorf("Citations = %+v, want 1", resp.Citations)
	}
}

func TestChatStreamMultiDomainEmitsLeadSentence(t *testing.T) {
	p := newTestPipeline(t)
	query := "define register and compare gpu vs sensor options"

	route := p.RoutePreview(query)
	if !route.IsMultiDomain {
		t.Fatalf("RoutePreview(%q) = %+v, want a multi-domain route", query, route)
	}

	var texts []string
	for ev := range p.ChatStream(context.Background(), query, "", nil) {
		if ev.Type == bookrag.EventText {
			texts = append(texts, ev.Text)
		}
	}
	if len(texts) == 0 {
		t.Fatal("expected text events")
	}

	names := append([]string{route.PrimaryAgent}, route.SecondaryAgents...)
	var domains []string
	for _, name := range names {
		if a, ok := p.registry.Get(name); ok {
			domains = append(domains, string(a.Domain()))
		}
	}
	want := "This covers " + joinDomains(domains) + ".\n"
	if texts[0] != want {
		t.Errorf("first text event = %q, want %q", texts[0], want)
	}
}

func TestRoutePreviewMatchesRouter(t *testing.T) {
	p := newTestPipeline(t)
	result := p.RoutePreview("what is the definition of a register?")
	if result.PrimaryAgent != "glossary" {
		t.Errorf("PrimaryAgent = %q, want glossary", result.PrimaryAgent)
	}
}
