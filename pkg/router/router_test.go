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

package router

import (
	"context"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kadirpekel/bookrag/pkg/agent"
	"github.com/kadirpekel/bookrag/pkg/llm"
	"github.com/kadirpekel/bookrag/pkg/retrieval"
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
	ch := make(chan llm.StreamChunk)
	close(ch)
	return ch, nil
}
func (f *fakeLLM) Model() string { return "fake" }
func (f *fakeLLM) Close() error  { return nil }

func newTestRegistry(t *testing.T) *agent.Registry {
	t.Helper()
	retr, err := retrieval.New(context.Background(),
		&fakeEmbedder{dimension: 4},
		&fakeVectorStore{dimension: 4},
		retrieval.Config{Collection: "book"},
		retrieval.NewMetrics(prometheus.NewRegistry()),
	)
	if err != nil {
		t.Fatalf("retrieval.New() error = %v", err)
	}

	reg := agent.NewRegistry()
	provider := &fakeLLM{}
	agents := []agent.Agent{
		agent.NewGlossaryAgent(retr, provider),
		agent.NewHardwareAgent(retr, provider),
		agent.NewModuleInfoAgent(retr, provider),
		agent.NewCapstoneAgent(retr, provider),
		agent.NewFallbackAgent(retr, provider),
	}
	for _, a := range agents {
		if err := reg.Register(a); err != nil {
			t.Fatalf("Register(%s) error = %v", a.Name(), err)
		}
	}
	if err := reg.SetFallback("book"); err != nil {
		t.Fatalf("SetFallback() error = %v", err)
	}
	return reg
}

func TestRouteNoMatchFallsBackToDefault(t *testing.T) {
	r := New(newTestRegistry(t), Config{})
	result := r.Route("asdkjfh qwoeiru unrelated gibberish")

	if result.PrimaryAgent != "book" {
		t.Errorf("PrimaryAgent = %q, want book", result.PrimaryAgent)
	}
	if result.RoutingReason != "no-match" {
		t.Errorf("RoutingReason = %q, want no-match", result.RoutingReason)
	}
	if result.IsMultiDomain {
		t.Error("IsMultiDomain = true, want false")
	}
}

func TestRouteConfidentMatchSelectsPrimary(t *testing.T) {
	r := New(newTestRegistry(t), Config{})
	result := r.Route("What is the definition of this glossary term, and what does the acronym stand for?")

	if result.PrimaryAgent != "glossary" {
		t.Errorf("PrimaryAgent = %q, want glossary", result.PrimaryAgent)
	}
	if result.Confidence < DefaultConfidenceThreshold {
		t.Errorf("Confidence = %v, want >= %v", result.Confidence, DefaultConfidenceThreshold)
	}
}

func TestRouteTieBreaksByPriorityOrder(t *testing.T) {
	// "module" and "gpu" both surface exactly one keyword match each,
	// for module_info and hardware respectively — tied at the same score.
	r := New(newTestRegistry(t), Config{})
	result := r.Route("module gpu")

	if result.PrimaryAgent != "hardware" {
		t.Errorf("PrimaryAgent = %q, want hardware (priority tie-break)", result.PrimaryAgent)
	}
}

func TestRoutePreviewIsDeterministic(t *testing.T) {
	r := New(newTestRegistry(t), Config{})
	const q = "define a glossary term and compare two gpu workstation options"

	first := r.RoutePreview(q)
	second := r.RoutePreview(q)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("RoutePreview() not deterministic: %+v vs %+v", first, second)
	}
}

func TestSubQueryFallsBackToFullQueryWhenNoTokensMatch(t *testing.T) {
	retr, err := retrieval.New(context.Background(),
		&fakeEmbedder{dimension: 4}, &fakeVectorStore{dimension: 4},
		retrieval.Config{Collection: "book"}, retrieval.NewMetrics(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("retrieval.New() error = %v", err)
	}
	hw := agent.NewHardwareAgent(retr, &fakeLLM{})

	got := SubQuery("tell me a story", hw)
	if got != "tell me a story" {
		t.Errorf("SubQuery() = %q, want full query fallback", got)
	}

	got = SubQuery("compare the gpu and the workstation options", hw)
	if got == "" {
		t.Error("SubQuery() = empty, want matched tokens")
	}
}
