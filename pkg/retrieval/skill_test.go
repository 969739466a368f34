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

package retrieval

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kadirpekel/bookrag/pkg/vector"
)

type fakeEmbedder struct {
	dimension int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, f.dimension), nil
}
func (f *fakeEmbedder) Dimension() int { return f.dimension }
func (f *fakeEmbedder) Model() string  { return "fake" }
func (f *fakeEmbedder) Close() error   { return nil }

type fakeVectorStore struct {
	dimension int
	calls     int32
	results   []vector.Result
	delay     time.Duration
}

func (f *fakeVectorStore) Name() string { return "fake" }
func (f *fakeVectorStore) Dimension(ctx context.Context, collection string) (int, error) {
	return f.dimension, nil
}
func (f *fakeVectorStore) Search(ctx context.Context, collection string, vec []float32, topK int, filter map[string]string) ([]vector.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.results, nil
}
func (f *fakeVectorStore) Close() error { return nil }

func newTestSkill(t *testing.T, store *fakeVectorStore) *Skill {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	s, err := New(context.Background(), &fakeEmbedder{dimension: 8}, store, Config{Collection: "book"}, metrics)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestSkillRejectsDimensionMismatch(t *testing.T) {
	store := &fakeVectorStore{dimension: 16}
	metrics := NewMetrics(prometheus.NewRegistry())
	_, err := New(context.Background(), &fakeEmbedder{dimension: 8}, store, Config{Collection: "book"}, metrics)
	if err == nil {
		t.Fatal("expected a fatal error on dimension mismatch")
	}
}

func TestSkillFiltersByScoreFloor(t *testing.T) {
	store := &fakeVectorStore{
		dimension: 8,
		results: []vector.Result{
			{ID: "a", Score: 0.9, Metadata: map[string]any{"source": "ch1.md"}},
			{ID: "b", Score: 0.1, Metadata: map[string]any{"source": "ch2.md"}},
		},
	}
	s := newTestSkill(t, store)

	passages, err := s.Search(context.Background(), Request{Query: "what is a gpio pin", ScoreFloor: 0.5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(passages) != 1 || passages[0].ChunkID != "a" {
		t.Errorf("Search() = %+v, want only passage a", passages)
	}
}

func TestSkillExpandMergesReformulatedQueries(t *testing.T) {
	store := &fakeVectorStore{
		dimension: 8,
		results: []vector.Result{
			{ID: "a", Score: 0.9, Metadata: map[string]any{"source": "ch1.md"}},
			{ID: "b", Score: 0.8, Metadata: map[string]any{"source": "ch2.md"}},
		},
	}
	s := newTestSkill(t, store)

	passages, err := s.Search(context.Background(), Request{Query: "compare workstation gpu options", Expand: true})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("Search() = %+v, want 2 deduplicated passages", passages)
	}
	if calls := atomic.LoadInt32(&store.calls); calls != 3 {
		t.Errorf("vector store called %d times, want 3 (original + 2 reformulations)", calls)
	}
}

func TestReformulateSkipsShortQueries(t *testing.T) {
	if got := reformulate("what is it"); got != nil {
		t.Errorf("reformulate(%q) = %v, want nil", "what is it", got)
	}
}

func TestSkillCoalescesConcurrentIdenticalRequests(t *testing.T) {
	store := &fakeVectorStore{
		dimension: 8,
		delay:     20 * time.Millisecond,
		results:   []vector.Result{{ID: "a", Score: 0.9, Metadata: map[string]any{"source": "ch1.md"}}},
	}
	s := newTestSkill(t, store)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Search(context.Background(), Request{Query: "  What Is A GPIO Pin  "})
			if err != nil {
				t.Errorf("Search() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if calls := atomic.LoadInt32(&store.calls); calls != 1 {
		t.Errorf("vector store called %d times, want 1 (single-flight should coalesce)", calls)
	}
}
