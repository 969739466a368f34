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

package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/kadirpekel/bookrag/pkg/bookrag"
)

func TestMemoryStoreGetHistoryEmpty(t *testing.T) {
	s := NewMemoryStore(DefaultWindow)

	history, err := s.GetHistory("unknown-session", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 0 {
		t.Errorf("GetHistory() returned %d messages, want 0", len(history))
	}
}

func TestMemoryStoreWindowEviction(t *testing.T) {
	s := NewMemoryStore(3)

	for i := 0; i < 5; i++ {
		msg := bookrag.SessionMessage{Role: bookrag.RoleUser, Content: fmt.Sprintf("msg-%d", i)}
		if err := s.SaveMessage("sess-1", msg); err != nil {
			t.Fatalf("SaveMessage() error = %v", err)
		}
	}

	history, err := s.GetHistory("sess-1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("GetHistory() returned %d messages, want 3", len(history))
	}

	want := []string{"msg-2", "msg-3", "msg-4"}
	for i, m := range history {
		if m.Content != want[i] {
			t.Errorf("history[%d].Content = %q, want %q", i, m.Content, want[i])
		}
	}
}

func TestMemoryStoreConcurrentWritesKeepAllMessages(t *testing.T) {
	s := NewMemoryStore(100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = s.SaveMessage("sess-concurrent", bookrag.SessionMessage{
				Role:    bookrag.RoleUser,
				Content: fmt.Sprintf("msg-%d", n),
			})
		}(i)
	}
	wg.Wait()

	history, err := s.GetHistory("sess-concurrent", 100)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 50 {
		t.Errorf("GetHistory() returned %d messages, want 50", len(history))
	}
}

func TestMemoryStoreIsolatesSessions(t *testing.T) {
	s := NewMemoryStore(DefaultWindow)

	_ = s.SaveMessage("sess-a", bookrag.SessionMessage{Role: bookrag.RoleUser, Content: "a"})
	_ = s.SaveMessage("sess-b", bookrag.SessionMessage{Role: bookrag.RoleUser, Content: "b"})

	historyA, _ := s.GetHistory("sess-a", 10)
	historyB, _ := s.GetHistory("sess-b", 10)

	if len(historyA) != 1 || historyA[0].Content != "a" {
		t.Errorf("sess-a history = %+v", historyA)
	}
	if len(historyB) != 1 || historyB[0].Content != "b" {
		t.Errorf("sess-b history = %+v", historyB)
	}
}
