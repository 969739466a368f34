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
	"sync"

	"github.com/kadirpekel/bookrag/pkg/bookrag"
)

// sessionData holds one session's history behind its own lock, so that
// writes to distinct sessions never contend with each other.
type sessionData struct {
	mu       sync.Mutex
	messages []bookrag.SessionMessage
}

// MemoryStore is the default Store implementation: an in-memory rolling
// window, useful for anonymous sessions and for development without a
// database.
type MemoryStore struct {
	window int

	mu       sync.RWMutex
	sessions map[string]*sessionData
}

// NewMemoryStore creates an in-memory Store with the given window size.
// A window of 0 uses DefaultWindow.
func NewMemoryStore(window int) *MemoryStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryStore{
		window:   window,
		sessions: make(map[string]*sessionData),
	}
}

func (s *MemoryStore) getOrCreate(sessionID string) *sessionData {
	s.mu.RLock()
	sd, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return sd
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sd, ok := s.sessions[sessionID]; ok {
		return sd
	}
	sd = &sessionData{}
	s.sessions[sessionID] = sd
	return sd
}

// GetHistory returns the last `limit` messages for sessionID, oldest
// first.
func (s *MemoryStore) GetHistory(sessionID string, limit int) ([]bookrag.SessionMessage, error) {
	if limit <= 0 {
		limit = s.window
	}

	s.mu.RLock()
	sd, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return []bookrag.SessionMessage{}, nil
	}

	sd.mu.Lock()
	defer sd.mu.Unlock()

	start := 0
	if len(sd.messages) > limit {
		start = len(sd.messages) - limit
	}
	out := make([]bookrag.SessionMessage, len(sd.messages)-start)
	copy(out, sd.messages[start:])
	return out, nil
}

// SaveMessage appends msg to sessionID, trimming to the window size.
func (s *MemoryStore) SaveMessage(sessionID string, msg bookrag.SessionMessage) error {
	sd := s.getOrCreate(sessionID)

	sd.mu.Lock()
	defer sd.mu.Unlock()

	sd.messages = append(sd.messages, msg)
	if len(sd.messages) > s.window {
		sd.messages = sd.messages[len(sd.messages)-s.window:]
	}
	return nil
}

// Close is a no-op; the in-memory store holds no external resources.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
