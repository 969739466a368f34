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

// Package session maintains a short rolling window of chat history per
// session id, for injection into an agent's prompt.
package session

import "github.com/kadirpekel/bookrag/pkg/bookrag"

// AnonymousSessionID marks a request with no durable session: the
// pipeline neither loads nor saves history for it.
const AnonymousSessionID = "anonymous"

// DefaultWindow is the number of most recent messages retained per
// session.
const DefaultWindow = 10

// Store maintains per-session chat history. Implementations must
// serialize concurrent writes to the same session id so that final
// ordering matches acceptance order at the call site.
type Store interface {
	// GetHistory returns the last `limit` messages for sessionID, oldest
	// first. Returns an empty slice for a session with no history.
	GetHistory(sessionID string, limit int) ([]bookrag.SessionMessage, error)

	// SaveMessage appends a message to sessionID, trimming to the window
	// size at write time. A session is created lazily on first write.
	SaveMessage(sessionID string, msg bookrag.SessionMessage) error

	// Close releases any resources held by the store.
	Close() error
}
