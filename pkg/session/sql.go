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
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/kadirpekel/bookrag/pkg/bookrag"
)

const createSessionMessagesTableSQL = `
CREATE TABLE IF NOT EXISTS session_messages (
    id SERIAL PRIMARY KEY,
    session_id VARCHAR(255) NOT NULL,
    role VARCHAR(50) NOT NULL,
    content TEXT NOT NULL,
    agent_name VARCHAR(255),
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_messages_session_id ON session_messages(session_id, id);
`

// SQLStore is a write-through Store backed by PostgreSQL, for sessions
// that must survive a process restart.
type SQLStore struct {
	db     *sql.DB
	window int

	// writeMu serializes appends per session id so that concurrent writes
	// to the same session commit in acceptance order.
	writeMu sync.Map // sessionID -> *sync.Mutex
}

// NewSQLStore opens a PostgreSQL-backed Store at dsn and ensures its
// schema exists.
func NewSQLStore(dsn string, window int) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("session: dsn is required for SQL store")
	}
	if window <= 0 {
		window = DefaultWindow
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createSessionMessagesTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: failed to initialize schema: %w", err)
	}

	return &SQLStore{db: db, window: window}, nil
}

func (s *SQLStore) lockFor(sessionID string) *sync.Mutex {
	mu, _ := s.writeMu.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// GetHistory returns the last `limit` messages for sessionID, oldest
// first.
func (s *SQLStore) GetHistory(sessionID string, limit int) ([]bookrag.SessionMessage, error) {
	if limit <= 0 {
		limit = s.window
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, agent_name, created_at FROM (
			SELECT role, content, agent_name, created_at
			FROM session_messages
			WHERE session_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent ORDER BY created_at ASC`, sessionID, limit)
	if err != nil {
		return nil, bookrag.NewError(bookrag.KindSessionWriteFailure, "session", "get_history", "query failed", err)
	}
	defer rows.Close()

	var out []bookrag.SessionMessage
	for rows.Next() {
		var msg bookrag.SessionMessage
		var agentName sql.NullString
		if err := rows.Scan(&msg.Role, &msg.Content, &agentName, &msg.Timestamp); err != nil {
			return nil, bookrag.NewError(bookrag.KindSessionWriteFailure, "session", "get_history", "scan failed", err)
		}
		msg.AgentName = agentName.String
		out = append(out, msg)
	}
	if out == nil {
		out = []bookrag.SessionMessage{}
	}
	return out, rows.Err()
}

// SaveMessage appends msg to sessionID and trims the table to the window
// size for that session.
func (s *SQLStore) SaveMessage(sessionID string, msg bookrag.SessionMessage) error {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return bookrag.NewError(bookrag.KindSessionWriteFailure, "session", "save_message", "begin tx failed", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session_messages (session_id, role, content, agent_name, created_at) VALUES ($1, $2, $3, $4, $5)`,
		sessionID, msg.Role, msg.Content, nullableString(msg.AgentName), msg.Timestamp,
	); err != nil {
		return bookrag.NewError(bookrag.KindSessionWriteFailure, "session", "save_message", "insert failed", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM session_messages
		WHERE session_id = $1 AND id NOT IN (
			SELECT id FROM session_messages WHERE session_id = $1 ORDER BY id DESC LIMIT $2
		)`, sessionID, s.window,
	); err != nil {
		return bookrag.NewError(bookrag.KindSessionWriteFailure, "session", "save_message", "trim failed", err)
	}

	if err := tx.Commit(); err != nil {
		return bookrag.NewError(bookrag.KindSessionWriteFailure, "session", "save_message", "commit failed", err)
	}
	return nil
}

// Close closes the underlying database connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*SQLStore)(nil)
