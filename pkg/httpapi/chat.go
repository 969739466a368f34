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
	"encoding/json"
	"iter"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/bookrag/pkg/bookrag"
	"github.com/kadirpekel/bookrag/pkg/obslog"
)

type chatRequest struct {
	Query        string  `json:"query"`
	SelectedText *string `json:"selected_text"`
	SessionID    string  `json:"session_id"`
}

// streamEvent is the wire shape of one SSE payload, per spec §6.1.
type streamEvent struct {
	Type      string      `json:"type"`
	Content   interface{} `json:"content"`
	SessionID string      `json:"session_id"`
	AgentUsed string      `json:"agent_used,omitempty"`
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sid := resolveSessionID(req.SessionID)
	events := s.pipeline.ChatStream(r.Context(), req.Query, sid, req.SelectedText)
	writeSSE(w, r, sid, events)
}

func (s *Server) handleAgentChat(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a, ok := s.registry.Get(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sid := resolveSessionID(req.SessionID)
	agentCtx := bookrag.AgentContext{SessionID: sid, Query: req.Query}
	if req.SelectedText != nil {
		agentCtx.SelectedText = *req.SelectedText
	}

	writeSSE(w, r, sid, a.RunStream(r.Context(), agentCtx))
}

func writeSSE(w http.ResponseWriter, r *http.Request, sessionID string, events iter.Seq[bookrag.Event]) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for ev := range events {
		payload := toWireEvent(sessionID, ev)
		data, err := json.Marshal(payload)
		if err != nil {
			obslog.GetLogger().Error("failed to marshal stream event", "error", err)
			return
		}
		if _, err := w.Write([]byte("data: ")); err != nil {
			return
		}
		if _, err := w.Write(data); err != nil {
			return
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return
		}
		flusher.Flush()

		if ev.Type == bookrag.EventEnd || ev.Type == bookrag.EventError {
			return
		}

		select {
		case <-r.Context().Done():
			return
		default:
		}
	}
}

func toWireEvent(sessionID string, ev bookrag.Event) streamEvent {
	out := streamEvent{Type: string(ev.Type), SessionID: sessionID, AgentUsed: ev.AgentName}
	switch ev.Type {
	case bookrag.EventText:
		out.Content = ev.Text
	case bookrag.EventError:
		out.Content = ev.Message
	case bookrag.EventSource:
		out.Content = ev.Citation
	case bookrag.EventEnd:
		out.Content = ""
	}
	return out
}
