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

// Package httpapi exposes the RAG Pipeline Orchestrator over HTTP: a
// chat/stream SSE endpoint, route preview, and agent introspection.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/kadirpekel/bookrag/pkg/agent"
	"github.com/kadirpekel/bookrag/pkg/pipeline"
)

// Server binds the pipeline and agent registry to chi routes.
type Server struct {
	pipeline    *pipeline.Pipeline
	registry    *agent.Registry
	corsOrigins []string
}

// New builds a Server.
func New(p *pipeline.Pipeline, reg *agent.Registry, corsOrigins []string) *Server {
	return &Server{pipeline: p, registry: reg, corsOrigins: corsOrigins}
}

// Router builds the chi.Router serving every endpoint in §6.1-6.3.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Route("/api/chatbot", func(r chi.Router) {
		r.Post("/chat/stream", s.handleChatStream)
		r.Post("/chat/route", s.handleRoutePreview)
		r.Get("/agents", s.handleListAgents)
		r.Get("/agents/{name}", s.handleGetAgent)
		r.Post("/agents/{name}/chat", s.handleAgentChat)
	})

	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, o := range s.corsOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func resolveSessionID(requested string) string {
	if requested == "" {
		return uuid.NewString()
	}
	return requested
}
