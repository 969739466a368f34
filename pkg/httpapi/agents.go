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
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/bookrag/pkg/agent"
)

type agentSummary struct {
	Name        string   `json:"name"`
	Domain      string   `json:"domain"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

type agentListResponse struct {
	Agents []agentSummary `json:"agents"`
	Total  int            `json:"total"`
}

func summarize(a agent.Agent) agentSummary {
	return agentSummary{
		Name:        a.Name(),
		Domain:      string(a.Domain()),
		Description: a.Description(),
		Keywords:    a.Keywords(),
	}
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents := s.registry.List()
	summaries := make([]agentSummary, 0, len(agents))
	for _, a := range agents {
		summaries = append(summaries, summarize(a))
	}
	writeJSON(w, http.StatusOK, agentListResponse{Agents: summaries, Total: len(summaries)})
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a, ok := s.registry.Get(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, summarize(a))
}
