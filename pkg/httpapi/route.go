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
	"net/http"
)

type routeRequest struct {
	Query string `json:"query"`
}

type routeResponse struct {
	PrimaryAgent    string   `json:"primary_agent"`
	SecondaryAgents []string `json:"secondary_agents"`
	Confidence      float32  `json:"confidence"`
	Reason          string   `json:"reason"`
	IsMultiDomain   bool     `json:"is_multi_domain"`
}

func (s *Server) handleRoutePreview(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result := s.pipeline.RoutePreview(req.Query)
	secondaries := result.SecondaryAgents
	if secondaries == nil {
		secondaries = []string{}
	}

	writeJSON(w, http.StatusOK, routeResponse{
		PrimaryAgent:    result.PrimaryAgent,
		SecondaryAgents: secondaries,
		Confidence:      result.Confidence,
		Reason:          result.RoutingReason,
		IsMultiDomain:   result.IsMultiDomain,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
