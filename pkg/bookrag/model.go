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

// Package bookrag holds the shared data model and error taxonomy used
// across the query-handling core: the router, the five domain agents, the
// retrieval and citation skills, and the pipeline orchestrator.
package bookrag

import "time"

// Domain is one of the closed set of book domains a chunk or agent can
// be tagged with.
type Domain string

const (
	DomainGlossary   Domain = "glossary"
	DomainHardware   Domain = "hardware"
	DomainModuleInfo Domain = "module_info"
	DomainCapstone   Domain = "capstone"
	DomainGeneral    Domain = "general"
)

// Chunk is a unit of ingested book content. Produced by external
// ingestion; read-only to the query-handling core.
type Chunk struct {
	ChunkID    string
	DocumentID string
	Text       string
	Source     string
	Title      string
	Section    string
	Domain     Domain
}

// RetrievedPassage is a Chunk ranked by similarity to a query. Lives only
// for the duration of one agent invocation.
type RetrievedPassage struct {
	Chunk
	Score float32 // cosine similarity, [0,1]
	Rank  int     // 0-based position in the ranked result
}

// Citation is a stable, numbered reference into the passages used to
// compose an answer. Referenced in the answer stream as "[Source N]".
type Citation struct {
	Index          int // 1-based, dense within one answer
	Source         string
	Title          string
	Section        string
	RelevanceScore float32
}

// MessageRole distinguishes user turns from assistant turns in session
// history.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// SessionMessage is one turn of a session's chat history.
type SessionMessage struct {
	Role      MessageRole
	Content   string
	Timestamp time.Time
	AgentName string // set on assistant turns
}

// AgentContext is the immutable input bundle passed to an agent for one
// invocation.
type AgentContext struct {
	SessionID    string // uuid, or the literal "anonymous"
	Query        string // validated to 1..2000 chars before an agent runs
	History      []SessionMessage
	SelectedText string // optional, 10..2000 chars when present
	DomainFilter Domain // optional; empty means unrestricted
	Metadata     map[string]string
}

// RouteResult is the router's decision for one query.
type RouteResult struct {
	PrimaryAgent    string
	SecondaryAgents []string
	Confidence      float32
	RoutingReason   string
	IsMultiDomain   bool
}

// AgentResponse is the value an agent run produces on completion.
type AgentResponse struct {
	Response   string
	Citations  []Citation
	AgentName  string
	Confidence float32
	Metadata   map[string]string
}

// EventType enumerates the four kinds of events a running agent or the
// multi-agent synthesizer can emit. A stream always ends with exactly one
// of End or Error.
type EventType string

const (
	EventText   EventType = "text"
	EventSource EventType = "source"
	EventEnd    EventType = "end"
	EventError  EventType = "error"
)

// Event is one item of an agent's or the pipeline's run_stream sequence.
type Event struct {
	Type      EventType
	Text      string   // set when Type == EventText
	Citation  Citation // set when Type == EventSource
	Message   string   // set when Type == EventError
	AgentName string   // set on EventEnd, and on every EventText for attribution
}
