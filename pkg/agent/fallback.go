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

package agent

import (
	"github.com/kadirpekel/bookrag/pkg/bookrag"
	"github.com/kadirpekel/bookrag/pkg/llm"
	"github.com/kadirpekel/bookrag/pkg/retrieval"
)

// FallbackAgent is the book-wide default: it searches without a domain
// filter and is selected only when the router escalates, never by its
// own confidence.
type FallbackAgent struct{ base }

// NewFallbackAgent builds the fallback book agent.
func NewFallbackAgent(r *retrieval.Skill, p llm.Provider) *FallbackAgent {
	return &FallbackAgent{newBase(
		"book",
		bookrag.DomainGeneral,
		"Answers general questions about the book when no specific domain agent is a confident match.",
		[]string{"book", "chapter", "overview", "general"},
		nil,
		`Your domain is the whole book. Search broadly and answer whatever the passages support.`,
		r, p,
	)}
}

// CanHandle always returns 0, so the router only reaches this agent
// through the no-match fallback path, never by competing on keywords.
func (f *FallbackAgent) CanHandle(query string) float32 { return 0.0 }

var _ Agent = (*FallbackAgent)(nil)
