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

// GlossaryAgent answers term-definition questions.
type GlossaryAgent struct{ base }

// NewGlossaryAgent builds the glossary domain agent.
func NewGlossaryAgent(r *retrieval.Skill, p llm.Provider) *GlossaryAgent {
	return &GlossaryAgent{newBase(
		"glossary",
		bookrag.DomainGlossary,
		"Defines terms and concepts used across the book.",
		[]string{"definition", "meaning", "term", "glossary", "acronym", "stands for"},
		[]string{`^\s*what is\b`, `\bdefine\b`, `meaning of`},
		`Your domain is term definitions. When a term is used in multiple modules with different nuances, `+
			`explicitly enumerate each module's usage as a separate point. When a term is not defined anywhere `+
			`in the book, answer exactly: "This term is not defined in this course."`,
		r, p,
	)}
}

var _ Agent = (*GlossaryAgent)(nil)
