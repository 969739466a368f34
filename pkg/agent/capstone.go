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

// CapstoneAgent answers questions about the book's humanoid capstone
// project.
type CapstoneAgent struct{ base }

// NewCapstoneAgent builds the capstone domain agent.
func NewCapstoneAgent(r *retrieval.Skill, p llm.Provider) *CapstoneAgent {
	return &CapstoneAgent{newBase(
		"capstone",
		bookrag.DomainCapstone,
		"Covers the book's capstone project: a voice-commanded humanoid manipulation pipeline.",
		[]string{"capstone", "project", "humanoid", "voice command", "manipulation", "whisper"},
		[]string{`\bmilestone\b`},
		`Your domain is the capstone project. When a question is about the pipeline as a whole, `+
			`cover its stages in order: voice, plan, navigate, manipulate. When listing milestones, `+
			`list them in the order the book presents them.`,
		r, p,
	)}
}

var _ Agent = (*CapstoneAgent)(nil)
