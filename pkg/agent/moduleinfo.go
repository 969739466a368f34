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

// ModuleInfoAgent answers questions about the book's software modules:
// ROS 2, Gazebo, Isaac, and VLA pipelines.
type ModuleInfoAgent struct{ base }

// NewModuleInfoAgent builds the module-info domain agent.
func NewModuleInfoAgent(r *retrieval.Skill, p llm.Provider) *ModuleInfoAgent {
	return &ModuleInfoAgent{newBase(
		"module_info",
		bookrag.DomainModuleInfo,
		"Explains the book's software modules: ROS 2, Gazebo, Isaac, and VLA pipelines.",
		[]string{"ros 2", "gazebo", "isaac", "vla", "module"},
		[]string{`\bhow does\b`, `\bexplain\b`},
		`Your domain is the book's software modules. When a question spans more than one module, `+
			`state the span up front and cover each module in order. When explaining an advanced concept, `+
			`reference the prerequisite concepts it builds on.`,
		r, p,
	)}
}

var _ Agent = (*ModuleInfoAgent)(nil)
