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

// HardwareAgent answers questions about workstation, edge, and sensor
// hardware.
type HardwareAgent struct{ base }

// NewHardwareAgent builds the hardware domain agent.
func NewHardwareAgent(r *retrieval.Skill, p llm.Provider) *HardwareAgent {
	return &HardwareAgent{newBase(
		"hardware",
		bookrag.DomainHardware,
		"Covers workstation, edge device, GPU, and sensor hardware choices.",
		[]string{"workstation", "edge device", "gpu", "sensor", "jetson", "lidar"},
		[]string{`\bvs\.?\b`, `compare`, `which (gpu|sensor|board)`},
		`Your domain is hardware selection and setup. When a question compares two or more options, `+
			`produce a structured pros/cons table for each option before giving your verdict.`,
		r, p,
	)}
}

var _ Agent = (*HardwareAgent)(nil)
