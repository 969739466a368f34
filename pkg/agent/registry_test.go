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

import "testing"

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry()
	g := NewGlossaryAgent(newTestRetrieval(t, nil), &fakeLLM{})

	if err := r.Register(g); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(g); err == nil {
		t.Error("Register() duplicate name should fail")
	}
}

func TestRegistryValidateRequiresFallback(t *testing.T) {
	r := NewRegistry()
	g := NewGlossaryAgent(newTestRetrieval(t, nil), &fakeLLM{})
	if err := r.Register(g); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := r.Validate(); err == nil {
		t.Error("Validate() should fail without a fallback set")
	}

	if err := r.SetFallback(g.Name()); err != nil {
		t.Fatalf("SetFallback() error = %v", err)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestRegistryListPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	retr := newTestRetrieval(t, nil)
	g := NewGlossaryAgent(retr, &fakeLLM{})
	h := NewHardwareAgent(retr, &fakeLLM{})

	_ = r.Register(g)
	_ = r.Register(h)

	list := r.List()
	if len(list) != 2 || list[0].Name() != "glossary" || list[1].Name() != "hardware" {
		t.Errorf("List() = %v, want [glossary hardware]", names(list))
	}
}

func names(agents []Agent) []string {
	out := make([]string, len(agents))
	for i, a := range agents {
		out[i] = a.Name()
	}
	return out
}
