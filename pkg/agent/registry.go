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
	"fmt"
	"regexp"

	"github.com/kadirpekel/bookrag/pkg/registry"
)

var namePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Registry holds every agent available to the router, keyed by its
// lowercase snake-case name, and tracks which one is the default.
type Registry struct {
	base    *registry.BaseRegistry[Agent]
	names   []string // registration order, for deterministic tie-breaking
	fallback string
}

// NewRegistry builds an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[Agent]()}
}

// Register adds agent a under its own Name(). The name must be
// lowercase snake-case and not already registered.
func (r *Registry) Register(a Agent) error {
	name := a.Name()
	if !namePattern.MatchString(name) {
		return fmt.Errorf("agent registry: name %q must be lowercase snake_case", name)
	}
	if err := r.base.Register(name, a); err != nil {
		return fmt.Errorf("agent registry: %w", err)
	}
	r.names = append(r.names, name)
	return nil
}

// SetFallback designates the agent used when the router finds no
// confident match. It must already be registered.
func (r *Registry) SetFallback(name string) error {
	if _, ok := r.base.Get(name); !ok {
		return fmt.Errorf("agent registry: fallback agent %q is not registered", name)
	}
	r.fallback = name
	return nil
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (Agent, bool) {
	return r.base.Get(name)
}

// Fallback returns the registered default agent. The second return
// value is false if no fallback has been set or it no longer resolves.
func (r *Registry) Fallback() (Agent, bool) {
	if r.fallback == "" {
		return nil, false
	}
	return r.base.Get(r.fallback)
}

// FallbackName returns the name set by SetFallback.
func (r *Registry) FallbackName() string { return r.fallback }

// List returns every registered agent in registration order.
func (r *Registry) List() []Agent {
	out := make([]Agent, 0, len(r.names))
	for _, name := range r.names {
		if a, ok := r.base.Get(name); ok {
			out = append(out, a)
		}
	}
	return out
}

// Validate checks the invariants the pipeline depends on: at least one
// agent registered, and the fallback agent registered.
func (r *Registry) Validate() error {
	if r.base.Count() == 0 {
		return fmt.Errorf("agent registry: no agents registered")
	}
	if _, ok := r.Fallback(); !ok {
		return fmt.Errorf("agent registry: default agent %q is not registered", r.fallback)
	}
	return nil
}
