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

// Package config loads and validates the process configuration: YAML
// file plus environment variable overrides, following the same
// precedence and ${VAR} expansion rules as the rest of the stack.
package config

import (
	"fmt"

	"github.com/kadirpekel/bookrag/pkg/embedder"
	"github.com/kadirpekel/bookrag/pkg/llm"
	"github.com/kadirpekel/bookrag/pkg/obstrace"
	"github.com/kadirpekel/bookrag/pkg/router"
	"github.com/kadirpekel/bookrag/pkg/session"
	"github.com/kadirpekel/bookrag/pkg/vector"
)

// RouterConfig tunes query routing.
type RouterConfig struct {
	ConfidenceThreshold float32 `yaml:"confidence_threshold,omitempty" mapstructure:"confidence_threshold"`
	SecondaryTopK       int     `yaml:"secondary_topk,omitempty" mapstructure:"secondary_topk"`
	DefaultAgent        string  `yaml:"default_agent,omitempty" mapstructure:"default_agent"`
}

func (c *RouterConfig) SetDefaults() {
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = router.DefaultConfidenceThreshold
	}
	if c.SecondaryTopK <= 0 {
		c.SecondaryTopK = router.DefaultSecondaryTopK
	}
	if c.DefaultAgent == "" {
		c.DefaultAgent = "book"
	}
}

// RetrievalConfig tunes the Vector Retrieval Skill.
type RetrievalConfig struct {
	Collection   string  `yaml:"collection,omitempty" mapstructure:"collection"`
	DefaultLimit int     `yaml:"default_limit,omitempty" mapstructure:"default_limit"`
	MaxLimit     int     `yaml:"max_limit,omitempty" mapstructure:"max_limit"`
	ScoreFloor   float32 `yaml:"score_floor,omitempty" mapstructure:"score_floor"`
}

// HistoryConfig tunes the Session Context Skill.
type HistoryConfig struct {
	Window int `yaml:"window,omitempty" mapstructure:"window"`
}

func (c *HistoryConfig) SetDefaults() {
	if c.Window <= 0 {
		c.Window = session.DefaultWindow
	}
}

// AgentConfig tunes per-agent execution limits.
type AgentConfig struct {
	SoftTimeoutSeconds int `yaml:"soft_timeout_s,omitempty" mapstructure:"soft_timeout_s"`
	HardTimeoutSeconds int `yaml:"hard_timeout_s,omitempty" mapstructure:"hard_timeout_s"`
}

func (c *AgentConfig) SetDefaults() {
	if c.SoftTimeoutSeconds <= 0 {
		c.SoftTimeoutSeconds = 20
	}
	if c.HardTimeoutSeconds <= 0 {
		c.HardTimeoutSeconds = 30
	}
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr        string   `yaml:"addr,omitempty" mapstructure:"addr"`
	CORSOrigins []string `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// Config is the full process configuration: the ambient stack (logger,
// server) plus the domain stack (vector store, embedder, LLM provider,
// session store, router, retrieval, agents).
type Config struct {
	Logger    LoggerConfig    `yaml:"logger,omitempty" mapstructure:"logger"`
	Server    ServerConfig    `yaml:"server,omitempty" mapstructure:"server"`
	Router    RouterConfig    `yaml:"router,omitempty" mapstructure:"router"`
	Retrieval RetrievalConfig `yaml:"retrieval,omitempty" mapstructure:"retrieval"`
	History   HistoryConfig   `yaml:"history,omitempty" mapstructure:"history"`
	Agent     AgentConfig     `yaml:"agent,omitempty" mapstructure:"agent"`
	Tracing   obstrace.Config `yaml:"tracing,omitempty" mapstructure:"tracing"`
	Vector    vector.Config   `yaml:"vector,omitempty" mapstructure:"vector"`
	Embedder  embedder.Config `yaml:"embedder,omitempty" mapstructure:"embedder"`
	LLM       llm.Config      `yaml:"llm,omitempty" mapstructure:"llm"`
	Session   session.Config  `yaml:"session,omitempty" mapstructure:"session"`
}

// SetDefaults fills every section's defaults. Called after loading and
// before Validate.
func (c *Config) SetDefaults() {
	c.Logger.SetDefaults()
	c.Server.SetDefaults()
	c.Router.SetDefaults()
	c.History.SetDefaults()
	c.Agent.SetDefaults()
}

// Validate checks the assembled configuration for internal consistency.
func (c *Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("config: logger: %w", err)
	}
	if c.Router.ConfidenceThreshold < 0 || c.Router.ConfidenceThreshold > 1 {
		return fmt.Errorf("config: router.confidence_threshold must be in [0,1], got %v", c.Router.ConfidenceThreshold)
	}
	if c.Retrieval.MaxLimit > 0 && c.Retrieval.DefaultLimit > c.Retrieval.MaxLimit {
		return fmt.Errorf("config: retrieval.default_limit (%d) exceeds retrieval.max_limit (%d)", c.Retrieval.DefaultLimit, c.Retrieval.MaxLimit)
	}
	if c.Agent.SoftTimeoutSeconds > c.Agent.HardTimeoutSeconds {
		return fmt.Errorf("config: agent.soft_timeout_s (%d) exceeds agent.hard_timeout_s (%d)", c.Agent.SoftTimeoutSeconds, c.Agent.HardTimeoutSeconds)
	}
	return nil
}
