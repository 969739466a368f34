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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("Logger.Level = %q, want info", cfg.Logger.Level)
	}
	if cfg.Router.ConfidenceThreshold == 0 {
		t.Error("Router.ConfidenceThreshold not defaulted")
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("BOOKRAG_TEST_LEVEL", "debug")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "logger:\n  level: ${BOOKRAG_TEST_LEVEL}\nrouter:\n  confidence_threshold: 0.4\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q, want debug", cfg.Logger.Level)
	}
	if cfg.Router.ConfidenceThreshold != 0.4 {
		t.Errorf("Router.ConfidenceThreshold = %v, want 0.4", cfg.Router.ConfidenceThreshold)
	}
}

func TestValidateRejectsInvertedTimeouts(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	cfg.Agent.SoftTimeoutSeconds = 40
	cfg.Agent.HardTimeoutSeconds = 30

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject soft timeout exceeding hard timeout")
	}
}

func TestValidateRejectsBadConfidenceThreshold(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	cfg.Router.ConfidenceThreshold = 1.5

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject confidence_threshold outside [0,1]")
	}
}
