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

import "fmt"

// LoggerConfig configures the process-wide structured logger.
//
// Values come from the config file's logger section (after ${VAR}
// expansion); unset fields take the defaults (info level, simple format,
// stderr). No LOG_* environment variable is read directly.
type LoggerConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level,omitempty" mapstructure:"level"`

	// File is a log file path. Empty means stderr.
	File string `yaml:"file,omitempty" mapstructure:"file"`

	// Format is "simple" or "verbose". Default: simple.
	Format string `yaml:"format,omitempty" mapstructure:"format"`
}

// SetDefaults applies default values to LoggerConfig.
func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// Validate checks the logger configuration.
func (c *LoggerConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if c.Level != "" && !validLevels[c.Level] {
		return fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", c.Level)
	}
	return nil
}
