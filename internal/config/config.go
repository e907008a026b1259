// Copyright 2024 LatentFS Authors
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

// Package config loads the compiled-in defaults and applies environment
// variable overrides, the same layered shape LatentFS's global settings
// used (YAML defaults, env-var escape hatches read once at startup).
package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Settings holds every tunable of the mount core.
type Settings struct {
	MemLimitPerEntry    int64    `yaml:"mem_limit_per_entry"`
	MemBudgetTotal      int64    `yaml:"mem_budget_total"`
	LogLevel            string   `yaml:"log_level"`
	NFSPortRangeStart   int      `yaml:"nfs_port_range_start"`
	NFSPortRangeEnd     int      `yaml:"nfs_port_range_end"`
	ExecutableExtensions []string `yaml:"executable_extensions"`
}

// Load parses the compiled-in defaults and applies SIMPLEZIPDRIVE_*
// environment variable overrides.
func Load() (*Settings, error) {
	s := &Settings{}
	if err := yaml.Unmarshal(defaultsYAML, s); err != nil {
		return nil, err
	}
	applyEnvOverrides(s)
	return s, nil
}

func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("SIMPLEZIPDRIVE_MEM_LIMIT_PER_ENTRY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.MemLimitPerEntry = n
		}
	}
	if v := os.Getenv("SIMPLEZIPDRIVE_MEM_BUDGET_TOTAL"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.MemBudgetTotal = n
		}
	}
	if v := os.Getenv("SIMPLEZIPDRIVE_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv("SIMPLEZIPDRIVE_EXECUTABLE_EXTENSIONS"); v != "" {
		s.ExecutableExtensions = strings.Split(v, ",")
	}
}

// IsExecutableExtension reports whether ext (including the leading dot,
// any case) is in the configured executable-extension set.
func (s *Settings) IsExecutableExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range s.ExecutableExtensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
