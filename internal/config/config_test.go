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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(512*1024*1024), s.MemLimitPerEntry)
	assert.Equal(t, int64(1024*1024*1024), s.MemBudgetTotal)
	assert.True(t, s.IsExecutableExtension(".EXE"))
	assert.False(t, s.IsExecutableExtension(".txt"))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SIMPLEZIPDRIVE_MEM_BUDGET_TOTAL", "2048")
	t.Setenv("SIMPLEZIPDRIVE_LOG_LEVEL", "debug")
	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(2048), s.MemBudgetTotal)
	assert.Equal(t, "debug", s.LogLevel)
}
