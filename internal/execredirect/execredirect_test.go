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

package execredirect

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplezipdrive/internal/archive"
	"simplezipdrive/internal/config"
)

func TestWantsExecution(t *testing.T) {
	settings, err := config.Load()
	require.NoError(t, err)

	assert.True(t, WantsExecution("/tool.exe", settings, AccessIntent{ExecuteData: true}))
	assert.True(t, WantsExecution("/tool.exe", settings, AccessIntent{ReadData: true}))
	assert.False(t, WantsExecution("/tool.exe", settings, AccessIntent{ReadData: true, OnlyReadMetadata: true}))
	assert.False(t, WantsExecution("/readme.txt", settings, AccessIntent{ExecuteData: true}))
}

func TestExtractCachesByPath(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir)
	require.NoError(t, err)

	e := archive.NewEntryMeta("tool.exe", false, 4, time.Time{}, false, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte("data"))), nil
	})

	p1, err := r.Extract("/tool.exe", e)
	require.NoError(t, err)
	p2, err := r.Extract("/tool.exe", e)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)

	contents, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, "data", string(contents))
	assert.Equal(t, filepath.Dir(p1), filepath.Join(dir, "Executables"))
	assert.True(t, strings.HasSuffix(p1, "_tool.exe"))
}

func TestExtractDoesNotCollideOnSameBasename(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir)
	require.NoError(t, err)

	eA := archive.NewEntryMeta("a/tool.exe", false, 1, time.Time{}, false, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte("A"))), nil
	})
	eB := archive.NewEntryMeta("b/tool.exe", false, 1, time.Time{}, false, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte("B"))), nil
	})

	pA, err := r.Extract("/a/tool.exe", eA)
	require.NoError(t, err)
	pB, err := r.Extract("/b/tool.exe", eB)
	require.NoError(t, err)

	require.NotEqual(t, pA, pB)

	contentsA, err := os.ReadFile(pA)
	require.NoError(t, err)
	contentsB, err := os.ReadFile(pB)
	require.NoError(t, err)
	assert.Equal(t, "A", string(contentsA))
	assert.Equal(t, "B", string(contentsB))
}

func TestDisposeRemovesExtractedFiles(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir)
	require.NoError(t, err)

	e := archive.NewEntryMeta("tool.exe", false, 4, time.Time{}, false, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte("data"))), nil
	})
	_, err = r.Extract("/tool.exe", e)
	require.NoError(t, err)

	require.NoError(t, r.Dispose())
	_, err = os.Stat(filepath.Join(dir, "Executables"))
	assert.True(t, os.IsNotExist(err))
}
