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

package entrycache

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplezipdrive/internal/archive"
)

func entryFromString(data string) *archive.EntryMeta {
	return archive.NewEntryMeta("test", false, int64(len(data)), time.Time{}, false, func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte(data))), nil
	})
}

func TestMaterializeSmallEntryUsesMemoryTier(t *testing.T) {
	dir := t.TempDir()
	c := New(nil, 512*1024*1024, 1024*1024*1024, dir)

	e := entryFromString("hello cache")
	src, err := c.Materialize("/hello.txt", e)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, int64(len("hello cache")), c.LiveMemory())

	buf := make([]byte, src.Size())
	n, err := src.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello cache", string(buf[:n]))
}

func TestMaterializeReleasesMemoryOnClose(t *testing.T) {
	dir := t.TempDir()
	c := New(nil, 512*1024*1024, 1024*1024*1024, dir)

	e := entryFromString(strings.Repeat("x", 100))
	src, err := c.Materialize("/x.bin", e)
	require.NoError(t, err)
	assert.Equal(t, int64(100), c.LiveMemory())

	require.NoError(t, src.Close())
	assert.Equal(t, int64(0), c.LiveMemory())
}

func TestMaterializeOversizedEntryUsesDiskTier(t *testing.T) {
	dir := t.TempDir()
	c := New(nil, 10, 1024*1024*1024, dir) // memLimit smaller than entry

	e := entryFromString(strings.Repeat("y", 100))
	src, err := c.Materialize("/big.bin", e)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, int64(0), c.LiveMemory())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDiskTierReusesTempFileForConcurrentHandles(t *testing.T) {
	dir := t.TempDir()
	c := New(nil, 0, 0, dir) // force disk tier for everything

	e := entryFromString("shared content")
	src1, err := c.Materialize("/shared.bin", e)
	require.NoError(t, err)
	defer src1.Close()

	src2, err := c.Materialize("/shared.bin", e)
	require.NoError(t, err)
	defer src2.Close()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDisposeRemovesTempFiles(t *testing.T) {
	dir := t.TempDir()
	c := New(nil, 0, 0, dir)

	e := entryFromString("to be deleted")
	src, err := c.Materialize("/gone.bin", e)
	require.NoError(t, err)
	src.Close()

	c.Dispose()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 0)
}
