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

package archive

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDecoder struct {
	entries []*EntryMeta
}

func (f *fakeDecoder) Entries() ([]*EntryMeta, error) { return f.entries, nil }
func (f *fakeDecoder) Close() error                   { return nil }

func newFakeEntry(key string, isDir bool, data string) *EntryMeta {
	return &EntryMeta{
		Key:     key,
		IsDir:   isDir,
		Size:    int64(len(data)),
		ModTime: time.Unix(1700000000, 0),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(data))), nil
		},
	}
}

func TestBuildIndexFlatFile(t *testing.T) {
	dec := &fakeDecoder{entries: []*EntryMeta{
		newFakeEntry("readme.txt", false, "Hello, world!"),
	}}
	idx, err := BuildIndex(dec, 100)
	require.NoError(t, err)

	children := idx.Children("/")
	require.Len(t, children, 1)
	assert.Equal(t, "readme.txt", children[0].Name)
	assert.False(t, children[0].IsDir)

	e, ok := idx.Lookup("/readme.txt")
	require.True(t, ok)
	assert.Equal(t, int64(13), e.Size)
}

func TestBuildIndexSynthesizesDirectories(t *testing.T) {
	dec := &fakeDecoder{entries: []*EntryMeta{
		newFakeEntry("a/b/c.dat", false, "0123456789"),
	}}
	idx, err := BuildIndex(dec, 100)
	require.NoError(t, err)

	assert.True(t, idx.IsDirectory("/a"))
	assert.True(t, idx.IsDirectory("/a/b"))
	assert.False(t, idx.IsDirectory("/a/b/c.dat"))

	rootChildren := idx.Children("/")
	require.Len(t, rootChildren, 1)
	assert.Equal(t, "a", rootChildren[0].Name)
	assert.True(t, rootChildren[0].IsDir)

	abChildren := idx.Children("/a/b")
	require.Len(t, abChildren, 1)
	assert.Equal(t, "c.dat", abChildren[0].Name)
}

func TestBuildIndexExplicitDirEntryPreemptsSynthesized(t *testing.T) {
	dec := &fakeDecoder{entries: []*EntryMeta{
		newFakeEntry("docs/", true, ""),
		newFakeEntry("docs/readme.txt", false, "hi"),
	}}
	idx, err := BuildIndex(dec, 100)
	require.NoError(t, err)

	assert.True(t, idx.Exists("/docs"))
	assert.True(t, idx.IsDirectory("/docs"))
	children := idx.Children("/")
	require.Len(t, children, 1)
	assert.Equal(t, "docs", children[0].Name)
}

func TestCaseInsensitiveLookup(t *testing.T) {
	dec := &fakeDecoder{entries: []*EntryMeta{
		newFakeEntry("Docs/README.txt", false, "hi"),
	}}
	idx, err := BuildIndex(dec, 100)
	require.NoError(t, err)

	// Any case permutation of an existing path must resolve to the same
	// record: Exists, Lookup and IsDirectory all fold case.
	for _, p := range []string{
		"/Docs/README.txt",
		"/docs/readme.txt",
		"/DOCS/readme.TXT",
		"/docs/README.txt",
	} {
		assert.True(t, idx.Exists(p), "Exists(%q)", p)
		e, ok := idx.Lookup(p)
		require.True(t, ok, "Lookup(%q)", p)
		assert.Equal(t, int64(2), e.Size)
	}

	for _, p := range []string{"/Docs", "/docs", "/DOCS"} {
		assert.True(t, idx.IsDirectory(p), "IsDirectory(%q)", p)
		assert.True(t, idx.Exists(p), "Exists(%q)", p)
	}

	// A synthesized directory's timestamps are reachable under any case
	// permutation too.
	lower := idx.Timestamps("/docs")
	upper := idx.Timestamps("/DOCS")
	assert.Equal(t, lower, upper)
}
