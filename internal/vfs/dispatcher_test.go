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

package vfs

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplezipdrive/internal/archive"
	"simplezipdrive/internal/config"
	"simplezipdrive/internal/entrycache"
	"simplezipdrive/internal/execredirect"
	"simplezipdrive/internal/status"
)

type fakeDecoder struct{ entries []*archive.EntryMeta }

func (f *fakeDecoder) Entries() ([]*archive.EntryMeta, error) { return f.entries, nil }
func (f *fakeDecoder) Close() error                           { return nil }

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	entries := []*archive.EntryMeta{
		archive.NewEntryMeta("readme.txt", false, 13, time.Unix(1700000000, 0), false, func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte("Hello, world!"))), nil
		}),
		archive.NewEntryMeta("a/b/c.dat", false, 3, time.Unix(1700000000, 0), false, func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte("abc"))), nil
		}),
	}
	idx, err := archive.BuildIndex(&fakeDecoder{entries: entries}, 1000)
	require.NoError(t, err)

	dir := t.TempDir()
	cache := entrycache.New(nil, 512*1024*1024, 1024*1024*1024, dir)
	redirect, err := execredirect.New(dir)
	require.NoError(t, err)
	settings, err := config.Load()
	require.NoError(t, err)

	return NewDispatcher(idx, cache, redirect, settings)
}

func TestCreateAndReadFile(t *testing.T) {
	d := newDispatcher(t)

	h, code := d.Create("/readme.txt", DispositionOpen, AccessIntent{ReadData: true})
	require.Equal(t, status.Success, code)

	buf := make([]byte, 100)
	n, code := d.Read(h, 0, buf)
	require.Equal(t, status.Success, code)
	assert.Equal(t, "Hello, world!", string(buf[:n]))

	n, code = d.Read(h, 7, buf)
	require.Equal(t, status.Success, code)
	assert.Equal(t, "world!", string(buf[:n]))

	d.Cleanup(h)
	d.Close(h)
}

func TestCreatePathNotFound(t *testing.T) {
	d := newDispatcher(t)
	_, code := d.Create("/nope.txt", DispositionOpen, AccessIntent{})
	assert.Equal(t, status.PathNotFound, code)
}

func TestCreateNewOnExistingFails(t *testing.T) {
	d := newDispatcher(t)
	_, code := d.Create("/readme.txt", DispositionCreateNew, AccessIntent{})
	assert.Equal(t, status.FileExists, code)
}

func TestDirectoryRejectsDataAccess(t *testing.T) {
	d := newDispatcher(t)
	_, code := d.Create("/a", DispositionOpen, AccessIntent{ReadData: true})
	assert.Equal(t, status.AccessDenied, code)
}

func TestSynthesizedDirectoryListing(t *testing.T) {
	d := newDispatcher(t)
	entries, code := d.List("/a")
	require.Equal(t, status.Success, code)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Name)
	assert.True(t, entries[0].Attrs.IsDir)
}

func TestMutatingOperationsAlwaysDenied(t *testing.T) {
	d := newDispatcher(t)
	assert.Equal(t, status.AccessDenied, d.DeleteFile("/readme.txt"))
	assert.Equal(t, status.AccessDenied, d.DeleteDirectory("/a"))
	assert.Equal(t, status.AccessDenied, d.Move("/readme.txt", "/x.txt", false))
	assert.Equal(t, status.AccessDenied, d.SetAttrs("/readme.txt", Attrs{}))
	_, code := d.Write(1, 0, []byte("x"))
	assert.Equal(t, status.AccessDenied, code)
}

func TestReadPastEndOfFileReturnsZero(t *testing.T) {
	d := newDispatcher(t)
	h, _ := d.Create("/a/b/c.dat", DispositionOpen, AccessIntent{ReadData: true})
	buf := make([]byte, 10)
	n, code := d.Read(h, 100, buf)
	assert.Equal(t, status.Success, code)
	assert.Equal(t, 0, n)
}

func TestValidatePathLength(t *testing.T) {
	assert.Equal(t, status.Success, ValidatePathLength("/short.txt"))
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	assert.Equal(t, status.Error, ValidatePathLength("/"+string(long)))
}
