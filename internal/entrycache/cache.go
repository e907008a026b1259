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

// Package entrycache materializes archive entries into seekable byte
// sources, routing each entry to an in-memory buffer or a temp file on
// disk according to its size and the live memory budget.
//
// Design Principles (matching the VFS cache layer this was modeled on):
// 1. Fine-grained ownership - each cached entry's memory is reclaimed
//    exactly once, on its last handle's close.
// 2. Single layer ownership - the cache is the only place that creates
//    entry temp files in the session temp directory or takes the
//    archive decoder's lock.
package entrycache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"simplezipdrive/internal/archive"
	"simplezipdrive/internal/logging"
	"simplezipdrive/internal/retryutil"
	"simplezipdrive/internal/status"
)

var log = logging.For("cache")

// Disabled forces every entry to the disk tier, bypassing the memory
// budget entirely. Set via SIMPLEZIPDRIVE_CACHE=disk for testing and
// debugging, mirroring the env-var cache bypass this was modeled on.
var Disabled = os.Getenv("SIMPLEZIPDRIVE_CACHE") == "disk"

// Source is a seekable byte source attached to a handle. Close releases
// whatever resource backs it (decrementing the memory budget for a
// memory-tier source; disk-tier sources are left on disk for reuse by
// other handles and are only deleted at cache Dispose).
type Source interface {
	io.ReaderAt
	Size() int64
	Close() error
}

// Cache is the Hybrid Entry Cache: it owns the session temp directory,
// the disk-cache table, and the live memory-budget accounting.
type Cache struct {
	dec        archive.Decoder
	decoderMu  sync.Mutex // serialises all calls into dec (not concurrency-safe)
	memLimit   int64      // entries >= this size always go to the disk tier
	memBudget  int64      // total live memory-cache budget
	liveMemory int64      // atomic counter of currently-live memory-tier bytes

	tempDir string

	diskMu    sync.Mutex
	diskFiles map[string]string // canonical path -> temp file path
}

// New constructs a Cache backed by dec, with the session temp directory
// tempDir (already created by the caller).
func New(dec archive.Decoder, memLimit, memBudget int64, tempDir string) *Cache {
	return &Cache{
		dec:       dec,
		memLimit:  memLimit,
		memBudget: memBudget,
		tempDir:   tempDir,
		diskFiles: make(map[string]string),
	}
}

// Materialize returns a Source for entry e at canonical path p, routing
// to the memory or disk tier per the sizing rule in the design.
func (c *Cache) Materialize(p string, e *archive.EntryMeta) (Source, error) {
	if !Disabled && e.Size >= 0 && e.Size < c.memLimit {
		if atomic.LoadInt64(&c.liveMemory)+e.Size <= c.memBudget {
			if src, ok := c.tryMemoryTier(p, e); ok {
				return src, nil
			}
		}
	}
	return c.diskTier(p, e)
}

func (c *Cache) tryMemoryTier(p string, e *archive.EntryMeta) (Source, bool) {
	c.decoderMu.Lock()
	defer c.decoderMu.Unlock()

	// Re-check under the lock: budget may have been consumed by a
	// concurrent materialize between the atomic load above and now.
	if atomic.LoadInt64(&c.liveMemory)+e.Size > c.memBudget {
		return nil, false
	}

	r, err := e.Open()
	if err != nil {
		return nil, false
	}
	defer r.Close()

	buf, err := io.ReadAll(r)
	if err != nil {
		log.WithField("path", p).WithError(err).Warn("memory-tier extraction failed, falling back to disk")
		return nil, false
	}

	atomic.AddInt64(&c.liveMemory, int64(len(buf)))
	return &memorySource{cache: c, data: buf}, true
}

func (c *Cache) diskTier(p string, e *archive.EntryMeta) (Source, error) {
	c.diskMu.Lock()
	existing, ok := c.diskFiles[p]
	c.diskMu.Unlock()

	if ok {
		f, err := os.Open(existing)
		if err != nil {
			return nil, status.New(status.KindSourceIO, "open-disk-cache", p, err)
		}
		return &diskSource{file: f, size: e.Size}, nil
	}

	c.decoderMu.Lock()
	defer c.decoderMu.Unlock()

	// Re-check after acquiring the decoder lock: a concurrent caller
	// may have finished extracting while we waited.
	c.diskMu.Lock()
	existing, ok = c.diskFiles[p]
	c.diskMu.Unlock()
	if ok {
		f, err := os.Open(existing)
		if err != nil {
			return nil, status.New(status.KindSourceIO, "open-disk-cache", p, err)
		}
		return &diskSource{file: f, size: e.Size}, nil
	}

	if e.Size >= 0 {
		free, err := retryutil.RetryWithResult(context.Background(), func() (int64, error) {
			n, err := diskFreeBytes(c.tempDir)
			if err != nil {
				return 0, status.New(status.KindSourceIO, "statfs", c.tempDir, err)
			}
			return n, nil
		})
		if err == nil && free < e.Size {
			return nil, status.New(status.KindDiskFull, "extract", p, fmt.Errorf("need %d bytes, %d free", e.Size, free))
		}
	}

	tmp, err := os.CreateTemp(c.tempDir, "entry-*.tmp")
	if err != nil {
		return nil, status.New(status.KindSourceIO, "create-temp", p, err)
	}

	r, err := e.Open()
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, status.New(status.KindSourceIO, "open-entry", p, err)
	}
	defer r.Close()

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, status.New(status.KindSourceIO, "extract", p, err)
	}

	c.diskMu.Lock()
	c.diskFiles[p] = tmp.Name()
	c.diskMu.Unlock()

	size := n
	if e.Size >= 0 {
		size = e.Size
	}
	return &diskSource{file: tmp, size: size}, nil
}

// Dispose deletes every temp file created by the disk tier. The memory
// tier needs no disposal: its buffers are owned by handles and freed as
// those handles close.
func (c *Cache) Dispose() {
	c.diskMu.Lock()
	defer c.diskMu.Unlock()
	for p, path := range c.diskFiles {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.WithField("path", p).WithError(err).Warn("failed to remove disk-cache temp file")
		}
	}
	c.diskFiles = make(map[string]string)
}

// LiveMemory returns the currently-live memory-tier byte count, for
// tests and diagnostics.
func (c *Cache) LiveMemory() int64 {
	return atomic.LoadInt64(&c.liveMemory)
}

type memorySource struct {
	cache  *Cache
	data   []byte
	closed int32
}

func (m *memorySource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.data)) {
		if off == int64(len(m.data)) {
			return 0, io.EOF
		}
		return 0, status.New(status.KindInvalidParameter, "read", "", fmt.Errorf("offset %d out of range", off))
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memorySource) Size() int64 { return int64(len(m.data)) }

func (m *memorySource) Close() error {
	if atomic.CompareAndSwapInt32(&m.closed, 0, 1) {
		atomic.AddInt64(&m.cache.liveMemory, -int64(len(m.data)))
	}
	return nil
}

type diskSource struct {
	file *os.File
	size int64
}

func (d *diskSource) ReadAt(p []byte, off int64) (int, error) {
	return d.file.ReadAt(p, off)
}

func (d *diskSource) Size() int64 { return d.size }

func (d *diskSource) Close() error { return d.file.Close() }

// OpenFileSource wraps an arbitrary file on disk (such as an
// execredirect extraction) as a Source. Unlike a disk-tier Source, its
// size comes from a live stat rather than the archive entry's declared
// size, since an extracted executable's backing file is independent of
// the entry cache's bookkeeping.
func OpenFileSource(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, status.New(status.KindSourceIO, "open-extracted", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, status.New(status.KindSourceIO, "stat-extracted", path, err)
	}
	return &diskSource{file: f, size: info.Size()}, nil
}

// NewSessionTempDir creates a per-mount temp directory under the host's
// temp root, qualified by pid and a random token so concurrent mounts
// of different archives never collide.
func NewSessionTempDir(token string) (string, error) {
	dir := filepath.Join(os.TempDir(), "SimpleZipDrive", fmt.Sprintf("%d_%s", os.Getpid(), token))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
