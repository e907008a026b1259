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

// Package execredirect extracts recognized-executable entries to a
// dedicated temp subdirectory with a sharing mode permissive enough for
// a host image loader to memory-map them, separate from the ordinary
// entry cache's disk tier.
package execredirect

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"simplezipdrive/internal/archive"
	"simplezipdrive/internal/config"
	"simplezipdrive/internal/status"
)

// AccessIntent describes the access mask bits relevant to deciding
// whether a create-file request wants to execute the target rather than
// merely read its bytes.
type AccessIntent struct {
	ExecuteData      bool // an explicit execute-data bit is set
	ReadData         bool
	OnlyReadMetadata bool // read-attributes/synchronize only, no data access requested
}

// WantsExecution reports whether the given access pattern on a
// recognized-executable path should route through the redirector rather
// than the ordinary entry cache.
func WantsExecution(path string, settings *config.Settings, access AccessIntent) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if !settings.IsExecutableExtension(ext) {
		return false
	}
	if access.ExecuteData {
		return true
	}
	return access.ReadData && !access.OnlyReadMetadata
}

// Redirector extracts executable entries into a dedicated subdirectory
// of the session temp directory and caches the extraction per canonical
// path so repeated execution requests reuse the same file.
type Redirector struct {
	dir string

	mu       sync.Mutex
	byPath   map[string]string // canonical path -> extracted file path
}

// New creates the dedicated executables subdirectory under sessionTempDir.
func New(sessionTempDir string) (*Redirector, error) {
	dir := filepath.Join(sessionTempDir, "Executables")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Redirector{dir: dir, byPath: make(map[string]string)}, nil
}

// Extract returns the path to an extracted, independently-shareable copy
// of entry e (identified by canonical path p), extracting it on first
// use.
func (r *Redirector) Extract(p string, e *archive.EntryMeta) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byPath[p]; ok {
		if _, err := os.Stat(existing); err == nil {
			return existing, nil
		}
	}

	// The destination name is a random token plus the original
	// filename, not the bare filename: two different archive paths with
	// the same basename (e.g. /a/tool.exe and /b/tool.exe) must land on
	// independent files rather than collide on one, since a later
	// Extract of the second would otherwise truncate bytes a still-open
	// handle from the first extraction may have mapped.
	_, name := filepath.Split(p)
	dst := filepath.Join(r.dir, uuid.New().String()+"_"+name)
	if err := r.extractTo(dst, e); err != nil {
		return "", err
	}
	r.byPath[p] = dst
	return dst, nil
}

func (r *Redirector) extractTo(dst string, e *archive.EntryMeta) error {
	src, err := e.Open()
	if err != nil {
		return status.New(status.KindSourceIO, "open-entry", dst, err)
	}
	defer src.Close()

	// Sharing mode: other processes (notably the host image loader)
	// must be able to open this file for read, and to delete/rename it
	// while it remains mapped. A plain O_CREATE|O_TRUNC file satisfies
	// POSIX unlink-while-open semantics; there is no separate share-mode
	// flag to request on this platform.
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return status.New(status.KindSourceIO, "create-extract", dst, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		return status.New(status.KindSourceIO, "extract", dst, err)
	}
	return nil
}

// Dispose removes the dedicated executables subdirectory and every file
// extracted into it.
func (r *Redirector) Dispose() error {
	return os.RemoveAll(r.dir)
}
