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

// Package archive defines the decoder abstraction the catalog is built
// against, plus the three concrete adapters (zip, 7z, rar) that satisfy
// it.
package archive

import (
	"io"
	"time"
)

// EntryMeta describes one entry as reported by a Decoder, prior to any
// canonical-path processing.
type EntryMeta struct {
	// Key is the entry's raw path as stored in the archive (may use
	// backslashes, may or may not carry a trailing slash for dirs).
	Key string
	// IsDir is true when the decoder itself flags the entry as a
	// directory (as opposed to inferring it from a trailing slash).
	IsDir       bool
	Size        int64 // -1 when unknown
	ModTime     time.Time
	Encrypted   bool
	open        func() (io.ReadCloser, error)
}

// NewEntryMeta constructs an EntryMeta directly. It exists for decoder
// adapters and tests that need to build an EntryMeta without going
// through a real archive decoder.
func NewEntryMeta(key string, isDir bool, size int64, modTime time.Time, encrypted bool, open func() (io.ReadCloser, error)) *EntryMeta {
	return &EntryMeta{Key: key, IsDir: isDir, Size: size, ModTime: modTime, Encrypted: encrypted, open: open}
}

// Open returns a forward-only stream over this entry's decompressed
// bytes. Callers must Close it. Each call may re-read the archive from
// the start of the entry; concurrent calls are not safe unless the
// caller serialises them (the entry cache does this).
func (e *EntryMeta) Open() (io.ReadCloser, error) {
	return e.open()
}

// Decoder is the abstraction the Archive Index is built against. A
// concrete decoder owns the archive's raw byte stream and enumerates
// its entries exactly once.
type Decoder interface {
	// Entries returns every entry in the archive, in whatever order
	// the underlying format stores them.
	Entries() ([]*EntryMeta, error)
	// Close releases any resources (open file handles) held by the
	// decoder. Streams that read lazily from the archive file (zip, 7z)
	// stop working once it is closed; rar entries are held in memory.
	Close() error
}

// PasswordProvider is consulted when a Decoder reports that the archive
// (or one of its entries) requires a password. It returns the password
// to try, or ok=false to abandon the attempt.
type PasswordProvider func() (password string, ok bool)

// NeedsPassword is returned by Open when the archive is encrypted and
// no password (or the wrong one) was supplied.
type NeedsPassword struct{ Err error }

func (e *NeedsPassword) Error() string { return "archive requires a password: " + e.Err.Error() }
func (e *NeedsPassword) Unwrap() error { return e.Err }
