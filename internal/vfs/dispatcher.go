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

// Package vfs implements the filesystem core: the namespace view, the
// handle state machine, and the callback dispatcher that a kernel
// bridge adapter drives.
package vfs

import (
	"simplezipdrive/internal/archive"
	"simplezipdrive/internal/config"
	"simplezipdrive/internal/entrycache"
	"simplezipdrive/internal/execredirect"
	"simplezipdrive/internal/logging"
	"simplezipdrive/internal/pathutil"
	"simplezipdrive/internal/status"
)

var log = logging.For("dispatch")

// CreationDisposition mirrors the kernel bridge's create-file semantics.
type CreationDisposition int

const (
	DispositionOpen CreationDisposition = iota
	DispositionOpenOrCreate
	DispositionCreate
	DispositionCreateNew
	DispositionTruncate
	DispositionAppend
)

// AccessIntent is the subset of a create-file access mask the
// dispatcher and the executable redirector care about.
type AccessIntent = execredirect.AccessIntent

// Dispatcher implements the filesystem callback surface consumed by a
// kernel bridge adapter. Every mutating operation returns AccessDenied.
type Dispatcher struct {
	idx       *archive.Index
	ns        *Namespace
	cache     *entrycache.Cache
	redirect  *execredirect.Redirector
	settings  *config.Settings
	handles   *HandleManager
}

// NewDispatcher wires the namespace, entry cache, executable redirector
// and handle manager into one dispatcher.
func NewDispatcher(idx *archive.Index, cache *entrycache.Cache, redirect *execredirect.Redirector, settings *config.Settings) *Dispatcher {
	return &Dispatcher{
		idx:      idx,
		ns:       NewNamespace(idx),
		cache:    cache,
		redirect: redirect,
		settings: settings,
		handles:  NewHandleManager(),
	}
}

// Create implements the kernel bridge's create-file callback.
func (d *Dispatcher) Create(path string, disp CreationDisposition, access AccessIntent) (HandleID, status.Code) {
	p := pathutil.Normalize(path)

	if d.idx.IsDirectory(p) {
		switch disp {
		case DispositionCreateNew:
			return 0, status.FileExists
		case DispositionTruncate, DispositionAppend:
			return 0, status.AccessDenied
		}
		if access.ReadData || access.ExecuteData {
			return 0, status.AccessDenied
		}
		return d.handles.AllocateDir(p), status.Success
	}

	e, ok := d.idx.Lookup(p)
	if !ok {
		return 0, status.PathNotFound
	}

	switch disp {
	case DispositionCreateNew:
		return 0, status.FileExists
	case DispositionTruncate, DispositionAppend:
		return 0, status.AccessDenied
	}

	if execredirect.WantsExecution(p, d.settings, access) {
		extracted, err := d.redirect.Extract(p, e)
		if err != nil {
			log.WithField("path", p).WithError(err).Warn("executable extraction failed")
			return 0, status.CodeOf(err)
		}
		src, err := entrycache.OpenFileSource(extracted)
		if err != nil {
			return 0, status.CodeOf(err)
		}
		return d.handles.AllocateFile(p, src), status.Success
	}

	src, err := d.cache.Materialize(p, e)
	if err != nil {
		log.WithField("path", p).WithError(err).Warn("materialize failed")
		return 0, status.CodeOf(err)
	}
	return d.handles.AllocateFile(p, src), status.Success
}

// Read implements the kernel bridge's read callback.
func (d *Dispatcher) Read(h HandleID, offset int64, buf []byte) (int, status.Code) {
	info, ok := d.handles.Get(h)
	if !ok {
		return 0, status.InvalidParameter
	}
	if info.isDir {
		return 0, status.AccessDenied
	}
	if offset < 0 {
		return 0, status.InvalidParameter
	}
	if offset >= info.source.Size() {
		return 0, status.Success
	}
	n, err := info.source.ReadAt(buf, offset)
	if err != nil && n == 0 {
		return 0, status.Error
	}
	return n, status.Success
}

// GetAttrs implements the kernel bridge's get-file-info callback.
func (d *Dispatcher) GetAttrs(path string) (Attrs, status.Code) {
	attrs, ok := d.ns.GetAttrs(path)
	if !ok {
		return Attrs{}, status.PathNotFound
	}
	return attrs, status.Success
}

// List implements directory enumeration.
func (d *Dispatcher) List(path string) ([]Entry, status.Code) {
	p := pathutil.Normalize(path)
	if !d.idx.IsDirectory(p) {
		return nil, status.PathNotFound
	}
	return d.ns.List(p), status.Success
}

// ListPattern implements pattern-filtered directory enumeration.
func (d *Dispatcher) ListPattern(path, pattern string) ([]Entry, status.Code) {
	p := pathutil.Normalize(path)
	if !d.idx.IsDirectory(p) {
		return nil, status.PathNotFound
	}
	return d.ns.ListPattern(p, pattern), status.Success
}

// VolumeInfo implements the volume-information callback.
func (d *Dispatcher) VolumeInfo() VolumeInfo {
	return d.ns.VolumeInfo()
}

// FreeSpace implements the free-space callback.
func (d *Dispatcher) FreeSpace() (free, total int64) {
	return d.ns.FreeSpace()
}

// Cleanup marks a handle drained; its byte source is released at Close,
// not here, because some kernel bridges issue a final read between
// cleanup and close.
func (d *Dispatcher) Cleanup(h HandleID) {
	d.handles.Cleanup(h)
}

// Close releases a handle's byte source.
func (d *Dispatcher) Close(h HandleID) {
	d.handles.Close(h)
}

// Lock and Unlock are trivially granted: this filesystem has no locking
// semantics to enforce.
func (d *Dispatcher) Lock(HandleID, int64, int64) status.Code   { return status.Success }
func (d *Dispatcher) Unlock(HandleID, int64, int64) status.Code { return status.Success }

// The remaining callbacks are all mutating and therefore always denied.

func (d *Dispatcher) Write(HandleID, int64, []byte) (int, status.Code) {
	return 0, status.AccessDenied
}
func (d *Dispatcher) Flush(HandleID) status.Code                    { return status.AccessDenied }
func (d *Dispatcher) SetAttrs(string, Attrs) status.Code            { return status.AccessDenied }
func (d *Dispatcher) SetTime(string, Attrs) status.Code             { return status.AccessDenied }
func (d *Dispatcher) DeleteFile(string) status.Code                 { return status.AccessDenied }
func (d *Dispatcher) DeleteDirectory(string) status.Code            { return status.AccessDenied }
func (d *Dispatcher) Move(string, string, bool) status.Code         { return status.AccessDenied }
func (d *Dispatcher) SetLength(HandleID, int64) status.Code         { return status.AccessDenied }
func (d *Dispatcher) SetAllocation(HandleID, int64) status.Code     { return status.AccessDenied }
func (d *Dispatcher) SetSecurity(string, []byte) status.Code        { return status.AccessDenied }
func (d *Dispatcher) FindStreams(string) status.Code                { return status.NotImplemented }

// GetSecurity returns a descriptor granting ReadAndExecute to the world
// SID, the only security state this filesystem exposes.
func (d *Dispatcher) GetSecurity(string) WorldReadOnlyDescriptor {
	return WorldReadOnlyDescriptor{}
}

// WorldReadOnlyDescriptor is a placeholder security descriptor: owner
// and group are the world SID, with one ACE granting ReadAndExecute to
// the world SID.
type WorldReadOnlyDescriptor struct{}

// ValidatePathLength enforces the 260 / 32767 (extended-length-prefixed)
// path length limits described at the CLI boundary.
func ValidatePathLength(p string) status.Code {
	const standardLimit = 260
	const extendedPrefix = `\\?\`
	const extendedLimit = 32767

	if len(p) >= len(extendedPrefix) && p[:len(extendedPrefix)] == extendedPrefix {
		if len(p) > extendedLimit {
			return status.Error
		}
		return status.Success
	}
	if len(p) > standardLimit {
		return status.Error
	}
	return status.Success
}
