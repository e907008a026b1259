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
	"sync"

	"simplezipdrive/internal/entrycache"
)

// HandleID is the type for kernel-bridge-facing handles.
type HandleID uint64

// handleState tracks a handle's position in Created -> Open -> Drained
// -> Closed. Cleanup moves Open to Drained but does not release the
// byte source, because some kernel bridges issue a final read between
// cleanup and close.
type handleState int

const (
	stateOpen handleState = iota
	stateDrained
	stateClosed
)

// openHandle represents one open handle: either a directory (no byte
// source) or a file backed by an entrycache.Source.
type openHandle struct {
	path   string
	isDir  bool
	state  handleState
	source entrycache.Source // nil for directory handles
	dirPos int                // ReadDir pagination cursor
}

// HandleManager manages the lifecycle of every open handle for one
// mount.
type HandleManager struct {
	mu         sync.RWMutex
	handles    map[HandleID]*openHandle
	nextHandle HandleID
}

// NewHandleManager creates an empty handle manager.
func NewHandleManager() *HandleManager {
	return &HandleManager{
		handles:    make(map[HandleID]*openHandle),
		nextHandle: 1,
	}
}

// AllocateDir creates a handle for a directory at path.
func (hm *HandleManager) AllocateDir(path string) HandleID {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	h := hm.nextHandle
	hm.nextHandle++
	hm.handles[h] = &openHandle{path: path, isDir: true}
	return h
}

// AllocateFile creates a handle for a file at path, attaching source as
// its byte source.
func (hm *HandleManager) AllocateFile(path string, source entrycache.Source) HandleID {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	h := hm.nextHandle
	hm.nextHandle++
	hm.handles[h] = &openHandle{path: path, isDir: false, source: source}
	return h
}

// Get retrieves a handle's record. The returned pointer must not be
// retained past the caller's current dispatcher call.
func (hm *HandleManager) Get(h HandleID) (*openHandle, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	info, ok := hm.handles[h]
	return info, ok
}

// Cleanup marks the handle drained without releasing its byte source.
// It is idempotent.
func (hm *HandleManager) Cleanup(h HandleID) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	if info, ok := hm.handles[h]; ok && info.state == stateOpen {
		info.state = stateDrained
	}
}

// Close releases the handle's byte source (if any) and removes the
// handle entirely. Safe to call on an already-closed or unknown handle.
func (hm *HandleManager) Close(h HandleID) {
	hm.mu.Lock()
	info, ok := hm.handles[h]
	if ok {
		delete(hm.handles, h)
	}
	hm.mu.Unlock()

	if ok && info.source != nil {
		info.source.Close()
	}
}

// UpdateDirPos updates the directory enumeration cursor for a directory
// handle.
func (hm *HandleManager) UpdateDirPos(h HandleID, pos int) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	if info, ok := hm.handles[h]; ok {
		info.dirPos = pos
	}
}

// GetDirPos returns the directory enumeration cursor for a directory
// handle.
func (hm *HandleManager) GetDirPos(h HandleID) int {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	if info, ok := hm.handles[h]; ok {
		return info.dirPos
	}
	return 0
}

// Clear force-closes every outstanding handle, releasing their byte
// sources, and returns the count cleared.
func (hm *HandleManager) Clear() int {
	hm.mu.Lock()
	handles := hm.handles
	hm.handles = make(map[HandleID]*openHandle)
	hm.mu.Unlock()

	for _, info := range handles {
		if info.source != nil {
			info.source.Close()
		}
	}
	return len(handles)
}
