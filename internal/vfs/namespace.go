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
	"time"

	"simplezipdrive/internal/archive"
	"simplezipdrive/internal/pathutil"
)

// Attrs mirrors GetFileType/GetSizeBytes/GetLastDataModificationTime: a
// VFS-shaped attribute record, but for a read-only archive-backed
// namespace rather than the overlay/source hybrid this shape was
// modeled on.
type Attrs struct {
	IsDir    bool
	Size     int64
	Created  time.Time
	Modified time.Time
	Accessed time.Time
}

// Entry is one entry returned by List: a name plus its attributes.
type Entry struct {
	Name  string
	Attrs Attrs
}

// VolumeInfo is returned by Namespace.VolumeInfo and Dispatcher.VolumeInfo.
type VolumeInfo struct {
	Label           string
	FilesystemName  string
	MaxComponentLen uint32
}

const (
	VolumeLabel    = "SimpleZipDrive"
	FilesystemName = "ZipFS"
	MaxComponent   = 255
)

// Namespace answers metadata and enumeration queries against an
// archive.Index. It holds no mutable state of its own.
type Namespace struct {
	idx *archive.Index
}

// NewNamespace wraps idx.
func NewNamespace(idx *archive.Index) *Namespace {
	return &Namespace{idx: idx}
}

// GetAttrs returns the attributes of path p, or ok=false if p does not
// exist.
func (n *Namespace) GetAttrs(p string) (Attrs, bool) {
	p = pathutil.Normalize(p)
	if !n.idx.Exists(p) {
		return Attrs{}, false
	}
	ts := n.idx.Timestamps(p)
	attrs := Attrs{
		IsDir:    n.idx.IsDirectory(p),
		Created:  ts.Created,
		Modified: ts.Modified,
		Accessed: ts.Accessed,
	}
	if e, ok := n.idx.Lookup(p); ok && !e.IsDir {
		attrs.Size = e.Size
	}
	return attrs, true
}

// List returns the direct children of directory p.
func (n *Namespace) List(p string) []Entry {
	children := n.idx.Children(p)
	out := make([]Entry, 0, len(children))
	for _, c := range children {
		attrs, _ := n.GetAttrs(c.Path)
		out = append(out, Entry{Name: c.Name, Attrs: attrs})
	}
	return out
}

// ListPattern returns the direct children of p whose name matches
// pattern (see pathutil.MatchGlob).
func (n *Namespace) ListPattern(p, pattern string) []Entry {
	all := n.List(p)
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if pathutil.MatchGlob(pattern, e.Name) {
			out = append(out, e)
		}
	}
	return out
}

// VolumeInfo returns the fixed volume descriptor.
func (n *Namespace) VolumeInfo() VolumeInfo {
	return VolumeInfo{Label: VolumeLabel, FilesystemName: FilesystemName, MaxComponentLen: MaxComponent}
}

// FreeSpace returns (free, total) bytes. The volume is always full:
// free is always zero.
func (n *Namespace) FreeSpace() (free, total int64) {
	return 0, n.idx.ByteLength()
}
