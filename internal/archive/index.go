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
	"sort"
	"strings"
	"time"

	"simplezipdrive/internal/pathutil"
	"simplezipdrive/internal/status"
)

// DirTimestamps holds the three timestamps a synthesized directory
// inherits from the first entry that implied it.
type DirTimestamps struct {
	Created  time.Time
	Modified time.Time
	Accessed time.Time
}

// Index is the immutable catalog built once from a Decoder's entry
// list: an explicit-entry map plus the set of directories implied by
// entries nested under them. Once constructed, it never changes and
// needs no locking to read.
//
// Every map is keyed by the case-folded canonical path so that lookups
// are case-insensitive end to end, matching the archive's own
// case-insensitive namespace semantics; values retain whatever case the
// archive itself used, so listings still show the archive's original
// spelling.
type Index struct {
	entries     map[string]*EntryMeta    // fold(path) -> entry, files and explicit dirs
	synthesized map[string]DirTimestamps // fold(path) -> timestamps, implied dirs only
	children    map[string][]string      // fold(parent path) -> child canonical paths (actual case, unsorted)
	byteLength  int64
}

// fold returns the case-insensitive comparison key for a canonical path.
func fold(p string) string {
	return strings.ToLower(p)
}

// BuildIndex enumerates dec's entries and constructs the catalog.
func BuildIndex(dec Decoder, archiveByteLength int64) (*Index, error) {
	raw, err := dec.Entries()
	if err != nil {
		return nil, status.New(status.KindArchiveFormat, "enumerate", "", err)
	}

	idx := &Index{
		entries:     make(map[string]*EntryMeta, len(raw)),
		synthesized: make(map[string]DirTimestamps),
		children:    make(map[string][]string),
		byteLength:  archiveByteLength,
	}
	idx.synthesized[fold(pathutil.Root)] = DirTimestamps{}

	for _, e := range raw {
		key := strings.TrimSuffix(e.Key, "/")
		if key == "" {
			continue // the archive's own root entry, if present
		}
		p := pathutil.Normalize(key)
		isDir := e.IsDir || strings.HasSuffix(e.Key, "/")

		idx.entries[fold(p)] = e
		if isDir {
			// An explicit directory entry pre-empts a synthesized twin
			// that an earlier, deeper entry may already have recorded.
			delete(idx.synthesized, fold(p))
		}

		ts := DirTimestamps{Modified: e.ModTime, Created: e.ModTime, Accessed: e.ModTime}
		parent, _ := pathutil.Split(p)
		ancestors := pathutil.Parents(p)
		if !isDir {
			// file: every ancestor (including immediate parent) is implied
			for _, a := range ancestors {
				idx.ensureSynthesized(a, ts.Modified)
			}
		} else {
			// directory: ancestors above it are implied, the directory
			// itself was already recorded as an explicit entry above
			// and is not re-added here.
			for _, a := range ancestors {
				if a == p {
					continue
				}
				idx.ensureSynthesized(a, ts.Modified)
			}
		}
		idx.addChild(parent, p)
	}

	return idx, nil
}

func (idx *Index) ensureSynthesized(p string, modTime time.Time) {
	key := fold(p)
	if _, explicit := idx.entries[key]; explicit {
		return
	}
	if _, ok := idx.synthesized[key]; ok {
		return
	}
	idx.synthesized[key] = DirTimestamps{Created: modTime, Modified: modTime, Accessed: modTime}
	if !pathutil.IsRoot(p) {
		parent, _ := pathutil.Split(p)
		idx.addChild(parent, p)
	}
}

// addChild records childPath as a child of parent, keeping whichever
// case was seen first for a given case-insensitive child name.
func (idx *Index) addChild(parent, childPath string) {
	key := fold(parent)
	childKey := fold(childPath)
	for _, existing := range idx.children[key] {
		if fold(existing) == childKey {
			return
		}
	}
	idx.children[key] = append(idx.children[key], childPath)
}

// IsDirectory reports whether p names a directory: explicit or
// synthesized. Comparison is case-insensitive.
func (idx *Index) IsDirectory(p string) bool {
	p = pathutil.Normalize(p)
	if pathutil.IsRoot(p) {
		return true
	}
	key := fold(p)
	if e, ok := idx.entries[key]; ok {
		return e.IsDir
	}
	_, ok := idx.synthesized[key]
	return ok
}

// Lookup returns the catalog entry for p, if any. Comparison is
// case-insensitive.
func (idx *Index) Lookup(p string) (*EntryMeta, bool) {
	e, ok := idx.entries[fold(pathutil.Normalize(p))]
	return e, ok
}

// Exists reports whether p is a known path (file, explicit directory, or
// synthesized directory). Comparison is case-insensitive.
func (idx *Index) Exists(p string) bool {
	p = pathutil.Normalize(p)
	if pathutil.IsRoot(p) {
		return true
	}
	key := fold(p)
	if _, ok := idx.entries[key]; ok {
		return true
	}
	_, ok := idx.synthesized[key]
	return ok
}

// Timestamps returns the three timestamps recorded for path p. For
// explicit file entries, all three equal the entry's ModTime (archive
// formats rarely distinguish creation from modification). Comparison is
// case-insensitive.
func (idx *Index) Timestamps(p string) DirTimestamps {
	key := fold(pathutil.Normalize(p))
	if e, ok := idx.entries[key]; ok {
		return DirTimestamps{Created: e.ModTime, Modified: e.ModTime, Accessed: e.ModTime}
	}
	return idx.synthesized[key]
}

// Child is one entry returned by Children: a name plus whether it is a
// directory.
type Child struct {
	Name  string
	Path  string
	IsDir bool
}

// Children returns the direct children of directory p, sorted by name,
// case-insensitively de-duplicated (an explicit entry wins over a
// synthesized directory of the same name).
func (idx *Index) Children(p string) []Child {
	p = pathutil.Normalize(p)
	paths := idx.children[fold(p)]

	byLower := make(map[string]Child, len(paths))
	for _, childPath := range paths {
		_, name := pathutil.Split(childPath)
		isDir := idx.IsDirectory(childPath)
		key := strings.ToLower(name)
		if existing, ok := byLower[key]; ok && !existing.IsDir {
			continue // explicit file already recorded, keep it
		}
		byLower[key] = Child{Name: name, Path: childPath, IsDir: isDir}
	}

	out := make([]Child, 0, len(byLower))
	for _, c := range byLower {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out
}

// ByteLength is the archive's total byte length, used for free-space
// reporting.
func (idx *Index) ByteLength() int64 {
	return idx.byteLength
}
