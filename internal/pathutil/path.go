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

// Package pathutil normalises archive-relative paths into the canonical
// form the rest of the VFS layer keys everything on: forward slashes,
// a leading slash, no trailing slash except for the root itself.
package pathutil

import "strings"

// Root is the canonical path of the archive's top-level directory.
const Root = "/"

// Normalize converts a raw archive entry key or an incoming request path
// into canonical form. Backslashes become forward slashes, a leading
// slash is ensured, and a trailing slash (other than the root) is
// stripped.
func Normalize(raw string) string {
	if raw == "" || raw == "." {
		return Root
	}
	p := strings.ReplaceAll(raw, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	if p == "" {
		return Root
	}
	return p
}

// IsRoot reports whether p is the canonical root path.
func IsRoot(p string) bool {
	return p == Root
}

// Split returns the canonical parent path and final component of p.
// Split("/") returns ("/", "").
func Split(p string) (parent, name string) {
	p = Normalize(p)
	if IsRoot(p) {
		return Root, ""
	}
	idx := strings.LastIndex(p, "/")
	name = p[idx+1:]
	if idx == 0 {
		return Root, name
	}
	return p[:idx], name
}

// Join appends name to the canonical directory path dir.
func Join(dir, name string) string {
	dir = Normalize(dir)
	if IsRoot(dir) {
		return Root + name
	}
	return dir + "/" + name
}

// Parents returns every canonical ancestor path of p, starting with the
// immediate parent and ending with the root. p itself is not included.
func Parents(p string) []string {
	p = Normalize(p)
	var out []string
	for !IsRoot(p) {
		parent, _ := Split(p)
		out = append(out, parent)
		p = parent
	}
	return out
}

// EqualFold reports whether a and b denote the same canonical path under
// case-insensitive, ordinal comparison.
func EqualFold(a, b string) bool {
	return strings.EqualFold(Normalize(a), Normalize(b))
}

// MatchGlob reports whether name matches a shell-style glob pattern
// using '*' (any run of characters, including none) and '?' (exactly one
// character), compared case-insensitively. "*" and "*.*" always match.
func MatchGlob(pattern, name string) bool {
	if pattern == "*" || pattern == "*.*" {
		return true
	}
	return matchGlobFold(strings.ToLower(pattern), strings.ToLower(name))
}

func matchGlobFold(pattern, name string) bool {
	// Classic DP-free recursive glob match restricted to '*' and '?'.
	if pattern == "" {
		return name == ""
	}
	if pattern[0] == '*' {
		if matchGlobFold(pattern[1:], name) {
			return true
		}
		for i := 0; i < len(name); i++ {
			if matchGlobFold(pattern[1:], name[i+1:]) {
				return true
			}
		}
		return false
	}
	if name == "" {
		return false
	}
	if pattern[0] == '?' || pattern[0] == name[0] {
		return matchGlobFold(pattern[1:], name[1:])
	}
	return false
}
