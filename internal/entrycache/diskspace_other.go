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

//go:build !darwin && !linux

package entrycache

// diskFreeBytes has no portable implementation on this platform; the
// disk-full pre-check is skipped and extraction failures surface as
// source-io errors instead.
func diskFreeBytes(dir string) (int64, error) {
	return 0, errUnsupportedPlatform
}

var errUnsupportedPlatform = &platformError{}

type platformError struct{}

func (*platformError) Error() string { return "disk free space check unsupported on this platform" }
