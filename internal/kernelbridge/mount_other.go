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

package kernelbridge

import "errors"

// Mount has no native-client implementation on this platform. On
// Windows the original drive-letter mount would go through WinFsp or
// Dokan; neither ships a loopback-NFS client binding in this module's
// dependency set, so this platform can only run the NFS server itself
// (reachable by a manual `mount` from another host) until a native
// client adapter is written.
func Mount(port int, mountPath string) error {
	return errors.New("no native NFS mount client wired for this platform")
}

// Unmount has no native-client implementation on this platform.
func Unmount(mountPath string) error {
	return errors.New("no native NFS mount client wired for this platform")
}
