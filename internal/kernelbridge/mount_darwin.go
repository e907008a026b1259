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

//go:build darwin

package kernelbridge

import (
	"fmt"
	"os"
	"os/exec"
)

// Mount mounts the loopback NFS share at port onto mountPath using the
// macOS mount_nfs client.
//
// noac disables attribute caching so the archive's (immutable) metadata
// is always read fresh. soft,timeo=50,retrans=3 gives roughly 20s before
// the kernel gives up on an unresponsive server rather than hanging
// forever. rsize/wsize=65536 is the largest buffer macOS's NFS client
// supports. nobrowse keeps the mount out of Finder/Spotlight.
func Mount(port int, mountPath string) error {
	if err := os.MkdirAll(mountPath, 0o755); err != nil {
		return fmt.Errorf("failed to create mount point: %w", err)
	}

	cmd := exec.Command("mount_nfs",
		"-o", fmt.Sprintf("port=%d,mountport=%d,tcp,nolocks,vers=3,rsize=65536,wsize=65536,noac,soft,timeo=50,retrans=3,nobrowse,ro", port, port),
		"localhost:/",
		mountPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mount_nfs failed: %w: %s", err, string(output))
	}
	return nil
}

// Unmount unmounts mountPath.
func Unmount(mountPath string) error {
	return exec.Command("umount", mountPath).Run()
}
