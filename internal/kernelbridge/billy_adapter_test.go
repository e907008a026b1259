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

package kernelbridge

import (
	"os"
	"syscall"
	"testing"

	. "github.com/onsi/gomega"

	"simplezipdrive/internal/status"
	"simplezipdrive/internal/vfs"
)

func TestBillyFileInfoMode(t *testing.T) {
	tests := []struct {
		name         string
		isDir        bool
		expectedMode os.FileMode
	}{
		{name: "regular file is read-only for everyone", isDir: false, expectedMode: 0o444},
		{name: "directory is read-and-traverse for everyone", isDir: true, expectedMode: os.ModeDir | 0o555},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fi := &billyFileInfo{name: "test", attrs: vfs.Attrs{IsDir: tt.isDir}}
			if got := fi.Mode(); got != tt.expectedMode {
				t.Errorf("Mode() = %o, want %o", got, tt.expectedMode)
			}
		})
	}
}

func TestCodeToErrno(t *testing.T) {
	g := NewWithT(t)

	g.Expect(codeToErrno(status.Success)).To(BeNil())
	g.Expect(codeToErrno(status.FileExists)).To(Equal(syscall.EEXIST))
	g.Expect(codeToErrno(status.PathNotFound)).To(Equal(syscall.ENOENT))
	g.Expect(codeToErrno(status.AccessDenied)).To(Equal(syscall.EACCES))
	g.Expect(codeToErrno(status.InvalidParameter)).To(Equal(syscall.EINVAL))
	g.Expect(codeToErrno(status.DiskFull)).To(Equal(syscall.ENOSPC))
	g.Expect(codeToErrno(status.NotReady)).To(Equal(syscall.EAGAIN))
	g.Expect(codeToErrno(status.NotImplemented)).To(Equal(syscall.ENOTSUP))
	g.Expect(codeToErrno(status.Error)).To(Equal(syscall.EIO))
}

func TestFileIDOfIsStableAndDistinct(t *testing.T) {
	g := NewWithT(t)

	g.Expect(fileIDOf("a.txt")).To(Equal(fileIDOf("a.txt")))
	g.Expect(fileIDOf("a.txt")).NotTo(Equal(fileIDOf("b.txt")))
}

func TestOpenFileRejectsWriteFlags(t *testing.T) {
	g := NewWithT(t)

	b := NewBillyAdapter(nil)
	_, err := b.OpenFile("x", os.O_WRONLY, 0)
	g.Expect(err).To(Equal(syscall.EROFS))

	_, err = b.OpenFile("x", os.O_CREATE, 0)
	g.Expect(err).To(Equal(syscall.EROFS))
}
