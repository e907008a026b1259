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

// Package kernelbridge is the concrete, swappable stand-in for a
// platform kernel-bridge driver (WinFsp/Dokan on Windows): it exposes
// the dispatcher as a billy.Filesystem and serves that over a loopback
// NFSv3 server any host OS can mount with its native NFS client.
package kernelbridge

import (
	"io"
	"os"
	"path"
	"syscall"
	"time"

	billy "github.com/go-git/go-billy/v5"
	nfsfile "github.com/willscott/go-nfs/file"

	"simplezipdrive/internal/status"
	"simplezipdrive/internal/vfs"
)

// codeToErrno maps a status.Code to the nearest POSIX errno. This is
// the only place in the module that translates status codes to errnos;
// the core (internal/vfs, internal/archive, internal/entrycache) never
// imports syscall and stays error-kind-typed and platform-neutral.
func codeToErrno(c status.Code) error {
	switch c {
	case status.Success:
		return nil
	case status.FileExists:
		return syscall.EEXIST
	case status.PathNotFound:
		return syscall.ENOENT
	case status.AccessDenied:
		return syscall.EACCES
	case status.InvalidParameter:
		return syscall.EINVAL
	case status.DiskFull:
		return syscall.ENOSPC
	case status.NotReady:
		return syscall.EAGAIN
	case status.NotImplemented:
		return syscall.ENOTSUP
	default:
		return syscall.EIO
	}
}

// BillyAdapter adapts a *vfs.Dispatcher to the billy.Filesystem and
// billy.Change interfaces that willscott/go-nfs's helpers package
// drives. Every mutating method returns the read-only-filesystem errno;
// read paths delegate to the dispatcher.
type BillyAdapter struct {
	d   *vfs.Dispatcher
	uid uint32
	gid uint32
}

// NewBillyAdapter wraps d.
func NewBillyAdapter(d *vfs.Dispatcher) *BillyAdapter {
	return &BillyAdapter{d: d, uid: uint32(os.Getuid()), gid: uint32(os.Getgid())}
}

func (b *BillyAdapter) Create(filename string) (billy.File, error) { return nil, syscall.EROFS }

func (b *BillyAdapter) Open(filename string) (billy.File, error) {
	return b.OpenFile(filename, os.O_RDONLY, 0)
}

func (b *BillyAdapter) OpenFile(filename string, flag int, _ os.FileMode) (billy.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_APPEND|os.O_TRUNC) != 0 {
		return nil, syscall.EROFS
	}
	h, code := b.d.Create(filename, vfs.DispositionOpen, vfs.AccessIntent{ReadData: true})
	if code != status.Success {
		return nil, codeToErrno(code)
	}
	return &billyFile{d: b.d, handle: h, name: filename}, nil
}

func (b *BillyAdapter) Stat(filename string) (os.FileInfo, error) {
	attrs, code := b.d.GetAttrs(filename)
	if code != status.Success {
		return nil, codeToErrno(code)
	}
	return &billyFileInfo{name: path.Base(filename), attrs: attrs, adapter: b}, nil
}

func (b *BillyAdapter) Lstat(filename string) (os.FileInfo, error) { return b.Stat(filename) }

func (b *BillyAdapter) Rename(oldpath, newpath string) error { return syscall.EROFS }
func (b *BillyAdapter) Remove(filename string) error         { return syscall.EROFS }

func (b *BillyAdapter) Join(elem ...string) string { return path.Join(elem...) }

func (b *BillyAdapter) TempFile(dir, prefix string) (billy.File, error) {
	return nil, syscall.EROFS
}

func (b *BillyAdapter) ReadDir(dirname string) ([]os.FileInfo, error) {
	entries, code := b.d.List(dirname)
	if code != status.Success {
		return nil, codeToErrno(code)
	}
	out := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, &billyFileInfo{name: e.Name, attrs: e.Attrs, adapter: b})
	}
	return out, nil
}

func (b *BillyAdapter) MkdirAll(filename string, perm os.FileMode) error { return syscall.EROFS }
func (b *BillyAdapter) Symlink(target, link string) error               { return syscall.EROFS }

func (b *BillyAdapter) Readlink(link string) (string, error) {
	return "", syscall.ENOTSUP
}

func (b *BillyAdapter) Chroot(p string) (billy.Filesystem, error) { return nil, os.ErrInvalid }
func (b *BillyAdapter) Root() string                              { return "/" }

// billy.Change interface — every write to metadata is denied.
func (b *BillyAdapter) Chmod(name string, mode os.FileMode) error            { return syscall.EROFS }
func (b *BillyAdapter) Lchown(name string, uid, gid int) error               { return syscall.EROFS }
func (b *BillyAdapter) Chown(name string, uid, gid int) error                { return syscall.EROFS }
func (b *BillyAdapter) Chtimes(name string, atime, mtime time.Time) error    { return syscall.EROFS }

func (b *BillyAdapter) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}

type billyFile struct {
	d      *vfs.Dispatcher
	handle vfs.HandleID
	name   string
	offset int64
}

func (f *billyFile) Name() string { return f.name }

func (f *billyFile) Write(p []byte) (int, error) { return 0, syscall.EROFS }

func (f *billyFile) Read(p []byte) (int, error) {
	n, code := f.d.Read(f.handle, f.offset, p)
	if code != status.Success {
		return 0, codeToErrno(code)
	}
	f.offset += int64(n)
	if n == 0 {
		return 0, nil
	}
	return n, nil
}

func (f *billyFile) ReadAt(p []byte, off int64) (int, error) {
	n, code := f.d.Read(f.handle, off, p)
	if code != status.Success {
		return 0, codeToErrno(code)
	}
	return n, nil
}

func (f *billyFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.offset = offset
	case io.SeekCurrent:
		f.offset += offset
	case io.SeekEnd:
		attrs, code := f.d.GetAttrs(f.name)
		if code != status.Success {
			return 0, codeToErrno(code)
		}
		f.offset = attrs.Size + offset
	}
	return f.offset, nil
}

func (f *billyFile) Close() error {
	f.d.Cleanup(f.handle)
	f.d.Close(f.handle)
	return nil
}

func (f *billyFile) Lock() error   { return nil }
func (f *billyFile) Unlock() error { return nil }

func (f *billyFile) Truncate(size int64) error { return syscall.EROFS }

type billyFileInfo struct {
	name    string
	attrs   vfs.Attrs
	adapter *BillyAdapter
}

func (fi *billyFileInfo) Name() string { return fi.name }
func (fi *billyFileInfo) Size() int64  { return fi.attrs.Size }

func (fi *billyFileInfo) Mode() os.FileMode {
	if fi.attrs.IsDir {
		return os.ModeDir | 0o555
	}
	return 0o444
}

func (fi *billyFileInfo) ModTime() time.Time { return fi.attrs.Modified }
func (fi *billyFileInfo) IsDir() bool        { return fi.attrs.IsDir }

// Sys returns file.FileInfo from go-nfs/file: go-nfs's GetInfo() only
// recognizes file.FileInfo or *file.FileInfo, not an arbitrary
// os.FileInfo.Sys() value.
func (fi *billyFileInfo) Sys() interface{} {
	return &nfsfile.FileInfo{
		Nlink:  1,
		UID:    fi.adapter.uid,
		GID:    fi.adapter.gid,
		Fileid: fileIDOf(fi.name),
	}
}

// fileIDOf derives a stable-enough inode number from a name for NFS
// identity purposes; the archive has no native inode numbering.
func fileIDOf(name string) uint64 {
	var h uint64 = 14695981039346656037 // FNV offset basis
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= 1099511628211
	}
	return h
}

var (
	_ billy.Filesystem = (*BillyAdapter)(nil)
	_ billy.Change     = (*BillyAdapter)(nil)
	_ billy.File       = (*billyFile)(nil)
)
