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

// Package status defines the error taxonomy shared by the archive index,
// entry cache, and dispatcher, and the status codes returned to the
// kernel bridge.
package status

import "fmt"

// Code is a kernel-bridge-facing status, independent of any specific
// bridge library's error type.
type Code int

const (
	Success Code = iota
	FileExists
	PathNotFound
	AccessDenied
	InvalidParameter
	DiskFull
	NotReady
	NotImplemented
	Error
)

func (c Code) String() string {
	switch c {
	case Success:
		return "Success"
	case FileExists:
		return "FileExists"
	case PathNotFound:
		return "PathNotFound"
	case AccessDenied:
		return "AccessDenied"
	case InvalidParameter:
		return "InvalidParameter"
	case DiskFull:
		return "DiskFull"
	case NotReady:
		return "NotReady"
	case NotImplemented:
		return "NotImplemented"
	default:
		return "Error"
	}
}

// Kind classifies the underlying cause of a Fault, independent of the
// Code it maps to at the dispatcher boundary.
type Kind int

const (
	KindArchiveFormat Kind = iota
	KindPassword
	KindSourceIO
	KindDiskFull
	KindPathTooLong
	KindPathNotFound
	KindAccessDenied
	KindInvalidParameter
	KindInternal
)

// Fault is the error type produced by the core components. It carries
// enough context to be logged and to be translated to a Code at the
// dispatcher boundary.
type Fault struct {
	Kind Kind
	Path string
	Op   string
	Err  error
}

func (f *Fault) Error() string {
	if f.Path != "" {
		return fmt.Sprintf("%s %s: %v", f.Op, f.Path, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// New constructs a Fault.
func New(kind Kind, op, path string, err error) *Fault {
	return &Fault{Kind: kind, Op: op, Path: path, Err: err}
}

// ToCode maps a Kind to the status Code returned to the kernel bridge.
func ToCode(kind Kind) Code {
	switch kind {
	case KindPathNotFound:
		return PathNotFound
	case KindAccessDenied:
		return AccessDenied
	case KindInvalidParameter:
		return InvalidParameter
	case KindDiskFull:
		return DiskFull
	case KindSourceIO, KindArchiveFormat, KindPassword, KindPathTooLong, KindInternal:
		return Error
	default:
		return Error
	}
}

// CodeOf extracts the Code for an arbitrary error, defaulting to Error
// when err is not a *Fault.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	if f, ok := err.(*Fault); ok {
		return ToCode(f.Kind)
	}
	return Error
}

// IsUserError classifies whether a fault of the given kind is an
// expected, user-facing condition (bad password, corrupt archive, full
// disk, ...) as opposed to an internal defect. User errors are logged
// locally but are not eligible for remote bug reporting.
func IsUserError(kind Kind) bool {
	switch kind {
	case KindArchiveFormat, KindPassword, KindSourceIO, KindDiskFull, KindPathNotFound:
		return true
	default:
		return false
	}
}
