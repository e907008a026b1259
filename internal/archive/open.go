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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"simplezipdrive/internal/status"
)

// OpenFile opens the archive at archivePath, selecting a Decoder
// implementation from its file extension (.zip, .7z, .rar). Failures to
// open or stat the underlying file are reported as source-io faults so
// a caller can retry a transiently unavailable device.
func OpenFile(archivePath string, passwords PasswordProvider) (Decoder, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, status.New(status.KindSourceIO, "open", archivePath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, status.New(status.KindSourceIO, "stat", archivePath, err)
	}

	switch strings.ToLower(filepath.Ext(archivePath)) {
	case ".zip":
		return OpenZip(f, info.Size(), f, passwords)
	case ".7z":
		return OpenSevenZip(f, info.Size(), f, passwords)
	case ".rar":
		return OpenRar(f, f, passwords)
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported archive extension: %s", filepath.Ext(archivePath))
	}
}
