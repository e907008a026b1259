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
	"bytes"
	"io"

	"github.com/nwaples/rardecode/v2"

	"simplezipdrive/internal/status"
)

// rarDecoder adapts github.com/nwaples/rardecode/v2 to the Decoder
// interface.
//
// RAR is a single-pass format: rardecode.Reader.Next() invalidates the
// stream returned for the previous entry, so unlike zip/7z there is no
// way to lazily re-open an arbitrary entry later. OpenRar eagerly
// buffers every entry's decompressed bytes during the one pass over the
// archive; the entry cache (which would otherwise defer this work) sees
// ordinary in-memory readers and applies its usual memory/disk tiering
// on top.
type rarDecoder struct {
	closer  io.Closer
	entries []*EntryMeta
}

// OpenRar opens a RAR archive from r (which must support seeking back to
// its own start, since a password retry has to re-read the archive from
// byte zero) and eagerly materializes every entry.
func OpenRar(r io.ReadSeeker, closer io.Closer, passwords PasswordProvider) (Decoder, error) {
	reader, err := rardecode.NewReader(r)
	if err != nil {
		return nil, status.New(status.KindArchiveFormat, "open-rar", "", err)
	}

	var entries []*EntryMeta
	retried := false
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if isRarPasswordErr(err) {
				// A password error after the one retry means the
				// supplied password is wrong.
				if retried {
					return nil, status.New(status.KindPassword, "open-rar", "", &NeedsPassword{Err: err})
				}
				retried = true
				pw, ok := passwords()
				if !ok {
					return nil, status.New(status.KindPassword, "open-rar", "", &NeedsPassword{Err: err})
				}
				// A fresh rardecode.Reader starts consuming from
				// wherever r is positioned now; rewind to the start or
				// the retry reads a truncated tail of the archive.
				if _, serr := r.Seek(0, io.SeekStart); serr != nil {
					return nil, status.New(status.KindSourceIO, "seek-rar", "", serr)
				}
				entries = nil
				reader, err = rardecode.NewReader(r, rardecode.Password(pw))
				if err != nil {
					return nil, status.New(status.KindPassword, "open-rar", "", &NeedsPassword{Err: err})
				}
				continue
			}
			return nil, status.New(status.KindArchiveFormat, "read-rar-header", "", err)
		}

		if header.IsDir {
			entries = append(entries, &EntryMeta{
				Key:     header.Name,
				IsDir:   true,
				Size:    0,
				ModTime: header.ModificationTime,
				open: func() (io.ReadCloser, error) {
					return io.NopCloser(bytes.NewReader(nil)), nil
				},
			})
			continue
		}

		buf, err := io.ReadAll(reader)
		if err != nil {
			return nil, status.New(status.KindArchiveFormat, "read-rar-entry", header.Name, err)
		}
		data := buf
		entries = append(entries, &EntryMeta{
			Key:       header.Name,
			IsDir:     false,
			Size:      int64(len(data)),
			ModTime:   header.ModificationTime,
			Encrypted: header.Encrypted,
			open: func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(data)), nil
			},
		})
	}

	return &rarDecoder{closer: closer, entries: entries}, nil
}

func isRarPasswordErr(err error) bool {
	return err == rardecode.ErrArchivedFileEncrypted || err == rardecode.ErrBadPassword
}

func (d *rarDecoder) Entries() ([]*EntryMeta, error) {
	return d.entries, nil
}

func (d *rarDecoder) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}
