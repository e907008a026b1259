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
	"errors"
	"io"

	"github.com/klauspost/compress/zip"

	"simplezipdrive/internal/status"
)

// zipDecoder adapts klauspost/compress/zip — a drop-in, faster and
// stricter fork of archive/zip used for its zip64 and deflate handling —
// to the Decoder interface.
type zipDecoder struct {
	r        *zip.Reader
	closer   io.Closer
	password string
}

// OpenZip opens a ZIP archive backed by ra. size is the archive's total
// byte length. If any entry is encrypted, OpenZip asks passwords once;
// when the provider supplies none, OpenZip itself fails with a password
// fault wrapping *NeedsPassword. Entries sets the supplied password on
// every encrypted entry.
func OpenZip(ra io.ReaderAt, size int64, closer io.Closer, passwords PasswordProvider) (Decoder, error) {
	r, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, status.New(status.KindArchiveFormat, "open-zip", "", err)
	}
	d := &zipDecoder{r: r, closer: closer}

	for _, f := range r.File {
		if f.IsEncrypted() {
			pw, ok := passwords()
			if !ok {
				return nil, status.New(status.KindPassword, "open-zip", f.Name, &NeedsPassword{Err: errors.New("encrypted entry, no password supplied")})
			}
			d.password = pw
			break
		}
	}
	return d, nil
}

func (d *zipDecoder) Entries() ([]*EntryMeta, error) {
	out := make([]*EntryMeta, 0, len(d.r.File))
	for _, f := range d.r.File {
		f := f
		if d.password != "" && f.IsEncrypted() {
			f.SetPassword(d.password)
		}
		out = append(out, &EntryMeta{
			Key:       f.Name,
			IsDir:     f.FileInfo().IsDir(),
			Size:      int64(f.UncompressedSize64),
			ModTime:   f.Modified,
			Encrypted: f.IsEncrypted(),
			open: func() (io.ReadCloser, error) {
				return f.Open()
			},
		})
	}
	return out, nil
}

func (d *zipDecoder) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}
