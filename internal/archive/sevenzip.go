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
	"io"

	"github.com/bodgit/sevenzip"

	"simplezipdrive/internal/status"
)

// sevenZipDecoder adapts github.com/bodgit/sevenzip to the Decoder
// interface.
type sevenZipDecoder struct {
	r      *sevenzip.Reader
	closer io.Closer
}

// OpenSevenZip opens a 7z archive backed by ra. If the archive's headers
// are encrypted, OpenSevenZip consults passwords and retries once before
// giving up with *NeedsPassword.
func OpenSevenZip(ra io.ReaderAt, size int64, closer io.Closer, passwords PasswordProvider) (Decoder, error) {
	r, err := sevenzip.NewReader(ra, size)
	if err != nil {
		pw, ok := passwords()
		if !ok {
			return nil, status.New(status.KindPassword, "open-7z", "", &NeedsPassword{Err: err})
		}
		r, err = sevenzip.NewReaderWithPassword(ra, size, pw)
		if err != nil {
			return nil, status.New(status.KindPassword, "open-7z", "", &NeedsPassword{Err: err})
		}
	}
	return &sevenZipDecoder{r: r, closer: closer}, nil
}

func (d *sevenZipDecoder) Entries() ([]*EntryMeta, error) {
	out := make([]*EntryMeta, 0, len(d.r.File))
	for _, f := range d.r.File {
		f := f
		out = append(out, &EntryMeta{
			Key:     f.Name,
			IsDir:   f.FileInfo().IsDir(),
			Size:    int64(f.UncompressedSize),
			ModTime: f.Modified,
			open: func() (io.ReadCloser, error) {
				return f.Open()
			},
		})
	}
	return out, nil
}

func (d *sevenZipDecoder) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}
