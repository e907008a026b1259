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

package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToCode(t *testing.T) {
	assert.Equal(t, PathNotFound, ToCode(KindPathNotFound))
	assert.Equal(t, AccessDenied, ToCode(KindAccessDenied))
	assert.Equal(t, DiskFull, ToCode(KindDiskFull))
	assert.Equal(t, Error, ToCode(KindArchiveFormat))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Success, CodeOf(nil))
	assert.Equal(t, Error, CodeOf(errors.New("boom")))
	f := New(KindDiskFull, "extract", "/big.bin", errors.New("no space"))
	assert.Equal(t, DiskFull, CodeOf(f))
	assert.ErrorIs(t, f, f.Err)
}

func TestIsUserError(t *testing.T) {
	assert.True(t, IsUserError(KindPassword))
	assert.True(t, IsUserError(KindDiskFull))
	assert.False(t, IsUserError(KindInternal))
	assert.False(t, IsUserError(KindInvalidParameter))
}
