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

package mountlifecycle

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickPortFindsFreePortInRange(t *testing.T) {
	port, err := pickPort(34000, 34999)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, port, 34000)
	assert.LessOrEqual(t, port, 34999)

	// The port must actually be free: bind it ourselves.
	l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	require.NoError(t, err)
	defer l.Close()
}

func TestPickPortReturnsErrorWhenRangeExhausted(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	_, err = pickPort(port, port)
	assert.Error(t, err)
}

func TestStartRejectsMissingArchive(t *testing.T) {
	_, err := Start("/nonexistent/archive.zip", t.TempDir(), nil, nil)
	assert.Error(t, err)
}

func TestStartRejectsDirectoryAsArchive(t *testing.T) {
	_, err := Start(t.TempDir(), t.TempDir(), nil, nil)
	assert.Error(t, err)
}
