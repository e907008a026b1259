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
	"context"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	nfs "github.com/willscott/go-nfs"
	nfshelper "github.com/willscott/go-nfs/helpers"

	"simplezipdrive/internal/vfs"
)

// Server wraps the loopback go-nfs server that stands in for the
// kernel-mode mount driver.
type Server struct {
	listener net.Listener
	server   *nfs.Server
	cancel   context.CancelFunc
}

// NewServer builds an NFS server exposing d's dispatcher over a billy
// adapter, matching the host's real mount surface one layer down.
func NewServer(d *vfs.Dispatcher) *Server {
	if log.IsLevelEnabled(log.TraceLevel) {
		nfs.Log.SetLevel(nfs.TraceLevel)
	} else if log.IsLevelEnabled(log.DebugLevel) {
		nfs.Log.SetLevel(nfs.DebugLevel)
	}

	billyFS := NewBillyAdapter(d)
	handler := nfshelper.NewNullAuthHandler(billyFS)
	cached := nfshelper.NewCachingHandler(handler, 65536)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		server: &nfs.Server{Handler: cached, Context: ctx},
		cancel: cancel,
	}
}

// Serve listens on addr (loopback, any free port in the configured
// range) and serves until Shutdown is called.
func (s *Server) Serve(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	return s.server.Serve(listener)
}

// Addr returns the address Serve bound to.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting connections, waits briefly for in-flight
// requests to settle, then cancels the server context.
func (s *Server) Shutdown() {
	if s.listener != nil {
		s.listener.Close()
	}
	// Settle time for in-flight NFS operations after the listener
	// closes; the host has already been unmounted by the time this
	// runs, so no new requests arrive during the wait.
	time.Sleep(100 * time.Millisecond)
	if s.cancel != nil {
		s.cancel()
	}
}
