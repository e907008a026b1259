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

// Package mountlifecycle wires the archive decoder, index, entry
// cache, executable redirector and kernel bridge into a single mount
// session, and tears all of it back down on shutdown.
package mountlifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"simplezipdrive/internal/archive"
	"simplezipdrive/internal/config"
	"simplezipdrive/internal/entrycache"
	"simplezipdrive/internal/execredirect"
	"simplezipdrive/internal/kernelbridge"
	"simplezipdrive/internal/logging"
	"simplezipdrive/internal/retryutil"
	"simplezipdrive/internal/status"
	"simplezipdrive/internal/vfs"
)

var log = logging.For("mountlifecycle")

// Session holds every live resource a single mount owns, in the order
// they are acquired; Stop tears them down in reverse.
type Session struct {
	archivePath string
	mountPath   string
	tempDir     string

	dec      archive.Decoder
	idx      *archive.Index
	cache    *entrycache.Cache
	redirect *execredirect.Redirector
	server   *kernelbridge.Server
	settings *config.Settings
}

// Start opens archivePath, builds the dispatcher stack, mounts it at
// mountPath and returns the running Session. mountPath must already
// exist or be creatable by the platform mount helper.
func Start(archivePath, mountPath string, settings *config.Settings, passwords archive.PasswordProvider) (*Session, error) {
	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("archive not accessible: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("archive path is a directory: %s", archivePath)
	}

	token := uuid.New().String()
	tempDir, err := entrycache.NewSessionTempDir(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session temp dir: %w", err)
	}

	dec, err := retryutil.RetryWithResult(context.Background(), func() (archive.Decoder, error) {
		return archive.OpenFile(archivePath, passwords)
	})
	if err != nil {
		os.RemoveAll(tempDir)
		logOpenFailure(archivePath, err)
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	idx, err := archive.BuildIndex(dec, info.Size())
	if err != nil {
		dec.Close()
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to index archive: %w", err)
	}

	cache := entrycache.New(dec, settings.MemLimitPerEntry, settings.MemBudgetTotal, tempDir)

	redirect, err := execredirect.New(tempDir)
	if err != nil {
		dec.Close()
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to set up executable redirector: %w", err)
	}

	dispatcher := vfs.NewDispatcher(idx, cache, redirect, settings)

	server := kernelbridge.NewServer(dispatcher)

	port, listenErr := pickPort(settings.NFSPortRangeStart, settings.NFSPortRangeEnd)
	if listenErr != nil {
		dec.Close()
		os.RemoveAll(tempDir)
		return nil, listenErr
	}

	go func() {
		if err := server.Serve(fmt.Sprintf("127.0.0.1:%d", port)); err != nil {
			log.WithError(err).Warn("nfs server stopped")
		}
	}()

	if err := kernelbridge.Mount(port, mountPath); err != nil {
		server.Shutdown()
		dec.Close()
		redirect.Dispose()
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to mount %s: %w", mountPath, err)
	}

	log.WithFields(map[string]interface{}{
		"archive": archivePath,
		"mount":   mountPath,
		"port":    port,
	}).Info("archive mounted")

	return &Session{
		archivePath: archivePath,
		mountPath:   mountPath,
		tempDir:     tempDir,
		dec:         dec,
		idx:         idx,
		cache:       cache,
		redirect:    redirect,
		server:      server,
		settings:    settings,
	}, nil
}

// logOpenFailure logs an archive-open failure with its status
// classification attached, so a log aggregator (or, eventually, a
// remote reporter) can separate expected user errors — bad password,
// corrupt archive, missing file — from genuine internal defects
// without re-deriving the classification itself.
func logOpenFailure(archivePath string, err error) {
	entry := log.WithError(err).WithField("archive", archivePath)
	var fault *status.Fault
	if errors.As(err, &fault) {
		entry = entry.WithFields(map[string]interface{}{
			"kind":       fault.Kind,
			"user_error": status.IsUserError(fault.Kind),
		})
	}
	entry.Warn("archive open failed")
}

// pickPort finds a free TCP port on loopback within [start, end] by
// trying to bind each port of the range in ascending order and
// returning the first that binds.
func pickPort(start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", p))
		if err != nil {
			continue
		}
		l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

// Wait blocks until SIGINT or SIGTERM is received, then tears the
// session down and returns.
func (s *Session) Wait() error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return s.Stop()
}

// Stop tears the session down in reverse acquisition order. Safe to
// call more than once.
func (s *Session) Stop() error {
	var firstErr error
	if err := kernelbridge.Unmount(s.mountPath); err != nil {
		log.WithError(err).Warn("unmount failed")
		if firstErr == nil {
			firstErr = err
		}
	}
	s.server.Shutdown()
	s.redirect.Dispose()
	s.cache.Dispose()
	s.dec.Close()
	if err := os.RemoveAll(s.tempDir); err != nil && firstErr == nil {
		firstErr = err
	}
	removeRootTempDirIfEmpty(filepath.Dir(s.tempDir))
	log.WithField("mount", s.mountPath).Info("archive unmounted")
	return firstErr
}

// removeRootTempDirIfEmpty removes the shared "SimpleZipDrive" parent of
// every session's temp dir once the last session has cleaned itself up,
// so a machine that mounts many archives over time doesn't accumulate an
// empty directory forever.
func removeRootTempDirIfEmpty(root string) {
	entries, err := os.ReadDir(root)
	if err != nil || len(entries) > 0 {
		return
	}
	if err := os.Remove(root); err != nil {
		log.WithError(err).WithField("dir", root).Debug("root temp dir cleanup skipped")
	}
}

// MountPath returns the filesystem path this session is mounted at.
func (s *Session) MountPath() string { return s.mountPath }
