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

package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"simplezipdrive/internal/archive"
	"simplezipdrive/internal/config"
	"simplezipdrive/internal/logging"
	"simplezipdrive/internal/mountlifecycle"
	"simplezipdrive/internal/status"
)

// driveLabels names the drag-and-drop candidate mount points, echoing
// the M:\-Q:\ drive-letter sweep a Windows build of this tool would do;
// on this platform each label becomes a subdirectory instead of a
// drive letter.
var driveLabels = []string{"M", "N", "O", "P", "Q"}

var mountCmd = &cobra.Command{
	Use:   "mount <archive-path> [mount-point]",
	Short: "Mount a zip, 7z or rar archive read-only",
	Long: `Mounts a zip, 7z or rar archive read-only at the given mount point.

With one argument, iterates a fixed set of candidate mount points
(drag-and-drop mode) until one succeeds.

Examples:
  simplezipdrive mount archive.zip ./extracted
  simplezipdrive mount archive.zip`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runMount,
}

func init() {
	rootCmd.AddCommand(mountCmd)
}

func runMount(cmd *cobra.Command, args []string) error {
	archivePath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve archive path: %w", err)
	}
	if _, err := os.Stat(archivePath); err != nil {
		return fmt.Errorf("archive not found: %s", archivePath)
	}

	ext := strings.ToLower(filepath.Ext(archivePath))
	switch ext {
	case ".zip", ".7z", ".rar":
	default:
		return fmt.Errorf("unsupported archive extension %q (expected .zip, .7z or .rar)", ext)
	}

	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.SetLevel(settings.LogLevel)

	passwords := consolePasswordProvider()

	if len(args) == 2 {
		mountPoint, err := filepath.Abs(args[1])
		if err != nil {
			return fmt.Errorf("failed to resolve mount point: %w", err)
		}
		return mountAndWait(archivePath, mountPoint, settings, passwords)
	}

	return mountDragAndDrop(archivePath, settings, passwords)
}

// mountDragAndDrop tries each candidate mount point in turn until one
// succeeds, matching the drag-and-drop M:\-Q:\ sweep.
func mountDragAndDrop(archivePath string, settings *config.Settings, passwords archive.PasswordProvider) error {
	base, err := dragAndDropBase()
	if err != nil {
		return fmt.Errorf("failed to resolve mount base directory: %w", err)
	}

	var lastErr error
	for _, label := range driveLabels {
		candidate := filepath.Join(base, label)
		if err := os.MkdirAll(candidate, 0o755); err != nil {
			lastErr = err
			continue
		}
		entries, err := os.ReadDir(candidate)
		if err != nil || len(entries) > 0 {
			lastErr = fmt.Errorf("candidate %s is in use", candidate)
			continue
		}
		if err := mountAndWait(archivePath, candidate, settings, passwords); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("no candidate mount point available: %w", lastErr)
}

func dragAndDropBase() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "SimpleZipDriveMounts"), nil
}

func mountAndWait(archivePath, mountPoint string, settings *config.Settings, passwords archive.PasswordProvider) error {
	session, err := mountlifecycle.Start(archivePath, mountPoint, settings, passwords)
	if err != nil {
		return describeMountFailure(err)
	}
	fmt.Printf("%s mounted at %s (press Ctrl-C to unmount)\n", archivePath, session.MountPath())
	return session.Wait()
}

// describeMountFailure reports a mount failure with remediation text
// that depends on whether it was an expected user error (bad password,
// corrupt archive, full disk, ...) or a genuine internal defect: the
// former gets a plain message, the latter asks the user to file a bug
// since it isn't something they can fix on their end.
func describeMountFailure(err error) error {
	var fault *status.Fault
	if errors.As(err, &fault) && status.IsUserError(fault.Kind) {
		return fmt.Errorf("mount failed: %v", fault)
	}
	return fmt.Errorf("mount failed (unexpected internal error, please file a bug report): %w", err)
}

// consolePasswordProvider prompts once on stdin the first time an
// encrypted entry is encountered, and reuses the answer thereafter.
func consolePasswordProvider() archive.PasswordProvider {
	var cached string
	var asked bool
	return func() (string, bool) {
		if asked {
			return cached, cached != ""
		}
		asked = true
		fmt.Print("Archive password: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", false
		}
		cached = strings.TrimRight(line, "\r\n")
		return cached, cached != ""
	}
}
