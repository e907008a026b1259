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

// Package retryutil wraps transient source-I/O errors encountered while
// opening the archive in a short, backed-off retry. Permanent
// faults (bad archive format, wrong password) are never retried.
package retryutil

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"

	"simplezipdrive/internal/status"
)

// SourceIOOptions returns retry options restricted to transient
// source-io faults: three attempts, waiting 100ms after the first
// failure and 200ms after the second (doubling backoff capped at 300ms).
func SourceIOOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Attempts(3),
		retry.Delay(100 * time.Millisecond),
		retry.MaxDelay(300 * time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsTransientSourceIO),
		retry.Context(ctx),
	}
}

// Retry executes fn, retrying only on transient source-io faults.
func Retry(ctx context.Context, fn func() error) error {
	return retry.Do(fn, SourceIOOptions(ctx)...)
}

// RetryWithResult executes fn, retrying only on transient source-io
// faults, and returns the produced value.
func RetryWithResult[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	return retry.DoWithData(fn, SourceIOOptions(ctx)...)
}

// IsTransientSourceIO reports whether err is a *status.Fault of kind
// KindSourceIO, the only kind eligible for retry at mount time.
func IsTransientSourceIO(err error) bool {
	if err == nil {
		return false
	}
	f, ok := err.(*status.Fault)
	if !ok {
		return false
	}
	return f.Kind == status.KindSourceIO
}
