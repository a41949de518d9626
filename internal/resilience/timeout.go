// Copyright 2024 AI SA Assistant Project
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

package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultTimeoutSeconds is the default timeout in seconds
	DefaultTimeoutSeconds = 30
	// DefaultTimeout is the deadline applied to one outbound provider call
	DefaultTimeout = DefaultTimeoutSeconds * time.Second
)

// ErrOperationTimedOut is returned when the deadline fires before the operation settles
var ErrOperationTimedOut = errors.New("operation timed out")

type result[T any] struct {
	value T
	err   error
}

// Do runs fn under a deadline derived from ctx. It returns as soon as the
// deadline fires; fn keeps running on a cancelled context and its result is
// discarded.
func Do[T any](ctx context.Context, timeout time.Duration, logger *zap.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so the worker never blocks after we stop listening.
	done := make(chan result[T], 1)

	go func() {
		value, err := fn(timeoutCtx)
		done <- result[T]{value: value, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			logger.Debug("Operation completed with error",
				zap.Error(res.err),
				zap.Duration("timeout", timeout))
		}
		return res.value, res.err
	case <-timeoutCtx.Done():
		var zero T
		if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			logger.Warn("Operation timed out",
				zap.Duration("timeout", timeout))
			return zero, fmt.Errorf("%w after %s", ErrOperationTimedOut, timeout)
		}
		return zero, timeoutCtx.Err()
	}
}
