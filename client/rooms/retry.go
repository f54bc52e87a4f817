/*
 * Copyright 2025 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package rooms

import (
	"context"
	"errors"
	"net/http"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// withExponentialBackoff calls fn until it succeeds or fails with a status that
// should not be retried, retrying at most maxRetries times. The wait doubles
// from baseInterval up to maxInterval.
func withExponentialBackoff(
	ctx context.Context,
	maxRetries uint64,
	baseInterval, maxInterval time.Duration,
	fn func() (int, error),
) (int, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseInterval
	b.MaxInterval = maxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.RetryWithData(func() (int, error) {
		statusCode, err := fn()
		if err != nil && !shouldRetry(statusCode, err) {
			return statusCode, backoff.Permanent(err)
		}
		return statusCode, err
	}, backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx))
}

// shouldRetry returns true if the given error should be retried.
// Refer to https://github.com/kubernetes/kubernetes/search?q=DefaultShouldRetry
func shouldRetry(statusCode int, err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ECONNRESET || errno == syscall.ECONNREFUSED
	}

	return statusCode == http.StatusInternalServerError ||
		statusCode == http.StatusBadGateway ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout ||
		statusCode == http.StatusTooManyRequests
}
