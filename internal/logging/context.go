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

package logging

import (
	"context"
)

type scopedLoggerKey struct{}

// With returns a copy of ctx carrying the logger scoped to one HTTP request
// or one background routine of the relay.
func With(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, scopedLoggerKey{}, logger)
}

// From returns the scoped logger carried by ctx. Without one it returns
// fallback, or the default logger when fallback is nil.
func From(ctx context.Context, fallback Logger) Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(scopedLoggerKey{}).(Logger); ok && logger != nil {
			return logger
		}
	}

	if fallback != nil {
		return fallback
	}
	return DefaultLogger()
}
