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

package background_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/coedit/server/backend/background"
	"github.com/yorkie-team/coedit/server/profiling/prometheus"
)

func TestBackground(t *testing.T) {
	t.Run("close waits for routines test", func(t *testing.T) {
		metrics, err := prometheus.NewMetrics()
		require.NoError(t, err)
		bg := background.New(metrics)

		var finished int32
		started := make(chan struct{}, 2)
		for range 2 {
			assert.True(t, bg.AttachGoroutine(func(ctx context.Context) {
				started <- struct{}{}
				<-ctx.Done()
				atomic.AddInt32(&finished, 1)
			}, "test"))
		}
		<-started
		<-started

		bg.Close()
		assert.Equal(t, int32(2), atomic.LoadInt32(&finished))
		assert.False(t, bg.AttachGoroutine(func(context.Context) {}, "test"))
	})
}
