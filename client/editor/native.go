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

package editor

import (
	"github.com/yorkie-team/coedit/pkg/document/operation"
	"github.com/yorkie-team/coedit/pkg/errors"
)

// ErrUnsupportedWidget is returned when a widget can not be bound.
var ErrUnsupportedWidget = errors.InvalidArgument("unsupported widget").WithCode("ErrUnsupportedWidget")

// nativeBinding forwards the changes a widget reports.
type nativeBinding struct {
	base
	unsubscribe func()
}

func newNativeBinding(source ChangeSource) *nativeBinding {
	b := &nativeBinding{base: base{widget: source, handlers: make(map[int]func([]Change))}}
	b.unsubscribe = source.OnChange(b.emit)
	return b
}

func (b *nativeBinding) SetValue(value string) {
	b.setApplying(true)
	defer b.setApplying(false)

	b.widget.SetValue(value)
}

// Sync is a no-op: the widget reports its changes as they happen.
func (b *nativeBinding) Sync() {}

func (b *nativeBinding) ApplyOperation(op *operation.Operation) error {
	text, err := operation.Apply(b.widget.GetValue(), op)
	if err != nil {
		return err
	}

	b.SetValue(text)
	return nil
}

func (b *nativeBinding) Close() {
	b.unsubscribe()
}
