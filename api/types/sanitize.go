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

package types

import (
	"strings"
)

// sensitiveKeys are the lower-cased keys that are never persisted or
// rebroadcast.
var sensitiveKeys = map[string]bool{
	"apikey":       true,
	"api_key":      true,
	"secret":       true,
	"token":        true,
	"password":     true,
	"accesstoken":  true,
	"refreshtoken": true,
	"privatekey":   true,
	"credentials":  true,
}

// IsSensitiveKey returns whether the given key names a secret.
func IsSensitiveKey(key string) bool {
	return sensitiveKeys[strings.ToLower(key)]
}

// Sanitize returns a deep copy of value without any sensitive keys in the
// maps it contains. Values other than maps and slices are returned as is.
func Sanitize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return SanitizeMap(v)
	case []any:
		sanitized := make([]any, len(v))
		for i, elem := range v {
			sanitized[i] = Sanitize(elem)
		}
		return sanitized
	default:
		return value
	}
}

// SanitizeMap returns a deep copy of m without sensitive keys.
func SanitizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	sanitized := make(map[string]any, len(m))
	for k, v := range m {
		if IsSensitiveKey(k) {
			continue
		}
		sanitized[k] = Sanitize(v)
	}
	return sanitized
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	clone := make(map[string]any, len(m))
	for k, v := range m {
		clone[k] = copyValue(v)
	}
	return clone
}

func copyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return copyMap(v)
	case []any:
		clone := make([]any, len(v))
		for i, elem := range v {
			clone[i] = copyValue(elem)
		}
		return clone
	default:
		return value
	}
}
