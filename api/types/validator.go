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
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yorkie-team/coedit/pkg/errors"
)

var (
	defaultValidator = initValidator()

	// ErrInvalidFields is returned when the fields of a request are invalid.
	ErrInvalidFields = errors.InvalidArgument("invalid fields").WithCode("ErrInvalidFields")
)

func initValidator() *validator.Validate {
	return validator.New()
}

// registerValidation is shortcut of defaultValidator.RegisterValidation
// that registers a custom validation with the given tag. It is used in init.
func registerValidation(tag string, fn validator.Func) {
	if err := defaultValidator.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// validateStruct validates s and reports every failed field in one error
// wrapping ErrInvalidFields.
func validateStruct(s interface{}) error {
	err := defaultValidator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%s: %w", err.Error(), ErrInvalidFields)
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%s: %w", strings.Join(fields, ", "), ErrInvalidFields)
}
