// Copyright 2025 Tom Barlow
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

package errors

import (
	"errors"
	"fmt"
)

// ContextError annotates a failure with where it happened, such as the
// definition file or data source being read, without changing its kind.
type ContextError struct {
	// Context describes the operation that failed
	Context string

	// Cause is the annotated failure
	Cause error
}

// Error implements the error interface.
func (e *ContextError) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

// Unwrap returns the annotated failure.
func (e *ContextError) Unwrap() error {
	return e.Cause
}

// Kind is the kind of the annotated failure, so a catch or assert filter
// on ValidationException still matches a wrapped validation failure.
func (e *ContextError) Kind() Kind {
	return KindOf(e.Cause)
}

// Wrap annotates err with message. Returns nil for a nil err.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &ContextError{Context: message, Cause: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ContextError{Context: fmt.Sprintf(format, args...), Cause: err}
}

// As is errors.As, re-exported so callers need a single errors import.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Unwrap is errors.Unwrap.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join is errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
