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
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind names a class of test execution failure. Kinds form a single-parent
// hierarchy so that a filter on a kind also matches all of its sub-kinds.
type Kind string

const (
	KindThrowable      Kind = "Throwable"
	KindException      Kind = "Exception"
	KindRuntime        Kind = "RuntimeException"
	KindCitrusRuntime  Kind = "CitrusRuntimeException"
	KindValidation     Kind = "ValidationException"
	KindActionTimeout  Kind = "ActionTimeoutException"
	KindTestCaseFailed Kind = "TestCaseFailedException"
)

var kindParents = map[Kind]Kind{
	KindException:      KindThrowable,
	KindRuntime:        KindException,
	KindCitrusRuntime:  KindRuntime,
	KindValidation:     KindCitrusRuntime,
	KindActionTimeout:  KindCitrusRuntime,
	KindTestCaseFailed: KindCitrusRuntime,
}

// ParseKind converts a type name into a Kind. Package qualified names such as
// "org.citrusframework.exceptions.CitrusRuntimeException" are reduced to the
// simple name after the last dot.
func ParseKind(name string) Kind {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return Kind(name)
}

// Known reports whether k is part of the kind hierarchy.
func (k Kind) Known() bool {
	if k == KindThrowable {
		return true
	}
	_, ok := kindParents[k]
	return ok
}

// Is reports whether k equals target or descends from it.
func (k Kind) Is(target Kind) bool {
	for cur := k; cur != ""; cur = kindParents[cur] {
		if cur == target {
			return true
		}
	}
	return false
}

// ActionError is the general test execution failure raised by actions.
type ActionError struct {
	// Kind classifies the failure; empty means KindCitrusRuntime
	Kind Kind

	// Action is the name of the failing action, if known
	Action string

	// Message is the human-readable failure description
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *ActionError) Error() string {
	msg := e.Message
	if e.Action != "" {
		msg = fmt.Sprintf("%s: %s", e.Action, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ActionError) Unwrap() error {
	return e.Cause
}

func (e *ActionError) kind() Kind {
	if e.Kind == "" {
		return KindCitrusRuntime
	}
	return e.Kind
}

// Runtimef creates a CitrusRuntimeException failure.
func Runtimef(format string, args ...interface{}) *ActionError {
	return &ActionError{Kind: KindCitrusRuntime, Message: fmt.Sprintf(format, args...)}
}

// Validationf creates a ValidationException failure.
func Validationf(format string, args ...interface{}) *ActionError {
	return &ActionError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// WithCause wraps err as a failure of the given kind.
// If err is nil, returns nil.
func WithCause(err error, kind Kind, message string) error {
	if err == nil {
		return nil
	}
	return &ActionError{Kind: kind, Message: message, Cause: err}
}

// AggregateError collects the failures of concurrently executed actions.
type AggregateError struct {
	Errors []error
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d of the parallel actions failed: [%s]", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes every collected failure to errors.Is/As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// TestCaseFailedError is returned by a test case whose execution failed.
// Unwrap yields the root cause.
type TestCaseFailedError struct {
	// Test is the test case name
	Test string

	// Cause is the primary failure
	Cause error
}

// Error implements the error interface.
func (e *TestCaseFailedError) Error() string {
	return fmt.Sprintf("test case '%s' failed: %v", e.Test, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TestCaseFailedError) Unwrap() error {
	return e.Cause
}

// KindOf classifies err. The outermost classified error in the chain wins;
// unclassified errors are KindRuntime.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	switch e := err.(type) {
	case *ActionError:
		return e.kind()
	case *AggregateError:
		return KindCitrusRuntime
	case *TestCaseFailedError:
		return KindTestCaseFailed
	case *TimeoutError:
		return KindActionTimeout
	case *ValidationError:
		return KindValidation
	case *ContextError:
		return e.Kind()
	}
	if err == context.DeadlineExceeded {
		return KindActionTimeout
	}
	if inner := errors.Unwrap(err); inner != nil {
		return KindOf(inner)
	}
	return KindRuntime
}

// Matches reports whether err is of the named kind or one of its sub-kinds.
func Matches(err error, typeName string) bool {
	if err == nil {
		return false
	}
	return KindOf(err).Is(ParseKind(typeName))
}
