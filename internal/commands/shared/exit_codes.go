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

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	citruserrors "github.com/tombee/citrus/pkg/errors"
)

// Exit codes of the citrus command
const (
	ExitSuccess           = 0
	ExitTestsFailed       = 1
	ExitInvalidDefinition = 2
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return e.Cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewTestsFailedError creates an error for runs with failing tests
func NewTestsFailedError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitTestsFailed,
		Message: msg,
		Cause:   cause,
	}
}

// NewInvalidDefinitionError creates an error for test definitions or
// configuration that cannot be loaded
func NewInvalidDefinitionError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidDefinition,
		Message: msg,
		Cause:   cause,
	}
}

// ExitCode returns the exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitTestsFailed
}

// HandleExitError prints err and exits with its exit code
func HandleExitError(err error) {
	if err == nil {
		return
	}
	printError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

func printError(w io.Writer, err error) {
	var exitErr *ExitError
	// an empty message means the command already reported the failure
	if errors.As(err, &exitErr) && exitErr.Message == "" && exitErr.Cause == nil {
		return
	}
	fmt.Fprintln(w, RenderError(err.Error()))

	var verr *citruserrors.ValidationError
	if errors.As(err, &verr) && verr.Suggestion != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", verr.Suggestion)
	}
}
