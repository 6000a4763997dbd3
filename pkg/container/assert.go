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

package container

import (
	"context"
	"log/slog"

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/testcontext"
)

// Assert executes one action that is expected to fail with a given kind and,
// optionally, message.
type Assert struct {
	action.Base
	Action action.TestAction

	// Exception is the expected kind; empty means CitrusRuntimeException.
	Exception string
	// Message is compared against the failure message when set
	// (dynamic content; "@ignore@" accepts any message).
	Message string
}

// NewAssert creates an assert container.
func NewAssert(exception string, a action.TestAction) *Assert {
	return &Assert{Base: action.Named("assert"), Action: a, Exception: exception}
}

// Actions implements Container.
func (a *Assert) Actions() []action.TestAction {
	if a.Action == nil {
		return nil
	}
	return []action.TestAction{a.Action}
}

// Execute implements action.TestAction.
func (a *Assert) Execute(ctx context.Context, tc *testcontext.Context) error {
	expected := a.Exception
	if expected == "" {
		expected = DefaultCatchException
	}
	if a.Action == nil {
		return errors.Validationf("assert: missing action")
	}

	err := a.Action.Execute(ctx, tc)
	if err == nil {
		return errors.Validationf("missing asserted exception '%s'", expected)
	}

	if !errors.Matches(err, expected) {
		return &errors.ActionError{
			Kind:    errors.KindValidation,
			Message: "validation failed for asserted exception type - expected '" + expected + "' but was '" + string(errors.KindOf(err)) + "'",
			Cause:   err,
		}
	}

	if a.Message != "" {
		want, rerr := tc.ReplaceDynamicContent(a.Message)
		if rerr != nil {
			return rerr
		}
		if want != action.IgnorePlaceholder && want != failureMessage(err) && want != err.Error() {
			return &errors.ActionError{
				Kind:    errors.KindValidation,
				Message: "validation failed for asserted exception message - expected '" + want + "' but was '" + failureMessage(err) + "'",
				Cause:   err,
			}
		}
	}

	tc.Logger().Info("asserted exception as expected",
		slog.String("kind", string(errors.KindOf(err))),
		slog.Any("error", err))
	return nil
}

// failureMessage returns the bare message of the outermost action failure.
func failureMessage(err error) string {
	var ae *errors.ActionError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
