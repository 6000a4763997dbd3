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
	"fmt"
	"log/slog"

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/testcontext"
)

// Async starts its children on a separate goroutine and returns at once.
// When the children finish, the success actions (no failure) or the error
// actions (failure) run on the same goroutine. Failures of the children or
// of a branch are added to the context's exception list, where the test
// case picks them up.
type Async struct {
	Base
	SuccessActions []action.TestAction
	ErrorActions   []action.TestAction
}

// NewAsync creates an async container.
func NewAsync(actions ...action.TestAction) *Async {
	return &Async{Base: Base{Base: action.Named("async"), Children: actions}}
}

// Execute implements action.TestAction.
func (a *Async) Execute(ctx context.Context, tc *testcontext.Context) error {
	done := tc.StartAsync()
	go func() {
		defer done()
		defer func() {
			if r := recover(); r != nil {
				tc.AddException(&errors.ActionError{
					Kind:    errors.KindCitrusRuntime,
					Action:  a.Name(),
					Message: fmt.Sprintf("panic: %v", r),
				})
			}
		}()
		a.run(ctx, tc)
	}()
	return nil
}

func (a *Async) run(ctx context.Context, tc *testcontext.Context) {
	err := RunSequence(ctx, tc, a.Children)
	if err != nil {
		tc.Logger().Warn("async actions failed", slog.Any("error", err))
		tc.AddException(err)
		if branchErr := RunSequence(ctx, tc, a.ErrorActions); branchErr != nil {
			tc.AddException(branchErr)
		}
		return
	}

	tc.Logger().Debug("async actions finished")
	if branchErr := RunSequence(ctx, tc, a.SuccessActions); branchErr != nil {
		tc.AddException(branchErr)
	}
}
