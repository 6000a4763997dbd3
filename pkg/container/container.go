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

// Package container implements the test actions that own and orchestrate
// child actions: sequence, parallel, loops, conditionals, exception
// handling, timers, async execution and waiting.
package container

import (
	"context"
	"log/slog"

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/testcontext"
)

// Container is a test action holding child actions.
type Container interface {
	action.TestAction

	// Actions returns the children in execution order.
	Actions() []action.TestAction
}

// Base is embedded by every container.
type Base struct {
	action.Base
	Children []action.TestAction
}

// Actions implements Container.
func (b *Base) Actions() []action.TestAction {
	return b.Children
}

// AddActions appends children.
func (b *Base) AddActions(actions ...action.TestAction) {
	b.Children = append(b.Children, actions...)
}

// RunSequence executes actions in order and returns the first failure
// unchanged. Remaining actions are skipped after a failure or when ctx is
// done.
func RunSequence(ctx context.Context, tc *testcontext.Context, actions []action.TestAction) error {
	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		tc.Logger().Debug("executing action", slog.String("action", a.Name()))
		if err := a.Execute(ctx, tc); err != nil {
			return err
		}
	}
	return nil
}
