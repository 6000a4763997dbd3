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

// Conditional executes its children only when the expression holds.
type Conditional struct {
	Base
	Expression string
}

// NewConditional creates a conditional container.
func NewConditional(expression string, actions ...action.TestAction) *Conditional {
	return &Conditional{Base: Base{Base: action.Named("conditional"), Children: actions}, Expression: expression}
}

// Execute implements action.TestAction.
func (c *Conditional) Execute(ctx context.Context, tc *testcontext.Context) error {
	if c.Expression == "" {
		return errors.Validationf("conditional: missing expression")
	}
	ok, err := tc.EvaluateCondition(c.Expression)
	if err != nil {
		return err
	}
	if !ok {
		tc.Logger().Debug("condition not satisfied, skipping actions", slog.String("expression", c.Expression))
		return nil
	}
	return RunSequence(ctx, tc, c.Children)
}
