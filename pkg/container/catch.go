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

// DefaultCatchException is the filter of a Catch container without one.
const DefaultCatchException = string(errors.KindCitrusRuntime)

// Catch executes its children and swallows failures whose kind matches the
// exception filter. Execution then continues with the next child.
// Non-matching failures propagate unchanged.
type Catch struct {
	Base

	// Exception is a kind name; package qualified names are accepted and
	// sub-kinds match.
	Exception string
}

// NewCatch creates a catch container.
func NewCatch(exception string, actions ...action.TestAction) *Catch {
	return &Catch{Base: Base{Base: action.Named("catch"), Children: actions}, Exception: exception}
}

// Execute implements action.TestAction.
func (c *Catch) Execute(ctx context.Context, tc *testcontext.Context) error {
	filter := c.Exception
	if filter == "" {
		filter = DefaultCatchException
	}

	for _, child := range c.Children {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := child.Execute(ctx, tc)
		if err == nil {
			continue
		}
		if !errors.Matches(err, filter) {
			return err
		}
		tc.Logger().Info("caught exception",
			slog.String("action", child.Name()),
			slog.String("kind", string(errors.KindOf(err))),
			slog.Any("error", err))
	}
	return nil
}
