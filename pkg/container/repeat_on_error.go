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
	"time"

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/testcontext"
)

// DefaultAutoSleep is the pause between failed passes of a
// RepeatOnErrorUntilTrue container.
const DefaultAutoSleep = time.Second

// RepeatOnErrorUntilTrue retries its children until they succeed. After a
// failed pass it sleeps, increments the index and re-checks the condition;
// once the condition holds the container gives up and succeeds, so a
// transient failure is tolerated. When ctx ends first, the last failure is
// returned.
type RepeatOnErrorUntilTrue struct {
	Loop

	// AutoSleep is the pause after a failed pass (dynamic content, Go
	// duration or milliseconds). Empty means DefaultAutoSleep.
	AutoSleep string
}

// NewRepeatOnErrorUntilTrue creates a repeat-on-error container.
func NewRepeatOnErrorUntilTrue(condition string, actions ...action.TestAction) *RepeatOnErrorUntilTrue {
	return &RepeatOnErrorUntilTrue{
		Loop: Loop{Base: Base{Base: action.Named("repeat-onerror-until-true"), Children: actions}, Condition: condition, Start: 1},
	}
}

// Execute implements action.TestAction.
func (r *RepeatOnErrorUntilTrue) Execute(ctx context.Context, tc *testcontext.Context) error {
	if err := r.validate(); err != nil {
		return err
	}
	rawSleep, err := tc.ReplaceDynamicContent(r.AutoSleep)
	if err != nil {
		return err
	}
	autoSleep, err := action.ParseDuration(rawSleep, DefaultAutoSleep)
	if err != nil {
		return err
	}

	var lastErr error
	for index := r.Start; ; index += r.step() {
		done, err := r.check(tc, index)
		if err != nil {
			return err
		}
		if done {
			break
		}

		err = RunSequence(ctx, tc, r.Children)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil && lastErr != nil {
			return lastErr
		}
		lastErr = err
		if ctx.Err() != nil {
			return lastErr
		}

		tc.Logger().Info("caught failure, repeating",
			slog.Int(r.indexName(), index),
			slog.String("kind", string(errors.KindOf(lastErr))),
			slog.Any("error", lastErr))

		if err := action.Wait(ctx, autoSleep); err != nil {
			return lastErr
		}
	}

	if lastErr != nil {
		tc.Logger().Info("condition reached, tolerating last failure", slog.Any("error", lastErr))
	}
	return nil
}
