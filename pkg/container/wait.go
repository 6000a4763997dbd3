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
	"time"

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/testcontext"
)

// Wait defaults.
const (
	DefaultWaitTime     = 5 * time.Second
	DefaultWaitInterval = time.Second
)

// Condition is polled by a Wait action.
type Condition interface {
	// Name describes the condition in logs and errors.
	Name() string

	// IsSatisfied checks the condition once. An error counts as not
	// satisfied.
	IsSatisfied(ctx context.Context, tc *testcontext.Context) (bool, error)
}

// Wait blocks until its condition is satisfied or the time budget is spent.
type Wait struct {
	action.Base
	Condition Condition

	// Time is the total budget; empty means DefaultWaitTime.
	Time string
	// Interval is the pause between checks; empty means DefaultWaitInterval.
	Interval string
}

// NewWait creates a wait action.
func NewWait(condition Condition) *Wait {
	return &Wait{Base: action.Named("wait"), Condition: condition}
}

// Actions implements Container for action conditions.
func (w *Wait) Actions() []action.TestAction {
	if c, ok := w.Condition.(*ActionCondition); ok && c.Action != nil {
		return []action.TestAction{c.Action}
	}
	return nil
}

// Execute implements action.TestAction.
func (w *Wait) Execute(ctx context.Context, tc *testcontext.Context) error {
	if w.Condition == nil {
		return errors.Validationf("wait: missing condition")
	}
	budget, err := w.duration(tc, w.Time, DefaultWaitTime)
	if err != nil {
		return err
	}
	interval, err := w.duration(tc, w.Interval, DefaultWaitInterval)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	logger := tc.Logger().With(slog.String("condition", w.Condition.Name()))
	logger.Info("waiting for condition", slog.Duration("time", budget), slog.Duration("interval", interval))
	start := time.Now()

	for attempt := 1; ; attempt++ {
		ok, err := w.Condition.IsSatisfied(waitCtx, tc)
		switch {
		case err != nil:
			logger.Debug("condition check failed", slog.Int("attempt", attempt), slog.Any("error", err))
		case ok:
			logger.Info("condition satisfied", slog.Int64("duration_ms", time.Since(start).Milliseconds()))
			return nil
		}

		if err := action.Wait(waitCtx, interval); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &errors.ActionError{
				Kind:    errors.KindActionTimeout,
				Action:  w.Name(),
				Message: fmt.Sprintf("condition '%s' not satisfied", w.Condition.Name()),
				Cause:   &errors.TimeoutError{Operation: "wait", Duration: budget},
			}
		}
	}
}

func (w *Wait) duration(tc *testcontext.Context, raw string, def time.Duration) (time.Duration, error) {
	resolved, err := tc.ReplaceDynamicContent(raw)
	if err != nil {
		return 0, err
	}
	return action.ParseDuration(resolved, def)
}
