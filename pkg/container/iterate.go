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

// DefaultIndexName is the loop index variable when none is configured.
const DefaultIndexName = "i"

// Loop holds the index and condition settings shared by the iterating
// containers. A zero Step means 1.
type Loop struct {
	Base
	Condition string
	IndexName string
	Start     int
	Step      int
}

func (l *Loop) indexName() string {
	if l.IndexName == "" {
		return DefaultIndexName
	}
	return l.IndexName
}

func (l *Loop) step() int {
	if l.Step == 0 {
		return 1
	}
	return l.Step
}

// check binds the index and evaluates the condition.
func (l *Loop) check(tc *testcontext.Context, index int) (bool, error) {
	tc.SetVariable(l.indexName(), index)
	ok, err := tc.EvaluateCondition(l.Condition)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (l *Loop) validate() error {
	if l.Condition == "" {
		return errors.Validationf("%s: missing loop condition", l.Name())
	}
	return nil
}

// Iterate executes its children while the condition holds, incrementing
// the index after every pass.
type Iterate struct {
	Loop
}

// NewIterate creates an iterate container.
func NewIterate(condition string, actions ...action.TestAction) *Iterate {
	return &Iterate{Loop: Loop{Base: Base{Base: action.Named("iterate"), Children: actions}, Condition: condition, Start: 1}}
}

// Execute implements action.TestAction.
func (it *Iterate) Execute(ctx context.Context, tc *testcontext.Context) error {
	if err := it.validate(); err != nil {
		return err
	}

	passes := 0
	for index := it.Start; ; index += it.step() {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := it.check(tc, index)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := RunSequence(ctx, tc, it.Children); err != nil {
			return err
		}
		passes++
	}

	tc.Logger().Debug("iteration finished", slog.String("index", it.indexName()), slog.Int("passes", passes))
	return nil
}

// RepeatUntilTrue executes its children at least once and repeats until the
// condition holds.
type RepeatUntilTrue struct {
	Loop
}

// NewRepeatUntilTrue creates a repeat container.
func NewRepeatUntilTrue(condition string, actions ...action.TestAction) *RepeatUntilTrue {
	return &RepeatUntilTrue{Loop: Loop{Base: Base{Base: action.Named("repeat"), Children: actions}, Condition: condition, Start: 1}}
}

// Execute implements action.TestAction.
func (r *RepeatUntilTrue) Execute(ctx context.Context, tc *testcontext.Context) error {
	if err := r.validate(); err != nil {
		return err
	}

	index := r.Start
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tc.SetVariable(r.indexName(), index)
		if err := RunSequence(ctx, tc, r.Children); err != nil {
			return err
		}
		index += r.step()

		done, err := r.check(tc, index)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}
