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

// Package testcase runs a test case: variable setup, the main action chain,
// completion of asynchronous work and the finally chain.
package testcase

import (
	"context"
	"log/slog"
	"time"

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/testcontext"
)

// DefaultTimeout bounds the wait for outstanding async actions after the
// main chain succeeded.
const DefaultTimeout = 10 * time.Second

// Status is the authoring status of a test case.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusFinal    Status = "final"
	StatusDisabled Status = "disabled"
)

// MetaInfo describes a test case.
type MetaInfo struct {
	Author      string
	Status      Status
	Group       string
	Description string
}

// Variable is a test variable definition. Value may hold dynamic content
// and may refer to variables defined before it.
type Variable struct {
	Name  string
	Value string
}

// TestCase is an ordered action list plus a finally chain that always runs.
type TestCase struct {
	Name    string
	Package string
	MetaInfo

	Parameters map[string]string
	Variables  []Variable
	Actions    []action.TestAction
	Finally    []action.TestAction

	// Timeout bounds the wait for async actions; zero means DefaultTimeout.
	Timeout time.Duration

	Listeners Listeners
}

// New creates a test case.
func New(name string, actions ...action.TestAction) *TestCase {
	return &TestCase{Name: name, Actions: actions}
}

// AddFinally appends actions to the finally chain.
func (t *TestCase) AddFinally(actions ...action.TestAction) {
	t.Finally = append(t.Finally, actions...)
}

// Run executes the test case with a fresh context from factory.
func (t *TestCase) Run(ctx context.Context, factory *testcontext.Factory) (*Result, error) {
	return t.RunWithContext(ctx, factory.NewContext())
}

// RunWithContext executes the test case on tc. The returned error is a
// *errors.TestCaseFailedError wrapping the root cause; the Result is always
// non-nil.
func (t *TestCase) RunWithContext(ctx context.Context, tc *testcontext.Context) (*Result, error) {
	result := &Result{
		Name:    t.Name,
		Package: t.Package,
		RunID:   tc.RunID(),
		Start:   time.Now(),
	}
	logger := tc.Logger().With(slog.String("test", t.Name))
	tc.WithLogger(logger)

	if t.Status == StatusDisabled {
		result.Status = ResultSkipped
		logger.Info("skipping disabled test case")
		t.Listeners.OnTestSkipped(t, result)
		t.Listeners.OnTestFinish(t, result)
		return result, nil
	}

	t.Listeners.OnTestStart(t, tc.RunID())
	logger.Info("test case started")

	mainErr := t.initialize(tc)
	if mainErr == nil {
		mainErr = t.runMain(ctx, tc, result)
	}
	if mainErr == nil {
		mainErr = t.complete(ctx, tc)
	}

	// the finally chain runs even when ctx was cancelled
	finallyErr := t.runFinally(context.WithoutCancel(ctx), tc, result)
	tc.StopTimers()

	result.Duration = time.Since(result.Start)
	switch {
	case mainErr != nil:
		result.Err = mainErr
		if finallyErr != nil {
			result.FinallyError = finallyErr
			logger.Warn("finally chain failed after test failure", slog.Any("error", finallyErr))
		}
	case finallyErr != nil:
		result.Err = finallyErr
	}

	if result.Err == nil {
		result.Status = ResultSuccess
		logger.Info("test case passed", slog.Int64("duration_ms", result.Duration.Milliseconds()))
		t.Listeners.OnTestSuccess(t, result)
		t.Listeners.OnTestFinish(t, result)
		return result, nil
	}

	result.Status = ResultFailure
	logger.Error("test case failed",
		slog.Int64("duration_ms", result.Duration.Milliseconds()),
		slog.Any("error", result.Err))
	t.Listeners.OnTestFailure(t, result)
	t.Listeners.OnTestFinish(t, result)
	return result, &errors.TestCaseFailedError{Test: t.Name, Cause: result.Err}
}

// initialize sets built-in variables, parameters and variable definitions.
func (t *TestCase) initialize(tc *testcontext.Context) error {
	tc.SetVariable(testcontext.VarTestName, t.Name)
	tc.SetVariable(testcontext.VarTestPackage, t.Package)
	tc.SetVariable(testcontext.VarRunID, tc.RunID())

	for _, name := range sortedKeys(t.Parameters) {
		value, err := tc.ReplaceDynamicContent(t.Parameters[name])
		if err != nil {
			return errors.WithCause(err, errors.KindCitrusRuntime, "failed to resolve test parameter '"+name+"'")
		}
		tc.SetVariable(name, value)
	}

	for _, v := range t.Variables {
		value, err := tc.ReplaceDynamicContent(v.Value)
		if err != nil {
			return errors.WithCause(err, errors.KindCitrusRuntime, "failed to resolve test variable '"+v.Name+"'")
		}
		tc.SetVariable(v.Name, value)
	}
	return nil
}

func (t *TestCase) runMain(ctx context.Context, tc *testcontext.Context, result *Result) error {
	for _, a := range t.Actions {
		if err := tc.TakeException(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.execute(ctx, tc, a, result); err != nil {
			return err
		}
	}
	return nil
}

// complete waits for async actions and surfaces their failures.
func (t *TestCase) complete(ctx context.Context, tc *testcontext.Context) error {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if err := tc.WaitForAsync(ctx, timeout); err != nil {
		return err
	}
	return tc.TakeException()
}

// runFinally executes the finally chain, stopping at the first failure.
func (t *TestCase) runFinally(ctx context.Context, tc *testcontext.Context, result *Result) error {
	if len(t.Finally) == 0 {
		return nil
	}
	tc.Logger().Debug("executing finally chain", slog.Int("actions", len(t.Finally)))
	for _, a := range t.Finally {
		if err := t.execute(ctx, tc, a, result); err != nil {
			return err
		}
	}
	return nil
}

func (t *TestCase) execute(ctx context.Context, tc *testcontext.Context, a action.TestAction, result *Result) error {
	t.Listeners.OnActionStart(t, tc.RunID(), a)
	err := action.ExecuteRecovered(ctx, tc, a)
	result.ActionsExecuted++
	t.Listeners.OnActionFinish(t, tc.RunID(), a, err)
	return err
}
