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

// Package action defines the TestAction contract and the basic, non-container
// test actions.
package action

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/testcontext"
)

// TestAction is one executable step of a test case.
type TestAction interface {
	// Name returns the action name used in logs and reports.
	Name() string

	// Description returns an optional human readable description.
	Description() string

	// Execute runs the action against the shared test context.
	Execute(ctx context.Context, tc *testcontext.Context) error
}

// ExecuteRecovered runs a and turns a panic into a CitrusRuntimeException
// failure of a.
func ExecuteRecovered(ctx context.Context, tc *testcontext.Context, a TestAction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &errors.ActionError{
				Kind:    errors.KindCitrusRuntime,
				Action:  a.Name(),
				Message: fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return a.Execute(ctx, tc)
}

// Base carries the name and description every action has.
type Base struct {
	ActionName        string
	ActionDescription string
}

// Name implements TestAction.
func (b Base) Name() string {
	return b.ActionName
}

// Description implements TestAction.
func (b Base) Description() string {
	return b.ActionDescription
}

// Named returns a Base with the given name.
func Named(name string) Base {
	return Base{ActionName: name}
}

// Func adapts a function to a TestAction.
type Func struct {
	Base
	Fn func(ctx context.Context, tc *testcontext.Context) error
}

// NewFunc creates a named function action.
func NewFunc(name string, fn func(ctx context.Context, tc *testcontext.Context) error) *Func {
	return &Func{Base: Named(name), Fn: fn}
}

// Execute implements TestAction.
func (f *Func) Execute(ctx context.Context, tc *testcontext.Context) error {
	return f.Fn(ctx, tc)
}

// ParseDuration accepts a Go duration ("1.5s", "200ms") or an integer number
// of milliseconds. Empty input yields def.
func ParseDuration(s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Runtimef("invalid duration '%s'", s)
	}
	return d, nil
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
