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

package testcase

import (
	"github.com/tombee/citrus/pkg/action"
)

// Listener observes test case execution. Implementations must be safe for
// concurrent use when test cases run in parallel.
type Listener interface {
	OnTestStart(tc *TestCase, runID string)
	OnTestSuccess(tc *TestCase, result *Result)
	OnTestFailure(tc *TestCase, result *Result)
	OnTestSkipped(tc *TestCase, result *Result)
	OnTestFinish(tc *TestCase, result *Result)
	OnActionStart(tc *TestCase, runID string, a action.TestAction)
	OnActionFinish(tc *TestCase, runID string, a action.TestAction, err error)
}

// NopListener implements Listener with no-ops; embed it to override only
// the callbacks of interest.
type NopListener struct{}

func (NopListener) OnTestStart(*TestCase, string)                              {}
func (NopListener) OnTestSuccess(*TestCase, *Result)                           {}
func (NopListener) OnTestFailure(*TestCase, *Result)                           {}
func (NopListener) OnTestSkipped(*TestCase, *Result)                           {}
func (NopListener) OnTestFinish(*TestCase, *Result)                            {}
func (NopListener) OnActionStart(*TestCase, string, action.TestAction)         {}
func (NopListener) OnActionFinish(*TestCase, string, action.TestAction, error) {}

// Listeners fans out every callback in order.
type Listeners []Listener

func (l Listeners) OnTestStart(tc *TestCase, runID string) {
	for _, x := range l {
		x.OnTestStart(tc, runID)
	}
}

func (l Listeners) OnTestSuccess(tc *TestCase, r *Result) {
	for _, x := range l {
		x.OnTestSuccess(tc, r)
	}
}

func (l Listeners) OnTestFailure(tc *TestCase, r *Result) {
	for _, x := range l {
		x.OnTestFailure(tc, r)
	}
}

func (l Listeners) OnTestSkipped(tc *TestCase, r *Result) {
	for _, x := range l {
		x.OnTestSkipped(tc, r)
	}
}

func (l Listeners) OnTestFinish(tc *TestCase, r *Result) {
	for _, x := range l {
		x.OnTestFinish(tc, r)
	}
}

func (l Listeners) OnActionStart(tc *TestCase, runID string, a action.TestAction) {
	for _, x := range l {
		x.OnActionStart(tc, runID, a)
	}
}

func (l Listeners) OnActionFinish(tc *TestCase, runID string, a action.TestAction, err error) {
	for _, x := range l {
		x.OnActionFinish(tc, runID, a, err)
	}
}
