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
	"sort"
	"time"
)

// ResultStatus is the outcome of a test case run.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailure ResultStatus = "failure"
	ResultSkipped ResultStatus = "skipped"
)

// Result records one test case run.
type Result struct {
	Name     string        `json:"name"`
	Package  string        `json:"package,omitempty"`
	RunID    string        `json:"run_id"`
	Status   ResultStatus  `json:"status"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`

	// ActionsExecuted counts top-level and finally actions that ran.
	ActionsExecuted int `json:"actions_executed"`

	// Err is the root cause of a failure.
	Err error `json:"-"`
	// FinallyError is a finally chain failure that followed a main chain
	// failure; it never replaces Err.
	FinallyError error `json:"-"`
}

// Success reports whether the run passed.
func (r *Result) Success() bool {
	return r.Status == ResultSuccess
}

// ErrorMessage returns the failure message or "".
func (r *Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
