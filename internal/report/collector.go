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

package report

import (
	"sort"
	"sync"
	"time"

	"github.com/tombee/citrus/pkg/testcase"
)

// Summary aggregates the results of a run.
type Summary struct {
	Total    int                `json:"total"`
	Passed   int                `json:"passed"`
	Failed   int                `json:"failed"`
	Skipped  int                `json:"skipped"`
	Duration time.Duration      `json:"duration"`
	Results  []*testcase.Result `json:"results"`
}

// Success reports whether no test failed.
func (s Summary) Success() bool {
	return s.Failed == 0
}

// Collector gathers finished results. It is safe for concurrent use.
type Collector struct {
	testcase.NopListener

	mu      sync.Mutex
	results []*testcase.Result
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) OnTestFinish(_ *testcase.TestCase, r *testcase.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// Add records a result produced outside a test case run, such as a
// definition that failed to load.
func (c *Collector) Add(r *testcase.Result) {
	c.OnTestFinish(nil, r)
}

// Reset drops all collected results.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = nil
}

// Summary returns the results ordered by package and name.
func (c *Collector) Summary(elapsed time.Duration) Summary {
	c.mu.Lock()
	results := make([]*testcase.Result, len(c.results))
	copy(results, c.results)
	c.mu.Unlock()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Package != results[j].Package {
			return results[i].Package < results[j].Package
		}
		return results[i].Name < results[j].Name
	})

	s := Summary{Total: len(results), Duration: elapsed, Results: results}
	for _, r := range results {
		switch r.Status {
		case testcase.ResultSuccess:
			s.Passed++
		case testcase.ResultSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	return s
}
