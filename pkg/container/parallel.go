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

// Parallel executes its children concurrently and waits for all of them.
// Failures do not cancel siblings; when any child fails an
// *errors.AggregateError holding every failure, in child order, is returned.
//
// Children share the test context. Variable writes of concurrent children
// may interleave in any order.
type Parallel struct {
	Base

	// MaxConcurrency limits how many children run at once. Zero means no
	// limit.
	MaxConcurrency int
}

// NewParallel creates a parallel container.
func NewParallel(actions ...action.TestAction) *Parallel {
	return &Parallel{Base: Base{Base: action.Named("parallel"), Children: actions}}
}

// Execute implements action.TestAction.
func (p *Parallel) Execute(ctx context.Context, tc *testcontext.Context) error {
	if len(p.Children) == 0 {
		return nil
	}

	limit := p.MaxConcurrency
	if limit <= 0 || limit > len(p.Children) {
		limit = len(p.Children)
	}
	sem := make(chan struct{}, limit)

	type childResult struct {
		index int
		err   error
	}
	results := make(chan childResult, len(p.Children))
	start := time.Now()

	tc.Logger().Debug("starting parallel execution",
		slog.Int("children", len(p.Children)),
		slog.Int("max_concurrency", limit))

	for i, child := range p.Children {
		go func(i int, child action.TestAction) {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results <- childResult{index: i, err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			results <- childResult{index: i, err: action.ExecuteRecovered(ctx, tc, child)}
		}(i, child)
	}

	failures := make([]error, len(p.Children))
	failed := 0
	for range p.Children {
		r := <-results
		if r.err != nil {
			failures[r.index] = r.err
			failed++
		}
	}

	tc.Logger().Debug("parallel execution complete",
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		slog.Int("error_count", failed))

	if failed == 0 {
		return nil
	}
	errs := make([]error, 0, failed)
	for _, err := range failures {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return &errors.AggregateError{Errors: errs}
}
