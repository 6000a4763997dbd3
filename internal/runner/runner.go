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

// Package runner discovers test definitions and executes them against a
// shared set of endpoints and data sources.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tombee/citrus/internal/config"
	"github.com/tombee/citrus/internal/datasource"
	"github.com/tombee/citrus/internal/log"
	"github.com/tombee/citrus/pkg/definition"
	"github.com/tombee/citrus/pkg/endpoint"
	"github.com/tombee/citrus/pkg/testcase"
	"github.com/tombee/citrus/pkg/testcontext"
)

// Test is a loaded test definition ready to run.
type Test struct {
	Path       string
	Definition *definition.Definition
	Case       *testcase.TestCase
}

// LoadError reports a definition that failed to parse, validate or compile.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Runner executes test cases with bounded parallelism.
type Runner struct {
	compiler    *definition.Compiler
	factory     *testcontext.Factory
	pool        *datasource.Pool
	listeners   testcase.Listeners
	parallelism int
	timeout     time.Duration
	pattern     string
	logger      *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithCompiler sets the definition compiler.
func WithCompiler(c *definition.Compiler) Option {
	return func(r *Runner) {
		r.compiler = c
	}
}

// WithListeners adds lifecycle listeners to every test case.
func WithListeners(listeners ...testcase.Listener) Option {
	return func(r *Runner) {
		r.listeners = append(r.listeners, listeners...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithParallelism overrides the configured number of concurrent test cases.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithTimeout overrides the configured per test case timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// New creates a runner for cfg. Configured data sources are opened and,
// together with the endpoints, bound by name into the references shared by
// all test cases.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Runner, error) {
	r := &Runner{
		pool:        datasource.NewPool(),
		parallelism: cfg.Runner.Parallelism,
		timeout:     cfg.Runner.Timeout,
		pattern:     cfg.Runner.Pattern,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.compiler == nil {
		r.compiler = definition.NewCompiler()
	}
	if r.parallelism < 1 {
		r.parallelism = 1
	}
	if r.pattern == "" {
		r.pattern = config.DefaultPattern
	}
	r.logger = log.WithComponent(r.logger, "runner")

	refs := testcontext.NewReferences()
	for _, name := range sortedKeys(cfg.Endpoints) {
		refs.Bind(name, endpoint.NewDirect(name).WithLogger(r.logger))
	}
	for _, name := range sortedKeys(cfg.DataSources) {
		if _, taken := refs.Lookup(name); taken {
			r.pool.Close()
			return nil, fmt.Errorf("data source %q conflicts with an endpoint of the same name", name)
		}
		ds := cfg.DataSources[name]
		db, err := r.pool.Open(ctx, name, ds.Driver, ds.DSN, ds.MaxOpenConns)
		if err != nil {
			r.pool.Close()
			return nil, err
		}
		refs.Bind(name, db)
		r.logger.Debug("data source opened", slog.String("name", name), slog.String("driver", ds.Driver))
	}

	globals := make(map[string]any, len(cfg.Variables))
	for k, v := range cfg.Variables {
		globals[k] = v
	}
	r.factory = testcontext.NewFactory(
		testcontext.WithGlobalVariables(globals),
		testcontext.WithReferences(refs),
		testcontext.WithLogger(r.logger),
	)
	return r, nil
}

// Close releases the data sources.
func (r *Runner) Close() error {
	return r.pool.Close()
}

// Factory returns the context factory shared by all test cases.
func (r *Runner) Factory() *testcontext.Factory {
	return r.factory
}

// Discover expands paths with the configured pattern.
func (r *Runner) Discover(paths []string) ([]string, error) {
	return Discover(paths, r.pattern)
}

// Load parses, validates and compiles every file. Files that fail are
// reported as *LoadError values joined into the returned error; the tests
// that loaded are returned either way.
func (r *Runner) Load(files []string) ([]*Test, error) {
	var tests []*Test
	var errs []error
	for _, path := range files {
		def, tc, err := definition.Load(path, r.compiler)
		if err != nil {
			errs = append(errs, &LoadError{Path: path, Err: err})
			continue
		}
		tests = append(tests, &Test{Path: path, Definition: def, Case: tc})
	}
	return tests, errors.Join(errs...)
}

// Execute runs tests concurrently, at most parallelism at a time, and
// returns their results in input order. Every test runs to completion; a
// failing test never cancels its siblings.
func (r *Runner) Execute(ctx context.Context, tests []*Test) []*testcase.Result {
	results := make([]*testcase.Result, len(tests))

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for i, t := range tests {
		g.Go(func() error {
			results[i] = r.run(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) run(ctx context.Context, t *Test) *testcase.Result {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tc := t.Case
	tc.Listeners = append(testcase.Listeners{}, r.listeners...)
	result, err := tc.Run(ctx, r.factory)
	if err != nil {
		r.logger.Debug("test case returned error", slog.String("path", t.Path), log.Error(err))
	}
	return result
}

// Run discovers, loads and executes the tests under paths. Definitions that
// fail to load abort the run before any test executes.
func (r *Runner) Run(ctx context.Context, paths []string) ([]*testcase.Result, error) {
	files, err := r.Discover(paths)
	if err != nil {
		return nil, err
	}
	tests, err := r.Load(files)
	if err != nil {
		return nil, err
	}
	r.logger.Info("running tests", slog.Int("tests", len(tests)), slog.Int("parallelism", r.parallelism))
	return r.Execute(ctx, tests), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
