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

package testcontext

import (
	"log/slog"
	"maps"

	"github.com/tombee/citrus/pkg/expression"
	"github.com/tombee/citrus/pkg/functions"
)

// Factory creates one Context per test case execution. Global variables and
// the function and reference registries are shared by every context it
// creates.
type Factory struct {
	globals    map[string]any
	functions  *functions.Registry
	evaluator  *expression.Evaluator
	references *References
	logger     *slog.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithGlobalVariables sets variables copied into every new context.
func WithGlobalVariables(vars map[string]any) Option {
	return func(f *Factory) {
		f.globals = maps.Clone(vars)
	}
}

// WithFunctions sets the function registry.
func WithFunctions(registry *functions.Registry) Option {
	return func(f *Factory) {
		f.functions = registry
	}
}

// WithReferences sets the reference registry.
func WithReferences(refs *References) Option {
	return func(f *Factory) {
		f.references = refs
	}
}

// WithEvaluator sets the shared boolean expression evaluator.
func WithEvaluator(e *expression.Evaluator) Option {
	return func(f *Factory) {
		f.evaluator = e
	}
}

// WithLogger sets the base logger of created contexts.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

// NewFactory creates a factory with the default function library.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		globals:    make(map[string]any),
		functions:  functions.Default(),
		evaluator:  expression.New(),
		references: NewReferences(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// References returns the shared reference registry.
func (f *Factory) References() *References {
	return f.references
}

// NewContext creates a fresh context seeded with the global variables.
func (f *Factory) NewContext() *Context {
	c := newContext(f.functions, f.evaluator, f.references, f.logger)
	for k, v := range f.globals {
		c.variables[k] = v
	}
	c.logger = f.logger.With(slog.String("run_id", c.runID))
	return c
}
