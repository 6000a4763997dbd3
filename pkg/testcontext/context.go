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

// Package testcontext provides the shared execution state threaded through
// every test action of one test case run.
//
// A Context is safe for concurrent use. Individual variable reads and writes
// are atomic; actions running in parallel may still observe each other's
// writes in any order, and the last write to a variable wins.
package testcontext

import (
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/expression"
	"github.com/tombee/citrus/pkg/functions"
	"github.com/tombee/citrus/pkg/message"
)

// Built-in variable names set for every test case.
const (
	VarTestName    = "citrus.test.name"
	VarTestPackage = "citrus.test.package"
	VarRunID       = "citrus.test.run.id"
)

// Context is the mutable execution state of a test case.
type Context struct {
	mu        sync.RWMutex
	variables map[string]any

	functions *functions.Registry
	evaluator *expression.Evaluator
	logger    *slog.Logger
	runID     string

	// shared survives Copy so that branches still report into the same
	// test case.
	shared *shared
}

type shared struct {
	references *References
	messages   *message.Store

	exMu       sync.Mutex
	exceptions []error

	async asyncTracker

	timerMu sync.Mutex
	timers  map[string]Stopper
}

// Stopper is a running unit of work that can be stopped, such as a timer.
type Stopper interface {
	Stop()
}

func newContext(registry *functions.Registry, evaluator *expression.Evaluator, refs *References, logger *slog.Logger) *Context {
	return &Context{
		variables: make(map[string]any),
		functions: registry,
		evaluator: evaluator,
		logger:    logger,
		runID:     uuid.NewString(),
		shared: &shared{
			references: refs,
			messages:   message.NewStore(),
			timers:     make(map[string]Stopper),
		},
	}
}

// New creates a standalone context with the default function library and
// an empty reference registry. Mostly useful in tests; test cases use a
// Factory.
func New() *Context {
	return newContext(functions.Default(), expression.New(), NewReferences(), slog.Default())
}

// RunID identifies this test case execution.
func (c *Context) RunID() string {
	return c.runID
}

// Logger returns the context logger.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// WithLogger replaces the context logger.
func (c *Context) WithLogger(logger *slog.Logger) *Context {
	c.logger = logger
	return c
}

// Functions returns the function registry.
func (c *Context) Functions() *functions.Registry {
	return c.functions
}

// References returns the reference registry.
func (c *Context) References() *References {
	return c.shared.references
}

// Messages returns the message store.
func (c *Context) Messages() *message.Store {
	return c.shared.messages
}

// SetVariable binds name to value, replacing any previous value.
func (c *Context) SetVariable(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[name] = value
}

// Variable returns the raw value bound to name.
func (c *Context) Variable(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[name]
	return v, ok
}

// GetVariable returns the string form of a variable, failing on unknown names.
func (c *Context) GetVariable(name string) (string, error) {
	v, ok := c.Variable(name)
	if !ok {
		return "", errors.Runtimef("unknown variable '%s'", name)
	}
	return Stringify(v), nil
}

// HasVariable reports whether name is bound.
func (c *Context) HasVariable(name string) bool {
	_, ok := c.Variable(name)
	return ok
}

// RemoveVariable unbinds name.
func (c *Context) RemoveVariable(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.variables, name)
}

// Variables returns a snapshot of all variables.
func (c *Context) Variables() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.variables)
}

// VariableNames returns all variable names in sorted order.
func (c *Context) VariableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.variables))
	for name := range c.variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReplaceDynamicContent replaces ${name} placeholders with variable values
// and then resolves citrus: function calls.
func (c *Context) ReplaceDynamicContent(s string) (string, error) {
	replaced, err := c.replaceVariables(s)
	if err != nil {
		return "", err
	}
	return c.functions.ReplaceInString(replaced)
}

// ReplaceAll resolves dynamic content in every value of m.
func (c *Context) ReplaceAll(m map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		resolved, err := c.ReplaceDynamicContent(v)
		if err != nil {
			return nil, err
		}
		out[k] = resolved
	}
	return out, nil
}

// EvaluateCondition evaluates expr as a boolean expression over the current
// variables. ${name} placeholders outside string literals are bound as
// variables; the remaining dynamic content is resolved textually.
func (c *Context) EvaluateCondition(expr string) (bool, error) {
	bound, placeholders := expression.BindPlaceholders(expr)
	resolved, err := c.ReplaceDynamicContent(bound)
	if err != nil {
		return false, err
	}
	vars := c.Variables()
	for ident, name := range placeholders {
		value, err := c.GetVariable(name)
		if err != nil {
			return false, err
		}
		if ident != name {
			vars[ident] = value
		}
	}
	return c.evaluator.Evaluate(resolved, vars)
}

// Copy returns a context with a snapshot of the variables. Variable writes
// on the copy are not visible to c; references, messages, exceptions, async
// tracking and timers stay shared.
func (c *Context) Copy() *Context {
	return &Context{
		variables: c.Variables(),
		functions: c.functions,
		evaluator: c.evaluator,
		logger:    c.logger,
		runID:     c.runID,
		shared:    c.shared,
	}
}

// AddException records a failure raised outside the main action chain.
func (c *Context) AddException(err error) {
	if err == nil {
		return
	}
	c.shared.exMu.Lock()
	defer c.shared.exMu.Unlock()
	c.shared.exceptions = append(c.shared.exceptions, err)
}

// Exceptions returns the recorded failures in the order they were added.
func (c *Context) Exceptions() []error {
	c.shared.exMu.Lock()
	defer c.shared.exMu.Unlock()
	out := make([]error, len(c.shared.exceptions))
	copy(out, c.shared.exceptions)
	return out
}

// HasExceptions reports whether any failure was recorded.
func (c *Context) HasExceptions() bool {
	c.shared.exMu.Lock()
	defer c.shared.exMu.Unlock()
	return len(c.shared.exceptions) > 0
}

// TakeException removes and returns the first recorded failure.
func (c *Context) TakeException() error {
	c.shared.exMu.Lock()
	defer c.shared.exMu.Unlock()
	if len(c.shared.exceptions) == 0 {
		return nil
	}
	err := c.shared.exceptions[0]
	c.shared.exceptions = c.shared.exceptions[1:]
	return err
}

// RegisterTimer makes a running timer stoppable by id.
func (c *Context) RegisterTimer(id string, s Stopper) {
	c.shared.timerMu.Lock()
	defer c.shared.timerMu.Unlock()
	c.shared.timers[id] = s
}

// UnregisterTimer forgets the finished timer s. A newer timer registered
// under the same id stays registered.
func (c *Context) UnregisterTimer(id string, s Stopper) {
	c.shared.timerMu.Lock()
	defer c.shared.timerMu.Unlock()
	if c.shared.timers[id] == s {
		delete(c.shared.timers, id)
	}
}

// StopTimer stops the timer registered under id.
func (c *Context) StopTimer(id string) error {
	c.shared.timerMu.Lock()
	s, ok := c.shared.timers[id]
	delete(c.shared.timers, id)
	c.shared.timerMu.Unlock()
	if !ok {
		return errors.WithCause(&errors.NotFoundError{Resource: "timer", ID: id},
			errors.KindCitrusRuntime, "unable to stop timer")
	}
	s.Stop()
	return nil
}

// StopTimers stops every registered timer.
func (c *Context) StopTimers() {
	c.shared.timerMu.Lock()
	timers := c.shared.timers
	c.shared.timers = make(map[string]Stopper)
	c.shared.timerMu.Unlock()
	for _, s := range timers {
		s.Stop()
	}
}

// Stringify renders a variable value as dynamic content.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Duration:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
