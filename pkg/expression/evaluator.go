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

package expression

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
	"github.com/tombee/citrus/pkg/errors"
)

// maxCachedPrograms bounds the program cache; the cache is reset when full.
const maxCachedPrograms = 512

// program is a compiled expression plus the free identifiers it reads.
type program struct {
	prog  *vm.Program
	names []string
}

// Evaluator evaluates boolean conditions against context variables.
// Compiled programs are cached by normalized expression.
type Evaluator struct {
	cache map[string]*program
	mu    sync.RWMutex
}

// New creates a new expression evaluator.
func New() *Evaluator {
	return &Evaluator{
		cache: make(map[string]*program),
	}
}

// Evaluate evaluates expression with vars bound as top-level identifiers.
//
// Example:
//
//	ok, err := eval.Evaluate("i lt= 5 and retry = 1", map[string]interface{}{
//	    "i":     3,
//	    "retry": "1",
//	})
func (e *Evaluator) Evaluate(expression string, vars map[string]interface{}) (bool, error) {
	if strings.TrimSpace(expression) == "" {
		return false, errors.Validationf("empty boolean expression")
	}

	p, err := e.compile(expression)
	if err != nil {
		return false, errors.WithCause(err, errors.KindCitrusRuntime,
			fmt.Sprintf("unable to parse boolean expression '%s'", expression))
	}

	env := BuildEnv(vars)
	env["has"] = hasFunc
	env["length"] = lengthFunc

	// Undefined identifiers would evaluate to nil and make nil == nil true.
	for _, name := range p.names {
		if _, ok := env[name]; !ok {
			return false, errors.Runtimef("unknown variable '%s' in boolean expression '%s'", name, expression)
		}
	}

	result, err := expr.Run(p.prog, env)
	if err != nil {
		return false, errors.WithCause(err, errors.KindCitrusRuntime,
			fmt.Sprintf("failed to evaluate boolean expression '%s'", expression))
	}

	b, ok := result.(bool)
	if !ok {
		return false, errors.Runtimef("boolean expression '%s' returned %T (%v)", expression, result, result)
	}
	return b, nil
}

// Validate checks that expression compiles without evaluating it.
func (e *Evaluator) Validate(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return &errors.ValidationError{
			Field:      "expression",
			Message:    "expression is empty",
			Suggestion: "use a condition such as 'i lt 3'",
		}
	}
	if _, err := e.compile(expression); err != nil {
		return &errors.ValidationError{
			Field:      "expression",
			Message:    fmt.Sprintf("failed to compile expression: %s", err.Error()),
			Suggestion: "check operators (lt, lt=, gt, gt=, =, and, or) and parentheses",
		}
	}
	return nil
}

func (e *Evaluator) compile(expression string) (*program, error) {
	normalized := Normalize(expression)

	e.mu.RLock()
	if p, ok := e.cache[normalized]; ok {
		e.mu.RUnlock()
		return p, nil
	}
	e.mu.RUnlock()

	env := map[string]interface{}{
		"has":    hasFunc,
		"length": lengthFunc,
	}

	prog, err := expr.Compile(normalized,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, err
	}
	names, err := freeIdentifiers(normalized)
	if err != nil {
		return nil, err
	}
	p := &program{prog: prog, names: names}

	e.mu.Lock()
	if len(e.cache) >= maxCachedPrograms {
		e.cache = make(map[string]*program)
	}
	e.cache[normalized] = p
	e.mu.Unlock()

	return p, nil
}

// ClearCache clears the expression cache.
func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	e.cache = make(map[string]*program)
	e.mu.Unlock()
}

// CacheSize returns the number of cached programs.
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// identifierCollector gathers the identifiers an expression reads. Function
// callees and let-bound names are tracked separately and excluded.
type identifierCollector struct {
	idents  map[string]bool
	callees map[string]bool
	locals  map[string]bool
}

func (v *identifierCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		v.idents[n.Value] = true
	case *ast.CallNode:
		if callee, ok := n.Callee.(*ast.IdentifierNode); ok {
			v.callees[callee.Value] = true
		}
	case *ast.VariableDeclaratorNode:
		v.locals[n.Name] = true
	}
}

func freeIdentifiers(normalized string) ([]string, error) {
	tree, err := parser.Parse(normalized)
	if err != nil {
		return nil, err
	}
	v := &identifierCollector{
		idents:  make(map[string]bool),
		callees: make(map[string]bool),
		locals:  make(map[string]bool),
	}
	ast.Walk(&tree.Node, v)

	var names []string
	for name := range v.idents {
		if !v.callees[name] && !v.locals[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
