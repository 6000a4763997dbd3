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

// Package functions implements the function library that can be called from
// dynamic content as citrus:name(arg1, 'arg 2', citrus:other()).
package functions

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tombee/citrus/pkg/errors"
)

// Prefix marks a function call inside dynamic content.
const Prefix = "citrus:"

// Function computes a string result from already resolved arguments.
type Function func(args []string) (string, error)

// Registry holds the functions available to a test context.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Function)}
}

// Default creates a registry with the builtin function library.
func Default() *Registry {
	r := NewRegistry()
	for name, fn := range builtins() {
		r.Register(name, fn)
	}
	return r
}

// Register adds or replaces a function.
func (r *Registry) Register(name string, fn Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup returns the named function.
func (r *Registry) Lookup(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes the named function.
func (r *Registry) Call(name string, args []string) (string, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return "", errors.WithCause(&errors.NotFoundError{Resource: "function", ID: Prefix + name},
			errors.KindCitrusRuntime, "unable to resolve function")
	}
	result, err := fn(args)
	if err != nil {
		return "", errors.WithCause(err, errors.KindCitrusRuntime, fmt.Sprintf("function %s%s failed", Prefix, name))
	}
	return result, nil
}

// IsFunction reports whether s is exactly one function call.
func (r *Registry) IsFunction(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, Prefix) {
		return false
	}
	call, ok := scanCall(s, 0)
	return ok && call.end == len(s)
}
