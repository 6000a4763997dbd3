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
	"fmt"
	"sort"
	"sync"

	"github.com/tombee/citrus/pkg/errors"
)

// References is a named registry of shared collaborators such as endpoints
// and data sources. One registry is usually shared by all test cases of a
// suite.
type References struct {
	mu   sync.RWMutex
	refs map[string]any
}

// NewReferences creates an empty registry.
func NewReferences() *References {
	return &References{refs: make(map[string]any)}
}

// Bind registers ref under name, replacing any previous binding.
func (r *References) Bind(name string, ref any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[name] = ref
}

// Lookup returns the reference bound to name.
func (r *References) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.refs[name]
	return ref, ok
}

// Names returns all bound names in sorted order.
func (r *References) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.refs))
	for name := range r.refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up name and asserts it to T. kind names the expected
// reference type in error messages (e.g. "endpoint").
func Resolve[T any](r *References, kind, name string) (T, error) {
	var zero T
	ref, ok := r.Lookup(name)
	if !ok {
		return zero, errors.WithCause(&errors.NotFoundError{Resource: kind, ID: name},
			errors.KindCitrusRuntime, fmt.Sprintf("unable to resolve %s reference", kind))
	}
	typed, ok := ref.(T)
	if !ok {
		return zero, errors.Runtimef("reference '%s' is a %T, not a %s", name, ref, kind)
	}
	return typed, nil
}
