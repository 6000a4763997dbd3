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
	"context"
	"sync"
	"time"

	"github.com/tombee/citrus/pkg/errors"
)

type asyncTracker struct {
	mu      sync.Mutex
	pending int
	idle    chan struct{}
}

// StartAsync registers an outstanding asynchronous unit of work. The returned
// function must be called exactly once when the unit finishes.
func (c *Context) StartAsync() (done func()) {
	t := &c.shared.async
	t.mu.Lock()
	if t.pending == 0 {
		t.idle = make(chan struct{})
	}
	t.pending++
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.pending--
			if t.pending == 0 {
				close(t.idle)
			}
		})
	}
}

// PendingAsync returns the number of outstanding asynchronous units.
func (c *Context) PendingAsync() int {
	t := &c.shared.async
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// WaitForAsync blocks until all asynchronous units finished, timeout elapsed
// or ctx is done.
func (c *Context) WaitForAsync(ctx context.Context, timeout time.Duration) error {
	t := &c.shared.async
	t.mu.Lock()
	if t.pending == 0 {
		t.mu.Unlock()
		return nil
	}
	idle := t.idle
	t.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-idle:
		return nil
	case <-timer.C:
		return &errors.TimeoutError{Operation: "wait for async actions", Duration: timeout}
	case <-ctx.Done():
		return ctx.Err()
	}
}
