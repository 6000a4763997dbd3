package container

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/testcontext"
)

// recorder collects the names of executed actions in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// step returns an action recording name (with dynamic content resolved).
func (r *recorder) step(name string) action.TestAction {
	return action.NewFunc(name, func(_ context.Context, tc *testcontext.Context) error {
		resolved, err := tc.ReplaceDynamicContent(name)
		if err != nil {
			return err
		}
		r.record(resolved)
		return nil
	})
}

// failing returns an action recording name and then failing with err.
func (r *recorder) failing(name string, err error) action.TestAction {
	return action.NewFunc(name, func(context.Context, *testcontext.Context) error {
		r.record(name)
		return err
	})
}

func newTestContext(t *testing.T) *testcontext.Context {
	t.Helper()
	var buf bytes.Buffer
	return testcontext.New().WithLogger(slog.New(slog.NewTextHandler(&buf, nil)))
}
