package testcontext

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	citruserrors "github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/expression"
)

func TestContext_Variables(t *testing.T) {
	c := New()
	c.SetVariable("name", "citrus")
	c.SetVariable("count", 3)

	v, err := c.GetVariable("count")
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	assert.True(t, c.HasVariable("name"))
	assert.Equal(t, []string{"count", "name"}, c.VariableNames())

	c.RemoveVariable("name")
	assert.False(t, c.HasVariable("name"))

	_, err = c.GetVariable("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown variable 'missing'")
	assert.True(t, citruserrors.Matches(err, "CitrusRuntimeException"))
}

func TestContext_ReplaceDynamicContent(t *testing.T) {
	c := New()
	c.SetVariable("user", "bob")
	c.SetVariable("greeting", "hello")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "no placeholders", "no placeholders"},
		{"single variable", "${user}", "bob"},
		{"embedded variables", "${greeting}, ${user}!", "hello, bob!"},
		{"function", "citrus:upperCase('${user}')", "BOB"},
		{"function with variable argument", "citrus:concat(${greeting}, '-', ${user})", "hello-bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ReplaceDynamicContent(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := c.ReplaceDynamicContent("${unknown}")
	assert.Error(t, err)

	_, err = c.ReplaceDynamicContent("${open")
	assert.Error(t, err)
}

func TestContext_ReplaceAll(t *testing.T) {
	c := New()
	c.SetVariable("id", "42")

	got, err := c.ReplaceAll(map[string]string{"a": "${id}", "b": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "42", "b": "x"}, got)
}

func TestContext_EvaluateCondition(t *testing.T) {
	c := New()
	c.SetVariable("i", "2")
	c.SetVariable("limit", 3)

	ok, err := c.EvaluateCondition("i lt limit")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.EvaluateCondition("${i} gt= 5")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.EvaluateCondition("")
	assert.Error(t, err)
}

func TestContext_EvaluateCondition_Strings(t *testing.T) {
	c := New()
	c.SetVariable("status", "pending")
	c.SetVariable("citrus.test.name", "orders")

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"placeholder against literal", "${status} = 'done'", false},
		{"placeholder matches literal", "${status} = 'pending'", true},
		{"quoted placeholder", "'${status}' = 'pending'", true},
		{"dotted variable name", "${citrus.test.name} = 'orders'", true},
		{"repeated placeholder", "${status} = ${status}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.EvaluateCondition(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, expr := range []string{"${status} = done", "status = done", "unknown = 1", "${unknown} = 1"} {
		t.Run("error "+expr, func(t *testing.T) {
			_, err := c.EvaluateCondition(expr)
			require.Error(t, err)
			assert.True(t, citruserrors.Matches(err, "CitrusRuntimeException"))
		})
	}
}

func TestContext_EvaluateCondition_SharedCache(t *testing.T) {
	evaluator := expression.New()
	f := NewFactory(WithEvaluator(evaluator))

	for n := 0; n < 3; n++ {
		c := f.NewContext()
		for i := 0; i < 1000; i++ {
			c.SetVariable("i", i)
			ok, err := c.EvaluateCondition("${i} lt 1000")
			require.NoError(t, err)
			require.True(t, ok)
		}
	}
	assert.Equal(t, 1, evaluator.CacheSize())
}

func TestContext_Copy(t *testing.T) {
	c := New()
	c.SetVariable("shared", "before")

	cp := c.Copy()
	cp.SetVariable("shared", "after")
	cp.SetVariable("local", "x")
	cp.AddException(citruserrors.Runtimef("boom"))

	v, _ := c.GetVariable("shared")
	assert.Equal(t, "before", v)
	assert.False(t, c.HasVariable("local"))
	assert.Equal(t, c.RunID(), cp.RunID())
	assert.Same(t, c.Messages(), cp.Messages())
	assert.True(t, c.HasExceptions())
}

func TestContext_Exceptions(t *testing.T) {
	c := New()
	assert.Nil(t, c.TakeException())

	c.AddException(nil)
	assert.False(t, c.HasExceptions())

	first := citruserrors.Runtimef("first")
	second := citruserrors.Runtimef("second")
	c.AddException(first)
	c.AddException(second)

	assert.Equal(t, []error{first, second}, c.Exceptions())
	assert.Equal(t, first, c.TakeException())
	assert.Equal(t, []error{second}, c.Exceptions())
}

type stopCounter struct {
	mu    sync.Mutex
	stops int
}

func (s *stopCounter) Stop() {
	s.mu.Lock()
	s.stops++
	s.mu.Unlock()
}

func TestContext_Timers(t *testing.T) {
	c := New()
	a, b := &stopCounter{}, &stopCounter{}
	c.RegisterTimer("a", a)
	c.RegisterTimer("b", b)

	require.NoError(t, c.StopTimer("a"))
	assert.Equal(t, 1, a.stops)

	err := c.StopTimer("a")
	require.Error(t, err)
	var notFound *citruserrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	c.StopTimers()
	assert.Equal(t, 1, b.stops)
	assert.Equal(t, 1, a.stops)
}

func TestContext_UnregisterTimer(t *testing.T) {
	c := New()
	first, second := &stopCounter{}, &stopCounter{}
	c.RegisterTimer("poll", first)
	c.RegisterTimer("poll", second)

	c.UnregisterTimer("poll", first)
	require.NoError(t, c.StopTimer("poll"))
	assert.Equal(t, 0, first.stops)
	assert.Equal(t, 1, second.stops)

	c.RegisterTimer("poll", first)
	c.UnregisterTimer("poll", first)
	assert.Error(t, c.StopTimer("poll"))
}

func TestContext_Async(t *testing.T) {
	c := New()
	require.NoError(t, c.WaitForAsync(context.Background(), time.Millisecond))

	done := c.StartAsync()
	assert.Equal(t, 1, c.PendingAsync())

	err := c.WaitForAsync(context.Background(), 20*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, citruserrors.KindActionTimeout, citruserrors.KindOf(err))

	go func() {
		time.Sleep(10 * time.Millisecond)
		done()
		done()
	}()
	require.NoError(t, c.WaitForAsync(context.Background(), time.Second))
	assert.Equal(t, 0, c.PendingAsync())

	c.StartAsync()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.WaitForAsync(ctx, time.Second), context.Canceled)
}

func TestContext_ConcurrentVariables(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.SetVariable("v", i)
			_, _ = c.GetVariable("v")
			_ = c.Variables()
		}(i)
	}
	wg.Wait()
	assert.True(t, c.HasVariable("v"))
}

func TestReferences(t *testing.T) {
	refs := NewReferences()
	refs.Bind("queue", "a queue")
	refs.Bind("count", 3)

	got, err := Resolve[string](refs, "endpoint", "queue")
	require.NoError(t, err)
	assert.Equal(t, "a queue", got)

	_, err = Resolve[string](refs, "endpoint", "count")
	assert.Error(t, err)

	_, err = Resolve[string](refs, "endpoint", "missing")
	require.Error(t, err)
	var notFound *citruserrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	assert.Equal(t, []string{"count", "queue"}, refs.Names())
}

func TestFactory(t *testing.T) {
	refs := NewReferences()
	f := NewFactory(
		WithGlobalVariables(map[string]any{"env": "test"}),
		WithReferences(refs),
	)

	c1 := f.NewContext()
	c2 := f.NewContext()

	v, err := c1.GetVariable("env")
	require.NoError(t, err)
	assert.Equal(t, "test", v)

	c1.SetVariable("env", "changed")
	v, _ = c2.GetVariable("env")
	assert.Equal(t, "test", v)

	assert.NotEqual(t, c1.RunID(), c2.RunID())
	assert.Same(t, refs, c1.References())
	assert.Same(t, f.References(), c2.References())
}

func TestVariableExpression(t *testing.T) {
	assert.True(t, IsVariableExpression("${a}"))
	assert.False(t, IsVariableExpression("${a}${b}"))
	assert.False(t, IsVariableExpression("a"))
	assert.Equal(t, "a", VariableName("${a}"))
	assert.Equal(t, "plain", VariableName("plain"))
}
