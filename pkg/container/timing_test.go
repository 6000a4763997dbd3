package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/citrus/pkg/action"
	citruserrors "github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/message"
	"github.com/tombee/citrus/pkg/testcontext"
)

func TestTimer_RepeatCount(t *testing.T) {
	rec := &recorder{}
	timer := NewTimer("tick", rec.step("${tick-index}"))
	timer.Interval = "1ms"
	timer.RepeatCount = 3

	tc := newTestContext(t)
	require.NoError(t, timer.Execute(context.Background(), tc))
	assert.Equal(t, []string{"1", "2", "3"}, rec.Calls())
	assert.Error(t, tc.StopTimer("tick"), "finished timer is unregistered")
}

func TestTimer_FailureAborts(t *testing.T) {
	rec := &recorder{}
	boom := citruserrors.Runtimef("boom")
	timer := NewTimer("t", rec.failing("x", boom))
	timer.Interval = "1ms"
	timer.RepeatCount = 5

	assert.Same(t, boom, timer.Execute(context.Background(), newTestContext(t)))
	assert.Len(t, rec.Calls(), 1)
}

func TestTimer_ContinueOnError(t *testing.T) {
	rec := &recorder{}
	boom := citruserrors.Runtimef("boom")
	timer := NewTimer("t", rec.failing("x", boom))
	timer.Interval = "1ms"
	timer.RepeatCount = 3
	timer.ContinueOnError = true

	assert.Same(t, boom, timer.Execute(context.Background(), newTestContext(t)))
	assert.Len(t, rec.Calls(), 3)
}

func TestTimer_ForkAndStop(t *testing.T) {
	var ticks atomic.Int32
	tick := action.NewFunc("tick", func(context.Context, *testcontext.Context) error {
		ticks.Add(1)
		return nil
	})
	timer := NewTimer("bg", tick)
	timer.Interval = "5ms"
	timer.Fork = true

	tc := newTestContext(t)
	require.NoError(t, timer.Execute(context.Background(), tc))
	assert.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)

	require.NoError(t, NewStopTimer("bg").Execute(context.Background(), tc))
	stoppedAt := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, ticks.Load(), stoppedAt+1)

	// unknown timers are ignored
	assert.NoError(t, NewStopTimer("bg").Execute(context.Background(), tc))
}

func TestTimer_ForkFailureRecorded(t *testing.T) {
	boom := citruserrors.Runtimef("boom")
	timer := NewTimer("", action.NewFunc("fail", func(context.Context, *testcontext.Context) error { return boom }))
	timer.Fork = true

	tc := newTestContext(t)
	require.NoError(t, timer.Execute(context.Background(), tc))
	assert.Eventually(t, tc.HasExceptions, time.Second, time.Millisecond)
	assert.Same(t, boom, tc.TakeException())
}

func TestTimer_ReusedIDSurvivesEarlierRun(t *testing.T) {
	var ticks atomic.Int32
	background := NewTimer("poll", action.NewFunc("tick", func(context.Context, *testcontext.Context) error {
		ticks.Add(1)
		return nil
	}))
	background.Interval = "5ms"
	background.Fork = true

	// The first run starts a second timer under its own id, then finishes.
	first := NewTimer("poll", background)
	first.RepeatCount = 1

	tc := newTestContext(t)
	require.NoError(t, first.Execute(context.Background(), tc))
	assert.Eventually(t, func() bool { return ticks.Load() >= 1 }, time.Second, time.Millisecond)

	require.NoError(t, tc.StopTimer("poll"), "background timer is still registered")
	stoppedAt := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, ticks.Load(), stoppedAt+1)
}

func TestTimer_Delay(t *testing.T) {
	timer := NewTimer("d", action.NewEcho("tick"))
	timer.Delay = "30ms"
	timer.RepeatCount = 1

	start := time.Now()
	require.NoError(t, timer.Execute(context.Background(), newTestContext(t)))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestStopTimer_All(t *testing.T) {
	tc := newTestContext(t)
	for _, id := range []string{"a", "b"} {
		timer := NewTimer(id, action.NewEcho("tick"))
		timer.Interval = "5ms"
		timer.Fork = true
		require.NoError(t, timer.Execute(context.Background(), tc))
	}
	require.NoError(t, NewStopTimer("").Execute(context.Background(), tc))
	assert.Error(t, tc.StopTimer("a"))
	assert.Error(t, tc.StopTimer("b"))
}

func TestAsync_Success(t *testing.T) {
	rec := &recorder{}
	a := NewAsync(sleeper(20*time.Millisecond), rec.step("child"))
	a.SuccessActions = []action.TestAction{rec.step("success")}
	a.ErrorActions = []action.TestAction{rec.step("error")}

	tc := newTestContext(t)
	start := time.Now()
	require.NoError(t, a.Execute(context.Background(), tc))
	assert.Less(t, time.Since(start), 20*time.Millisecond, "async returns immediately")

	require.NoError(t, tc.WaitForAsync(context.Background(), time.Second))
	assert.Equal(t, []string{"child", "success"}, rec.Calls())
	assert.False(t, tc.HasExceptions())
}

func TestAsync_Failure(t *testing.T) {
	rec := &recorder{}
	boom := citruserrors.Runtimef("boom")
	a := NewAsync(rec.failing("child", boom), rec.step("skipped"))
	a.SuccessActions = []action.TestAction{rec.step("success")}
	a.ErrorActions = []action.TestAction{rec.step("error")}

	tc := newTestContext(t)
	require.NoError(t, a.Execute(context.Background(), tc))
	require.NoError(t, tc.WaitForAsync(context.Background(), time.Second))

	assert.Equal(t, []string{"child", "error"}, rec.Calls())
	assert.Equal(t, []error{boom}, tc.Exceptions())
}

func TestAsync_BranchFailureRecorded(t *testing.T) {
	boom := citruserrors.Runtimef("branch")
	a := NewAsync(action.NewEcho("ok"))
	a.SuccessActions = []action.TestAction{action.NewFunc("bad", func(context.Context, *testcontext.Context) error { return boom })}

	tc := newTestContext(t)
	require.NoError(t, a.Execute(context.Background(), tc))
	require.NoError(t, tc.WaitForAsync(context.Background(), time.Second))
	assert.Equal(t, []error{boom}, tc.Exceptions())
}

func TestAsync_Panic(t *testing.T) {
	a := NewAsync(action.NewFunc("panics", func(context.Context, *testcontext.Context) error { panic("oops") }))
	tc := newTestContext(t)
	require.NoError(t, a.Execute(context.Background(), tc))
	require.NoError(t, tc.WaitForAsync(context.Background(), time.Second))
	require.True(t, tc.HasExceptions())
	assert.Contains(t, tc.TakeException().Error(), "panic: oops")
}

func TestWait_FileCondition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ready.txt")
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(path, []byte("ok"), 0o644)
	}()

	w := NewWait(&FileCondition{Path: path})
	w.Time = "2s"
	w.Interval = "5ms"
	require.NoError(t, w.Execute(context.Background(), newTestContext(t)))
}

func TestWait_Timeout(t *testing.T) {
	w := NewWait(&FileCondition{Path: filepath.Join(t.TempDir(), "never")})
	w.Time = "30ms"
	w.Interval = "5ms"

	start := time.Now()
	err := w.Execute(context.Background(), newTestContext(t))
	require.Error(t, err)
	assert.True(t, citruserrors.Matches(err, "ActionTimeoutException"))
	var timeout *citruserrors.TimeoutError
	assert.ErrorAs(t, err, &timeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestWait_HTTPCondition(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tc := newTestContext(t)
	tc.SetVariable("base", server.URL)
	w := NewWait(&HTTPCondition{URL: "${base}/health", Method: "get"})
	w.Time = "2s"
	w.Interval = "5ms"
	require.NoError(t, w.Execute(context.Background(), tc))
	assert.GreaterOrEqual(t, hits.Load(), int32(3))

	w = NewWait(&HTTPCondition{URL: server.URL, Status: "404"})
	w.Time = "30ms"
	w.Interval = "5ms"
	assert.Error(t, w.Execute(context.Background(), tc))
}

func TestHTTPCondition_DynamicTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tc := newTestContext(t)
	tc.SetVariable("timeout", "2s")
	tc.SetVariable("short", "20")

	ok, err := (&HTTPCondition{URL: server.URL, Timeout: "${timeout}"}).IsSatisfied(context.Background(), tc)
	require.NoError(t, err)
	assert.True(t, ok)

	start := time.Now()
	_, err = (&HTTPCondition{URL: server.URL + "/slow", Timeout: "${short}"}).IsSatisfied(context.Background(), tc)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "invalid duration")
	assert.Less(t, time.Since(start), 900*time.Millisecond)

	_, err = (&HTTPCondition{URL: server.URL, Timeout: "${missing}"}).IsSatisfied(context.Background(), tc)
	assert.Error(t, err)
}

func TestWait_MessageCondition(t *testing.T) {
	tc := newTestContext(t)
	go func() {
		time.Sleep(10 * time.Millisecond)
		tc.Messages().Store("reply", message.New("hi"))
	}()

	w := NewWait(&MessageCondition{MessageName: "reply"})
	w.Time = "1s"
	w.Interval = "5ms"
	require.NoError(t, w.Execute(context.Background(), tc))
}

func TestWait_ActionCondition(t *testing.T) {
	attempts := 0
	check := action.NewFunc("check", func(context.Context, *testcontext.Context) error {
		attempts++
		if attempts < 3 {
			return citruserrors.Runtimef("not ready")
		}
		return nil
	})

	w := NewWait(&ActionCondition{Action: check})
	w.Time = "1s"
	w.Interval = "1ms"
	require.NoError(t, w.Execute(context.Background(), newTestContext(t)))
	assert.Equal(t, 3, attempts)
	assert.Len(t, w.Actions(), 1)
}

func TestWait_Cancelled(t *testing.T) {
	w := NewWait(&MessageCondition{MessageName: "never"})
	w.Interval = "5ms"
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := w.Execute(ctx, newTestContext(t))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTemplate(t *testing.T) {
	rec := &recorder{}
	tpl := NewTemplate("greet", rec.step("hello ${who}"), action.NewCreateVariables(action.Variable{Name: "leaked", Value: "yes"}))
	tpl.Parameters = map[string]string{"who": "${user}"}

	tc := newTestContext(t)
	tc.SetVariable("user", "citrus")
	require.NoError(t, tpl.Execute(context.Background(), tc))
	assert.Equal(t, []string{"hello citrus"}, rec.Calls())
	assert.True(t, tc.HasVariable("leaked"))
	assert.True(t, tc.HasVariable("who"))

	tpl.GlobalContext = false
	tc = newTestContext(t)
	tc.SetVariable("user", "local")
	require.NoError(t, tpl.Execute(context.Background(), tc))
	assert.False(t, tc.HasVariable("leaked"))
	assert.False(t, tc.HasVariable("who"))
	assert.Equal(t, []string{"hello citrus", "hello local"}, rec.Calls())
}
