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

package container

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/testcontext"
)

// DefaultTimerInterval is the pause between timer repetitions.
const DefaultTimerInterval = time.Second

// Timer executes its children repeatedly. Each repetition sets the
// "<id>-index" variable, counting from 1.
type Timer struct {
	Base

	// TimerID names the timer for stop-timer; generated when empty.
	TimerID string
	// Delay before the first repetition (Go duration or milliseconds).
	Delay string
	// Interval between repetitions; empty means DefaultTimerInterval.
	Interval string
	// RepeatCount limits the repetitions; zero means until stopped.
	RepeatCount int
	// Fork runs the timer in the background.
	Fork bool
	// ContinueOnError keeps the timer running after a failed repetition.
	ContinueOnError bool
}

// NewTimer creates a timer container.
func NewTimer(id string, actions ...action.TestAction) *Timer {
	return &Timer{Base: Base{Base: action.Named("timer"), Children: actions}, TimerID: id}
}

// timerRun is one execution of a Timer, stoppable through the context.
type timerRun struct {
	stopped chan struct{}
	once    sync.Once
}

func (r *timerRun) Stop() {
	r.once.Do(func() { close(r.stopped) })
}

// Execute implements action.TestAction.
func (t *Timer) Execute(ctx context.Context, tc *testcontext.Context) error {
	id := t.TimerID
	if id == "" {
		id = "citrus-timer-" + uuid.NewString()
	}
	delay, err := t.duration(tc, t.Delay, 0)
	if err != nil {
		return err
	}
	interval, err := t.duration(tc, t.Interval, DefaultTimerInterval)
	if err != nil {
		return err
	}

	run := &timerRun{stopped: make(chan struct{})}
	tc.RegisterTimer(id, run)

	if !t.Fork {
		defer tc.UnregisterTimer(id, run)
		return t.loop(ctx, tc, run, id, delay, interval)
	}

	go func() {
		defer tc.UnregisterTimer(id, run)
		if err := t.loop(ctx, tc, run, id, delay, interval); err != nil {
			tc.AddException(err)
		}
	}()
	return nil
}

func (t *Timer) duration(tc *testcontext.Context, raw string, def time.Duration) (time.Duration, error) {
	resolved, err := tc.ReplaceDynamicContent(raw)
	if err != nil {
		return 0, err
	}
	return action.ParseDuration(resolved, def)
}

// loop runs the repetitions. It returns the repetition failure that aborted
// the timer, or with ContinueOnError the first recorded failure.
func (t *Timer) loop(ctx context.Context, tc *testcontext.Context, run *timerRun, id string, delay, interval time.Duration) error {
	logger := tc.Logger().With(slog.String("timer", id))

	if stop, err := pause(ctx, run, delay); stop || err != nil {
		return err
	}

	var firstErr error
	for index := 1; ; index++ {
		tc.SetVariable(id+"-index", strconv.Itoa(index))
		if err := RunSequence(ctx, tc, t.Children); err != nil {
			if !t.ContinueOnError {
				logger.Warn("timer repetition failed, stopping timer", slog.Int("index", index), slog.Any("error", err))
				return err
			}
			logger.Warn("timer repetition failed", slog.Int("index", index), slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
		}

		if t.RepeatCount > 0 && index >= t.RepeatCount {
			logger.Debug("timer finished", slog.Int("repetitions", index))
			return firstErr
		}
		stop, err := pause(ctx, run, interval)
		if err != nil {
			return err
		}
		if stop {
			logger.Debug("timer stopped", slog.Int("repetitions", index))
			return firstErr
		}
	}
}

// pause waits d. stop reports that the timer was stopped meanwhile.
func pause(ctx context.Context, run *timerRun, d time.Duration) (stop bool, err error) {
	select {
	case <-run.stopped:
		return true, nil
	default:
	}
	if d <= 0 {
		return false, ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false, nil
	case <-run.stopped:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// StopTimer stops a running timer, or every timer of the test when no id is
// given. Unknown or already finished timers are ignored.
type StopTimer struct {
	action.Base
	TimerID string
}

// NewStopTimer creates a stop-timer action.
func NewStopTimer(id string) *StopTimer {
	return &StopTimer{Base: action.Named("stop-timer"), TimerID: id}
}

// Execute implements action.TestAction.
func (s *StopTimer) Execute(_ context.Context, tc *testcontext.Context) error {
	if s.TimerID == "" {
		tc.StopTimers()
		return nil
	}
	id, err := tc.ReplaceDynamicContent(s.TimerID)
	if err != nil {
		return err
	}
	if err := tc.StopTimer(id); err != nil {
		tc.Logger().Warn("timer not running", slog.String("timer", id))
	}
	return nil
}
