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

// Package report turns test case lifecycle events into logs, console
// summaries, Prometheus metrics and OpenTelemetry traces.
package report

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tombee/citrus/internal/log"
	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/testcase"
)

// LogListener writes one structured log entry per lifecycle event.
type LogListener struct {
	logger *slog.Logger

	mu      sync.Mutex
	started map[string]time.Time
}

// NewLogListener creates a listener logging through logger.
func NewLogListener(logger *slog.Logger) *LogListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogListener{
		logger:  log.WithComponent(logger, "report"),
		started: make(map[string]time.Time),
	}
}

func (l *LogListener) OnTestStart(tc *testcase.TestCase, runID string) {
	log.WithRunContext(l.logger, runID, tc.Name).Debug("test started",
		slog.String("package", tc.Package),
		slog.Int("actions", len(tc.Actions)))
}

func (l *LogListener) OnTestSuccess(tc *testcase.TestCase, r *testcase.Result) {
	log.WithRunContext(l.logger, r.RunID, tc.Name).Info("test passed",
		log.Duration("duration", r.Duration.Milliseconds()),
		slog.Int("actions_executed", r.ActionsExecuted))
}

func (l *LogListener) OnTestFailure(tc *testcase.TestCase, r *testcase.Result) {
	logger := log.WithRunContext(l.logger, r.RunID, tc.Name)
	attrs := []any{
		log.Duration("duration", r.Duration.Milliseconds()),
		log.Error(r.Err),
	}
	if r.FinallyError != nil {
		attrs = append(attrs, slog.Any("finally_error", r.FinallyError))
	}
	logger.Error("test failed", attrs...)
}

func (l *LogListener) OnTestSkipped(tc *testcase.TestCase, r *testcase.Result) {
	log.WithRunContext(l.logger, r.RunID, tc.Name).Info("test skipped",
		slog.String("status", string(tc.Status)))
}

func (l *LogListener) OnTestFinish(_ *testcase.TestCase, r *testcase.Result) {
	l.mu.Lock()
	delete(l.started, r.RunID)
	l.mu.Unlock()
}

// Actions of one run execute one at a time, so the start time is keyed by
// run id alone.
func (l *LogListener) OnActionStart(_ *testcase.TestCase, runID string, a action.TestAction) {
	l.mu.Lock()
	l.started[runID] = time.Now()
	l.mu.Unlock()
	log.Trace(log.WithActionContext(l.logger, runID, a.Name()), "action started")
}

func (l *LogListener) OnActionFinish(_ *testcase.TestCase, runID string, a action.TestAction, err error) {
	l.mu.Lock()
	start, ok := l.started[runID]
	delete(l.started, runID)
	l.mu.Unlock()

	logger := log.WithActionContext(l.logger, runID, a.Name())
	var elapsed int64
	if ok {
		elapsed = time.Since(start).Milliseconds()
	}
	if err != nil {
		logger.Warn("action failed", log.Duration("duration", elapsed), log.Error(err))
		return
	}
	logger.Debug("action finished", log.Duration("duration", elapsed))
}

var _ testcase.Listener = (*LogListener)(nil)
