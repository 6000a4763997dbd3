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

package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/testcase"
)

// ServiceName is the resource service name of exported spans.
const ServiceName = "citrus"

const instrumentationScope = "github.com/tombee/citrus/internal/report"

// Tracer records one span per test case with a child span per top-level
// action.
type Tracer struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
	closer io.Closer

	mu      sync.Mutex
	tests   map[string]testSpan
	actions map[string]trace.Span
}

type testSpan struct {
	ctx  context.Context
	span trace.Span
}

// NewTracer creates a tracer backed by a provider built from opts.
func NewTracer(version string, opts ...sdktrace.TracerProviderOption) (*Tracer, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	allOpts := append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)
	tp := sdktrace.NewTracerProvider(allOpts...)
	otel.SetTracerProvider(tp)

	return &Tracer{
		tp:      tp,
		tracer:  tp.Tracer(instrumentationScope),
		tests:   make(map[string]testSpan),
		actions: make(map[string]trace.Span),
	}, nil
}

// NewFileTracer exports spans as JSON lines to path.
func NewFileTracer(path, version string) (*Tracer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	t, err := NewTracer(version, sdktrace.WithBatcher(exporter))
	if err != nil {
		f.Close()
		return nil, err
	}
	t.closer = f
	return t, nil
}

// Shutdown flushes pending spans and releases the exporter.
func (t *Tracer) Shutdown(ctx context.Context) error {
	err := t.tp.Shutdown(ctx)
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (t *Tracer) OnTestStart(tc *testcase.TestCase, runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tests[runID] = t.startTest(tc, runID)
}

func (t *Tracer) startTest(tc *testcase.TestCase, runID string) testSpan {
	ctx, span := t.tracer.Start(context.Background(), "test: "+tc.Name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("test.name", tc.Name),
			attribute.String("test.package", tc.Package),
			attribute.String("test.run_id", runID),
			attribute.String("span.type", "test.run"),
		),
	)
	return testSpan{ctx: ctx, span: span}
}

func (t *Tracer) OnTestSuccess(*testcase.TestCase, *testcase.Result) {}
func (t *Tracer) OnTestFailure(*testcase.TestCase, *testcase.Result) {}
func (t *Tracer) OnTestSkipped(*testcase.TestCase, *testcase.Result) {}

func (t *Tracer) OnTestFinish(tc *testcase.TestCase, r *testcase.Result) {
	t.mu.Lock()
	ts, ok := t.tests[r.RunID]
	delete(t.tests, r.RunID)
	if !ok {
		// skipped tests never start
		ts = t.startTest(tc, r.RunID)
	}
	t.mu.Unlock()

	ts.span.SetAttributes(
		attribute.String("test.status", string(r.Status)),
		attribute.Int("test.actions_executed", r.ActionsExecuted),
	)
	if r.Err != nil {
		ts.span.RecordError(r.Err)
		ts.span.SetAttributes(attribute.String("error.kind", string(errors.KindOf(r.Err))))
		ts.span.SetStatus(codes.Error, r.Err.Error())
	} else {
		ts.span.SetStatus(codes.Ok, "")
	}
	ts.span.End()
}

func (t *Tracer) OnActionStart(_ *testcase.TestCase, runID string, a action.TestAction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	parent := context.Background()
	if ts, ok := t.tests[runID]; ok {
		parent = ts.ctx
	}
	_, span := t.tracer.Start(parent, "action: "+a.Name(),
		trace.WithAttributes(
			attribute.String("action.name", a.Name()),
			attribute.String("span.type", "test.action"),
		),
	)
	t.actions[runID] = span
}

func (t *Tracer) OnActionFinish(_ *testcase.TestCase, runID string, _ action.TestAction, err error) {
	t.mu.Lock()
	span, ok := t.actions[runID]
	delete(t.actions, runID)
	t.mu.Unlock()
	if !ok {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

var _ testcase.Listener = (*Tracer)(nil)
