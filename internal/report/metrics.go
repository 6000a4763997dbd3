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
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/testcase"
)

// Metrics counts test and action outcomes in a dedicated registry so that
// each run exports only its own series.
type Metrics struct {
	testcase.NopListener

	registry *prometheus.Registry

	tests        *prometheus.CounterVec
	testDuration *prometheus.HistogramVec
	actions      *prometheus.CounterVec
	testsActive  prometheus.Gauge
}

// NewMetrics registers the citrus collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		tests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "citrus_tests_total",
				Help: "Total finished test cases by result status",
			},
			[]string{"status"},
		),
		testDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "citrus_test_duration_seconds",
				Help:    "Test case execution time by package",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"package"},
		),
		actions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "citrus_actions_total",
				Help: "Total executed top-level actions by action name and result",
			},
			[]string{"action", "result"},
		),
		testsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "citrus_tests_active",
				Help: "Number of test cases currently executing",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) OnTestStart(*testcase.TestCase, string) {
	m.testsActive.Inc()
}

func (m *Metrics) OnTestFinish(_ *testcase.TestCase, r *testcase.Result) {
	m.tests.WithLabelValues(string(r.Status)).Inc()
	if r.Status == testcase.ResultSkipped {
		return
	}
	m.testsActive.Dec()
	m.testDuration.WithLabelValues(r.Package).Observe(r.Duration.Seconds())
}

func (m *Metrics) OnActionFinish(_ *testcase.TestCase, _ string, a action.TestAction, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.actions.WithLabelValues(a.Name(), result).Inc()
}

// WriteFile writes the registry in the Prometheus text format, suitable for
// the node exporter textfile collector.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
