// Copyright (c) 2017 Intel Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics keeps counters about trials of a run. They are exported to
// a prometheus textfile at the end of the run.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "caliper"

// Trial outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeFatal   = "fatal"
)

// Metrics of one run. Every run has its own registry.
type Metrics struct {
	registry *prometheus.Registry

	trialsStarted  *prometheus.CounterVec
	trialsFinished *prometheus.CounterVec
	trialDuration  *prometheus.HistogramVec
	measurements   *prometheus.CounterVec
	runtimeEvents  *prometheus.CounterVec
	activeWorkers  prometheus.Gauge
}

// New returns Metrics registered in a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		trialsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_started_total",
			Help:      "Trials started, by instrument.",
		}, []string{"instrument"}),
		trialsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_finished_total",
			Help:      "Trials finished, by instrument and outcome.",
		}, []string{"instrument", "outcome"}),
		trialDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trial_duration_seconds",
			Help:      "Wall time of trials including worker start and shutdown.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~27min
		}, []string{"instrument"}),
		measurements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_total",
			Help:      "Measurements accepted, by instrument.",
		}, []string{"instrument"}),
		runtimeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runtime_events_total",
			Help:      "Runtime interference events reported by workers, by type.",
		}, []string{"type"}),
		activeWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Workers currently running a trial.",
		}),
	}
}

// TrialStarted records the start of a trial and returns a function that
// records its end.
func (m *Metrics) TrialStarted(instrument string) (finished func(outcome string)) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.trialsStarted.WithLabelValues(instrument).Inc()
	m.activeWorkers.Inc()
	return func(outcome string) {
		m.activeWorkers.Dec()
		m.trialsFinished.WithLabelValues(instrument, outcome).Inc()
		m.trialDuration.WithLabelValues(instrument).Observe(time.Since(start).Seconds())
	}
}

// MeasurementsAccepted adds n accepted measurements.
func (m *Metrics) MeasurementsAccepted(instrument string, n int) {
	if m == nil {
		return
	}
	m.measurements.WithLabelValues(instrument).Add(float64(n))
}

// RuntimeEvent counts one interference event.
func (m *Metrics) RuntimeEvent(eventType string) {
	if m == nil {
		return
	}
	m.runtimeEvents.WithLabelValues(eventType).Inc()
}

// Gatherer exposes the registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteToTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "cannot write metrics to %q", path)
	}
	return nil
}
