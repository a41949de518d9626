// Copyright 2024 AI SA Assistant Project
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

// Package metrics exposes prometheus collectors for research capability calls
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels a call that returned text
	OutcomeSuccess = "success"
	// OutcomeFallback labels a call whose provider response had no usable content
	OutcomeFallback = "fallback"
	// OutcomeError labels a call that failed
	OutcomeError = "error"
)

// Recorder records capability calls. A nil *Recorder is valid and records nothing.
type Recorder struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight *prometheus.GaugeVec
}

// NewRecorder creates the collectors and registers them with reg
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrollvest_capability_requests_total",
				Help: "Total number of research capability calls by outcome",
			},
			[]string{"capability", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scrollvest_capability_duration_seconds",
				Help:    "Duration of research capability calls in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"capability"},
		),
		inflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scrollvest_capability_inflight",
				Help: "Number of research capability calls currently waiting on the provider",
			},
			[]string{"capability"},
		),
	}

	for _, c := range []prometheus.Collector{r.requests, r.duration, r.inflight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Start marks a call as in flight and returns a function that records its
// outcome and duration.
func (r *Recorder) Start(capability string) func(outcome string) {
	if r == nil {
		return func(string) {}
	}

	start := time.Now()
	r.inflight.WithLabelValues(capability).Inc()

	return func(outcome string) {
		r.inflight.WithLabelValues(capability).Dec()
		r.requests.WithLabelValues(capability, outcome).Inc()
		r.duration.WithLabelValues(capability).Observe(time.Since(start).Seconds())
	}
}
