// Copyright 2025 Kadir Pekel
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

package retrieval

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus counters and histograms for the retrieval
// skill: search volume, latency, and how often single-flight coalescing
// saved a downstream round trip.
type Metrics struct {
	searches        *prometheus.CounterVec
	searchDuration  prometheus.Histogram
	searchErrors    prometheus.Counter
	coalescedShares prometheus.Counter
}

// NewMetrics builds and registers retrieval metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookrag",
			Subsystem: "retrieval",
			Name:      "searches_total",
			Help:      "Total number of retrieval searches by outcome.",
		}, []string{"outcome"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bookrag",
			Subsystem: "retrieval",
			Name:      "search_duration_seconds",
			Help:      "Retrieval search duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		}),
		searchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookrag",
			Subsystem: "retrieval",
			Name:      "search_errors_total",
			Help:      "Total number of failed retrieval searches.",
		}),
		coalescedShares: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookrag",
			Subsystem: "retrieval",
			Name:      "search_coalesced_total",
			Help:      "Total number of searches served by a single-flight share instead of a new round trip.",
		}),
	}

	reg.MustRegister(m.searches, m.searchDuration, m.searchErrors, m.coalescedShares)
	return m
}

// RecordSearch records the outcome of one Search call.
func (m *Metrics) RecordSearch(d time.Duration, ok bool, shared bool) {
	outcome := "success"
	if !ok {
		outcome = "error"
		m.searchErrors.Inc()
	}
	m.searches.WithLabelValues(outcome).Inc()
	m.searchDuration.Observe(d.Seconds())
	if shared {
		m.coalescedShares.Inc()
	}
}
