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

// Package metrics exposes the daemon's prometheus series (spec.md §4.10's
// observability surface), grounded on the teacher's promauto usage in
// internal/controller/metrics and internal/action/file/metrics.go.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oj_jobs_active",
		Help: "Jobs currently in a non-terminal state.",
	})

	stepVisits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oj_step_visits_total",
			Help: "Total number of times the engine handled an event, by event kind.",
		},
		[]string{"event"},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oj_queue_depth",
			Help: "Pending item count per work-queue consumer.",
		},
		[]string{"queue"},
	)

	workerActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oj_worker_active_jobs",
		Help: "Jobs with at least one running step right now.",
	})

	walAppendSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oj_wal_append_seconds",
		Help:    "Latency of one burst's WAL group-commit flush.",
		Buckets: prometheus.DefBuckets,
	})
)

// SetJobsActive reports the current non-terminal job count.
func SetJobsActive(n int) { jobsActive.Set(float64(n)) }

// SetWorkerActiveJobs reports how many jobs currently have a running step.
func SetWorkerActiveJobs(n int) { workerActiveJobs.Set(float64(n)) }

// SetQueueDepth reports one named work-queue consumer's pending item count.
func SetQueueDepth(queue string, n int) { queueDepth.WithLabelValues(queue).Set(float64(n)) }

// ObserveStepVisit records the engine handling one event of the given kind.
func ObserveStepVisit(event string) { stepVisits.WithLabelValues(event).Inc() }

// ObserveWALAppend records one burst's flush latency.
func ObserveWALAppend(d time.Duration) { walAppendSeconds.Observe(d.Seconds()) }

// Handler serves the registry in the Prometheus text exposition format,
// for the daemon to mount at /metrics on its debug listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
