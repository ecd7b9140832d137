// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kawametrics exposes the engine's ambient Prometheus surface:
// counters and histograms around the parse/prepare/consume cycle that a
// caller registers once per process, then hands to every kawa.Engine it
// drives. The engine package itself never imports prometheus directly —
// Recorder is an optional collaborator a caller wires in, so the core
// parser stays usable without pulling in a metrics backend.
package kawametrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace is the Prometheus namespace every metric below is registered
// under.
const Namespace = "kawa"

// Recorder bundles the counters and histograms a caller wires into its
// parse loop. Every field is a live prometheus collector, not a snapshot,
// so a Recorder is safe to share across every Engine in a process.
type Recorder struct {
	ParseCycles    prometheus.Counter
	ParseErrors    *prometheus.CounterVec
	ShiftTotal     prometheus.Counter
	ConsumedBytes  prometheus.Counter
	PrepareLatency prometheus.Histogram
}

// NewRecorder registers and returns a Recorder. Call it once per process;
// registering the same collector twice against the default registry
// panics, exactly as promauto.NewCounter does in internal/rescue.
func NewRecorder() *Recorder {
	return &Recorder{
		ParseCycles: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "parse_cycles_total",
			Help:      "Number of Parser.Parse invocations across all engines.",
		}),
		ParseErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "parse_errors_total",
			Help:      "Number of engines that entered PhaseError, by phase.",
		}, []string{"phase"}),
		ShiftTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "buffer_shift_total",
			Help:      "Number of times storage.Buffer.Shift compacted a buffer.",
		}),
		ConsumedBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "consumed_bytes_total",
			Help:      "Total bytes reported consumed via Engine.Consume.",
		}),
		PrepareLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "prepare_latency_seconds",
			Help:      "Wall time spent in Engine.Prepare per message.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ObserveError increments ParseErrors for phase. phase is the caller's
// own rendering of kawa.PhaseKind (the engine package carries no
// prometheus dependency, so it passes a plain string here).
func (r *Recorder) ObserveError(phase string) {
	if r == nil {
		return
	}
	r.ParseErrors.WithLabelValues(phase).Inc()
}
