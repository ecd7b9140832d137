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

package kawametrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := &dto.Metric{}
	require.NoError(t, (<-ch).Write(m))
	return m.GetCounter().GetValue()
}

func TestNewRecorderRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	r := NewRecorder()

	require.NotNil(t, r.ParseCycles)
	require.NotNil(t, r.ParseErrors)
	require.NotNil(t, r.ShiftTotal)
	require.NotNil(t, r.ConsumedBytes)
	require.NotNil(t, r.PrepareLatency)
}

func TestObserveErrorIncrementsByPhase(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	r := NewRecorder()

	r.ObserveError("headers")
	r.ObserveError("headers")
	r.ObserveError("chunks")

	assert.Equal(t, float64(2), gaugeValue(t, r.ParseErrors.WithLabelValues("headers")))
	assert.Equal(t, float64(1), gaugeValue(t, r.ParseErrors.WithLabelValues("chunks")))
}

func TestObserveErrorOnNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() { r.ObserveError("headers") })
}
