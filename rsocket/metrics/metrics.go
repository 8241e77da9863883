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

// Package metrics exposes Prometheus instrumentation for the duplex
// session engine: active stream counts, frame throughput, handler table
// occupancy, and responder panics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rsocket_core"

var (
	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_streams",
		Help:      "Currently registered stream and channel entries in the handler table, summed across sessions.",
	})

	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_received_total",
		Help:      "Inbound frames processed by the session loop, by frame type.",
	}, []string{"type"})

	FramesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_sent_total",
		Help:      "Outbound frames written to the transport, by frame type.",
	}, []string{"type"})

	HandlerTableSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "handler_table_size",
		Help:      "Live entries in the most recently sampled handler table.",
	})

	PanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "panics_total",
		Help:      "Panics recovered from spawned responder tasks.",
	})

	KeepaliveRoundTrip = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "keepalive_round_trip_seconds",
		Help:      "Time between originating a RESPOND keepalive and observing any inbound frame.",
		Buckets:   prometheus.DefBuckets,
	})
)
