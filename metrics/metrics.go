// Copyright 2024 The authlib-linux Authors
// This file is part of authlib-linux.

// Package metrics exposes Prometheus instrumentation for handshake
// outcomes and durations and for bytes dropped by transport receive
// queues; queue occupancy is not measured. It is pure observation: no
// metric here feeds back into protocol decisions.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcomes counts terminal handshake statuses, labeled by role and
// status name.
var Outcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "peerauth",
		Name:      "handshake_outcomes_total",
		Help:      "Count of terminal handshake statuses by role and status.",
	},
	[]string{"role", "status"},
)

// HandshakeDuration observes wall-clock time from STARTED to a
// terminal status.
var HandshakeDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "peerauth",
		Name:      "handshake_duration_seconds",
		Help:      "Time from handshake start to terminal status.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"role"},
)

// RecvQueueDropped counts bytes dropped by the drop-newest overflow
// policy in a transport.RingQueue.
var RecvQueueDropped = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "peerauth",
		Name:      "recv_queue_dropped_bytes_total",
		Help:      "Bytes dropped by the receive queue's drop-newest overflow policy.",
	},
	[]string{"carrier"},
)

func init() {
	prometheus.MustRegister(Outcomes, HandshakeDuration, RecvQueueDropped)
}
