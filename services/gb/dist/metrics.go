// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for distributed runs
// =============================================================================

var (
	// workersConnected is the number of workers that completed the hello.
	workersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "groebner",
		Subsystem: "dist",
		Name:      "workers",
		Help:      "Number of workers attached to the coordinator",
	})

	// tasksDispatched counts tasks handed to workers or processed locally.
	// Labels: kind (pair, poly), target (remote, local)
	tasksDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "groebner",
		Subsystem: "dist",
		Name:      "tasks_dispatched_total",
		Help:      "Total tasks dispatched",
	}, []string{"kind", "target"})

	// tasksRequeued counts abandoned tasks.
	// Labels: reason (disconnect, timeout, invalid)
	tasksRequeued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "groebner",
		Subsystem: "dist",
		Name:      "tasks_requeued_total",
		Help:      "Total tasks returned to the queue",
	}, []string{"reason"})

	// resultsReceived counts worker results.
	// Labels: outcome (accepted, stale)
	resultsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "groebner",
		Subsystem: "dist",
		Name:      "results_total",
		Help:      "Total results received from workers",
	}, []string{"outcome"})

	// taskLatency measures the time from dispatch to result.
	taskLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "groebner",
		Subsystem: "dist",
		Name:      "task_duration_seconds",
		Help:      "Time between dispatching a task and receiving its result",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
	})

	// messagesTotal counts websocket messages.
	// Labels: direction (in, out), type
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "groebner",
		Subsystem: "dist",
		Name:      "messages_total",
		Help:      "Total protocol messages over websockets",
	}, []string{"direction", "type"})
)
