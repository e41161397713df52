// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("groebner.engine")
	meter  = otel.Meter("groebner.engine")
)

// instruments holds the engine metrics. A nil instrument means its
// creation failed and recording is skipped.
type instruments struct {
	runLatency     metric.Float64Histogram
	runs           metric.Int64Counter
	reductions     metric.Int64Counter
	zeroReductions metric.Int64Counter
	basisElements  metric.Int64Counter
	revalidations  metric.Int64Counter
	activeWorkers  metric.Int64UpDownCounter
}

var (
	metricsOnce sync.Once
	metrics     instruments
)

// initMetrics lazily initializes the package metrics.
// Logs errors if metric creation fails but continues execution (graceful degradation).
func initMetrics(logger *slog.Logger) *instruments {
	metricsOnce.Do(func() {
		var initErrors []string

		var err error
		metrics.runLatency, err = meter.Float64Histogram("gb_run_duration_seconds",
			metric.WithDescription("Wall time of a Groebner basis computation"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "run_latency: "+err.Error())
		}

		metrics.runs, err = meter.Int64Counter("gb_runs_total",
			metric.WithDescription("Number of finished Groebner basis computations"),
		)
		if err != nil {
			initErrors = append(initErrors, "runs: "+err.Error())
		}

		metrics.reductions, err = meter.Int64Counter("gb_reductions_total",
			metric.WithDescription("Number of critical polynomials reduced"),
		)
		if err != nil {
			initErrors = append(initErrors, "reductions: "+err.Error())
		}

		metrics.zeroReductions, err = meter.Int64Counter("gb_zero_reductions_total",
			metric.WithDescription("Number of reductions ending in zero"),
		)
		if err != nil {
			initErrors = append(initErrors, "zero_reductions: "+err.Error())
		}

		metrics.basisElements, err = meter.Int64Counter("gb_basis_elements_total",
			metric.WithDescription("Number of polynomials appended to a basis"),
		)
		if err != nil {
			initErrors = append(initErrors, "basis_elements: "+err.Error())
		}

		metrics.revalidations, err = meter.Int64Counter("gb_revalidations_total",
			metric.WithDescription("Number of remainders re-reduced after a concurrent append"),
		)
		if err != nil {
			initErrors = append(initErrors, "revalidations: "+err.Error())
		}

		metrics.activeWorkers, err = meter.Int64UpDownCounter("gb_active_workers",
			metric.WithDescription("Number of workers currently reducing a pair"),
		)
		if err != nil {
			initErrors = append(initErrors, "active_workers: "+err.Error())
		}

		if len(initErrors) > 0 {
			logger.Error("failed to initialize some engine metrics (observability degraded)",
				slog.Int("failed_count", len(initErrors)),
				slog.Any("errors", initErrors),
			)
		}
	})
	return &metrics
}

// recordRun records the final counters of a run.
func (m *instruments) recordRun(ctx context.Context, strategy, variant string, d time.Duration, st Stats, err error) {
	attrs := metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("variant", variant),
		attribute.Bool("success", err == nil),
	)
	if m.runLatency != nil {
		m.runLatency.Record(ctx, d.Seconds(), attrs)
	}
	if m.runs != nil {
		m.runs.Add(ctx, 1, attrs)
	}
	if m.reductions != nil {
		m.reductions.Add(ctx, int64(st.Reductions), attrs)
	}
	if m.zeroReductions != nil {
		m.zeroReductions.Add(ctx, int64(st.ZeroReductions), attrs)
	}
	if m.basisElements != nil {
		m.basisElements.Add(ctx, int64(st.Appended), attrs)
	}
	if m.revalidations != nil && st.Revalidations > 0 {
		m.revalidations.Add(ctx, int64(st.Revalidations), attrs)
	}
}

func (m *instruments) workerActive(ctx context.Context, delta int64) {
	if m.activeWorkers != nil {
		m.activeWorkers.Add(ctx, delta)
	}
}
