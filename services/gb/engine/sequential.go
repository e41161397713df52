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
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
	"github.com/AleutianAI/groebner/services/gb/telemetry"
)

// Sequential computes Groebner bases in a single goroutine.
//
// Thread Safety: Sequential holds no run state; concurrent GB calls are
// independent.
type Sequential[C ring.Element[C]] struct {
	variant Variant[C]
	opts    options
}

// NewSequential returns a sequential orchestrator for v.
func NewSequential[C ring.Element[C]](v Variant[C], opts ...Option) *Sequential[C] {
	return &Sequential[C]{variant: v, opts: applyOptions(opts)}
}

// GB computes a Groebner basis of the ideal generated by fs.
//
// Description:
//
//	Seeds the basis with the normalized inputs, then repeatedly reduces
//	fed-back polynomials and the critical polynomials of the next pair
//	against the whole basis, appending every nonzero remainder. Stops at
//	the fixpoint or as soon as a unit is accepted.
//
// Inputs:
//
//	ctx - Checked between pairs; cancellation aborts the run.
//	fs - Generators, all from the same ring. Zero entries are ignored.
//
// Outputs:
//
//	*Result[C] - The basis (minimal unless WithoutMinimize) and counters.
//	error - ErrNoInput, ErrRingMismatch or ErrTerminated.
func (s *Sequential[C]) GB(ctx context.Context, fs []*poly.Polynomial[C]) (*Result[C], error) {
	r, err := inputRing(fs)
	if err != nil {
		return nil, err
	}
	m := initMetrics(s.opts.logger)

	ctx, span := tracer.Start(ctx, "engine.Sequential",
		trace.WithAttributes(
			attribute.String("gb.variant", s.variant.Name()),
			attribute.Int("gb.inputs", len(fs)),
		),
	)
	defer span.End()
	logger := telemetry.LoggerWithTrace(ctx, s.opts.logger)

	start := time.Now()
	runID := uuid.NewString()[:12]
	res := &Result[C]{RunID: runID, Strategy: "sequential", Variant: s.variant.Name()}
	if r == nil {
		span.SetStatus(codes.Ok, "")
		return res, nil
	}

	logger.Info("groebner run started",
		slog.String("run_id", runID),
		slog.String("strategy", res.Strategy),
		slog.String("variant", res.Variant),
		slog.String("ring", r.String()),
		slog.Int("inputs", len(fs)),
	)

	st := NewState(s.variant, r)
	logPhase(logger, runID, PhaseSeeding)
	st.Seed(fs)

	logPhase(logger, runID, PhaseRunning)
	err = runSequential(ctx, st)

	res.Duration = time.Since(start)
	res.Stats = st.Stats()
	m.recordRun(ctx, res.Strategy, res.Variant, res.Duration, res.Stats, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("groebner run terminated",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	res.Basis = st.Final(s.opts.minimal)
	logPhase(logger, runID, PhaseTerminated)
	span.SetAttributes(attribute.Int("gb.basis_size", len(res.Basis)))
	span.SetStatus(codes.Ok, "")
	logger.Info("groebner run completed",
		slog.String("run_id", runID),
		slog.Int("basis_size", len(res.Basis)),
		slog.Int("appended", res.Stats.Appended),
		slog.Int("reductions", res.Stats.Reductions),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

// runSequential drives st to its fixpoint.
func runSequential[C ring.Element[C]](ctx context.Context, st *State[C]) error {
	for !st.Unit() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrTerminated, err)
		}
		if p, ok := st.NextPending(); ok {
			st.Accept(st.Reduce(st.Basis().Len(), p))
			continue
		}
		pair, ok := st.NextPair()
		if !ok {
			return nil
		}
		for _, c := range st.Critical(pair) {
			st.Accept(st.Reduce(st.Basis().Len(), c))
			if st.Unit() {
				break
			}
		}
		st.Done(pair)
	}
	return nil
}

func logPhase(logger *slog.Logger, runID string, p Phase) {
	logger.Debug("groebner phase",
		slog.String("run_id", runID),
		slog.String("phase", p.String()),
	)
}
