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
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/groebner/services/gb/pairs"
	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
	"github.com/AleutianAI/groebner/services/gb/telemetry"
)

// Parallel computes Groebner bases with a fixed pool of goroutines
// sharing one basis and one pair queue.
//
// Description:
//
//	Workers take a task (a fed-back polynomial or a critical pair) under
//	the run mutex, reduce against a snapshot of the basis without the
//	lock and publish under the lock. A remainder computed against a
//	snapshot that has since grown is reduced again before it is
//	published, so every appended element is irreducible with respect to
//	the basis at the moment of publication. The run terminates when the
//	queue is empty and no worker holds a task.
//
// Thread Safety:
//
//	GB may be called concurrently; Terminate stops every running GB.
type Parallel[C ring.Element[C]] struct {
	variant Variant[C]
	opts    options

	mu   sync.Mutex
	runs map[*parallelRun[C]]struct{}
}

// NewParallel returns a parallel orchestrator for v.
func NewParallel[C ring.Element[C]](v Variant[C], opts ...Option) *Parallel[C] {
	return &Parallel[C]{
		variant: v,
		opts:    applyOptions(opts),
		runs:    make(map[*parallelRun[C]]struct{}),
	}
}

// parallelRun is the shared state of one GB call.
type parallelRun[C ring.Element[C]] struct {
	st      *State[C]
	m       *instruments
	logger  *slog.Logger
	runID   string
	cancel  context.CancelFunc
	stopped chan struct{}

	mu     sync.Mutex
	cond   *sync.Cond
	active int
	done   bool
	phase  Phase
}

// task is one unit of work: a fed-back polynomial or a pair.
type task[C ring.Element[C]] struct {
	poly  *poly.Polynomial[C]
	pair  pairs.Pair
	isPar bool
}

// GB computes a Groebner basis of the ideal generated by fs.
//
// Inputs:
//
//	ctx - Cancellation terminates every worker.
//	fs - Generators, all from the same ring.
//
// Outputs:
//
//	*Result[C] - The basis and counters.
//	error - ErrInvalidThreads, ErrNoInput, ErrRingMismatch or ErrTerminated.
func (p *Parallel[C]) GB(ctx context.Context, fs []*poly.Polynomial[C]) (*Result[C], error) {
	if p.opts.threads < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreads, p.opts.threads)
	}
	r, err := inputRing(fs)
	if err != nil {
		return nil, err
	}
	m := initMetrics(p.opts.logger)

	ctx, span := tracer.Start(ctx, "engine.Parallel",
		trace.WithAttributes(
			attribute.String("gb.variant", p.variant.Name()),
			attribute.Int("gb.inputs", len(fs)),
			attribute.Int("gb.threads", p.opts.threads),
		),
	)
	defer span.End()
	logger := telemetry.LoggerWithTrace(ctx, p.opts.logger)

	start := time.Now()
	runID := uuid.NewString()[:12]
	res := &Result[C]{RunID: runID, Strategy: "parallel", Variant: p.variant.Name()}
	if r == nil {
		span.SetStatus(codes.Ok, "")
		return res, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	run := &parallelRun[C]{
		st:      NewState(p.variant, r),
		m:       m,
		logger:  logger,
		runID:   runID,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	run.cond = sync.NewCond(&run.mu)
	p.register(run)
	defer p.unregister(run)

	logger.Info("groebner run started",
		slog.String("run_id", runID),
		slog.String("strategy", res.Strategy),
		slog.String("variant", res.Variant),
		slog.String("ring", r.String()),
		slog.Int("inputs", len(fs)),
		slog.Int("threads", p.opts.threads),
	)

	logPhase(logger, runID, PhaseSeeding)
	run.st.Seed(fs)
	run.setPhase(PhaseRunning)

	// Wake waiting workers when the context ends.
	stop := context.AfterFunc(ctx, run.wake)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for range p.opts.threads {
		g.Go(func() error { return run.worker(gctx) })
	}
	err = g.Wait()
	close(run.stopped)

	res.Duration = time.Since(start)
	res.Stats = run.st.Stats()
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

	res.Basis = run.st.Final(p.opts.minimal)
	run.setPhase(PhaseTerminated)
	span.SetAttributes(attribute.Int("gb.basis_size", len(res.Basis)))
	span.SetStatus(codes.Ok, "")
	logger.Info("groebner run completed",
		slog.String("run_id", runID),
		slog.Int("basis_size", len(res.Basis)),
		slog.Int("appended", res.Stats.Appended),
		slog.Int("reductions", res.Stats.Reductions),
		slog.Int("revalidations", res.Stats.Revalidations),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

// Terminate stops every running GB call, wakes blocked workers and waits
// until they have exited. The interrupted calls return ErrTerminated.
func (p *Parallel[C]) Terminate() {
	p.mu.Lock()
	runs := make([]*parallelRun[C], 0, len(p.runs))
	for r := range p.runs {
		runs = append(runs, r)
	}
	p.mu.Unlock()

	for _, r := range runs {
		r.cancel()
		r.wake()
		<-r.stopped
	}
}

func (p *Parallel[C]) register(r *parallelRun[C]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs[r] = struct{}{}
}

func (p *Parallel[C]) unregister(r *parallelRun[C]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.runs, r)
}

// =============================================================================
// Worker loop
// =============================================================================

func (r *parallelRun[C]) wake() {
	r.mu.Lock()
	r.cond.Broadcast()
	r.mu.Unlock()
}

// setPhase must not be called with r.mu held.
func (r *parallelRun[C]) setPhase(p Phase) {
	r.mu.Lock()
	changed := r.phase != p
	r.phase = p
	r.mu.Unlock()
	if changed {
		logPhase(r.logger, r.runID, p)
	}
}

// worker processes tasks until the run is done or ctx ends.
func (r *parallelRun[C]) worker(ctx context.Context) error {
	for {
		t, ok, err := r.next(ctx)
		if err != nil || !ok {
			return err
		}
		r.m.workerActive(ctx, 1)
		if t.isPar {
			for _, c := range r.st.Critical(t.pair) {
				if ctx.Err() != nil || r.st.Unit() {
					break
				}
				r.publish(r.reduce(c))
			}
		} else {
			r.publish(r.reduce(t.poly))
		}
		r.m.workerActive(ctx, -1)
		r.finish(t)
	}
}

// next blocks until a task is available. It returns false once the run
// has reached its fixpoint.
func (r *parallelRun[C]) next(ctx context.Context) (task[C], bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			r.cond.Broadcast()
			return task[C]{}, false, fmt.Errorf("%w: %w", ErrTerminated, err)
		}
		if r.done || r.st.Unit() {
			r.done = true
			r.cond.Broadcast()
			return task[C]{}, false, nil
		}
		if f, ok := r.st.NextPending(); ok {
			r.active++
			return task[C]{poly: f}, true, nil
		}
		if pair, ok := r.st.NextPair(); ok {
			r.active++
			return task[C]{pair: pair, isPar: true}, true, nil
		}
		if r.active == 0 {
			r.done = true
			r.cond.Broadcast()
			return task[C]{}, false, nil
		}
		if r.phase == PhaseRunning {
			r.phase = PhaseDraining
			logPhase(r.logger, r.runID, PhaseDraining)
		}
		r.cond.Wait()
	}
}

// reduced is a remainder together with the basis length it is
// irreducible against.
type reduced[C ring.Element[C]] struct {
	h *poly.Polynomial[C]
	n int
}

// reduce computes a normal form against a snapshot, without the lock.
func (r *parallelRun[C]) reduce(f *poly.Polynomial[C]) reduced[C] {
	n := r.st.Basis().Len()
	return reduced[C]{h: r.st.Reduce(n, f), n: n}
}

// publish appends a remainder, first reducing it again if the basis grew
// since its snapshot.
func (r *parallelRun[C]) publish(x reduced[C]) {
	h, n := x.h, x.n
	for !h.IsZero() {
		r.mu.Lock()
		if r.st.Basis().Len() != n {
			r.mu.Unlock()
			h, n = r.st.Revalidate(n, h)
			continue
		}
		if len(r.st.Accept(h)) > 0 || r.st.Unit() {
			if r.phase == PhaseDraining {
				r.phase = PhaseRunning
			}
			r.cond.Broadcast()
		}
		r.mu.Unlock()
		return
	}
}

// finish releases a task.
func (r *parallelRun[C]) finish(t task[C]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active--
	if t.isPar {
		r.st.Done(t.pair)
	}
	r.cond.Broadcast()
}
