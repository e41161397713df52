// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/groebner/services/gb/config"
	"github.com/AleutianAI/groebner/services/gb/dist"
	"github.com/AleutianAI/groebner/services/gb/engine"
	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

type mode int

const (
	modeCompute mode = iota
	modeCoordinator
	modeWorker
)

// runEnv carries what a command resolved before it touched the problem.
type runEnv struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
	mode   mode

	// compute
	extended bool

	// coordinator
	localWorkers int

	// worker
	addr     string
	workerID string
}

// runProblem picks the coefficient ring of p and runs env.mode over it.
func runProblem(ctx context.Context, env *runEnv, p *Problem) error {
	switch p.Coefficients {
	case "rational":
		return runWith(ctx, env, p, ring.Factory[ring.Rational](ring.Rationals), elementVariant[ring.Rational])
	case "integer":
		return runWith(ctx, env, p, ring.Factory[ring.Integer](ring.Integers), elementVariant[ring.Integer])
	case "modular":
		m, err := modulus(p)
		if err != nil {
			return err
		}
		return runWith(ctx, env, p, ring.Factory[ring.ModInt](m), elementVariant[ring.ModInt])
	case "product-rational":
		pr := ring.NewPowerRing[ring.Rational](ring.Rationals, p.Components)
		return runWith(ctx, env, p, ring.Factory[ring.Product[ring.Rational]](pr), regularVariant[ring.Product[ring.Rational]])
	case "product-integer":
		pr := ring.NewPowerRing[ring.Integer](ring.Integers, p.Components)
		return runWith(ctx, env, p, ring.Factory[ring.Product[ring.Integer]](pr), regularVariant[ring.Product[ring.Integer]])
	case "product-modular":
		m, err := modulus(p)
		if err != nil {
			return err
		}
		pr := ring.NewPowerRing[ring.ModInt](m, p.Components)
		return runWith(ctx, env, p, ring.Factory[ring.Product[ring.ModInt]](pr), regularVariant[ring.Product[ring.ModInt]])
	default:
		return fmt.Errorf("%w: coefficients %q", errProblem, p.Coefficients)
	}
}

// modulus builds ZZ/m and rejects a composite m for variants that
// normalize to monic form.
func modulus(p *Problem) (*ring.ModIntRing, error) {
	m, err := ring.NewModIntRing(p.Modulus)
	if err != nil {
		return nil, err
	}
	switch p.variantName() {
	case "field", "left", "twosided", "r":
		if !m.IsField() {
			return nil, fmt.Errorf("%w: variant %q needs a prime modulus, got %d", errProblem, p.variantName(), p.Modulus)
		}
	}
	return m, nil
}

func runWith[C ring.Element[C]](
	ctx context.Context,
	env *runEnv,
	p *Problem,
	coeffs ring.Factory[C],
	pick func(string) (engine.Variant[C], error),
) error {
	r, fs, err := build(p, coeffs)
	if err != nil {
		return err
	}
	v, err := pick(p.variantName())
	if err != nil {
		return err
	}

	switch env.mode {
	case modeWorker:
		return work(ctx, env, v, r)
	case modeCoordinator:
		return coordinate(ctx, env, v, r, fs)
	}

	if env.extended {
		return extendedRun(ctx, env, fs)
	}
	var res *engine.Result[C]
	switch env.cfg.Strategy {
	case config.StrategyParallel:
		res, err = engine.NewParallel[C](v, env.cfg.EngineOptions(env.logger)...).GB(ctx, fs)
	case config.StrategyDistributed:
		return coordinate(ctx, env, v, r, fs)
	default:
		res, err = engine.NewSequential[C](v, env.cfg.EngineOptions(env.logger)...).GB(ctx, fs)
	}
	if err != nil {
		return err
	}
	report(env.out, v, res)
	return nil
}

// coordinate serves the problem to workers and computes it.
func coordinate[C ring.Element[C]](ctx context.Context, env *runEnv, v engine.Variant[C], r *poly.Ring[C], fs []*poly.Polynomial[C]) error {
	c := dist.NewCoordinator[C](v, r, env.cfg.CoordinatorOptions(env.logger))
	if err := c.Start(env.cfg.Distributed.Addr()); err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Shutdown(sctx)
	}()

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(wctx)
	for i := range env.localWorkers {
		coordEnd, workerEnd := dist.Pipe()
		c.Attach(coordEnd)
		w := dist.NewWorker[C](v, r, env.cfg.Distributed.WorkerOptions(fmt.Sprintf("local-%d", i), env.logger))
		g.Go(func() error { return w.Run(gctx, workerEnd) })
	}

	res, err := c.GB(ctx, fs)
	if err != nil {
		cancel()
		_ = g.Wait()
		return err
	}
	if werr := g.Wait(); werr != nil {
		env.logger.Warn("local worker failed", slog.String("error", werr.Error()))
	}
	report(env.out, v, res)
	return nil
}

// work attaches one worker to a remote coordinator.
func work[C ring.Element[C]](ctx context.Context, env *runEnv, v engine.Variant[C], r *poly.Ring[C]) error {
	url := env.addr
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		url = "ws://" + url + "/ws"
	}
	conn, err := dist.Dial(ctx, url)
	if err != nil {
		return err
	}
	w := dist.NewWorker[C](v, r, env.cfg.Distributed.WorkerOptions(env.workerID, env.logger))
	if err := w.Run(ctx, conn); err != nil {
		return err
	}
	fmt.Fprintf(env.out, "worker %s processed %d tasks\n", w.ID(), w.Tasks())
	return nil
}

// extendedRun computes the basis with its conversion matrices.
func extendedRun[C ring.Element[C]](ctx context.Context, env *runEnv, fs []*poly.Polynomial[C]) error {
	res, err := engine.ExtendedGB(ctx, fs, engine.WithLogger(env.logger))
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "# run %s: extended, %d elements in %s\n", res.RunID, len(res.G), res.Duration.Round(time.Microsecond))
	for _, g := range res.G {
		fmt.Fprintln(env.out, g)
	}
	fmt.Fprintf(env.out, "# reduction matrices verified: %t\n", engine.IsReductionMatrix(res))
	return nil
}

// report prints the basis, one element per line, between two summary
// comments.
func report[C ring.Element[C]](out io.Writer, v engine.Variant[C], res *engine.Result[C]) {
	fmt.Fprintf(out, "# run %s: %s %s, %d elements in %s\n",
		res.RunID, res.Strategy, res.Variant, len(res.Basis), res.Duration.Round(time.Microsecond))
	for _, g := range res.Basis {
		fmt.Fprintln(out, g)
	}
	st := res.Stats
	fmt.Fprintf(out, "# groebner: %t  pairs: %d  eliminated: %d  skipped: %d  reductions: %d  zero: %d\n",
		verdict(v, res.Basis), st.Pairs.Put, st.Pairs.Eliminated, st.Pairs.Skipped, st.Reductions, st.ZeroReductions)
}

func verdict[C ring.Element[C]](v engine.Variant[C], g []*poly.Polynomial[C]) bool {
	if v.Name() == "twosided" {
		return engine.IsTwosidedGB(g)
	}
	return engine.IsGB(v, g)
}
