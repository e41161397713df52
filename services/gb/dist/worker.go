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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/groebner/services/gb/engine"
	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	// ID identifies the worker in coordinator logs. Defaults to a random
	// short id.
	ID string

	// PollInterval is the minimum spacing of task requests after the
	// coordinator answered no_work_yet.
	PollInterval time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Worker reduces tasks handed out by a Coordinator.
//
// Thread Safety: Run must not be called concurrently on one Worker.
type Worker[C ring.Element[C]] struct {
	variant engine.Variant[C]
	ring    *poly.Ring[C]
	id      string
	logger  *slog.Logger
	limiter *rate.Limiter

	basis []*poly.Polynomial[C]
	tasks atomic.Int64
}

// NewWorker returns a worker for polynomials of r.
func NewWorker[C ring.Element[C]](v engine.Variant[C], r *poly.Ring[C], opts WorkerOptions) *Worker[C] {
	if opts.ID == "" {
		opts.ID = uuid.NewString()[:12]
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 20 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker[C]{
		variant: v,
		ring:    r,
		id:      opts.ID,
		logger:  logger.With(slog.String("component", "worker"), slog.String("worker_id", opts.ID)),
		limiter: rate.NewLimiter(rate.Every(opts.PollInterval), 1),
	}
}

// ID returns the worker id.
func (w *Worker[C]) ID() string { return w.id }

// Tasks returns the number of tasks processed.
func (w *Worker[C]) Tasks() int { return int(w.tasks.Load()) }

// Run serves one coordinator connection until it sends terminate.
//
// Inputs:
//
//	ctx - Cancellation closes the connection.
//	conn - An open connection to the coordinator. Run closes it.
//
// Outputs:
//
//	error - nil after terminate; ErrSetupMismatch, ErrProtocol or a
//	transport error otherwise.
func (w *Worker[C]) Run(ctx context.Context, conn Conn) error {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	w.basis = nil
	if err := conn.Send(&Message{Type: MsgHello, WorkerID: w.id}); err != nil {
		return err
	}

	setup := false
	for {
		m, err := conn.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrClosed) {
				return fmt.Errorf("coordinator closed the connection: %w", err)
			}
			return fmt.Errorf("receive: %w", err)
		}

		switch m.Type {
		case MsgSetup:
			if m.Ring != w.ring.String() || m.Variant != w.variant.Name() {
				return fmt.Errorf("%w: coordinator has %s (%s), worker has %s (%s)",
					ErrSetupMismatch, m.Ring, m.Variant, w.ring, w.variant.Name())
			}
			setup = true
			w.logger.Info("worker setup complete", slog.String("ring", m.Ring), slog.String("variant", m.Variant))
			err = conn.Send(&Message{Type: MsgPairRequest})

		case MsgBasis:
			if !setup || m.From != len(w.basis) {
				return fmt.Errorf("%w: basis update from %d, have %d", ErrProtocol, m.From, len(w.basis))
			}
			ps, derr := DecodeList(w.ring, m.Polys)
			if derr != nil {
				return derr
			}
			w.basis = append(w.basis, ps...)

		case MsgPairReply:
			if !setup {
				return fmt.Errorf("%w: task before setup", ErrProtocol)
			}
			res, perr := w.process(m)
			if perr != nil {
				return perr
			}
			if err = conn.Send(res); err == nil {
				err = conn.Send(&Message{Type: MsgPairRequest})
			}

		case MsgNoWorkYet:
			if err = w.limiter.Wait(ctx); err != nil {
				return err
			}
			err = conn.Send(&Message{Type: MsgPairRequest})

		case MsgTerminate:
			w.logger.Info("worker terminated",
				slog.String("reason", m.Reason),
				slog.Int("tasks", w.Tasks()),
			)
			return nil

		default:
			return fmt.Errorf("%w: unexpected message %s", ErrProtocol, m.Type)
		}
		if err != nil {
			if w.terminatedDuringSend(conn) {
				return nil
			}
			return err
		}
	}
}

// terminatedDuringSend reports whether a failed send raced with a
// terminate that is still waiting in the receive buffer.
func (w *Worker[C]) terminatedDuringSend(conn Conn) bool {
	m, err := conn.Recv()
	if err != nil || m.Type != MsgTerminate {
		return false
	}
	w.logger.Info("worker terminated", slog.String("reason", m.Reason), slog.Int("tasks", w.Tasks()))
	return true
}

// process reduces one task against the cached basis.
func (w *Worker[C]) process(m *Message) (*Message, error) {
	var crit []*poly.Polynomial[C]
	switch m.Kind {
	case TaskPair:
		if m.I < 0 || m.I >= m.J || m.J >= len(w.basis) {
			return nil, fmt.Errorf("%w: pair (%d,%d) outside basis of %d", ErrProtocol, m.I, m.J, len(w.basis))
		}
		crit = w.variant.Critical(w.basis[m.I], w.basis[m.J])
	case TaskPoly:
		if m.Poly == nil {
			return nil, fmt.Errorf("%w: poly task without polynomial", ErrProtocol)
		}
		p, err := Decode(w.ring, *m.Poly)
		if err != nil {
			return nil, err
		}
		crit = []*poly.Polynomial[C]{p}
	default:
		return nil, fmt.Errorf("%w: unknown task kind %q", ErrProtocol, m.Kind)
	}

	red := w.variant.Reducer()
	var out []*poly.Polynomial[C]
	for _, c := range crit {
		if h := red.Normalform(w.basis, c); !h.IsZero() {
			out = append(out, h)
		}
	}
	w.tasks.Add(1)
	return &Message{
		Type:     MsgResult,
		TaskID:   m.TaskID,
		Polys:    EncodeList(out),
		BasisLen: len(w.basis),
		Reduced:  len(crit),
	}, nil
}
