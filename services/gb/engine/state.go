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
	"fmt"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/groebner/services/gb/basis"
	"github.com/AleutianAI/groebner/services/gb/pairs"
	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

// =============================================================================
// Phases
// =============================================================================

// Phase is the lifecycle stage of a run.
type Phase int32

const (
	// PhaseSeeding appends the input polynomials.
	PhaseSeeding Phase = iota
	// PhaseRunning processes critical pairs.
	PhaseRunning
	// PhaseDraining waits for in-flight work after the queue ran dry.
	PhaseDraining
	// PhaseTerminated is final.
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseSeeding:
		return "seeding"
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// =============================================================================
// Results
// =============================================================================

// Stats counts the work of one run.
type Stats struct {
	Pairs pairs.Stats

	// Reductions is the number of critical or fed-back polynomials
	// reduced.
	Reductions int

	// ZeroReductions is the number of those that reduced to zero.
	ZeroReductions int

	// Appended is the number of elements appended before minimization.
	Appended int

	// Revalidations counts remainders re-reduced because the basis grew
	// while they were computed.
	Revalidations int
}

// Result is the outcome of a run.
type Result[C ring.Element[C]] struct {
	RunID    string
	Strategy string
	Variant  string
	Basis    []*poly.Polynomial[C]
	Stats    Stats
	Duration time.Duration
}

// =============================================================================
// State
// =============================================================================

// State is the canonical basis and pair queue of one run.
//
// Thread Safety:
//
//	Accept, Seed and the pending list must be serialized by the caller.
//	Basis snapshots, queue operations and the counters are safe for
//	concurrent use.
type State[C ring.Element[C]] struct {
	variant Variant[C]
	ring    *poly.Ring[C]
	basis   *basis.Basis[C]
	queue   *pairs.Queue
	pending []*poly.Polynomial[C]
	unit    atomic.Bool

	reductions     atomic.Int64
	zeroReductions atomic.Int64
	revalidations  atomic.Int64
}

// NewState returns an empty state for polynomials of r.
func NewState[C ring.Element[C]](v Variant[C], r *poly.Ring[C]) *State[C] {
	return &State[C]{
		variant: v,
		ring:    r,
		basis:   basis.New[C](),
		queue:   pairs.NewQueue(r.Order(), v.Criteria()),
	}
}

// Variant returns the variant driving the run.
func (s *State[C]) Variant() Variant[C] { return s.variant }

// Ring returns the polynomial ring of the run.
func (s *State[C]) Ring() *poly.Ring[C] { return s.ring }

// Basis returns the canonical basis.
func (s *State[C]) Basis() *basis.Basis[C] { return s.basis }

// Unit reports whether a unit was accepted; the ideal is then the whole
// ring and the run can stop.
func (s *State[C]) Unit() bool { return s.unit.Load() }

// Seed accepts every nonzero input polynomial.
func (s *State[C]) Seed(fs []*poly.Polynomial[C]) {
	for _, f := range fs {
		if s.Unit() {
			return
		}
		s.Accept(f)
	}
}

// Accept normalizes a nonzero remainder, appends the resulting elements
// and registers their pairs. Saturation polynomials are queued on the
// pending list. It returns the appended elements.
func (s *State[C]) Accept(h *poly.Polynomial[C]) []*poly.Polynomial[C] {
	if h.IsZero() || s.Unit() {
		return nil
	}
	var added []*poly.Polynomial[C]
	for _, g := range s.variant.Normalize(h) {
		if g.IsZero() {
			continue
		}
		if g.IsUnit() {
			s.unit.Store(true)
			s.pending = nil
			return nil
		}
		i := s.basis.Append(g)
		if j := s.queue.Append(g.LeadingExp()); j != i {
			panic(fmt.Sprintf("engine: basis index %d and queue index %d diverged", i, j))
		}
		added = append(added, g)
		s.pending = append(s.pending, s.variant.Saturate(g)...)
	}
	return added
}

// NextPending pops a fed-back polynomial.
func (s *State[C]) NextPending() (*poly.Polynomial[C], bool) {
	if len(s.pending) == 0 {
		return nil, false
	}
	p := s.pending[0]
	s.pending = s.pending[1:]
	return p, true
}

// RequeuePending returns an abandoned fed-back polynomial to the front of
// the pending list.
func (s *State[C]) RequeuePending(p *poly.Polynomial[C]) {
	s.pending = append([]*poly.Polynomial[C]{p}, s.pending...)
}

// HasPending reports whether fed-back polynomials wait.
func (s *State[C]) HasPending() bool { return len(s.pending) > 0 }

// NextPair pops the next critical pair.
func (s *State[C]) NextPair() (pairs.Pair, bool) {
	if s.Unit() {
		return pairs.Pair{}, false
	}
	return s.queue.Pop()
}

// Critical returns the polynomials contributed by p.
func (s *State[C]) Critical(p pairs.Pair) []*poly.Polynomial[C] {
	return s.variant.Critical(s.basis.Get(p.I), s.basis.Get(p.J))
}

// Done marks p as fully processed.
func (s *State[C]) Done(p pairs.Pair) { s.queue.Done(p) }

// Requeue returns an abandoned pair.
func (s *State[C]) Requeue(p pairs.Pair) { s.queue.Requeue(p) }

// Queued returns the number of queued pairs.
func (s *State[C]) Queued() int { return s.queue.Len() }

// HasWork reports whether pairs or fed-back polynomials remain.
func (s *State[C]) HasWork() bool {
	return !s.Unit() && (s.HasPending() || s.queue.HasNext())
}

// Reduce returns the normal form of f with respect to the first n
// basis elements.
func (s *State[C]) Reduce(n int, f *poly.Polynomial[C]) *poly.Polynomial[C] {
	h := s.variant.Reducer().Normalform(s.basis.Snapshot(n), f)
	s.reductions.Add(1)
	if h.IsZero() {
		s.zeroReductions.Add(1)
	}
	return h
}

// RecordReductions adds reductions performed outside the state, such as
// by remote workers.
func (s *State[C]) RecordReductions(total, zero int) {
	s.reductions.Add(int64(total))
	s.zeroReductions.Add(int64(zero))
}

// Revalidate reduces a remainder computed against the first n elements
// by the elements appended since.
func (s *State[C]) Revalidate(n int, h *poly.Polynomial[C]) (*poly.Polynomial[C], int) {
	s.revalidations.Add(1)
	m := s.basis.Len()
	h = s.variant.Reducer().Normalform(s.basis.Snapshot(m), h)
	if h.IsZero() {
		s.zeroReductions.Add(1)
	}
	return h, m
}

// Stats returns the counters of the run.
func (s *State[C]) Stats() Stats {
	return Stats{
		Pairs:          s.queue.Stats(),
		Reductions:     int(s.reductions.Load()),
		ZeroReductions: int(s.zeroReductions.Load()),
		Appended:       s.basis.Len(),
		Revalidations:  int(s.revalidations.Load()),
	}
}

// Final returns the basis of the run, minimized if requested. A run that
// accepted a unit yields {1}.
func (s *State[C]) Final(minimal bool) []*poly.Polynomial[C] {
	if s.Unit() {
		return []*poly.Polynomial[C]{s.ring.One()}
	}
	all := s.basis.All()
	if minimal {
		return s.variant.Minimize(all)
	}
	return append([]*poly.Polynomial[C](nil), all...)
}

// =============================================================================
// Input validation
// =============================================================================

// inputRing checks that fs share one ring and returns it. It returns nil
// for an empty input.
func inputRing[C ring.Element[C]](fs []*poly.Polynomial[C]) (*poly.Ring[C], error) {
	var r *poly.Ring[C]
	for i, f := range fs {
		if f == nil {
			return nil, fmt.Errorf("%w: index %d", ErrNoInput, i)
		}
		if r == nil {
			r = f.Ring()
			continue
		}
		if !r.Compatible(f.Ring()) {
			return nil, fmt.Errorf("%w: index %d is in %s, expected %s", ErrRingMismatch, i, f.Ring(), r)
		}
	}
	return r, nil
}
