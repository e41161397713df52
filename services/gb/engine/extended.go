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
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/groebner/services/gb/pairs"
	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/reduction"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

// ExtendedResult is a Groebner basis together with the transformation
// matrices between it and its generators:
//
//	F[k] == Σ_m F2G[k][m] * G[m]
//	G[m] == Σ_k G2F[m][k] * F[k]
type ExtendedResult[C ring.Element[C]] struct {
	RunID    string
	F        []*poly.Polynomial[C]
	G        []*poly.Polynomial[C]
	F2G      [][]*poly.Polynomial[C]
	G2F      [][]*poly.Polynomial[C]
	Duration time.Duration
}

// extended tracks every basis element with its cofactors over F.
type extended[C ring.Element[C]] struct {
	r    *poly.Ring[C]
	red  *reduction.FieldReducer[C]
	nF   int
	g    []*poly.Polynomial[C]
	rows [][]*poly.Polynomial[C]
}

// ExtendedGB computes a minimal Groebner basis over a field together with
// both transformation matrices.
//
// Description:
//
//	Runs the sequential algorithm while carrying, for every basis element,
//	its row of cofactors with respect to the inputs. The inverse matrix is
//	obtained by reducing each input against the final basis with a
//	recording normal form.
//
// Inputs:
//
//	ctx - Checked between pairs.
//	fs - Generators in a commutative ring over a field.
//
// Outputs:
//
//	*ExtendedResult[C] - The basis and matrices.
//	error - ErrNotField, ErrNoInput, ErrRingMismatch or ErrTerminated.
func ExtendedGB[C ring.Element[C]](ctx context.Context, fs []*poly.Polynomial[C], opts ...Option) (*ExtendedResult[C], error) {
	r, err := inputRing(fs)
	if err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	runID := uuid.NewString()[:12]
	res := &ExtendedResult[C]{RunID: runID, F: append([]*poly.Polynomial[C](nil), fs...)}
	if r == nil {
		return res, nil
	}
	if !r.Coefficients().IsField() {
		return nil, fmt.Errorf("%w: %s", ErrNotField, r.Coefficients())
	}

	ctx, span := tracer.Start(ctx, "engine.ExtendedGB",
		trace.WithAttributes(attribute.Int("gb.inputs", len(fs))),
	)
	defer span.End()
	start := time.Now()

	x := &extended[C]{r: r, red: reduction.NewFieldReducer[C](), nF: len(fs)}
	q := pairs.NewQueue(r.Order(), pairs.AllCriteria)
	for k, f := range fs {
		if f.IsZero() {
			continue
		}
		row := x.unitRow(k, f.LeadingCoeff().Inverse())
		x.add(q, f.Monic(), row)
	}

	for {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("%w: %w", ErrTerminated, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		pair, ok := q.Pop()
		if !ok {
			break
		}
		s, srow := x.sPolynomial(pair.I, pair.J)
		row, h := x.red.NormalformRecording(x.g, s)
		if !h.IsZero() {
			// h == s - Σ row_m * g_m
			hrow := srow
			for m, c := range row {
				hrow = subRow(hrow, scaleRow(x.rows[m], c))
			}
			inv := h.LeadingCoeff().Inverse()
			x.add(q, h.Monic(), scaleRowConst(hrow, inv))
		}
		q.Done(pair)
	}

	x.minimize()
	res.G = x.g
	res.G2F = x.rows
	res.F2G = make([][]*poly.Polynomial[C], len(fs))
	for k, f := range fs {
		row, nf := x.red.NormalformRecording(x.g, f)
		if !nf.IsZero() {
			err := fmt.Errorf("generator %d does not reduce to zero: %s", k, nf)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		res.F2G[k] = row
	}
	res.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("gb.basis_size", len(res.G)))
	span.SetStatus(codes.Ok, "")
	o.logger.Info("extended groebner run completed",
		slog.String("run_id", runID),
		slog.Int("basis_size", len(res.G)),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

func (x *extended[C]) add(q *pairs.Queue, g *poly.Polynomial[C], row []*poly.Polynomial[C]) {
	x.g = append(x.g, g)
	x.rows = append(x.rows, row)
	q.Append(g.LeadingExp())
}

func (x *extended[C]) unitRow(k int, c C) []*poly.Polynomial[C] {
	row := x.zeroRow()
	row[k] = x.r.Const(c)
	return row
}

func (x *extended[C]) zeroRow() []*poly.Polynomial[C] {
	row := make([]*poly.Polynomial[C], x.nF)
	for i := range row {
		row[i] = x.r.Zero()
	}
	return row
}

// sPolynomial returns lc(b) x^u a - lc(a) x^v b and its row.
func (x *extended[C]) sPolynomial(i, j int) (*poly.Polynomial[C], []*poly.Polynomial[C]) {
	a, b := x.g[i], x.g[j]
	l := a.LeadingExp().Lcm(b.LeadingExp())
	u, v := l.Subtract(a.LeadingExp()), l.Subtract(b.LeadingExp())
	ca, cb := a.LeadingCoeff(), b.LeadingCoeff()
	s := a.MultiplyTerm(cb, u).Subtract(b.MultiplyTerm(ca, v))
	row := subRow(termRow(x.rows[i], cb, u), termRow(x.rows[j], ca, v))
	return s, row
}

// minimize drops redundant elements and interreduces the rest, keeping
// the rows in step.
func (x *extended[C]) minimize() {
	for i := 0; i < len(x.g); {
		drop := false
		for j, h := range x.g {
			if j != i && leadDivides(x.g[i], h) {
				drop = true
				break
			}
		}
		if drop {
			x.g = slices.Delete(x.g, i, i+1)
			x.rows = slices.Delete(x.rows, i, i+1)
			continue
		}
		i++
	}
	for i := range x.g {
		others := make([]*poly.Polynomial[C], len(x.g))
		copy(others, x.g)
		others[i] = nil
		row, h := x.red.NormalformRecording(others, x.g[i])
		hrow := x.rows[i]
		for m, c := range row {
			if m != i {
				hrow = subRow(hrow, scaleRow(x.rows[m], c))
			}
		}
		inv := h.LeadingCoeff().Inverse()
		x.g[i] = h.Monic()
		x.rows[i] = scaleRowConst(hrow, inv)
	}
	idx := make([]int, len(x.g))
	for i := range idx {
		idx[i] = i
	}
	order := x.r.Order()
	slices.SortStableFunc(idx, func(a, b int) int {
		return order.Compare(x.g[a].LeadingExp(), x.g[b].LeadingExp())
	})
	g := make([]*poly.Polynomial[C], len(idx))
	rows := make([][]*poly.Polynomial[C], len(idx))
	for n, i := range idx {
		g[n], rows[n] = x.g[i], x.rows[i]
	}
	x.g, x.rows = g, rows
}

// =============================================================================
// Row arithmetic
// =============================================================================

func subRow[C ring.Element[C]](a, b []*poly.Polynomial[C]) []*poly.Polynomial[C] {
	out := make([]*poly.Polynomial[C], len(a))
	for i := range a {
		out[i] = a[i].Subtract(b[i])
	}
	return out
}

func scaleRow[C ring.Element[C]](a []*poly.Polynomial[C], p *poly.Polynomial[C]) []*poly.Polynomial[C] {
	out := make([]*poly.Polynomial[C], len(a))
	for i := range a {
		out[i] = a[i].Multiply(p)
	}
	return out
}

func scaleRowConst[C ring.Element[C]](a []*poly.Polynomial[C], c C) []*poly.Polynomial[C] {
	out := make([]*poly.Polynomial[C], len(a))
	for i := range a {
		out[i] = a[i].MultiplyScalar(c)
	}
	return out
}

func termRow[C ring.Element[C]](a []*poly.Polynomial[C], c C, e poly.ExpVector) []*poly.Polynomial[C] {
	out := make([]*poly.Polynomial[C], len(a))
	for i := range a {
		out[i] = a[i].MultiplyTerm(c, e)
	}
	return out
}

// =============================================================================
// Verification
// =============================================================================

// IsReductionMatrix checks both transformation identities of res and
// that res.G is a Groebner basis.
func IsReductionMatrix[C ring.Element[C]](res *ExtendedResult[C]) bool {
	if len(res.F2G) != len(res.F) || len(res.G2F) != len(res.G) {
		return false
	}
	if !combines(res.G2F, res.F, res.G) || !combines(res.F2G, res.G, res.F) {
		return false
	}
	return IsGB[C](NewFieldVariant[C](), res.G)
}

// combines checks target[i] == Σ_k rows[i][k] * src[k].
func combines[C ring.Element[C]](rows [][]*poly.Polynomial[C], src, target []*poly.Polynomial[C]) bool {
	for i, row := range rows {
		if len(row) != len(src) {
			return false
		}
		var sum *poly.Polynomial[C]
		for k, c := range row {
			if c == nil || c.IsZero() || src[k] == nil {
				continue
			}
			if sum == nil {
				sum = c.Multiply(src[k])
			} else {
				sum = sum.Sum(c.Multiply(src[k]))
			}
		}
		if sum == nil {
			if !target[i].IsZero() {
				return false
			}
			continue
		}
		if !sum.Equal(target[i]) {
			return false
		}
	}
	return true
}
