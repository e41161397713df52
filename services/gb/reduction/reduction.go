// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reduction implements normal forms of polynomials with respect to
// a list of reducers.
//
// # Description
//
// Every reducer in this package is built from the same driver: the
// leading term of the dividend is either cancelled by a multiple of the
// first applicable basis element or moved to the remainder. Variants
// differ in when a basis element applies and in how the cancelling
// multiple is formed:
//
//   - FieldReducer: exact division of leading coefficients.
//   - PseudoReducer: scales the dividend so the subtraction stays in the
//     coefficient ring.
//   - DReducer: applies only if the leading coefficient divides exactly.
//   - EReducer: applies if the truncated quotient is nonzero and leaves
//     the Euclidean remainder behind.
//   - RReducer, RPseudoReducer: regular product rings, with Boolean
//     closure.
//   - SolvableReducer: left reduction in solvable rings.
//
// All reducers are stateless and safe for concurrent use.
package reduction

import (
	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

// Reducer is the common contract of all reduction engines.
type Reducer[C ring.Element[C]] interface {
	// SPolynomial combines a and b so that their leading terms cancel.
	SPolynomial(a, b *poly.Polynomial[C]) *poly.Polynomial[C]

	// Normalform reduces f until no term is reducible by basis.
	Normalform(basis []*poly.Polynomial[C], f *poly.Polynomial[C]) *poly.Polynomial[C]

	// IsTopReducible reports whether the leading term of f is reducible.
	IsTopReducible(basis []*poly.Polynomial[C], f *poly.Polynomial[C]) bool

	// IsReducible reports whether any term of f is reducible.
	IsReducible(basis []*poly.Polynomial[C], f *poly.Polynomial[C]) bool

	// IsNormalform reports whether f is irreducible with respect to basis.
	IsNormalform(basis []*poly.Polynomial[C], f *poly.Polynomial[C]) bool
}

// Recorder is implemented by reducers that can record the cofactors used
// during a reduction.
type Recorder[C ring.Element[C]] interface {
	Reducer[C]

	// NormalformRecording returns the row and the normal form with
	// f == Σ row_i * basis_i + nf.
	NormalformRecording(basis []*poly.Polynomial[C], f *poly.Polynomial[C]) ([]*poly.Polynomial[C], *poly.Polynomial[C])

	// IsReductionNF checks f == Σ row_i * basis_i + nf.
	IsReductionNF(row, basis []*poly.Polynomial[C], f, nf *poly.Polynomial[C]) bool
}

// stepper decides how the leading term of a dividend is reduced.
type stepper[C ring.Element[C]] interface {
	// applies reports whether g reduces the term a x^e. The caller has
	// already checked that the leading exponent of g divides e.
	applies(g *poly.Polynomial[C], e poly.ExpVector, a C) bool

	// apply returns next = c*s - q*(x^u * g).
	apply(s, g *poly.Polynomial[C]) (next *poly.Polynomial[C], c, q C, u poly.ExpVector)
}

// driver implements the Reducer methods shared by every variant.
type driver[C ring.Element[C]] struct {
	step stepper[C]
}

func (d driver[C]) reducer(basis []*poly.Polynomial[C], e poly.ExpVector, a C) int {
	for i, g := range basis {
		if g == nil || g.IsZero() {
			continue
		}
		if g.LeadingExp().Divides(e) && d.step.applies(g, e, a) {
			return i
		}
	}
	return -1
}

// run reduces f and returns the multiplicator m, the optional row and the
// remainder with m*f == Σ row_i * basis_i + rem.
func (d driver[C]) run(basis []*poly.Polynomial[C], f *poly.Polynomial[C], record bool) (C, []*poly.Polynomial[C], *poly.Polynomial[C]) {
	r := f.Ring()
	m := r.Coefficients().One()
	var row []*poly.Polynomial[C]
	if record {
		row = make([]*poly.Polynomial[C], len(basis))
		for i := range row {
			row[i] = r.Zero()
		}
	}
	rem := r.Zero()
	s := f
	for !s.IsZero() {
		e, a := s.LeadingExp(), s.LeadingCoeff()
		i := d.reducer(basis, e, a)
		if i < 0 {
			rem = rem.Sum(r.Monomial(a, e))
			s = s.Reductum()
			continue
		}
		next, c, q, u := d.step.apply(s, basis[i])
		if !c.IsOne() {
			m = m.Multiply(c)
			rem = rem.MultiplyScalar(c)
			for k := range row {
				row[k] = row[k].MultiplyScalar(c)
			}
		}
		if record {
			row[i] = row[i].Sum(r.Monomial(q, u))
		}
		s = next
	}
	return m, row, rem
}

func (d driver[C]) Normalform(basis []*poly.Polynomial[C], f *poly.Polynomial[C]) *poly.Polynomial[C] {
	if f == nil || f.IsZero() || len(basis) == 0 {
		return f
	}
	_, _, rem := d.run(basis, f, false)
	return rem
}

// NormalformList reduces every element of fs.
func (d driver[C]) NormalformList(basis, fs []*poly.Polynomial[C]) []*poly.Polynomial[C] {
	out := make([]*poly.Polynomial[C], 0, len(fs))
	for _, f := range fs {
		out = append(out, d.Normalform(basis, f))
	}
	return out
}

func (d driver[C]) IsTopReducible(basis []*poly.Polynomial[C], f *poly.Polynomial[C]) bool {
	if f == nil || f.IsZero() {
		return false
	}
	return d.reducer(basis, f.LeadingExp(), f.LeadingCoeff()) >= 0
}

func (d driver[C]) IsReducible(basis []*poly.Polynomial[C], f *poly.Polynomial[C]) bool {
	if f == nil {
		return false
	}
	for _, t := range f.Terms() {
		if d.reducer(basis, t.Exp, t.Coeff) >= 0 {
			return true
		}
	}
	return false
}

func (d driver[C]) IsNormalform(basis []*poly.Polynomial[C], f *poly.Polynomial[C]) bool {
	return !d.IsReducible(basis, f)
}

// NormalformRecording is exact for reducers whose multiplicator is one.
func (d driver[C]) NormalformRecording(basis []*poly.Polynomial[C], f *poly.Polynomial[C]) ([]*poly.Polynomial[C], *poly.Polynomial[C]) {
	_, row, rem := d.run(basis, f, true)
	return row, rem
}

// NormalformFactor returns the multiplicator m and the remainder with
// m*f == Σ(...) + rem.
func (d driver[C]) NormalformFactor(basis []*poly.Polynomial[C], f *poly.Polynomial[C]) (C, *poly.Polynomial[C]) {
	m, _, rem := d.run(basis, f, false)
	return m, rem
}

// NormalformFactorRecording returns m, the row and the remainder with
// m*f == Σ row_i * basis_i + rem.
func (d driver[C]) NormalformFactorRecording(basis []*poly.Polynomial[C], f *poly.Polynomial[C]) (C, []*poly.Polynomial[C], *poly.Polynomial[C]) {
	return d.run(basis, f, true)
}

func (d driver[C]) IsReductionNF(row, basis []*poly.Polynomial[C], f, nf *poly.Polynomial[C]) bool {
	return d.IsReductionNFFactor(f.Ring().Coefficients().One(), row, basis, f, nf)
}

// IsReductionNFFactor checks m*f == Σ row_i * basis_i + nf and that nf is
// a normal form.
func (d driver[C]) IsReductionNFFactor(m C, row, basis []*poly.Polynomial[C], f, nf *poly.Polynomial[C]) bool {
	if len(row) != len(basis) {
		return false
	}
	sum := nf
	for i, g := range basis {
		if row[i] == nil || row[i].IsZero() || g == nil {
			continue
		}
		sum = sum.Sum(row[i].Multiply(g))
	}
	if !sum.Equal(f.MultiplyScalar(m)) {
		return false
	}
	return d.IsNormalform(basis, nf)
}

// lcmShifts returns the lcm of the leading exponents and the shifts that
// lift a and b to it.
func lcmShifts[C ring.Element[C]](a, b *poly.Polynomial[C]) (poly.ExpVector, poly.ExpVector, poly.ExpVector) {
	l := a.LeadingExp().Lcm(b.LeadingExp())
	return l, l.Subtract(a.LeadingExp()), l.Subtract(b.LeadingExp())
}

// sPolynomial returns (lc b/g) x^u a - (lc a/g) x^v b with g the gcd of
// the leading coefficients.
func sPolynomial[C ring.Element[C]](a, b *poly.Polynomial[C]) *poly.Polynomial[C] {
	if a.IsZero() || b.IsZero() {
		return a.Ring().Zero()
	}
	_, u, v := lcmShifts(a, b)
	ca, cb := a.LeadingCoeff(), b.LeadingCoeff()
	g := ca.Gcd(cb)
	if !g.IsZero() && !g.IsOne() {
		ca, cb = ca.Divide(g), cb.Divide(g)
	}
	return a.MultiplyTerm(cb, u).Subtract(b.MultiplyTerm(ca, v))
}

// gPolynomial returns s x^u a + t x^v b where s*lc(a) + t*lc(b) is the
// gcd of the leading coefficients.
func gPolynomial[C ring.Element[C]](a, b *poly.Polynomial[C]) *poly.Polynomial[C] {
	if a.IsZero() || b.IsZero() {
		return a.Ring().Zero()
	}
	_, u, v := lcmShifts(a, b)
	_, s, t := a.LeadingCoeff().Egcd(b.LeadingCoeff())
	return a.MultiplyTerm(s, u).Sum(b.MultiplyTerm(t, v))
}
