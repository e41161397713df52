// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reduction

import (
	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

// RReducer reduces over a von Neumann regular coefficient ring such as a
// finite product of fields.
//
// Description:
//
//	g reduces the term a x^e when lm(g) divides x^e and a*lc(g) != 0. The
//	multiple subtracted is (a * lc(g)^-1) x^u g, which cancels the term on
//	the support of lc(g). Components outside that support stay in the
//	leading term and are left to other reducers or to the remainder.
type RReducer[C ring.Regular[C]] struct {
	driver[C]
}

// NewRReducer creates a reducer for regular rings.
func NewRReducer[C ring.Regular[C]]() *RReducer[C] {
	return &RReducer[C]{driver: driver[C]{step: rStep[C]{}}}
}

// SPolynomial returns lc(b) x^u a - lc(a) x^v b, or zero when the leading
// coefficients annihilate each other.
func (RReducer[C]) SPolynomial(a, b *poly.Polynomial[C]) *poly.Polynomial[C] {
	return rSPolynomial(a, b)
}

// BooleanClosure returns idem(lc(f)) f.
func (RReducer[C]) BooleanClosure(f *poly.Polynomial[C]) *poly.Polynomial[C] {
	return BooleanClosure(f)
}

// BooleanRemainder returns f - BooleanClosure(f).
func (RReducer[C]) BooleanRemainder(f *poly.Polynomial[C]) *poly.Polynomial[C] {
	return BooleanRemainder(f)
}

// BooleanClosureSet splits f into pairwise orthogonal Boolean closed
// parts whose sum is f.
func (RReducer[C]) BooleanClosureSet(f *poly.Polynomial[C]) []*poly.Polynomial[C] {
	return BooleanClosureSet(f)
}

// ReducedBooleanClosure closes fs and drops parts that reduce to zero
// modulo the others.
func (r RReducer[C]) ReducedBooleanClosure(fs ...*poly.Polynomial[C]) []*poly.Polynomial[C] {
	return reducedBooleanClosure(r.driver, fs)
}

// IsBooleanClosed reports whether f equals its Boolean closure.
func (RReducer[C]) IsBooleanClosed(f *poly.Polynomial[C]) bool {
	return IsBooleanClosed(f)
}

type rStep[C ring.Regular[C]] struct{}

func (rStep[C]) applies(g *poly.Polynomial[C], _ poly.ExpVector, a C) bool {
	return !a.Multiply(g.LeadingCoeff()).IsZero()
}

func (rStep[C]) apply(s, g *poly.Polynomial[C]) (*poly.Polynomial[C], C, C, poly.ExpVector) {
	u := s.LeadingExp().Subtract(g.LeadingExp())
	q := s.LeadingCoeff().Multiply(g.LeadingCoeff().Inverse())
	return s.Subtract(g.MultiplyTerm(q, u)), s.Ring().Coefficients().One(), q, u
}

// RPseudoReducer reduces over finite products of integral domains, such as
// products of the integers.
//
// Description:
//
//	As RReducer, but the dividend is scaled componentwise by
//	lc(g)/gcd(a, lc(g)) on the support of lc(g) and by one elsewhere, so
//	components outside the reducer's support are preserved.
type RPseudoReducer[C ring.Regular[C]] struct {
	driver[C]
}

// NewRPseudoReducer creates a pseudo reducer for products of domains.
func NewRPseudoReducer[C ring.Regular[C]]() *RPseudoReducer[C] {
	return &RPseudoReducer[C]{driver: driver[C]{step: rPseudoStep[C]{}}}
}

// SPolynomial is the regular-ring S-polynomial, as for RReducer.
func (RPseudoReducer[C]) SPolynomial(a, b *poly.Polynomial[C]) *poly.Polynomial[C] {
	return rSPolynomial(a, b)
}

// BooleanClosure returns idem(lc(f)) f.
func (RPseudoReducer[C]) BooleanClosure(f *poly.Polynomial[C]) *poly.Polynomial[C] {
	return BooleanClosure(f)
}

// BooleanRemainder returns f - BooleanClosure(f).
func (RPseudoReducer[C]) BooleanRemainder(f *poly.Polynomial[C]) *poly.Polynomial[C] {
	return BooleanRemainder(f)
}

// BooleanClosureSet splits f into Boolean closed parts.
func (RPseudoReducer[C]) BooleanClosureSet(f *poly.Polynomial[C]) []*poly.Polynomial[C] {
	return BooleanClosureSet(f)
}

// ReducedBooleanClosure closes fs and drops parts that pseudo reduce to
// zero modulo the others.
func (r RPseudoReducer[C]) ReducedBooleanClosure(fs ...*poly.Polynomial[C]) []*poly.Polynomial[C] {
	return reducedBooleanClosure(r.driver, fs)
}

// IsBooleanClosed reports whether f equals its Boolean closure.
func (RPseudoReducer[C]) IsBooleanClosed(f *poly.Polynomial[C]) bool {
	return IsBooleanClosed(f)
}

type rPseudoStep[C ring.Regular[C]] struct{}

func (rPseudoStep[C]) applies(g *poly.Polynomial[C], _ poly.ExpVector, a C) bool {
	return !a.Multiply(g.LeadingCoeff()).IsZero()
}

func (rPseudoStep[C]) apply(s, g *poly.Polynomial[C]) (*poly.Polynomial[C], C, C, poly.ExpVector) {
	a, b := s.LeadingCoeff(), g.LeadingCoeff()
	u := s.LeadingExp().Subtract(g.LeadingExp())
	d := a.Gcd(b)
	c := b.Divide(d).Sum(b.IdempotentComplement())
	q := a.Divide(d).Multiply(b.Idempotent())
	return s.MultiplyScalar(c).Subtract(g.MultiplyTerm(q, u)), c, q, u
}

func rSPolynomial[C ring.Element[C]](a, b *poly.Polynomial[C]) *poly.Polynomial[C] {
	if a.IsZero() || b.IsZero() {
		return a.Ring().Zero()
	}
	ca, cb := a.LeadingCoeff(), b.LeadingCoeff()
	if ca.Multiply(cb).IsZero() {
		return a.Ring().Zero()
	}
	_, u, v := lcmShifts(a, b)
	return a.MultiplyTerm(cb, u).Subtract(b.MultiplyTerm(ca, v))
}

// =============================================================================
// Boolean closure
// =============================================================================

// BooleanClosure returns idem(lc f) * f, the part of f living on the
// support of its leading coefficient.
func BooleanClosure[C ring.Regular[C]](f *poly.Polynomial[C]) *poly.Polynomial[C] {
	if f.IsZero() {
		return f
	}
	e := f.LeadingCoeff().Idempotent()
	if e.IsOne() {
		return f
	}
	return f.MultiplyScalar(e)
}

// BooleanRemainder returns f - BooleanClosure(f).
func BooleanRemainder[C ring.Regular[C]](f *poly.Polynomial[C]) *poly.Polynomial[C] {
	if f.IsZero() {
		return f
	}
	return f.MultiplyScalar(f.LeadingCoeff().IdempotentComplement())
}

// BooleanClosureSet splits f into pairwise orthogonal Boolean closed parts
// whose sum is f.
func BooleanClosureSet[C ring.Regular[C]](f *poly.Polynomial[C]) []*poly.Polynomial[C] {
	var out []*poly.Polynomial[C]
	for a := f; !a.IsZero(); a = BooleanRemainder(a) {
		out = append(out, BooleanClosure(a))
	}
	return out
}

// IsBooleanClosed reports whether every coefficient of f lives on the
// support of the leading coefficient.
func IsBooleanClosed[C ring.Regular[C]](f *poly.Polynomial[C]) bool {
	return f.IsZero() || BooleanRemainder(f).IsZero()
}

// IsBooleanClosedSet reports whether every element of fs is Boolean closed.
func IsBooleanClosedSet[C ring.Regular[C]](fs []*poly.Polynomial[C]) bool {
	for _, f := range fs {
		if !IsBooleanClosed(f) {
			return false
		}
	}
	return true
}

// Support returns the idempotent covering every coefficient of f.
func Support[C ring.Regular[C]](f *poly.Polynomial[C]) C {
	s := f.Ring().Coefficients().Zero()
	for _, c := range f.Coefficients() {
		e := c.Idempotent()
		s = s.Sum(e).Subtract(s.Multiply(e))
	}
	return s
}

// IsOrthogonal reports whether f and g have disjoint coefficient supports.
func IsOrthogonal[C ring.Regular[C]](f, g *poly.Polynomial[C]) bool {
	return Support(f).Multiply(Support(g)).IsZero()
}

// reducedBooleanClosure closes every input and drops splits that reduce
// to zero modulo the remaining ones.
func reducedBooleanClosure[C ring.Regular[C]](d driver[C], fs []*poly.Polynomial[C]) []*poly.Polynomial[C] {
	var splits []*poly.Polynomial[C]
	for _, f := range fs {
		splits = append(splits, BooleanClosureSet(f)...)
	}
	for i := 0; i < len(splits); {
		others := make([]*poly.Polynomial[C], 0, len(splits)-1)
		others = append(others, splits[:i]...)
		others = append(others, splits[i+1:]...)
		if d.Normalform(others, splits[i]).IsZero() {
			splits = others
			continue
		}
		i++
	}
	return splits
}
