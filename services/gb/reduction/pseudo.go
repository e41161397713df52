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

// PseudoReducer reduces over an integral domain without exact division.
//
// Description:
//
//	When lc(g) does not divide the leading coefficient a of the dividend,
//	the dividend is first multiplied by lc(g)/gcd(a, lc(g)). The product
//	of these factors is the multiplicator returned by NormalformFactor.
type PseudoReducer[C ring.Element[C]] struct {
	driver[C]
}

// NewPseudoReducer creates a pseudo reducer.
func NewPseudoReducer[C ring.Element[C]]() *PseudoReducer[C] {
	return &PseudoReducer[C]{driver: driver[C]{step: pseudoStep[C]{}}}
}

// SPolynomial returns (lc b/g) x^u a - (lc a/g) x^v b, g the gcd of the
// leading coefficients.
func (PseudoReducer[C]) SPolynomial(a, b *poly.Polynomial[C]) *poly.Polynomial[C] {
	return sPolynomial(a, b)
}

// GPolynomial returns the combination of a and b whose leading term is
// gcd(lc a, lc b) times the lcm of the leading monomials.
func (PseudoReducer[C]) GPolynomial(a, b *poly.Polynomial[C]) *poly.Polynomial[C] {
	return gPolynomial(a, b)
}

type pseudoStep[C ring.Element[C]] struct{}

func (pseudoStep[C]) applies(*poly.Polynomial[C], poly.ExpVector, C) bool { return true }

func (pseudoStep[C]) apply(s, g *poly.Polynomial[C]) (*poly.Polynomial[C], C, C, poly.ExpVector) {
	a, b := s.LeadingCoeff(), g.LeadingCoeff()
	u := s.LeadingExp().Subtract(g.LeadingExp())
	one := s.Ring().Coefficients().One()
	if a.Remainder(b).IsZero() {
		q := a.Divide(b)
		return s.Subtract(g.MultiplyTerm(q, u)), one, q, u
	}
	d := a.Gcd(b)
	c := b.Divide(d)
	q := a.Divide(d)
	return s.MultiplyScalar(c).Subtract(g.MultiplyTerm(q, u)), c, q, u
}

// DReducer is the d-reduction over Euclidean domains: a basis element
// reduces a term only if its leading coefficient divides the term's
// coefficient exactly. Non-dividing terms stay in the remainder unchanged.
type DReducer[C ring.Element[C]] struct {
	driver[C]
}

// NewDReducer creates a d-reducer.
func NewDReducer[C ring.Element[C]]() *DReducer[C] {
	return &DReducer[C]{driver: driver[C]{step: dStep[C]{}}}
}

// SPolynomial returns (lc b/g) x^u a - (lc a/g) x^v b, with g the gcd of
// the leading coefficients.
func (DReducer[C]) SPolynomial(a, b *poly.Polynomial[C]) *poly.Polynomial[C] {
	return sPolynomial(a, b)
}

// GPolynomial returns s x^u a + t x^v b, where s lc(a) + t lc(b) is the
// gcd of the leading coefficients.
func (DReducer[C]) GPolynomial(a, b *poly.Polynomial[C]) *poly.Polynomial[C] {
	return gPolynomial(a, b)
}

type dStep[C ring.Element[C]] struct{}

func (dStep[C]) applies(g *poly.Polynomial[C], _ poly.ExpVector, a C) bool {
	return a.Remainder(g.LeadingCoeff()).IsZero()
}

func (dStep[C]) apply(s, g *poly.Polynomial[C]) (*poly.Polynomial[C], C, C, poly.ExpVector) {
	u := s.LeadingExp().Subtract(g.LeadingExp())
	q := s.LeadingCoeff().Divide(g.LeadingCoeff())
	return s.Subtract(g.MultiplyTerm(q, u)), s.Ring().Coefficients().One(), q, u
}

// EReducer is the e-reduction over Euclidean domains.
//
// Description:
//
//	A basis element g reduces a term a x^e when lm(g) divides x^e and the
//	truncated quotient a/lc(g) is nonzero. The term is replaced by its
//	Euclidean remainder, which may in turn be reduced by a later basis
//	element. Ties are broken by basis order: the first applicable element
//	is used.
type EReducer[C ring.Element[C]] struct {
	driver[C]
}

// NewEReducer creates an e-reducer.
func NewEReducer[C ring.Element[C]]() *EReducer[C] {
	return &EReducer[C]{driver: driver[C]{step: eStep[C]{}}}
}

// SPolynomial is the gcd-scaled S-polynomial, as for DReducer.
func (EReducer[C]) SPolynomial(a, b *poly.Polynomial[C]) *poly.Polynomial[C] {
	return sPolynomial(a, b)
}

// GPolynomial is the gcd combination of a and b, as for DReducer.
func (EReducer[C]) GPolynomial(a, b *poly.Polynomial[C]) *poly.Polynomial[C] {
	return gPolynomial(a, b)
}

type eStep[C ring.Element[C]] struct{}

func (eStep[C]) applies(g *poly.Polynomial[C], _ poly.ExpVector, a C) bool {
	return !a.Divide(g.LeadingCoeff()).IsZero()
}

func (eStep[C]) apply(s, g *poly.Polynomial[C]) (*poly.Polynomial[C], C, C, poly.ExpVector) {
	u := s.LeadingExp().Subtract(g.LeadingExp())
	q := s.LeadingCoeff().Divide(g.LeadingCoeff())
	return s.Subtract(g.MultiplyTerm(q, u)), s.Ring().Coefficients().One(), q, u
}
