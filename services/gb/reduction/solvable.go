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

// SolvableReducer computes left normal forms in solvable rings. Only left
// multiples c x^u * g of basis elements are subtracted, so the remainder
// is congruent to f modulo the left ideal of the basis.
type SolvableReducer[C ring.Element[C]] struct {
	driver[C]
}

// NewSolvableReducer creates a left reducer over a coefficient field.
func NewSolvableReducer[C ring.Element[C]]() *SolvableReducer[C] {
	return &SolvableReducer[C]{driver: driver[C]{step: leftStep[C]{}}}
}

// SPolynomial returns the left S-polynomial
// lc(h2) h1 - lc(h1) h2 with h1 = x^u * a and h2 = x^v * b.
func (SolvableReducer[C]) SPolynomial(a, b *poly.Polynomial[C]) *poly.Polynomial[C] {
	if a.IsZero() || b.IsZero() {
		return a.Ring().Zero()
	}
	_, u, v := lcmShifts(a, b)
	one := a.Ring().Coefficients().One()
	h1 := a.MultiplyLeft(one, u)
	h2 := b.MultiplyLeft(one, v)
	return h1.MultiplyScalar(h2.LeadingCoeff()).Subtract(h2.MultiplyScalar(h1.LeadingCoeff()))
}

type leftStep[C ring.Element[C]] struct{}

func (leftStep[C]) applies(*poly.Polynomial[C], poly.ExpVector, C) bool { return true }

func (leftStep[C]) apply(s, g *poly.Polynomial[C]) (*poly.Polynomial[C], C, C, poly.ExpVector) {
	one := s.Ring().Coefficients().One()
	u := s.LeadingExp().Subtract(g.LeadingExp())
	h := g.MultiplyLeft(one, u)
	q := s.LeadingCoeff().Divide(h.LeadingCoeff())
	return s.Subtract(h.MultiplyScalar(q)), one, q, u
}
