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

// FieldReducer reduces over a coefficient field.
type FieldReducer[C ring.Element[C]] struct {
	driver[C]
}

// NewFieldReducer creates a reducer for field coefficients.
func NewFieldReducer[C ring.Element[C]]() *FieldReducer[C] {
	return &FieldReducer[C]{driver: driver[C]{step: fieldStep[C]{}}}
}

// SPolynomial returns lc(b) x^u a - lc(a) x^v b.
func (FieldReducer[C]) SPolynomial(a, b *poly.Polynomial[C]) *poly.Polynomial[C] {
	return sPolynomial(a, b)
}

type fieldStep[C ring.Element[C]] struct{}

func (fieldStep[C]) applies(*poly.Polynomial[C], poly.ExpVector, C) bool { return true }

func (fieldStep[C]) apply(s, g *poly.Polynomial[C]) (*poly.Polynomial[C], C, C, poly.ExpVector) {
	u := s.LeadingExp().Subtract(g.LeadingExp())
	q := s.LeadingCoeff().Divide(g.LeadingCoeff())
	return s.Subtract(g.MultiplyTerm(q, u)), s.Ring().Coefficients().One(), q, u
}
