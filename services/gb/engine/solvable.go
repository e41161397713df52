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
	"github.com/AleutianAI/groebner/services/gb/pairs"
	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/reduction"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

// LeftVariant computes left Groebner bases in a solvable polynomial ring
// over a field. Solvable multiplication does not commute, so neither
// elimination criterion is used.
type LeftVariant[C ring.Element[C]] struct {
	red *reduction.SolvableReducer[C]
}

// NewLeftVariant returns the left ideal variant.
func NewLeftVariant[C ring.Element[C]]() *LeftVariant[C] {
	return &LeftVariant[C]{red: reduction.NewSolvableReducer[C]()}
}

func (v *LeftVariant[C]) Name() string                  { return "left" }
func (v *LeftVariant[C]) Reducer() reduction.Reducer[C] { return v.red }
func (v *LeftVariant[C]) Criteria() pairs.Criteria      { return pairs.Criteria{} }

func (v *LeftVariant[C]) Critical(a, b *poly.Polynomial[C]) []*poly.Polynomial[C] {
	return nonZero(v.red.SPolynomial(a, b))
}

func (v *LeftVariant[C]) Normalize(h *poly.Polynomial[C]) []*poly.Polynomial[C] {
	return []*poly.Polynomial[C]{h.Monic()}
}

func (v *LeftVariant[C]) Saturate(*poly.Polynomial[C]) []*poly.Polynomial[C] { return nil }

func (v *LeftVariant[C]) Minimize(g []*poly.Polynomial[C]) []*poly.Polynomial[C] {
	return minimize(g, leadDivides[C], v.red.Normalform, (*poly.Polynomial[C]).Monic)
}

// TwoSidedVariant computes two-sided Groebner bases: left bases closed
// under multiplication by every generator from both sides.
type TwoSidedVariant[C ring.Element[C]] struct {
	*LeftVariant[C]
}

// NewTwoSidedVariant returns the two-sided ideal variant.
func NewTwoSidedVariant[C ring.Element[C]]() *TwoSidedVariant[C] {
	return &TwoSidedVariant[C]{LeftVariant: NewLeftVariant[C]()}
}

func (v *TwoSidedVariant[C]) Name() string { return "twosided" }

// Saturate returns x_k * h and h * x_k for every generator x_k.
func (v *TwoSidedVariant[C]) Saturate(h *poly.Polynomial[C]) []*poly.Polynomial[C] {
	r := h.Ring()
	one := r.Coefficients().One()
	n := r.NumVars()
	out := make([]*poly.Polynomial[C], 0, 2*n)
	for k := range n {
		e := poly.UnitExp(n, k, 1)
		out = append(out, nonZero(h.MultiplyLeft(one, e), h.MultiplyRight(one, e))...)
	}
	return out
}
