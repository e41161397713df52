// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine computes Groebner bases.
//
// # Description
//
// A computation is parameterized by a Variant, which bundles the reducer,
// the critical polynomials of a pair, the normalization of accepted
// remainders and the post-hoc minimization. The canonical basis and pair
// queue of one run live in a State; the Sequential and Parallel
// orchestrators drive a State to its fixpoint. The distributed
// orchestrator in package dist drives the same State over the network.
//
// Supported variants:
//
//   - FieldVariant: commutative rings over a field.
//   - PseudoVariant: commutative rings over a domain (fraction-free).
//   - DVariant, EVariant: strong bases over Euclidean domains.
//   - RVariant, RPseudoVariant: regular product rings.
//   - LeftVariant, TwoSidedVariant: solvable polynomial rings.
package engine

import (
	"github.com/AleutianAI/groebner/services/gb/pairs"
	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/reduction"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

// Variant parameterizes a Groebner basis computation.
type Variant[C ring.Element[C]] interface {
	// Name identifies the variant in logs, metrics and the wire protocol.
	Name() string

	// Reducer returns the reduction engine used for normal forms.
	Reducer() reduction.Reducer[C]

	// Criteria returns the pair elimination criteria that are sound for
	// this variant.
	Criteria() pairs.Criteria

	// Critical returns the nonzero polynomials a pair contributes.
	Critical(a, b *poly.Polynomial[C]) []*poly.Polynomial[C]

	// Normalize maps a nonzero irreducible remainder to the elements
	// appended to the basis.
	Normalize(h *poly.Polynomial[C]) []*poly.Polynomial[C]

	// Saturate returns polynomials that must be fed back as new input
	// after h is appended.
	Saturate(h *poly.Polynomial[C]) []*poly.Polynomial[C]

	// Minimize turns a finished basis into its minimal form.
	Minimize(g []*poly.Polynomial[C]) []*poly.Polynomial[C]
}

// closedChecker is implemented by variants with an extra structural
// requirement on a basis.
type closedChecker[C ring.Element[C]] interface {
	IsClosed(g []*poly.Polynomial[C]) bool
}

func nonZero[C ring.Element[C]](ps ...*poly.Polynomial[C]) []*poly.Polynomial[C] {
	out := ps[:0:0]
	for _, p := range ps {
		if !p.IsZero() {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// Field and pseudo
// =============================================================================

// FieldVariant computes reduced Groebner bases over a field.
type FieldVariant[C ring.Element[C]] struct {
	red *reduction.FieldReducer[C]
}

// NewFieldVariant returns the field variant.
func NewFieldVariant[C ring.Element[C]]() *FieldVariant[C] {
	return &FieldVariant[C]{red: reduction.NewFieldReducer[C]()}
}

func (v *FieldVariant[C]) Name() string                  { return "field" }
func (v *FieldVariant[C]) Reducer() reduction.Reducer[C] { return v.red }
func (v *FieldVariant[C]) Criteria() pairs.Criteria      { return pairs.AllCriteria }

func (v *FieldVariant[C]) Critical(a, b *poly.Polynomial[C]) []*poly.Polynomial[C] {
	return nonZero(v.red.SPolynomial(a, b))
}

func (v *FieldVariant[C]) Normalize(h *poly.Polynomial[C]) []*poly.Polynomial[C] {
	return []*poly.Polynomial[C]{h.Monic()}
}

func (v *FieldVariant[C]) Saturate(*poly.Polynomial[C]) []*poly.Polynomial[C] { return nil }

func (v *FieldVariant[C]) Minimize(g []*poly.Polynomial[C]) []*poly.Polynomial[C] {
	return minimize(g, leadDivides[C], v.red.Normalform, (*poly.Polynomial[C]).Monic)
}

// PseudoVariant computes fraction-free bases over a domain; every
// element is kept primitive.
type PseudoVariant[C ring.Element[C]] struct {
	red *reduction.PseudoReducer[C]
}

// NewPseudoVariant returns the pseudo variant.
func NewPseudoVariant[C ring.Element[C]]() *PseudoVariant[C] {
	return &PseudoVariant[C]{red: reduction.NewPseudoReducer[C]()}
}

func (v *PseudoVariant[C]) Name() string                  { return "pseudo" }
func (v *PseudoVariant[C]) Reducer() reduction.Reducer[C] { return v.red }
func (v *PseudoVariant[C]) Criteria() pairs.Criteria      { return pairs.AllCriteria }

func (v *PseudoVariant[C]) Critical(a, b *poly.Polynomial[C]) []*poly.Polynomial[C] {
	return nonZero(v.red.SPolynomial(a, b))
}

func (v *PseudoVariant[C]) Normalize(h *poly.Polynomial[C]) []*poly.Polynomial[C] {
	return []*poly.Polynomial[C]{h.PrimitivePart()}
}

func (v *PseudoVariant[C]) Saturate(*poly.Polynomial[C]) []*poly.Polynomial[C] { return nil }

func (v *PseudoVariant[C]) Minimize(g []*poly.Polynomial[C]) []*poly.Polynomial[C] {
	return minimize(g, leadDivides[C], v.red.Normalform, (*poly.Polynomial[C]).PrimitivePart)
}

// =============================================================================
// Euclidean domains
// =============================================================================

// DVariant computes strong bases with d-reduction. Pairs contribute
// their S- and G-polynomials; no elimination criteria apply.
type DVariant[C ring.Element[C]] struct {
	red *reduction.DReducer[C]
}

// NewDVariant returns the d-reduction variant.
func NewDVariant[C ring.Element[C]]() *DVariant[C] {
	return &DVariant[C]{red: reduction.NewDReducer[C]()}
}

func (v *DVariant[C]) Name() string                  { return "d" }
func (v *DVariant[C]) Reducer() reduction.Reducer[C] { return v.red }
func (v *DVariant[C]) Criteria() pairs.Criteria      { return pairs.Criteria{} }

func (v *DVariant[C]) Critical(a, b *poly.Polynomial[C]) []*poly.Polynomial[C] {
	return nonZero(v.red.SPolynomial(a, b), v.red.GPolynomial(a, b))
}

func (v *DVariant[C]) Normalize(h *poly.Polynomial[C]) []*poly.Polynomial[C] {
	return []*poly.Polynomial[C]{h.Abs()}
}

func (v *DVariant[C]) Saturate(*poly.Polynomial[C]) []*poly.Polynomial[C] { return nil }

func (v *DVariant[C]) Minimize(g []*poly.Polynomial[C]) []*poly.Polynomial[C] {
	return minimize(g, strongDivides[C], tailReducer(v.red.Normalform), (*poly.Polynomial[C]).Abs)
}

// EVariant computes strong bases with e-reduction.
type EVariant[C ring.Element[C]] struct {
	red *reduction.EReducer[C]
}

// NewEVariant returns the e-reduction variant.
func NewEVariant[C ring.Element[C]]() *EVariant[C] {
	return &EVariant[C]{red: reduction.NewEReducer[C]()}
}

func (v *EVariant[C]) Name() string                  { return "e" }
func (v *EVariant[C]) Reducer() reduction.Reducer[C] { return v.red }
func (v *EVariant[C]) Criteria() pairs.Criteria      { return pairs.Criteria{} }

func (v *EVariant[C]) Critical(a, b *poly.Polynomial[C]) []*poly.Polynomial[C] {
	return nonZero(v.red.SPolynomial(a, b), v.red.GPolynomial(a, b))
}

func (v *EVariant[C]) Normalize(h *poly.Polynomial[C]) []*poly.Polynomial[C] {
	return []*poly.Polynomial[C]{h.Abs()}
}

func (v *EVariant[C]) Saturate(*poly.Polynomial[C]) []*poly.Polynomial[C] { return nil }

func (v *EVariant[C]) Minimize(g []*poly.Polynomial[C]) []*poly.Polynomial[C] {
	return minimize(g, strongDivides[C], tailReducer(v.red.Normalform), (*poly.Polynomial[C]).Abs)
}

// =============================================================================
// Regular rings
// =============================================================================

// RVariant computes Boolean closed bases over a regular product ring
// of fields.
type RVariant[C ring.Regular[C]] struct {
	red *reduction.RReducer[C]
}

// NewRVariant returns the regular ring variant.
func NewRVariant[C ring.Regular[C]]() *RVariant[C] {
	return &RVariant[C]{red: reduction.NewRReducer[C]()}
}

func (v *RVariant[C]) Name() string                  { return "r" }
func (v *RVariant[C]) Reducer() reduction.Reducer[C] { return v.red }
func (v *RVariant[C]) Criteria() pairs.Criteria      { return pairs.Criteria{} }

func (v *RVariant[C]) Critical(a, b *poly.Polynomial[C]) []*poly.Polynomial[C] {
	return nonZero(v.red.SPolynomial(a, b))
}

// Normalize splits h into its Boolean closed parts, each with an
// idempotent leading coefficient.
func (v *RVariant[C]) Normalize(h *poly.Polynomial[C]) []*poly.Polynomial[C] {
	parts := reduction.BooleanClosureSet(h)
	for i, p := range parts {
		parts[i] = p.Monic()
	}
	return parts
}

func (v *RVariant[C]) Saturate(*poly.Polynomial[C]) []*poly.Polynomial[C] { return nil }

func (v *RVariant[C]) Minimize(g []*poly.Polynomial[C]) []*poly.Polynomial[C] {
	return minimize(g, supportDivides[C], nil, nil)
}

// IsClosed reports whether every element of g is Boolean closed.
func (v *RVariant[C]) IsClosed(g []*poly.Polynomial[C]) bool {
	return reduction.IsBooleanClosedSet(g)
}

// RPseudoVariant is the fraction-free variant over a regular product
// ring of domains.
type RPseudoVariant[C ring.Regular[C]] struct {
	red *reduction.RPseudoReducer[C]
}

// NewRPseudoVariant returns the regular pseudo variant.
func NewRPseudoVariant[C ring.Regular[C]]() *RPseudoVariant[C] {
	return &RPseudoVariant[C]{red: reduction.NewRPseudoReducer[C]()}
}

func (v *RPseudoVariant[C]) Name() string                  { return "rpseudo" }
func (v *RPseudoVariant[C]) Reducer() reduction.Reducer[C] { return v.red }
func (v *RPseudoVariant[C]) Criteria() pairs.Criteria      { return pairs.Criteria{} }

func (v *RPseudoVariant[C]) Critical(a, b *poly.Polynomial[C]) []*poly.Polynomial[C] {
	return nonZero(v.red.SPolynomial(a, b))
}

func (v *RPseudoVariant[C]) Normalize(h *poly.Polynomial[C]) []*poly.Polynomial[C] {
	parts := reduction.BooleanClosureSet(h)
	for i, p := range parts {
		parts[i] = p.PrimitivePart()
	}
	return parts
}

func (v *RPseudoVariant[C]) Saturate(*poly.Polynomial[C]) []*poly.Polynomial[C] { return nil }

func (v *RPseudoVariant[C]) Minimize(g []*poly.Polynomial[C]) []*poly.Polynomial[C] {
	return minimize(g, supportDivides[C], nil, nil)
}

// IsClosed reports whether every element of g is Boolean closed.
func (v *RPseudoVariant[C]) IsClosed(g []*poly.Polynomial[C]) bool {
	return reduction.IsBooleanClosedSet(g)
}

// =============================================================================
// Redundancy tests
// =============================================================================

// leadDivides reports whether h makes g redundant in a field basis.
func leadDivides[C ring.Element[C]](g, h *poly.Polynomial[C]) bool {
	return h.LeadingExp().Divides(g.LeadingExp())
}

// strongDivides reports whether the leading term of h divides the
// leading term of g, coefficients included.
func strongDivides[C ring.Element[C]](g, h *poly.Polynomial[C]) bool {
	return leadDivides(g, h) && g.LeadingCoeff().Remainder(h.LeadingCoeff()).IsZero()
}

// supportDivides reports whether h covers g's leading term on the whole
// support of g's leading coefficient.
func supportDivides[C ring.Regular[C]](g, h *poly.Polynomial[C]) bool {
	if !leadDivides(g, h) {
		return false
	}
	eg := g.LeadingCoeff().Idempotent()
	return eg.Multiply(h.LeadingCoeff().Idempotent()).Equal(eg)
}
