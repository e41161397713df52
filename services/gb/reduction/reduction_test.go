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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

func parse[C ring.Element[C]](t *testing.T, r *poly.Ring[C], exprs ...string) []*poly.Polynomial[C] {
	t.Helper()
	ps, err := r.ParseList(exprs...)
	require.NoError(t, err)
	return ps
}

func one[C ring.Element[C]](t *testing.T, r *poly.Ring[C], expr string) *poly.Polynomial[C] {
	t.Helper()
	return parse(t, r, expr)[0]
}

// =============================================================================
// Field reduction
// =============================================================================

func TestFieldReducer_Normalform(t *testing.T) {
	r := poly.NewRing[ring.Rational](ring.Rationals, poly.Lex, "x")
	red := NewFieldReducer[ring.Rational]()

	nf := red.Normalform(parse(t, r, "x - 1"), one(t, r, "x^2 + x"))
	assert.Equal(t, "2", nf.String())

	f := one(t, r, "x^2")
	assert.Same(t, f, red.Normalform(nil, f))
}

func TestFieldReducer_FixpointAndRecording(t *testing.T) {
	r := poly.NewRing[ring.Rational](ring.Rationals, poly.DegRevLex, "x", "y", "z")
	red := NewFieldReducer[ring.Rational]()
	G := parse(t, r, "x^2 - y", "x y - 1", "z^2 + x")

	inputs := []string{"x^3 + x y^2 + 1", "z^4 - x y z", "3 x^2 y z - 7", "y^5"}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			f := one(t, r, in)
			nf := red.Normalform(G, f)
			assert.True(t, red.IsNormalform(G, nf))
			assert.True(t, red.Normalform(G, nf).Equal(nf), "normal form must be a fixpoint")

			row, nf2 := red.NormalformRecording(G, f)
			require.Len(t, row, len(G))
			assert.True(t, nf2.Equal(nf))
			assert.True(t, red.IsReductionNF(row, G, f, nf2))
			assert.False(t, red.IsReductionNF(row, G, f, nf2.Sum(r.One())))
		})
	}
}

func TestFieldReducer_Predicates(t *testing.T) {
	r := poly.NewRing[ring.Rational](ring.Rationals, poly.Lex, "x", "y")
	red := NewFieldReducer[ring.Rational]()
	G := parse(t, r, "x y")

	assert.True(t, red.IsTopReducible(G, one(t, r, "x^2 y + 1")))
	assert.False(t, red.IsTopReducible(G, one(t, r, "x^2 + x y")))
	assert.True(t, red.IsReducible(G, one(t, r, "x^2 + x y")))
	assert.True(t, red.IsNormalform(G, one(t, r, "x^2 + y^3")))
	assert.True(t, red.IsNormalform(G, r.Zero()))
}

func TestFieldReducer_SPolynomial(t *testing.T) {
	r := poly.NewRing[ring.Rational](ring.Rationals, poly.Lex, "x", "y")
	red := NewFieldReducer[ring.Rational]()
	a, b := one(t, r, "3 x^2 - 2 x y"), one(t, r, "5 y^2 - x y")

	s := red.SPolynomial(a, b)
	assert.Equal(t, "-13 x y^2", s.String())
	assert.False(t, s.LeadingExp().Equal(a.LeadingExp().Lcm(b.LeadingExp())))
	assert.True(t, red.SPolynomial(a, r.Zero()).IsZero())
}

// =============================================================================
// Pseudo, d- and e-reduction
// =============================================================================

func TestPseudoReducer_NormalformFactor(t *testing.T) {
	r := poly.NewRing[ring.Integer](ring.Integers, poly.Lex, "x")
	red := NewPseudoReducer[ring.Integer]()
	G := parse(t, r, "2 x - 1")
	f := one(t, r, "x^2")

	m, nf := red.NormalformFactor(G, f)
	assert.Equal(t, "4", m.String())
	assert.Equal(t, "1", nf.String())

	m2, row, nf2 := red.NormalformFactorRecording(G, f)
	assert.True(t, m2.Equal(m))
	assert.True(t, red.IsReductionNFFactor(m2, row, G, f, nf2))
	assert.True(t, red.IsNormalform(G, nf2))
}

func TestPseudoReducer_GPolynomial(t *testing.T) {
	r := poly.NewRing[ring.Integer](ring.Integers, poly.Lex, "x", "y")
	red := NewPseudoReducer[ring.Integer]()
	a, b := one(t, r, "6 x + 1"), one(t, r, "4 y")

	g := red.GPolynomial(a, b)
	assert.Equal(t, "2", g.LeadingCoeff().Abs().String())
	assert.True(t, g.LeadingExp().Equal(a.LeadingExp().Lcm(b.LeadingExp())))

	s := red.SPolynomial(a, b)
	assert.Equal(t, "2 y", s.String())
}

func TestEAndDReduction_Constants(t *testing.T) {
	r := poly.NewRing[ring.Integer](ring.Integers, poly.Lex, "x")
	e := NewEReducer[ring.Integer]()
	d := NewDReducer[ring.Integer]()

	tests := []struct {
		name    string
		red     Reducer[ring.Integer]
		basis   string
		in      string
		want    string
		topRedu bool
	}{
		{"e reduces 5 by 4 to 1", e, "4", "5", "1", true},
		{"e keeps 4 against 5", e, "5", "4", "4", false},
		{"e reduces -5 by 4 to -1", e, "4", "-5", "-1", true},
		{"d keeps 5 against 4", d, "4", "5", "5", false},
		{"d keeps 4 against 5", d, "5", "4", "4", false},
		{"d reduces 8 by 4", d, "4", "8", "0", true},
		{"e moves the non-dividing term", e, "2 x", "3 x + 1", "x + 1", true},
		{"d keeps the non-dividing term", d, "2 x", "3 x + 1", "3 x + 1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			G := parse(t, r, tt.basis)
			f := one(t, r, tt.in)
			nf := tt.red.Normalform(G, f)
			assert.Equal(t, tt.want, nf.String())
			assert.Equal(t, tt.topRedu, tt.red.IsTopReducible(G, f))
			assert.True(t, tt.red.IsNormalform(G, nf))
		})
	}

	a := one(t, r, "4")
	assert.True(t, e.IsTopReducible([]*poly.Polynomial[ring.Integer]{a}, a))
	assert.True(t, d.IsTopReducible([]*poly.Polynomial[ring.Integer]{a}, a))
}

// =============================================================================
// Regular rings
// =============================================================================

func productRing(t *testing.T, n int) (*poly.Ring[ring.Product[ring.Rational]], *ring.ProductRing[ring.Rational]) {
	t.Helper()
	pr := ring.NewPowerRing[ring.Rational](ring.Rationals, n)
	return poly.NewRing[ring.Product[ring.Rational]](pr, poly.Lex, "x", "y"), pr
}

func tuple(t *testing.T, pr *ring.ProductRing[ring.Rational], vals ...int64) ring.Product[ring.Rational] {
	t.Helper()
	comps := make([]ring.Rational, len(vals))
	for i, v := range vals {
		comps[i] = ring.NewRational(v, 1)
	}
	p, err := pr.FromComponents(comps...)
	require.NoError(t, err)
	return p
}

func TestBooleanClosure_Partition(t *testing.T) {
	r, pr := productRing(t, 3)
	x2 := r.Monomial(tuple(t, pr, 1, 0, 2), poly.ExpVector{2, 0})
	x1 := r.Monomial(tuple(t, pr, 0, 3, 1), poly.ExpVector{1, 0})
	c := r.Const(tuple(t, pr, 1, 1, 1))
	f := x2.Sum(x1).Sum(c)

	closure := BooleanClosure(f)
	rem := BooleanRemainder(f)
	assert.True(t, closure.Sum(rem).Equal(f))
	assert.True(t, IsBooleanClosed(closure))
	assert.False(t, IsBooleanClosed(f))
	assert.True(t, IsOrthogonal(closure, rem))

	set := BooleanClosureSet(f)
	require.Len(t, set, 2)
	sum := r.Zero()
	for i, p := range set {
		sum = sum.Sum(p)
		assert.True(t, IsBooleanClosed(p))
		for j := i + 1; j < len(set); j++ {
			assert.True(t, IsOrthogonal(p, set[j]), "splits %d and %d overlap", i, j)
		}
	}
	assert.True(t, sum.Equal(f))
	assert.True(t, IsBooleanClosedSet(set))

	red := NewRReducer[ring.Product[ring.Rational]]()
	assert.Len(t, red.ReducedBooleanClosure(f, f), 2)
	assert.True(t, red.IsBooleanClosed(red.BooleanClosure(f)))
}

func TestRReducer_SplitsLeadingTerm(t *testing.T) {
	r, pr := productRing(t, 3)
	red := NewRReducer[ring.Product[ring.Rational]]()

	g := r.Monomial(tuple(t, pr, 1, 0, 1), poly.ExpVector{1, 0}).Sum(r.Const(tuple(t, pr, 1, 0, 1)))
	f := r.Monomial(tuple(t, pr, 2, 3, 5), poly.ExpVector{1, 0})
	G := []*poly.Polynomial[ring.Product[ring.Rational]]{g}

	nf := red.Normalform(G, f)
	assert.Equal(t, "(0, 3, 0) x - (2, 0, 5)", nf.String())
	assert.True(t, red.IsNormalform(G, nf))

	row, nf2 := red.NormalformRecording(G, f)
	assert.True(t, red.IsReductionNF(row, G, f, nf2))

	a := r.Monomial(tuple(t, pr, 1, 0, 0), poly.ExpVector{1, 0})
	b := r.Monomial(tuple(t, pr, 0, 1, 0), poly.ExpVector{0, 1})
	assert.True(t, red.SPolynomial(a, b).IsZero())
}

func TestRPseudoReducer_ComponentwiseScaling(t *testing.T) {
	pr := ring.NewPowerRing[ring.Integer](ring.Integers, 2)
	r := poly.NewRing[ring.Product[ring.Integer]](pr, poly.Lex, "x")
	el := func(a, b int64) ring.Product[ring.Integer] {
		p, err := pr.FromComponents(ring.NewInteger(a), ring.NewInteger(b))
		require.NoError(t, err)
		return p
	}
	red := NewRPseudoReducer[ring.Product[ring.Integer]]()

	f := r.Monomial(el(2, 3), poly.ExpVector{1}).Sum(r.Const(el(1, 1)))
	g := r.Monomial(el(4, 0), poly.ExpVector{1}).Sum(r.Const(el(1, 0)))
	G := []*poly.Polynomial[ring.Product[ring.Integer]]{g}

	m, row, nf := red.NormalformFactorRecording(G, f)
	assert.Equal(t, "(2, 1)", m.String())
	assert.Equal(t, "(0, 3) x + (1, 1)", nf.String())
	assert.True(t, red.IsReductionNFFactor(m, row, G, f, nf))
	assert.True(t, red.IsBooleanClosed(g))
}

// =============================================================================
// Solvable rings
// =============================================================================

func TestSolvableReducer_LeftReduction(t *testing.T) {
	r := poly.NewSolvableRing[ring.Rational](ring.Rationals, poly.DegRevLex, "x", "d")
	require.NoError(t, poly.WeylRelations(r))
	red := NewSolvableReducer[ring.Rational]()
	x, d := r.Gen(0), r.Gen(1)
	G := []*poly.Polynomial[ring.Rational]{x}

	assert.True(t, red.Normalform(G, d.Multiply(x)).IsZero())

	f := x.Multiply(d)
	nf := red.Normalform(G, f)
	assert.Equal(t, "-1", nf.String())

	row, nf2 := red.NormalformRecording(G, f)
	assert.True(t, nf2.Equal(nf))
	assert.True(t, red.IsReductionNF(row, G, f, nf2))

	assert.True(t, red.SPolynomial(x, d).IsOne())
}
