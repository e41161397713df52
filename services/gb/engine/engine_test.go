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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/reduction"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

type qq = ring.Rational

func parse[C ring.Element[C]](t *testing.T, r *poly.Ring[C], exprs ...string) []*poly.Polynomial[C] {
	t.Helper()
	ps, err := r.ParseList(exprs...)
	require.NoError(t, err)
	return ps
}

func strs[C ring.Element[C]](ps []*poly.Polynomial[C]) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

func smallExample(t *testing.T) (*poly.Ring[qq], []*poly.Polynomial[qq]) {
	t.Helper()
	r := poly.NewRing[qq](ring.Rationals, poly.Lex, "x", "y")
	return r, parse(t, r, "3 x^2 - 2 x y", "5 y^2 - x y")
}

var smallBasis = []string{"y^3", "x y - 5 y^2", "x^2 - 10/3 y^2"}

func trinks(t *testing.T) []*poly.Polynomial[qq] {
	t.Helper()
	r := poly.NewRing[qq](ring.Rationals, poly.Lex, "W", "P", "Z", "T", "S", "B")
	return parse(t, r,
		"45 P + 35 S - 165 B - 36",
		"35 P + 40 Z + 25 T - 27 S",
		"15 W + 25 S P + 30 Z - 18 T - 165 B^2",
		"-9 W + 15 T P + 20 S Z",
		"P W + 2 T Z - 11 B^3",
		"99 W - 11 B S + 3 B^2",
		"B^2 + 33/50 B + 2673/10000",
	)
}

// =============================================================================
// Sequential
// =============================================================================

func TestSequential_SmallExample(t *testing.T) {
	_, F := smallExample(t)
	v := NewFieldVariant[qq]()

	res, err := NewSequential[qq](v).GB(context.Background(), F)
	require.NoError(t, err)
	assert.Equal(t, smallBasis, strs(res.Basis))
	assert.Equal(t, "sequential", res.Strategy)
	assert.Equal(t, "field", res.Variant)
	assert.Len(t, res.RunID, 12)

	assert.False(t, IsGB[qq](v, F))
	assert.True(t, IsGB[qq](v, res.Basis))
	assert.True(t, IsMinimalGB[qq](v, res.Basis))
	assert.True(t, ContainsAll[qq](v, res.Basis, F))
}

func TestSequential_RawBasisIsGB(t *testing.T) {
	_, F := smallExample(t)
	v := NewFieldVariant[qq]()

	res, err := NewSequential[qq](v, WithoutMinimize()).GB(context.Background(), F)
	require.NoError(t, err)
	assert.True(t, IsGB[qq](v, res.Basis))
	assert.Equal(t, res.Stats.Appended, len(res.Basis))
	assert.GreaterOrEqual(t, len(res.Basis), 3)
	assert.Positive(t, res.Stats.Reductions)
}

func TestSequential_Idempotent(t *testing.T) {
	_, F := smallExample(t)
	s := NewSequential[qq](NewFieldVariant[qq]())

	first, err := s.GB(context.Background(), F)
	require.NoError(t, err)
	second, err := s.GB(context.Background(), first.Basis)
	require.NoError(t, err)
	assert.Equal(t, strs(first.Basis), strs(second.Basis))
}

func TestSequential_Trinks(t *testing.T) {
	F := trinks(t)
	v := NewFieldVariant[qq]()

	res, err := NewSequential[qq](v).GB(context.Background(), F)
	require.NoError(t, err)
	assert.Len(t, res.Basis, 6)
	assert.True(t, IsGB[qq](v, res.Basis))
	assert.True(t, ContainsAll[qq](v, res.Basis, F))
}

func TestSequential_UnitShortCircuit(t *testing.T) {
	r := poly.NewRing[qq](ring.Rationals, poly.DegRevLex, "x", "y")
	F := parse(t, r, "x + 1", "x")

	res, err := NewSequential[qq](NewFieldVariant[qq]()).GB(context.Background(), F)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, strs(res.Basis))
}

func TestSequential_EmptyAndZeroInput(t *testing.T) {
	s := NewSequential[qq](NewFieldVariant[qq]())

	res, err := s.GB(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Basis)

	r := poly.NewRing[qq](ring.Rationals, poly.Lex, "x")
	res, err = s.GB(context.Background(), []*poly.Polynomial[qq]{r.Zero()})
	require.NoError(t, err)
	assert.Empty(t, res.Basis)
}

func TestSequential_InputErrors(t *testing.T) {
	s := NewSequential[qq](NewFieldVariant[qq]())
	r1 := poly.NewRing[qq](ring.Rationals, poly.Lex, "x")
	r2 := poly.NewRing[qq](ring.Rationals, poly.Lex, "y")

	_, err := s.GB(context.Background(), []*poly.Polynomial[qq]{r1.Gen(0), nil})
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = s.GB(context.Background(), []*poly.Polynomial[qq]{r1.Gen(0), r2.Gen(0)})
	assert.ErrorIs(t, err, ErrRingMismatch)
}

func TestSequential_Cancelled(t *testing.T) {
	_, F := smallExample(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSequential[qq](NewFieldVariant[qq]()).GB(ctx, F)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTerminated))
	assert.True(t, errors.Is(err, context.Canceled))
}

// =============================================================================
// Parallel
// =============================================================================

func TestParallel_SmallExample(t *testing.T) {
	_, F := smallExample(t)
	for _, threads := range []int{1, 2, 4} {
		res, err := NewParallel[qq](NewFieldVariant[qq](), WithThreads(threads)).GB(context.Background(), F)
		require.NoError(t, err)
		assert.Equal(t, smallBasis, strs(res.Basis), "threads=%d", threads)
		assert.Equal(t, "parallel", res.Strategy)
	}
}

func TestParallel_TrinksMatchesSequential(t *testing.T) {
	F := trinks(t)
	v := NewFieldVariant[qq]()

	seq, err := NewSequential[qq](v).GB(context.Background(), F)
	require.NoError(t, err)
	par, err := NewParallel[qq](v, WithThreads(3)).GB(context.Background(), F)
	require.NoError(t, err)

	assert.Len(t, par.Basis, 6)
	assert.True(t, IsGB[qq](v, par.Basis))
	assert.True(t, SameIdeal[qq](v, seq.Basis, par.Basis))
	assert.Equal(t, strs(seq.Basis), strs(par.Basis))
}

func TestParallel_InvalidThreads(t *testing.T) {
	_, F := smallExample(t)
	_, err := NewParallel[qq](NewFieldVariant[qq](), WithThreads(0)).GB(context.Background(), F)
	assert.ErrorIs(t, err, ErrInvalidThreads)
}

func TestParallel_Cancelled(t *testing.T) {
	F := trinks(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParallel[qq](NewFieldVariant[qq](), WithThreads(2)).GB(ctx, F)
	assert.ErrorIs(t, err, ErrTerminated)
}

func TestParallel_TerminateWithoutRuns(t *testing.T) {
	p := NewParallel[qq](NewFieldVariant[qq]())
	p.Terminate()
}

// =============================================================================
// Extended
// =============================================================================

func TestExtendedGB_Matrices(t *testing.T) {
	_, F := smallExample(t)

	res, err := ExtendedGB[qq](context.Background(), F)
	require.NoError(t, err)
	assert.Equal(t, smallBasis, strs(res.G))
	require.Len(t, res.F2G, len(F))
	require.Len(t, res.G2F, len(res.G))
	assert.True(t, IsReductionMatrix(res))

	res.G2F[0][0] = res.G2F[0][0].Sum(F[0].Ring().One())
	assert.False(t, IsReductionMatrix(res))
}

func TestExtendedGB_RequiresField(t *testing.T) {
	r := poly.NewRing[ring.Integer](ring.Integers, poly.Lex, "x")
	_, err := ExtendedGB[ring.Integer](context.Background(), parse(t, r, "2 x"))
	assert.ErrorIs(t, err, ErrNotField)
}

// =============================================================================
// Integers
// =============================================================================

type zz = ring.Integer

func TestPseudo_SmallExampleOverIntegers(t *testing.T) {
	r := poly.NewRing[zz](ring.Integers, poly.Lex, "x", "y")
	F := parse(t, r, "3 x^2 - 2 x y", "5 y^2 - x y")
	v := NewPseudoVariant[zz]()

	res, err := NewSequential[zz](v).GB(context.Background(), F)
	require.NoError(t, err)
	assert.Equal(t, []string{"y^3", "x y - 5 y^2", "3 x^2 - 10 y^2"}, strs(res.Basis))
	assert.True(t, IsGB[zz](v, res.Basis))
}

func TestStrongBases_OverIntegers(t *testing.T) {
	r := poly.NewRing[zz](ring.Integers, poly.Lex, "x")
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"gcd of leading coefficients", []string{"2 x", "3 x"}, []string{"x"}},
		{"constants", []string{"4", "6"}, []string{"2"}},
		{"unit", []string{"2", "3"}, []string{"1"}},
		{"single", []string{"4 x + 1"}, []string{"4 x + 1"}},
	}
	variants := []Variant[zz]{NewDVariant[zz](), NewEVariant[zz]()}
	for _, tt := range tests {
		for _, v := range variants {
			t.Run(tt.name+"/"+v.Name(), func(t *testing.T) {
				F := parse(t, r, tt.input...)
				res, err := NewSequential[zz](v).GB(context.Background(), F)
				require.NoError(t, err)
				assert.Equal(t, tt.want, strs(res.Basis))
				assert.True(t, IsGB[zz](v, res.Basis))
				assert.True(t, ContainsAll[zz](v, res.Basis, F))
			})
		}
	}
}

func TestStrongBases_ParallelMatchesSequential(t *testing.T) {
	r := poly.NewRing[zz](ring.Integers, poly.Lex, "x", "y")
	F := parse(t, r, "6 x y + 4", "4 x^2 - 2 y", "3 y^2 + x")
	v := NewEVariant[zz]()

	seq, err := NewSequential[zz](v).GB(context.Background(), F)
	require.NoError(t, err)
	par, err := NewParallel[zz](v, WithThreads(2)).GB(context.Background(), F)
	require.NoError(t, err)
	assert.True(t, IsGB[zz](v, seq.Basis))
	assert.True(t, IsGB[zz](v, par.Basis))
	assert.True(t, SameIdeal[zz](v, seq.Basis, par.Basis))
}

// =============================================================================
// Regular rings
// =============================================================================

type qq2 = ring.Product[ring.Rational]

func productRing(t *testing.T) (*poly.Ring[qq2], *ring.ProductRing[ring.Rational]) {
	t.Helper()
	pr := ring.NewPowerRing[ring.Rational](ring.Rationals, 3)
	return poly.NewRing[qq2](pr, poly.DegRevLex, "x", "y"), pr
}

func TestRVariant_BooleanClosedBasis(t *testing.T) {
	r, _ := productRing(t)
	F := parse(t, r, "(2, 0, 1) x y + (1, 1, 0)", "(0, 3, 1) y^2 - (1, 0, 1) x", "(1, 1, 1) x^2")
	v := NewRVariant[qq2]()

	res, err := NewSequential[qq2](v).GB(context.Background(), F)
	require.NoError(t, err)
	assert.True(t, reduction.IsBooleanClosedSet(res.Basis))
	assert.True(t, IsGB[qq2](v, res.Basis))
	assert.True(t, ContainsAll[qq2](v, res.Basis, F))

	par, err := NewParallel[qq2](v, WithThreads(2)).GB(context.Background(), F)
	require.NoError(t, err)
	assert.True(t, IsGB[qq2](v, par.Basis))
	assert.True(t, SameIdeal[qq2](v, res.Basis, par.Basis))
}

func TestRVariant_FullUnit(t *testing.T) {
	r, _ := productRing(t)
	F := parse(t, r, "(1, 2, 3) + (0, 1, 0) x")

	res, err := NewSequential[qq2](NewRVariant[qq2]()).GB(context.Background(), F)
	require.NoError(t, err)
	for _, g := range res.Basis {
		assert.False(t, g.IsUnit())
	}

	F = parse(t, r, "(1, 2, 3)")
	res, err = NewSequential[qq2](NewRVariant[qq2]()).GB(context.Background(), F)
	require.NoError(t, err)
	require.Len(t, res.Basis, 1)
	assert.True(t, res.Basis[0].IsOne())
	assert.Equal(t, "(1, 1, 1)", res.Basis[0].String())
}

func TestRVariant_IsGBRequiresClosure(t *testing.T) {
	r, _ := productRing(t)
	notClosed := parse(t, r, "(1, 0, 0) x + (0, 1, 0)")
	assert.False(t, IsGB[qq2](NewRVariant[qq2](), notClosed))
}

func TestRPseudoVariant_OverIntegerProduct(t *testing.T) {
	pr := ring.NewPowerRing[zz](ring.Integers, 2)
	r := poly.NewRing[ring.Product[zz]](pr, poly.Lex, "x", "y")
	v := NewRPseudoVariant[ring.Product[zz]]()

	res, err := NewSequential[ring.Product[zz]](v).GB(context.Background(), parse(t, r, "(2, 3) x + (4, 0)"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x + (2, 0)"}, strs(res.Basis))
	assert.True(t, IsGB[ring.Product[zz]](v, res.Basis))

	F := parse(t, r, "(2, 0) x y + (1, 3)", "(0, 4) x + (2, 2) y")
	res, err = NewSequential[ring.Product[zz]](v).GB(context.Background(), F)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Basis)
	assert.True(t, reduction.IsBooleanClosedSet(res.Basis))
}

// =============================================================================
// Solvable rings
// =============================================================================

func weyl(t *testing.T) *poly.Ring[qq] {
	t.Helper()
	r := poly.NewSolvableRing[qq](ring.Rationals, poly.DegRevLex, "x", "d")
	require.NoError(t, poly.WeylRelations(r))
	return r
}

func TestLeftGB_Weyl(t *testing.T) {
	r := weyl(t)

	res, err := LeftGB(context.Background(), parse(t, r, "x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, strs(res.Basis))
	assert.True(t, IsLeftGB(res.Basis))
	assert.False(t, IsTwosidedGB(res.Basis))

	res, err = LeftGB(context.Background(), parse(t, r, "x", "d"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, strs(res.Basis))
}

func TestTwosidedGB_Weyl(t *testing.T) {
	r := weyl(t)
	F := parse(t, r, "x")

	res, err := TwosidedGB(context.Background(), F)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, strs(res.Basis))
	assert.True(t, IsTwosidedGB(res.Basis))

	par, err := NewParallel[qq](NewTwoSidedVariant[qq](), WithThreads(2)).GB(context.Background(), F)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, strs(par.Basis))
}

func TestTwosidedGB_SaturationClosesIdeal(t *testing.T) {
	r := weyl(t)
	a := parse(t, r, "x^2 d + x")
	res, err := TwosidedGB(context.Background(), a)
	require.NoError(t, err)
	require.True(t, IsTwosidedGB(res.Basis))

	red := NewLeftVariant[qq]().Reducer()
	one := r.Coefficients().One()
	for _, g := range res.Basis {
		for k := range r.NumVars() {
			e := poly.UnitExp(r.NumVars(), k, 1)
			assert.True(t, red.Normalform(res.Basis, g.MultiplyLeft(one, e)).IsZero())
			assert.True(t, red.Normalform(res.Basis, g.MultiplyRight(one, e)).IsZero())
		}
	}
}

// lieRing is the enveloping algebra of the two-dimensional Lie algebra,
// y * x = x y + x. Unlike the Weyl algebra it has proper two-sided ideals.
func lieRing(t *testing.T) *poly.Ring[qq] {
	t.Helper()
	r := poly.NewSolvableRing[qq](ring.Rationals, poly.DegRevLex, "x", "y")
	n := r.NumVars()
	require.NoError(t, r.Table().Update(poly.UnitExp(n, 1, 1), poly.UnitExp(n, 0, 1), parse(t, r, "x y + x")[0]))
	require.Equal(t, "x y + x", r.Gen(1).Multiply(r.Gen(0)).String())
	return r
}

func TestTwosidedGB_ProperIdeal(t *testing.T) {
	r := lieRing(t)
	F := parse(t, r, "x^2 + y")

	res, err := TwosidedGB(context.Background(), F)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, strs(res.Basis))
	assert.True(t, IsTwosidedGB(res.Basis))

	// Both one-sided products of the generator with every variable lie in
	// the two-sided ideal.
	red := NewLeftVariant[qq]().Reducer()
	one := r.Coefficients().One()
	for k := range r.NumVars() {
		e := poly.UnitExp(r.NumVars(), k, 1)
		assert.True(t, red.Normalform(res.Basis, F[0].MultiplyLeft(one, e)).IsZero())
		assert.True(t, red.Normalform(res.Basis, F[0].MultiplyRight(one, e)).IsZero())
	}

	par, err := NewParallel[qq](NewTwoSidedVariant[qq](), WithThreads(2)).GB(context.Background(), F)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, strs(par.Basis))
}

func TestLeftGB_ProperIdeal(t *testing.T) {
	r := lieRing(t)
	F := parse(t, r, "x^2 + y")

	res, err := LeftGB(context.Background(), F)
	require.NoError(t, err)
	assert.Equal(t, []string{"x^2 + y"}, strs(res.Basis))
	assert.True(t, IsLeftGB(res.Basis))
	// a * x = x^3 + x y + x leaves x after left reduction by x * a.
	assert.False(t, IsTwosidedGB(res.Basis))

	G := parse(t, r, "x^2 + y", "x y")
	res, err = LeftGB(context.Background(), G)
	require.NoError(t, err)
	assert.True(t, IsLeftGB(res.Basis))
	assert.True(t, ContainsAll[qq](NewLeftVariant[qq](), res.Basis, G))

	par, err := NewParallel[qq](NewLeftVariant[qq](), WithThreads(2)).GB(context.Background(), G)
	require.NoError(t, err)
	assert.ElementsMatch(t, strs(res.Basis), strs(par.Basis))
}

func TestSolvable_EmptyRelationTableIsCommutative(t *testing.T) {
	comm := poly.NewRing[qq](ring.Rationals, poly.DegRevLex, "x", "y")
	want, err := NewSequential[qq](NewFieldVariant[qq]()).GB(context.Background(), parse(t, comm, "x^2 - y", "x y - 1"))
	require.NoError(t, err)

	r := poly.NewSolvableRing[qq](ring.Rationals, poly.DegRevLex, "x", "y")
	F := parse(t, r, "x^2 - y", "x y - 1")

	left, err := LeftGB(context.Background(), F)
	require.NoError(t, err)
	assert.ElementsMatch(t, strs(want.Basis), strs(left.Basis))
	assert.True(t, IsLeftGB(left.Basis))

	two, err := TwosidedGB(context.Background(), F)
	require.NoError(t, err)
	assert.ElementsMatch(t, strs(want.Basis), strs(two.Basis))
	assert.True(t, IsTwosidedGB(two.Basis))
}

func TestSolvable_RequiresSolvableRing(t *testing.T) {
	r := poly.NewRing[qq](ring.Rationals, poly.Lex, "x")
	_, err := TwosidedGB(context.Background(), parse(t, r, "x"))
	assert.ErrorIs(t, err, ErrNotSolvable)
	_, err = LeftGB(context.Background(), parse(t, r, "x"))
	assert.ErrorIs(t, err, ErrNotSolvable)
}

// =============================================================================
// Misc
// =============================================================================

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "seeding", PhaseSeeding.String())
	assert.Equal(t, "running", PhaseRunning.String())
	assert.Equal(t, "draining", PhaseDraining.String())
	assert.Equal(t, "terminated", PhaseTerminated.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
