// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package poly

import (
	"fmt"
	"slices"
	"strings"

	"github.com/AleutianAI/groebner/services/gb/ring"
)

// Ring is a polynomial ring over the coefficient factory C in a fixed list
// of variables and term order.
type Ring[C ring.Element[C]] struct {
	coeffs ring.Factory[C]
	vars   []string
	order  TermOrder
	table  *RelationTable[C]
}

// NewRing creates a commutative polynomial ring.
func NewRing[C ring.Element[C]](coeffs ring.Factory[C], order TermOrder, vars ...string) *Ring[C] {
	return &Ring[C]{
		coeffs: coeffs,
		vars:   append([]string(nil), vars...),
		order:  order,
	}
}

// NewSolvableRing creates a ring with an empty relation table. Generators
// commute until relations are added with Table().Update.
func NewSolvableRing[C ring.Element[C]](coeffs ring.Factory[C], order TermOrder, vars ...string) *Ring[C] {
	r := NewRing(coeffs, order, vars...)
	r.table = newRelationTable(r)
	return r
}

// Coefficients returns the coefficient factory.
func (r *Ring[C]) Coefficients() ring.Factory[C] { return r.coeffs }

// Vars returns a copy of the variable names.
func (r *Ring[C]) Vars() []string { return append([]string(nil), r.vars...) }

// NumVars returns the number of variables.
func (r *Ring[C]) NumVars() int { return len(r.vars) }

// Order returns the term order.
func (r *Ring[C]) Order() TermOrder { return r.order }

// Table returns the relation table, nil for commutative rings.
func (r *Ring[C]) Table() *RelationTable[C] { return r.table }

// IsSolvable reports whether r was built by NewSolvableRing, so that
// multiplication consults its relation table. Generators without a
// relation commute; a solvable ring with an empty table is commutative.
func (r *Ring[C]) IsSolvable() bool {
	return r.table != nil
}

// Compatible reports whether o has the same variables, order and
// coefficient ring as r.
func (r *Ring[C]) Compatible(o *Ring[C]) bool {
	return r == o || (slices.Equal(r.vars, o.vars) && r.order == o.order &&
		r.coeffs.String() == o.coeffs.String())
}

// Zero returns the zero polynomial.
func (r *Ring[C]) Zero() *Polynomial[C] {
	return &Polynomial[C]{ring: r}
}

// One returns the constant one.
func (r *Ring[C]) One() *Polynomial[C] {
	return r.Const(r.coeffs.One())
}

// Const returns the constant polynomial c.
func (r *Ring[C]) Const(c C) *Polynomial[C] {
	return r.Monomial(c, NewExpVector(len(r.vars)))
}

// Monomial returns c x^e.
func (r *Ring[C]) Monomial(c C, e ExpVector) *Polynomial[C] {
	if c.IsZero() {
		return r.Zero()
	}
	return &Polynomial[C]{ring: r, terms: []Term[C]{{Exp: e.clone(), Coeff: c}}}
}

// Gen returns the i-th variable as a polynomial.
func (r *Ring[C]) Gen(i int) *Polynomial[C] {
	return r.Monomial(r.coeffs.One(), UnitExp(len(r.vars), i, 1))
}

// Gens returns all variables as polynomials.
func (r *Ring[C]) Gens() []*Polynomial[C] {
	gens := make([]*Polynomial[C], len(r.vars))
	for i := range gens {
		gens[i] = r.Gen(i)
	}
	return gens
}

// Var returns the variable with the given name.
func (r *Ring[C]) Var(name string) (*Polynomial[C], error) {
	i := slices.Index(r.vars, name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	return r.Gen(i), nil
}

// FromTerms sums the given terms; duplicates are combined and zeros dropped.
func (r *Ring[C]) FromTerms(terms []Term[C]) *Polynomial[C] {
	acc := newAccumulator(r)
	for _, t := range terms {
		acc.add(t.Exp.clone(), t.Coeff)
	}
	return acc.polynomial()
}

func (r *Ring[C]) String() string {
	s := fmt.Sprintf("%s[%s] %s", r.coeffs, strings.Join(r.vars, ", "), r.order)
	if r.IsSolvable() {
		s += " " + r.table.String()
	}
	return s
}

// accumulator collects terms in any order and produces a sorted polynomial.
type accumulator[C ring.Element[C]] struct {
	r     *Ring[C]
	index map[string]int
	terms []Term[C]
}

func newAccumulator[C ring.Element[C]](r *Ring[C]) *accumulator[C] {
	return &accumulator[C]{r: r, index: make(map[string]int)}
}

func (a *accumulator[C]) add(e ExpVector, c C) {
	if c.IsZero() {
		return
	}
	k := e.key()
	if i, ok := a.index[k]; ok {
		a.terms[i].Coeff = a.terms[i].Coeff.Sum(c)
		return
	}
	a.index[k] = len(a.terms)
	a.terms = append(a.terms, Term[C]{Exp: e, Coeff: c})
}

func (a *accumulator[C]) addPolynomial(p *Polynomial[C]) {
	for _, t := range p.terms {
		a.add(t.Exp, t.Coeff)
	}
}

func (a *accumulator[C]) addScaled(p *Polynomial[C], c C) {
	for _, t := range p.terms {
		a.add(t.Exp, t.Coeff.Multiply(c))
	}
}

func (a *accumulator[C]) polynomial() *Polynomial[C] {
	terms := make([]Term[C], 0, len(a.terms))
	for _, t := range a.terms {
		if !t.Coeff.IsZero() {
			terms = append(terms, t)
		}
	}
	order := a.r.order
	slices.SortFunc(terms, func(x, y Term[C]) int { return order.Compare(y.Exp, x.Exp) })
	return &Polynomial[C]{ring: a.r, terms: terms}
}
