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
	"sync"

	"github.com/AleutianAI/groebner/services/gb/ring"
)

// powerKey identifies the product x_k^n * x_l^m with k > l.
type powerKey struct {
	k, n, l, m int
}

// RelationTable holds the commutation relations of a solvable ring.
//
// Description:
//
//	An entry (k, n, l, m) with k > l stores the standard form of the
//	non-standard product x_k^n * x_l^m. Base relations have n == m == 1;
//	higher powers are derived by Extend. Multiplication reads the table
//	but never writes it.
//
// Thread Safety: Safe for concurrent use.
type RelationTable[C ring.Element[C]] struct {
	mu      sync.RWMutex
	ring    *Ring[C]
	entries map[powerKey]*Polynomial[C]
	bases   int
}

func newRelationTable[C ring.Element[C]](r *Ring[C]) *RelationTable[C] {
	return &RelationTable[C]{ring: r, entries: make(map[powerKey]*Polynomial[C])}
}

// singleVar returns (i, deg) if e is a pure power of one variable.
func singleVar(e ExpVector) (int, int, bool) {
	i := e.FirstVar()
	if i < 0 || i != e.LastVar() {
		return 0, 0, false
	}
	return i, e[i], true
}

// Update records x^left * x^right = product.
//
// Description:
//
//	left must be a power of a variable with a larger index than the
//	variable of right, and the leading exponent of product must be
//	left + right.
//
// Outputs:
//
//	error - ErrRelation if the relation is malformed.
func (t *RelationTable[C]) Update(left, right ExpVector, product *Polynomial[C]) error {
	k, n, ok1 := singleVar(left)
	l, m, ok2 := singleVar(right)
	if !ok1 || !ok2 || k <= l {
		return fmt.Errorf("%w: %v * %v is not a non-standard generator product", ErrRelation, left, right)
	}
	if product == nil || product.IsZero() || !product.LeadingExp().Equal(left.Sum(right)) {
		return fmt.Errorf("%w: leading term of %v must be x^%v", ErrRelation, product, left.Sum(right))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	key := powerKey{k: k, n: n, l: l, m: m}
	if _, exists := t.entries[key]; !exists && n == 1 && m == 1 {
		t.bases++
	}
	t.entries[key] = product
	return nil
}

// Lookup returns the correction p with x_B * x_A = x_A x_B + p for A < B.
func (t *RelationTable[C]) Lookup(genA, genB int) (*Polynomial[C], bool) {
	if genA >= genB {
		return nil, false
	}
	prod, ok := t.product(genB, 1, genA, 1)
	if !ok {
		return nil, false
	}
	n := t.ring.NumVars()
	std := t.ring.Monomial(t.ring.coeffs.One(), UnitExp(n, genA, 1).Sum(UnitExp(n, genB, 1)))
	return prod.Subtract(std), true
}

// Product returns the tabulated standard form of x^left * x^right.
func (t *RelationTable[C]) Product(left, right ExpVector) (*Polynomial[C], bool) {
	k, n, ok1 := singleVar(left)
	l, m, ok2 := singleVar(right)
	if !ok1 || !ok2 {
		return nil, false
	}
	return t.product(k, n, l, m)
}

func (t *RelationTable[C]) product(k, n, l, m int) (*Polynomial[C], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.entries[powerKey{k: k, n: n, l: l, m: m}]
	return p, ok
}

func (t *RelationTable[C]) hasBase(k, l int) bool {
	_, ok := t.product(k, 1, l, 1)
	return ok
}

// Extend tabulates x_k^n * x_l^m for every base relation and all
// 1 <= n, m <= maxDeg. It returns the number of new entries.
func (t *RelationTable[C]) Extend(maxDeg int) int {
	t.mu.RLock()
	var bases []powerKey
	for key := range t.entries {
		if key.n == 1 && key.m == 1 {
			bases = append(bases, key)
		}
	}
	t.mu.RUnlock()

	added := 0
	for _, b := range bases {
		for n := 1; n <= maxDeg; n++ {
			for m := 1; m <= maxDeg; m++ {
				if _, ok := t.product(b.k, n, b.l, m); ok {
					continue
				}
				p := t.ring.powerProduct(b.k, n, b.l, m)
				t.mu.Lock()
				if _, ok := t.entries[powerKey{k: b.k, n: n, l: b.l, m: m}]; !ok {
					t.entries[powerKey{k: b.k, n: n, l: b.l, m: m}] = p
					added++
				}
				t.mu.Unlock()
			}
		}
	}
	return added
}

// Size returns the number of base relations.
func (t *RelationTable[C]) Size() int {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bases
}

// Entries returns the number of tabulated products including powers.
func (t *RelationTable[C]) Entries() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *RelationTable[C]) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var rels []string
	for key, p := range t.entries {
		if key.n != 1 || key.m != 1 {
			continue
		}
		rels = append(rels, fmt.Sprintf("%s * %s = %s", t.ring.vars[key.k], t.ring.vars[key.l], p))
	}
	slices.Sort(rels)
	return "{" + strings.Join(rels, ", ") + "}"
}

// WeylRelations installs d_i * x_i = x_i * d_i + 1 in a ring with
// variables x_1..x_n, d_1..d_n.
func WeylRelations[C ring.Element[C]](r *Ring[C]) error {
	if r.table == nil {
		return fmt.Errorf("%w: ring is not solvable", ErrRelation)
	}
	nv := r.NumVars()
	if nv%2 != 0 {
		return fmt.Errorf("%w: Weyl algebra needs an even number of variables, got %d", ErrRelation, nv)
	}
	h := nv / 2
	one := r.coeffs.One()
	for i := range h {
		x, d := UnitExp(nv, i, 1), UnitExp(nv, i+h, 1)
		prod := r.Monomial(one, x.Sum(d)).Sum(r.One())
		if err := r.table.Update(d, x, prod); err != nil {
			return err
		}
	}
	return nil
}

// monomialProduct returns x^a * x^b in standard form.
func (r *Ring[C]) monomialProduct(a, b ExpVector) *Polynomial[C] {
	one := r.coeffs.One()
	if !r.IsSolvable() {
		return r.Monomial(one, a.Sum(b))
	}
	k, l := a.LastVar(), b.FirstVar()
	if k < 0 || l < 0 || k <= l {
		return r.Monomial(one, a.Sum(b))
	}
	n, m := a[k], b[l]
	a1, b1 := a.clone(), b.clone()
	a1[k], b1[l] = 0, 0

	mid := r.powerProduct(k, n, l, m)
	if !a1.IsZero() {
		mid = r.leftTimes(a1, mid)
	}
	if !b1.IsZero() {
		mid = r.rightTimes(mid, b1)
	}
	return mid
}

// powerProduct returns x_k^n * x_l^m for k > l.
func (r *Ring[C]) powerProduct(k, n, l, m int) *Polynomial[C] {
	if p, ok := r.table.product(k, n, l, m); ok {
		return p
	}
	nv := r.NumVars()
	if !r.table.hasBase(k, l) {
		return r.Monomial(r.coeffs.One(), UnitExp(nv, k, n).Sum(UnitExp(nv, l, m)))
	}
	if n > 1 {
		return r.leftTimes(UnitExp(nv, k, 1), r.powerProduct(k, n-1, l, m))
	}
	return r.rightTimes(r.powerProduct(k, 1, l, m-1), UnitExp(nv, l, 1))
}

// leftTimes returns x^e * p.
func (r *Ring[C]) leftTimes(e ExpVector, p *Polynomial[C]) *Polynomial[C] {
	acc := newAccumulator(r)
	for _, t := range p.terms {
		acc.addScaled(r.monomialProduct(e, t.Exp), t.Coeff)
	}
	return acc.polynomial()
}

// rightTimes returns p * x^e.
func (r *Ring[C]) rightTimes(p *Polynomial[C], e ExpVector) *Polynomial[C] {
	acc := newAccumulator(r)
	for _, t := range p.terms {
		acc.addScaled(r.monomialProduct(t.Exp, e), t.Coeff)
	}
	return acc.polynomial()
}
