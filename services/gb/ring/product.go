// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ring

import (
	"fmt"
	"math/big"
	"strings"
)

// ProductRing is the finite direct product of component rings with
// componentwise arithmetic. It is von Neumann regular when every component
// is a field.
type ProductRing[C Element[C]] struct {
	comps []Factory[C]
}

// NewProductRing builds the product of the given component factories.
func NewProductRing[C Element[C]](comps ...Factory[C]) *ProductRing[C] {
	return &ProductRing[C]{comps: append([]Factory[C](nil), comps...)}
}

// NewPowerRing builds the n-fold product of f with itself.
func NewPowerRing[C Element[C]](f Factory[C], n int) *ProductRing[C] {
	comps := make([]Factory[C], n)
	for i := range comps {
		comps[i] = f
	}
	return &ProductRing[C]{comps: comps}
}

// Len returns the number of components.
func (r *ProductRing[C]) Len() int { return len(r.comps) }

// Component returns the i-th component factory.
func (r *ProductRing[C]) Component(i int) Factory[C] { return r.comps[i] }

func (r *ProductRing[C]) fill(fn func(f Factory[C]) C) Product[C] {
	vals := make([]C, len(r.comps))
	for i, f := range r.comps {
		vals[i] = fn(f)
	}
	return Product[C]{ring: r, vals: vals}
}

func (r *ProductRing[C]) Zero() Product[C] { return r.fill(func(f Factory[C]) C { return f.Zero() }) }
func (r *ProductRing[C]) One() Product[C]  { return r.fill(func(f Factory[C]) C { return f.One() }) }

func (r *ProductRing[C]) FromInt64(v int64) Product[C] {
	return r.fill(func(f Factory[C]) C { return f.FromInt64(v) })
}

// FromComponents builds a tuple; vals must have one entry per component.
func (r *ProductRing[C]) FromComponents(vals ...C) (Product[C], error) {
	if len(vals) != len(r.comps) {
		return Product[C]{}, fmt.Errorf("%w: got %d, want %d", ErrComponents, len(vals), len(r.comps))
	}
	return Product[C]{ring: r, vals: append([]C(nil), vals...)}, nil
}

// Unit returns the idempotent which is one in component i only.
func (r *ProductRing[C]) Unit(i int) Product[C] {
	p := r.Zero()
	p.vals[i] = r.comps[i].One()
	return p
}

func (r *ProductRing[C]) IsField() bool {
	return len(r.comps) == 1 && r.comps[0].IsField()
}

// Characteristic is the lcm of the component characteristics, or zero if
// any component has characteristic zero.
func (r *ProductRing[C]) Characteristic() *big.Int {
	c := big.NewInt(1)
	for _, f := range r.comps {
		k := f.Characteristic()
		if k.Sign() == 0 {
			return new(big.Int)
		}
		g := new(big.Int).GCD(nil, nil, c, k)
		c.Mul(c, k).Quo(c, g)
	}
	return c
}

func (r *ProductRing[C]) String() string {
	parts := make([]string, len(r.comps))
	for i, f := range r.comps {
		parts[i] = f.String()
	}
	return "Prod(" + strings.Join(parts, ", ") + ")"
}

// Parse reads "(a, b, c)".
func (r *ProductRing[C]) Parse(s string) (Product[C], error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return Product[C]{}, fmt.Errorf("%w: %q", ErrParse, s)
	}
	fields := strings.Split(s[1:len(s)-1], ",")
	if len(fields) != len(r.comps) {
		return Product[C]{}, fmt.Errorf("%w: got %d, want %d", ErrComponents, len(fields), len(r.comps))
	}
	vals := make([]C, len(fields))
	for i, field := range fields {
		v, err := r.comps[i].Parse(field)
		if err != nil {
			return Product[C]{}, fmt.Errorf("component %d: %w", i, err)
		}
		vals[i] = v
	}
	return Product[C]{ring: r, vals: vals}, nil
}

// Product is a tuple in a ProductRing.
type Product[C Element[C]] struct {
	ring *ProductRing[C]
	vals []C
}

// Ring returns the product ring of p.
func (p Product[C]) Ring() *ProductRing[C] { return p.ring }

// Component returns the i-th coordinate.
func (p Product[C]) Component(i int) C { return p.vals[i] }

// Len returns the number of coordinates.
func (p Product[C]) Len() int { return len(p.vals) }

func (p Product[C]) mapUnary(fn func(i int, a C) C) Product[C] {
	vals := make([]C, len(p.vals))
	for i, a := range p.vals {
		vals[i] = fn(i, a)
	}
	return Product[C]{ring: p.ring, vals: vals}
}

func (p Product[C]) mapBinary(q Product[C], fn func(a, b C) C) Product[C] {
	vals := make([]C, len(p.vals))
	for i, a := range p.vals {
		vals[i] = fn(a, q.vals[i])
	}
	return Product[C]{ring: p.ring, vals: vals}
}

func (p Product[C]) all(fn func(a C) bool) bool {
	for _, a := range p.vals {
		if !fn(a) {
			return false
		}
	}
	return true
}

func (p Product[C]) IsZero() bool { return p.all(func(a C) bool { return a.IsZero() }) }
func (p Product[C]) IsOne() bool  { return p.all(func(a C) bool { return a.IsOne() }) }
func (p Product[C]) IsUnit() bool { return p.all(func(a C) bool { return a.IsUnit() }) }
func (p Product[C]) IsFull() bool { return p.all(func(a C) bool { return !a.IsZero() }) }

// Signum is the sign of the first nonzero component.
func (p Product[C]) Signum() int {
	for _, a := range p.vals {
		if s := a.Signum(); s != 0 {
			return s
		}
	}
	return 0
}

// Compare orders tuples lexicographically by component.
func (p Product[C]) Compare(q Product[C]) int {
	for i, a := range p.vals {
		if c := a.Compare(q.vals[i]); c != 0 {
			return c
		}
	}
	return 0
}

func (p Product[C]) Equal(q Product[C]) bool { return p.Compare(q) == 0 }

func (p Product[C]) Sum(q Product[C]) Product[C] {
	return p.mapBinary(q, func(a, b C) C { return a.Sum(b) })
}

func (p Product[C]) Subtract(q Product[C]) Product[C] {
	return p.mapBinary(q, func(a, b C) C { return a.Subtract(b) })
}

func (p Product[C]) Multiply(q Product[C]) Product[C] {
	return p.mapBinary(q, func(a, b C) C { return a.Multiply(b) })
}

// Divide divides componentwise; components where q is zero become zero.
func (p Product[C]) Divide(q Product[C]) Product[C] {
	return p.mapBinary(q, func(a, b C) C { return a.Divide(b) })
}

func (p Product[C]) Remainder(q Product[C]) Product[C] {
	return p.mapBinary(q, func(a, b C) C { return a.Remainder(b) })
}

func (p Product[C]) Gcd(q Product[C]) Product[C] {
	return p.mapBinary(q, func(a, b C) C { return a.Gcd(b) })
}

func (p Product[C]) Egcd(q Product[C]) (g, s, t Product[C]) {
	n := len(p.vals)
	gv, sv, tv := make([]C, n), make([]C, n), make([]C, n)
	for i, a := range p.vals {
		gv[i], sv[i], tv[i] = a.Egcd(q.vals[i])
	}
	return Product[C]{ring: p.ring, vals: gv}, Product[C]{ring: p.ring, vals: sv}, Product[C]{ring: p.ring, vals: tv}
}

func (p Product[C]) Negate() Product[C]  { return p.mapUnary(func(_ int, a C) C { return a.Negate() }) }
func (p Product[C]) Abs() Product[C]     { return p.mapUnary(func(_ int, a C) C { return a.Abs() }) }
func (p Product[C]) Inverse() Product[C] { return p.mapUnary(func(_ int, a C) C { return a.Inverse() }) }

func (p Product[C]) Idempotent() Product[C] {
	return p.mapUnary(func(i int, a C) C {
		if a.IsZero() {
			return p.ring.comps[i].Zero()
		}
		return p.ring.comps[i].One()
	})
}

func (p Product[C]) IdempotentComplement() Product[C] {
	return p.mapUnary(func(i int, a C) C {
		if a.IsZero() {
			return p.ring.comps[i].One()
		}
		return p.ring.comps[i].Zero()
	})
}

func (p Product[C]) String() string {
	parts := make([]string, len(p.vals))
	for i, a := range p.vals {
		parts[i] = a.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
