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

// ModIntRing is the ring Z/mZ. It is a field when m is prime.
type ModIntRing struct {
	modulus *big.Int
	prime   bool
}

// NewModIntRing creates Z/mZ for m >= 2.
func NewModIntRing(m int64) (*ModIntRing, error) {
	if m < 2 {
		return nil, fmt.Errorf("%w: %d", ErrModulus, m)
	}
	return NewModIntRingBig(big.NewInt(m))
}

// NewModIntRingBig creates Z/mZ for an arbitrary precision modulus.
func NewModIntRingBig(m *big.Int) (*ModIntRing, error) {
	if m.Cmp(big.NewInt(2)) < 0 {
		return nil, fmt.Errorf("%w: %s", ErrModulus, m)
	}
	mod := new(big.Int).Set(m)
	return &ModIntRing{modulus: mod, prime: mod.ProbablyPrime(20)}, nil
}

// Modulus returns a copy of m.
func (r *ModIntRing) Modulus() *big.Int { return new(big.Int).Set(r.modulus) }

func (r *ModIntRing) elem(v *big.Int) ModInt {
	z := new(big.Int).Mod(v, r.modulus)
	return ModInt{v: z, ring: r}
}

func (r *ModIntRing) Zero() ModInt             { return ModInt{v: new(big.Int), ring: r} }
func (r *ModIntRing) One() ModInt              { return r.elem(big.NewInt(1)) }
func (r *ModIntRing) FromInt64(v int64) ModInt { return r.elem(big.NewInt(v)) }
func (r *ModIntRing) IsField() bool            { return r.prime }
func (r *ModIntRing) Characteristic() *big.Int { return r.Modulus() }
func (r *ModIntRing) String() string           { return "ZZ/" + r.modulus.String() }

func (r *ModIntRing) Parse(s string) (ModInt, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return ModInt{}, fmt.Errorf("%w: %q", ErrParse, s)
	}
	return r.elem(v), nil
}

// ModInt is a residue class modulo the modulus of its ring, stored as the
// least non-negative representative.
type ModInt struct {
	v    *big.Int
	ring *ModIntRing
}

func (a ModInt) val() *big.Int {
	if a.v == nil {
		return intZero
	}
	return a.v
}

// Ring returns the factory the element belongs to.
func (a ModInt) Ring() *ModIntRing { return a.ring }

func (a ModInt) IsZero() bool { return a.val().Sign() == 0 }
func (a ModInt) IsOne() bool  { return a.val().IsInt64() && a.val().Int64() == 1 }

func (a ModInt) IsUnit() bool {
	if a.IsZero() {
		return false
	}
	if a.ring.prime {
		return true
	}
	g := new(big.Int).GCD(nil, nil, a.val(), a.ring.modulus)
	return g.Cmp(big.NewInt(1)) == 0
}

func (a ModInt) Signum() int { return a.val().Sign() }

func (a ModInt) Compare(b ModInt) int { return a.val().Cmp(b.val()) }
func (a ModInt) Equal(b ModInt) bool  { return a.Compare(b) == 0 }

func (a ModInt) Sum(b ModInt) ModInt      { return a.ring.elem(new(big.Int).Add(a.val(), b.val())) }
func (a ModInt) Subtract(b ModInt) ModInt { return a.ring.elem(new(big.Int).Sub(a.val(), b.val())) }
func (a ModInt) Negate() ModInt           { return a.ring.elem(new(big.Int).Neg(a.val())) }
func (a ModInt) Abs() ModInt              { return a }
func (a ModInt) Multiply(b ModInt) ModInt { return a.ring.elem(new(big.Int).Mul(a.val(), b.val())) }

func (a ModInt) Inverse() ModInt {
	if !a.IsUnit() {
		return a.ring.Zero()
	}
	return ModInt{v: new(big.Int).ModInverse(a.val(), a.ring.modulus), ring: a.ring}
}

// Divide multiplies by the quasi-inverse of b.
func (a ModInt) Divide(b ModInt) ModInt { return a.Multiply(b.Inverse()) }

func (a ModInt) Remainder(b ModInt) ModInt {
	if b.IsUnit() {
		return a.ring.Zero()
	}
	return a
}

func (a ModInt) Gcd(b ModInt) ModInt {
	g, _, _ := a.Egcd(b)
	return g
}

// Egcd runs the extended Euclidean algorithm on the representatives; in a
// field the result is normalised to g == 1.
func (a ModInt) Egcd(b ModInt) (g, s, t ModInt) {
	x, y := new(big.Int), new(big.Int)
	z := new(big.Int).GCD(x, y, a.val(), b.val())
	g, s, t = a.ring.elem(z), a.ring.elem(x), a.ring.elem(y)
	if a.ring.prime && !g.IsZero() {
		inv := g.Inverse()
		return a.ring.One(), s.Multiply(inv), t.Multiply(inv)
	}
	return g, s, t
}

func (a ModInt) String() string { return a.val().String() }
