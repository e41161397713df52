// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ring provides the coefficient rings used by the Groebner engine.
//
// # Description
//
// Coefficients are modelled as immutable values implementing the generic
// Element capability interface. The engine is parameterized over that
// interface instead of inspecting concrete types at runtime, so one
// implementation of every algorithm serves the rationals, the integers,
// the modular integers and finite direct products of those.
//
// # Thread Safety
//
// All element values are immutable and safe to share between goroutines.
// Factories are read-only after construction.
package ring

import (
	"fmt"
	"math/big"
)

// Element is the capability interface of a coefficient value.
//
// C is the concrete element type itself, so operations stay statically
// typed: Rational implements Element[Rational].
type Element[C any] interface {
	fmt.Stringer

	IsZero() bool
	IsOne() bool

	// IsUnit reports whether the element has a multiplicative inverse.
	IsUnit() bool

	// Signum returns -1, 0 or +1. Rings without an order return 0 for zero
	// and +1 otherwise.
	Signum() int

	Compare(other C) int
	Equal(other C) bool

	Sum(other C) C
	Subtract(other C) C
	Negate() C
	Abs() C
	Multiply(other C) C

	// Divide returns the quotient. It is exact in a field and truncated
	// in the integers.
	Divide(other C) C

	// Remainder returns this - Divide(other)*other.
	Remainder(other C) C

	// Inverse returns the quasi-inverse: the inverse of a unit, zero
	// otherwise. Product elements invert componentwise.
	Inverse() C

	Gcd(other C) C

	// Egcd returns g, s, t with g = s*this + t*other.
	Egcd(other C) (g, s, t C)
}

// Factory creates elements of one coefficient ring.
type Factory[C any] interface {
	fmt.Stringer

	Zero() C
	One() C
	FromInt64(v int64) C

	// Parse reads an element from its String form.
	Parse(s string) (C, error)

	// IsField reports whether every nonzero element is a unit.
	IsField() bool

	Characteristic() *big.Int
}

// Regular is implemented by von Neumann regular coefficient rings, i.e.
// rings in which every element has an idempotent support.
type Regular[C any] interface {
	Element[C]

	// Idempotent returns the idempotent e with e*this == this and
	// e*x == 0 for every x annihilated by this.
	Idempotent() C

	// IdempotentComplement returns 1 - Idempotent().
	IdempotentComplement() C

	// IsFull reports whether the element is nonzero in every component.
	IsFull() bool
}
