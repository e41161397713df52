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

var intZero = new(big.Int)

// Integer is an arbitrary precision element of Z.
type Integer struct {
	v *big.Int
}

// NewInteger returns v as an Integer.
func NewInteger(v int64) Integer {
	return Integer{v: big.NewInt(v)}
}

// IntegerFromBig copies b into an Integer.
func IntegerFromBig(b *big.Int) Integer {
	return Integer{v: new(big.Int).Set(b)}
}

// Big returns a copy of the underlying value.
func (a Integer) Big() *big.Int {
	return new(big.Int).Set(a.val())
}

func (a Integer) val() *big.Int {
	if a.v == nil {
		return intZero
	}
	return a.v
}

func (a Integer) IsZero() bool { return a.val().Sign() == 0 }
func (a Integer) IsOne() bool { return a.val().IsInt64() && a.val().Int64() == 1 }
func (a Integer) IsUnit() bool { return a.val().IsInt64() && (a.val().Int64() == 1 || a.val().Int64() == -1) }
func (a Integer) Signum() int { return a.val().Sign() }

func (a Integer) Compare(b Integer) int { return a.val().Cmp(b.val()) }
func (a Integer) Equal(b Integer) bool { return a.Compare(b) == 0 }

func (a Integer) Sum(b Integer) Integer { return Integer{v: new(big.Int).Add(a.val(), b.val())} }
func (a Integer) Subtract(b Integer) Integer { return Integer{v: new(big.Int).Sub(a.val(), b.val())} }
func (a Integer) Negate() Integer { return Integer{v: new(big.Int).Neg(a.val())} }
func (a Integer) Abs() Integer { return Integer{v: new(big.Int).Abs(a.val())} }
func (a Integer) Multiply(b Integer) Integer { return Integer{v: new(big.Int).Mul(a.val(), b.val())} }

// Divide returns the quotient truncated toward zero, or zero when b is zero.
func (a Integer) Divide(b Integer) Integer {
	if b.IsZero() {
		return Integer{v: new(big.Int)}
	}
	return Integer{v: new(big.Int).Quo(a.val(), b.val())}
}

// Remainder has the sign of a, matching Divide.
func (a Integer) Remainder(b Integer) Integer {
	if b.IsZero() {
		return a
	}
	return Integer{v: new(big.Int).Rem(a.val(), b.val())}
}

func (a Integer) Inverse() Integer {
	if a.IsUnit() {
		return a
	}
	return Integer{v: new(big.Int)}
}

// Gcd is always non-negative.
func (a Integer) Gcd(b Integer) Integer {
	return Integer{v: new(big.Int).GCD(nil, nil, a.val(), b.val())}
}

func (a Integer) Egcd(b Integer) (g, s, t Integer) {
	x, y := new(big.Int), new(big.Int)
	z := new(big.Int).GCD(x, y, a.val(), b.val())
	return Integer{v: z}, Integer{v: x}, Integer{v: y}
}

func (a Integer) String() string { return a.val().String() }

// IntegerRing is the factory of Integer.
type IntegerRing struct{}

// Integers is the shared integer ring factory.
var Integers IntegerRing

func (IntegerRing) Zero() Integer { return Integer{v: new(big.Int)} }
func (IntegerRing) One() Integer { return Integer{v: big.NewInt(1)} }
func (IntegerRing) FromInt64(v int64) Integer { return Integer{v: big.NewInt(v)} }
func (IntegerRing) IsField() bool { return false }
func (IntegerRing) Characteristic() *big.Int { return new(big.Int) }
func (IntegerRing) String() string { return "ZZ" }

func (IntegerRing) Parse(s string) (Integer, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return Integer{}, fmt.Errorf("%w: %q", ErrParse, s)
	}
	return Integer{v: v}, nil
}
