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

var (
	ratZero = new(big.Rat)
	ratOne  = big.NewRat(1, 1)
)

// Rational is an arbitrary precision element of the field Q.
type Rational struct {
	v *big.Rat
}

// NewRational returns num/den. A zero denominator yields zero.
func NewRational(num, den int64) Rational {
	if den == 0 {
		return Rational{v: new(big.Rat)}
	}
	return Rational{v: big.NewRat(num, den)}
}

// RationalFromRat copies r into a Rational.
func RationalFromRat(r *big.Rat) Rational {
	return Rational{v: new(big.Rat).Set(r)}
}

// Rat returns a copy of the underlying value.
func (r Rational) Rat() *big.Rat {
	return new(big.Rat).Set(r.val())
}

func (r Rational) val() *big.Rat {
	if r.v == nil {
		return ratZero
	}
	return r.v
}

func (r Rational) IsZero() bool { return r.val().Sign() == 0 }
func (r Rational) IsOne() bool { return r.val().Cmp(ratOne) == 0 }
func (r Rational) IsUnit() bool { return !r.IsZero() }
func (r Rational) Signum() int { return r.val().Sign() }

func (r Rational) Compare(o Rational) int { return r.val().Cmp(o.val()) }
func (r Rational) Equal(o Rational) bool { return r.Compare(o) == 0 }

func (r Rational) Sum(o Rational) Rational {
	return Rational{v: new(big.Rat).Add(r.val(), o.val())}
}

func (r Rational) Subtract(o Rational) Rational {
	return Rational{v: new(big.Rat).Sub(r.val(), o.val())}
}

func (r Rational) Negate() Rational { return Rational{v: new(big.Rat).Neg(r.val())} }
func (r Rational) Abs() Rational { return Rational{v: new(big.Rat).Abs(r.val())} }

func (r Rational) Multiply(o Rational) Rational {
	return Rational{v: new(big.Rat).Mul(r.val(), o.val())}
}

// Divide returns r/o, or zero when o is zero.
func (r Rational) Divide(o Rational) Rational {
	if o.IsZero() {
		return Rational{v: new(big.Rat)}
	}
	return Rational{v: new(big.Rat).Quo(r.val(), o.val())}
}

// Remainder is zero for every nonzero divisor.
func (r Rational) Remainder(o Rational) Rational {
	if o.IsZero() {
		return r
	}
	return Rational{v: new(big.Rat)}
}

func (r Rational) Inverse() Rational {
	if r.IsZero() {
		return r
	}
	return Rational{v: new(big.Rat).Inv(r.val())}
}

// Gcd in a field is one unless both operands are zero.
func (r Rational) Gcd(o Rational) Rational {
	if r.IsZero() && o.IsZero() {
		return Rational{v: new(big.Rat)}
	}
	return Rational{v: big.NewRat(1, 1)}
}

func (r Rational) Egcd(o Rational) (g, s, t Rational) {
	zero := Rational{v: new(big.Rat)}
	switch {
	case !r.IsZero():
		return Rational{v: big.NewRat(1, 1)}, r.Inverse(), zero
	case !o.IsZero():
		return Rational{v: big.NewRat(1, 1)}, zero, o.Inverse()
	default:
		return zero, zero, zero
	}
}

func (r Rational) String() string { return r.val().RatString() }

// RationalField is the factory of Rational.
type RationalField struct{}

// Rationals is the shared rational field factory.
var Rationals RationalField

func (RationalField) Zero() Rational { return Rational{v: new(big.Rat)} }
func (RationalField) One() Rational { return Rational{v: big.NewRat(1, 1)} }
func (RationalField) FromInt64(v int64) Rational { return Rational{v: big.NewRat(v, 1)} }
func (RationalField) IsField() bool { return true }
func (RationalField) Characteristic() *big.Int { return new(big.Int) }
func (RationalField) String() string { return "QQ" }

// Parse accepts integers, fractions "a/b" and decimals.
func (RationalField) Parse(s string) (Rational, error) {
	v, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return Rational{}, fmt.Errorf("%w: %q", ErrParse, s)
	}
	return Rational{v: v}, nil
}
