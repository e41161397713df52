// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package poly implements sparse multivariate polynomials over the
// coefficient rings of package ring.
//
// # Description
//
// A Polynomial is an immutable list of terms sorted strictly descending
// under the term order of its Ring. Rings optionally carry a
// RelationTable, which turns them into solvable (noncommutative) rings:
// products of generators then follow the tabulated commutation relations.
//
// Variable 0 is the largest variable in every term order.
//
// # Thread Safety
//
// Polynomials and Rings are safe for concurrent use. RelationTable guards
// its entries with a RWMutex and is only written by Update and Extend.
package poly

import (
	"strconv"
	"strings"
)

// ExpVector is a dense exponent vector. Values are treated as immutable
// once they are part of a Polynomial.
type ExpVector []int

// NewExpVector returns the zero vector of length n.
func NewExpVector(n int) ExpVector {
	return make(ExpVector, n)
}

// UnitExp returns the exponent vector of x_i^deg in n variables.
func UnitExp(n, i, deg int) ExpVector {
	e := make(ExpVector, n)
	e[i] = deg
	return e
}

func (e ExpVector) clone() ExpVector {
	return append(ExpVector(nil), e...)
}

// Sum returns e + f.
func (e ExpVector) Sum(f ExpVector) ExpVector {
	out := make(ExpVector, len(e))
	for i := range e {
		out[i] = e[i] + f[i]
	}
	return out
}

// Subtract returns e - f. The caller guarantees f divides e.
func (e ExpVector) Subtract(f ExpVector) ExpVector {
	out := make(ExpVector, len(e))
	for i := range e {
		out[i] = e[i] - f[i]
	}
	return out
}

// Divides reports whether x^e divides x^f.
func (e ExpVector) Divides(f ExpVector) bool {
	for i := range e {
		if e[i] > f[i] {
			return false
		}
	}
	return true
}

// Lcm returns the componentwise maximum.
func (e ExpVector) Lcm(f ExpVector) ExpVector {
	out := make(ExpVector, len(e))
	for i := range e {
		out[i] = max(e[i], f[i])
	}
	return out
}

// Gcd returns the componentwise minimum.
func (e ExpVector) Gcd(f ExpVector) ExpVector {
	out := make(ExpVector, len(e))
	for i := range e {
		out[i] = min(e[i], f[i])
	}
	return out
}

// IsCoprime reports whether e and f share no variable.
func (e ExpVector) IsCoprime(f ExpVector) bool {
	for i := range e {
		if e[i] > 0 && f[i] > 0 {
			return false
		}
	}
	return true
}

// TotalDegree returns the sum of the exponents.
func (e ExpVector) TotalDegree() int {
	d := 0
	for _, v := range e {
		d += v
	}
	return d
}

func (e ExpVector) IsZero() bool {
	for _, v := range e {
		if v != 0 {
			return false
		}
	}
	return true
}

func (e ExpVector) Equal(f ExpVector) bool {
	if len(e) != len(f) {
		return false
	}
	for i := range e {
		if e[i] != f[i] {
			return false
		}
	}
	return true
}

// FirstVar returns the smallest index with a positive exponent, or -1.
func (e ExpVector) FirstVar() int {
	for i, v := range e {
		if v != 0 {
			return i
		}
	}
	return -1
}

// LastVar returns the largest index with a positive exponent, or -1.
func (e ExpVector) LastVar() int {
	for i := len(e) - 1; i >= 0; i-- {
		if e[i] != 0 {
			return i
		}
	}
	return -1
}

// key is a compact map key for e.
func (e ExpVector) key() string {
	b := make([]byte, 0, 2*len(e))
	for _, v := range e {
		b = strconv.AppendInt(b, int64(v), 36)
		b = append(b, ',')
	}
	return string(b)
}

// Format renders x^e with the given variable names, "1" for the zero vector.
func (e ExpVector) Format(vars []string) string {
	var parts []string
	for i, v := range e {
		switch {
		case v == 0:
		case v == 1:
			parts = append(parts, vars[i])
		default:
			parts = append(parts, vars[i]+"^"+strconv.Itoa(v))
		}
	}
	if len(parts) == 0 {
		return "1"
	}
	return strings.Join(parts, " ")
}

func (e ExpVector) String() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = strconv.Itoa(v)
	}
	return "(" + strings.Join(parts, ",") + ")"
}
