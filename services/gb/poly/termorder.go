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
	"strings"
)

// TermOrder is an admissible monomial order.
type TermOrder int

const (
	// Lex compares exponents left to right.
	Lex TermOrder = iota

	// DegLex compares total degree, then Lex.
	DegLex

	// DegRevLex compares total degree, then prefers the smaller exponent
	// in the last differing variable.
	DegRevLex
)

// Compare returns +1 if a > b, -1 if a < b and 0 if they are equal.
func (o TermOrder) Compare(a, b ExpVector) int {
	if o != Lex {
		da, db := a.TotalDegree(), b.TotalDegree()
		if da != db {
			return sign(da - db)
		}
	}
	if o == DegRevLex {
		for i := len(a) - 1; i >= 0; i-- {
			if a[i] != b[i] {
				return sign(b[i] - a[i])
			}
		}
		return 0
	}
	for i := range a {
		if a[i] != b[i] {
			return sign(a[i] - b[i])
		}
	}
	return 0
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func (o TermOrder) String() string {
	switch o {
	case Lex:
		return "lex"
	case DegLex:
		return "deglex"
	case DegRevLex:
		return "degrevlex"
	default:
		return "unknown"
	}
}

// ParseTermOrder maps a name such as "lex" or "degrevlex" to a TermOrder.
func ParseTermOrder(s string) (TermOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lex", "invlex":
		return Lex, nil
	case "deglex", "grlex":
		return DegLex, nil
	case "degrevlex", "grevlex", "igrlex":
		return DegRevLex, nil
	default:
		return Lex, fmt.Errorf("%w: %q", ErrTermOrder, s)
	}
}
