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
	"fmt"

	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

// =============================================================================
// Verification
// =============================================================================

// IsGB reports whether g is a Groebner basis for v: every critical
// polynomial of every pair reduces to zero, and variants with structural
// requirements (Boolean closure) accept g.
func IsGB[C ring.Element[C]](v Variant[C], g []*poly.Polynomial[C]) bool {
	g = nonZero(g...)
	if c, ok := v.(closedChecker[C]); ok && !c.IsClosed(g) {
		return false
	}
	red := v.Reducer()
	for i := range g {
		for j := i + 1; j < len(g); j++ {
			for _, c := range v.Critical(g[i], g[j]) {
				if !red.Normalform(g, c).IsZero() {
					return false
				}
			}
		}
	}
	return true
}

// IsMinimalGB reports whether g is a Groebner basis for v in which no
// leading exponent divides another and every element is irreducible by
// the others. Only meaningful for the field, pseudo and solvable variants.
func IsMinimalGB[C ring.Element[C]](v Variant[C], g []*poly.Polynomial[C]) bool {
	if !IsGB(v, g) {
		return false
	}
	red := v.Reducer()
	for i, p := range g {
		if p.IsZero() {
			return false
		}
		others := make([]*poly.Polynomial[C], 0, len(g)-1)
		others = append(others, g[:i]...)
		others = append(others, g[i+1:]...)
		for _, q := range others {
			if q.LeadingExp().Divides(p.LeadingExp()) {
				return false
			}
		}
		if !red.IsNormalform(others, p.Reductum()) {
			return false
		}
	}
	return true
}

// ContainsAll reports whether every element of h reduces to zero modulo
// the Groebner basis g, that is whether ideal(h) is contained in
// ideal(g).
func ContainsAll[C ring.Element[C]](v Variant[C], g, h []*poly.Polynomial[C]) bool {
	red := v.Reducer()
	for _, p := range h {
		if !red.Normalform(g, p).IsZero() {
			return false
		}
	}
	return true
}

// SameIdeal reports whether the Groebner bases a and b generate the same
// ideal.
func SameIdeal[C ring.Element[C]](v Variant[C], a, b []*poly.Polynomial[C]) bool {
	return ContainsAll(v, a, b) && ContainsAll(v, b, a)
}

// =============================================================================
// Solvable rings
// =============================================================================

// IsLeftGB reports whether g is a left Groebner basis.
func IsLeftGB[C ring.Element[C]](g []*poly.Polynomial[C]) bool {
	return IsGB[C](NewLeftVariant[C](), g)
}

// IsTwosidedGB reports whether g is a left Groebner basis such that
// x_k * p and p * x_k reduce to zero for every element p and generator
// x_k.
func IsTwosidedGB[C ring.Element[C]](g []*poly.Polynomial[C]) bool {
	v := NewTwoSidedVariant[C]()
	if !IsGB[C](v, g) {
		return false
	}
	red := v.Reducer()
	for _, p := range nonZero(g...) {
		for _, q := range v.Saturate(p) {
			if !red.Normalform(g, q).IsZero() {
				return false
			}
		}
	}
	return true
}

// LeftGB computes a minimal left Groebner basis sequentially.
func LeftGB[C ring.Element[C]](ctx context.Context, fs []*poly.Polynomial[C], opts ...Option) (*Result[C], error) {
	if err := requireSolvable(fs); err != nil {
		return nil, err
	}
	return NewSequential[C](NewLeftVariant[C](), opts...).GB(ctx, fs)
}

// TwosidedGB computes a minimal two-sided Groebner basis sequentially.
func TwosidedGB[C ring.Element[C]](ctx context.Context, fs []*poly.Polynomial[C], opts ...Option) (*Result[C], error) {
	if err := requireSolvable(fs); err != nil {
		return nil, err
	}
	return NewSequential[C](NewTwoSidedVariant[C](), opts...).GB(ctx, fs)
}

func requireSolvable[C ring.Element[C]](fs []*poly.Polynomial[C]) error {
	for _, f := range fs {
		if f != nil && !f.Ring().IsSolvable() {
			return fmt.Errorf("%w: %s", ErrNotSolvable, f.Ring())
		}
	}
	return nil
}
