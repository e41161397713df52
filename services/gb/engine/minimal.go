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
	"slices"

	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

type normalformFunc[C ring.Element[C]] func(basis []*poly.Polynomial[C], f *poly.Polynomial[C]) *poly.Polynomial[C]

// tailReducer reduces everything below the leading term of f. It keeps
// strong bases strong when the reducer could also touch the leading
// coefficient.
func tailReducer[C ring.Element[C]](nf normalformFunc[C]) normalformFunc[C] {
	return func(basis []*poly.Polynomial[C], f *poly.Polynomial[C]) *poly.Polynomial[C] {
		if f.IsZero() {
			return f
		}
		lead := f.Ring().Monomial(f.LeadingCoeff(), f.LeadingExp())
		return lead.Sum(nf(basis, f.Reductum()))
	}
}

// minimize drops every element made redundant by another, interreduces
// the survivors with tail and applies normalize. A nil tail or normalize
// skips that step. The result is sorted by ascending leading term.
func minimize[C ring.Element[C]](
	g []*poly.Polynomial[C],
	redundant func(g, h *poly.Polynomial[C]) bool,
	tail normalformFunc[C],
	normalize func(*poly.Polynomial[C]) *poly.Polynomial[C],
) []*poly.Polynomial[C] {
	out := make([]*poly.Polynomial[C], 0, len(g))
	for _, p := range g {
		if !p.IsZero() {
			out = append(out, p)
		}
	}

	// Drop one element at a time so that one of two equivalent elements
	// survives.
	for i := 0; i < len(out); {
		drop := false
		for j, h := range out {
			if j != i && redundant(out[i], h) {
				drop = true
				break
			}
		}
		if drop {
			out = slices.Delete(out, i, i+1)
			continue
		}
		i++
	}

	if tail != nil {
		for i := range out {
			others := make([]*poly.Polynomial[C], 0, len(out)-1)
			others = append(others, out[:i]...)
			others = append(others, out[i+1:]...)
			out[i] = tail(others, out[i])
		}
	}
	if normalize != nil {
		for i := range out {
			out[i] = normalize(out[i])
		}
	}
	sortByLead(out)
	return out
}

// sortByLead orders polynomials by ascending leading term.
func sortByLead[C ring.Element[C]](ps []*poly.Polynomial[C]) {
	if len(ps) == 0 {
		return
	}
	order := ps[0].Ring().Order()
	slices.SortStableFunc(ps, func(a, b *poly.Polynomial[C]) int {
		return order.Compare(a.LeadingExp(), b.LeadingExp())
	})
}
