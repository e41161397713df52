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
	"strings"

	"github.com/AleutianAI/groebner/services/gb/ring"
)

// Term is a single coefficient times monomial.
type Term[C ring.Element[C]] struct {
	Exp   ExpVector
	Coeff C
}

// Polynomial is an immutable sparse polynomial. Terms are sorted strictly
// descending under the ring's term order and carry nonzero coefficients.
type Polynomial[C ring.Element[C]] struct {
	ring  *Ring[C]
	terms []Term[C]
}

// Ring returns the ring of p.
func (p *Polynomial[C]) Ring() *Ring[C] { return p.ring }

func (p *Polynomial[C]) IsZero() bool { return len(p.terms) == 0 }

func (p *Polynomial[C]) IsOne() bool {
	return len(p.terms) == 1 && p.terms[0].Exp.IsZero() && p.terms[0].Coeff.IsOne()
}

// IsConstant reports whether p is zero or has only a degree 0 term.
func (p *Polynomial[C]) IsConstant() bool {
	return len(p.terms) == 0 || (len(p.terms) == 1 && p.terms[0].Exp.IsZero())
}

// IsUnit reports whether p is a constant unit.
func (p *Polynomial[C]) IsUnit() bool {
	return len(p.terms) == 1 && p.terms[0].Exp.IsZero() && p.terms[0].Coeff.IsUnit()
}

// Len returns the number of terms.
func (p *Polynomial[C]) Len() int { return len(p.terms) }

// Terms returns a copy of the term list.
func (p *Polynomial[C]) Terms() []Term[C] {
	out := make([]Term[C], len(p.terms))
	for i, t := range p.terms {
		out[i] = Term[C]{Exp: t.Exp.clone(), Coeff: t.Coeff}
	}
	return out
}

// LeadingExp returns the leading exponent vector, nil for zero.
func (p *Polynomial[C]) LeadingExp() ExpVector {
	if len(p.terms) == 0 {
		return nil
	}
	return p.terms[0].Exp
}

// LeadingCoeff returns the leading coefficient, zero for zero.
func (p *Polynomial[C]) LeadingCoeff() C {
	if len(p.terms) == 0 {
		return p.ring.coeffs.Zero()
	}
	return p.terms[0].Coeff
}

// Reductum returns p without its leading term.
func (p *Polynomial[C]) Reductum() *Polynomial[C] {
	if len(p.terms) <= 1 {
		return p.ring.Zero()
	}
	return &Polynomial[C]{ring: p.ring, terms: p.terms[1:]}
}

// Coefficient returns the coefficient of x^e in p.
func (p *Polynomial[C]) Coefficient(e ExpVector) C {
	for _, t := range p.terms {
		if t.Exp.Equal(e) {
			return t.Coeff
		}
	}
	return p.ring.coeffs.Zero()
}

// Degree returns the maximal total degree, -1 for zero.
func (p *Polynomial[C]) Degree() int {
	d := -1
	for _, t := range p.terms {
		d = max(d, t.Exp.TotalDegree())
	}
	return d
}

// Coefficients returns the coefficients in term order.
func (p *Polynomial[C]) Coefficients() []C {
	out := make([]C, len(p.terms))
	for i, t := range p.terms {
		out[i] = t.Coeff
	}
	return out
}

func (p *Polynomial[C]) Sum(q *Polynomial[C]) *Polynomial[C] {
	return p.merge(q, false)
}

func (p *Polynomial[C]) Subtract(q *Polynomial[C]) *Polynomial[C] {
	return p.merge(q, true)
}

// merge adds or subtracts two sorted term lists.
func (p *Polynomial[C]) merge(q *Polynomial[C], negate bool) *Polynomial[C] {
	a, b := p.terms, q.terms
	order := p.ring.order
	out := make([]Term[C], 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch order.Compare(a[i].Exp, b[j].Exp) {
		case 1:
			out = append(out, a[i])
			i++
		case -1:
			c := b[j].Coeff
			if negate {
				c = c.Negate()
			}
			out = append(out, Term[C]{Exp: b[j].Exp, Coeff: c})
			j++
		default:
			var c C
			if negate {
				c = a[i].Coeff.Subtract(b[j].Coeff)
			} else {
				c = a[i].Coeff.Sum(b[j].Coeff)
			}
			if !c.IsZero() {
				out = append(out, Term[C]{Exp: a[i].Exp, Coeff: c})
			}
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	for ; j < len(b); j++ {
		c := b[j].Coeff
		if negate {
			c = c.Negate()
		}
		out = append(out, Term[C]{Exp: b[j].Exp, Coeff: c})
	}
	return &Polynomial[C]{ring: p.ring, terms: out}
}

func (p *Polynomial[C]) Negate() *Polynomial[C] {
	out := make([]Term[C], len(p.terms))
	for i, t := range p.terms {
		out[i] = Term[C]{Exp: t.Exp, Coeff: t.Coeff.Negate()}
	}
	return &Polynomial[C]{ring: p.ring, terms: out}
}

// MultiplyScalar returns c*p. Terms whose product vanishes are dropped,
// which happens with zero divisors.
func (p *Polynomial[C]) MultiplyScalar(c C) *Polynomial[C] {
	if c.IsOne() {
		return p
	}
	out := make([]Term[C], 0, len(p.terms))
	for _, t := range p.terms {
		if v := t.Coeff.Multiply(c); !v.IsZero() {
			out = append(out, Term[C]{Exp: t.Exp, Coeff: v})
		}
	}
	return &Polynomial[C]{ring: p.ring, terms: out}
}

// DivideScalar divides every coefficient by c; exact only when c divides
// all coefficients.
func (p *Polynomial[C]) DivideScalar(c C) *Polynomial[C] {
	out := make([]Term[C], 0, len(p.terms))
	for _, t := range p.terms {
		if v := t.Coeff.Divide(c); !v.IsZero() {
			out = append(out, Term[C]{Exp: t.Exp, Coeff: v})
		}
	}
	return &Polynomial[C]{ring: p.ring, terms: out}
}

// MultiplyTerm returns c x^e p with commuting variables. Admissible orders
// keep the shifted terms sorted.
func (p *Polynomial[C]) MultiplyTerm(c C, e ExpVector) *Polynomial[C] {
	out := make([]Term[C], 0, len(p.terms))
	for _, t := range p.terms {
		if v := t.Coeff.Multiply(c); !v.IsZero() {
			out = append(out, Term[C]{Exp: t.Exp.Sum(e), Coeff: v})
		}
	}
	return &Polynomial[C]{ring: p.ring, terms: out}
}

// MultiplyLeft returns (c x^e) * p. In a solvable ring x^e is multiplied
// from the left using the relation table.
func (p *Polynomial[C]) MultiplyLeft(c C, e ExpVector) *Polynomial[C] {
	if !p.ring.IsSolvable() {
		return p.MultiplyTerm(c, e)
	}
	acc := newAccumulator(p.ring)
	for _, t := range p.terms {
		m := p.ring.monomialProduct(e, t.Exp)
		acc.addScaled(m, c.Multiply(t.Coeff))
	}
	return acc.polynomial()
}

// MultiplyRight returns p * (c x^e).
func (p *Polynomial[C]) MultiplyRight(c C, e ExpVector) *Polynomial[C] {
	if !p.ring.IsSolvable() {
		return p.MultiplyTerm(c, e)
	}
	acc := newAccumulator(p.ring)
	for _, t := range p.terms {
		m := p.ring.monomialProduct(t.Exp, e)
		acc.addScaled(m, t.Coeff.Multiply(c))
	}
	return acc.polynomial()
}

// Multiply returns p * q.
func (p *Polynomial[C]) Multiply(q *Polynomial[C]) *Polynomial[C] {
	acc := newAccumulator(p.ring)
	for _, s := range p.terms {
		if p.ring.IsSolvable() {
			acc.addPolynomial(q.MultiplyLeft(s.Coeff, s.Exp))
			continue
		}
		for _, t := range q.terms {
			acc.add(s.Exp.Sum(t.Exp), s.Coeff.Multiply(t.Coeff))
		}
	}
	return acc.polynomial()
}

// Monic scales p by the quasi-inverse of its leading coefficient. If that
// inverse is zero, p is returned unchanged.
func (p *Polynomial[C]) Monic() *Polynomial[C] {
	if p.IsZero() || p.LeadingCoeff().IsOne() {
		return p
	}
	inv := p.LeadingCoeff().Inverse()
	if inv.IsZero() {
		return p
	}
	return p.MultiplyScalar(inv)
}

// Abs returns p or -p, whichever has a positive leading coefficient.
func (p *Polynomial[C]) Abs() *Polynomial[C] {
	if p.LeadingCoeff().Signum() < 0 {
		return p.Negate()
	}
	return p
}

// Content returns the gcd of all coefficients.
func (p *Polynomial[C]) Content() C {
	c := p.ring.coeffs.Zero()
	for _, t := range p.terms {
		c = c.Gcd(t.Coeff)
		if c.IsOne() {
			break
		}
	}
	return c
}

// PrimitivePart divides p by its content and normalises the sign.
func (p *Polynomial[C]) PrimitivePart() *Polynomial[C] {
	if p.IsZero() {
		return p
	}
	c := p.Content()
	q := p
	if !c.IsOne() && !c.IsZero() {
		q = p.DivideScalar(c)
	}
	return q.Abs()
}

// Equal reports whether p and q have the same terms.
func (p *Polynomial[C]) Equal(q *Polynomial[C]) bool {
	if len(p.terms) != len(q.terms) {
		return false
	}
	for i, t := range p.terms {
		u := q.terms[i]
		if !t.Exp.Equal(u.Exp) || !t.Coeff.Equal(u.Coeff) {
			return false
		}
	}
	return true
}

func (p *Polynomial[C]) String() string {
	if len(p.terms) == 0 {
		return "0"
	}
	var b strings.Builder
	for i, t := range p.terms {
		c := t.Coeff
		switch {
		case c.Signum() < 0:
			if i == 0 {
				b.WriteString("-")
			} else {
				b.WriteString(" - ")
			}
			c = c.Negate()
		case i > 0:
			b.WriteString(" + ")
		}
		mono := t.Exp.Format(p.ring.vars)
		switch {
		case t.Exp.IsZero():
			b.WriteString(c.String())
		case c.IsOne():
			b.WriteString(mono)
		default:
			b.WriteString(c.String())
			b.WriteString(" ")
			b.WriteString(mono)
		}
	}
	return b.String()
}
