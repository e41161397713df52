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
	"strconv"
	"strings"
	"unicode"

	"github.com/AleutianAI/groebner/services/gb/ring"
)

type tokenKind int

const (
	tokEnd tokenKind = iota
	tokNumber
	tokIdent
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func tokenize(s string) ([]token, error) {
	var toks []token
	rs := []rune(s)
	for i := 0; i < len(rs); {
		c := rs[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case unicode.IsDigit(c):
			j := i
			for j < len(rs) && unicode.IsDigit(rs[j]) {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: string(rs[i:j]), pos: i})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[i:j]), pos: i})
			i = j
		case c == '*' && i+1 < len(rs) && rs[i+1] == '*':
			toks = append(toks, token{kind: tokOp, text: "^", pos: i})
			i += 2
		case strings.ContainsRune("+-*/^(),", c):
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		default:
			return nil, fmt.Errorf("%w: unexpected %q at %d", ErrParse, c, i)
		}
	}
	return append(toks, token{kind: tokEnd, pos: len(rs)}), nil
}

// Parse reads a polynomial expression such as "3 x^2 - 2 x*y".
//
// Description:
//
//	Supports + - * / ^ (or **) and parentheses. Juxtaposition means
//	multiplication. Division is only allowed by nonzero constants.
//	Integer literals are read by the coefficient factory, so "33/50" is
//	an exact rational over QQ. A parenthesized list with commas, such as
//	"(1, -1/2, 0)", is handed to the factory as one coefficient literal
//	for product rings. Products honour the relation table.
//
// Outputs:
//
//	*Polynomial[C] - The parsed polynomial.
//	error - ErrParse or ErrUnknownVariable on malformed input.
func (r *Ring[C]) Parse(s string) (*Polynomial[C], error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	ps := &polyParser[C]{r: r, toks: toks, src: []rune(s)}
	p, err := ps.expr()
	if err != nil {
		return nil, err
	}
	if t := ps.peek(); t.kind != tokEnd {
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrParse, t.text, t.pos)
	}
	return p, nil
}

// ParseList parses every expression in exprs.
func (r *Ring[C]) ParseList(exprs ...string) ([]*Polynomial[C], error) {
	out := make([]*Polynomial[C], 0, len(exprs))
	for i, e := range exprs {
		p, err := r.Parse(e)
		if err != nil {
			return nil, fmt.Errorf("polynomial %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

type polyParser[C ring.Element[C]] struct {
	r    *Ring[C]
	toks []token
	src  []rune
	pos  int
}

func (ps *polyParser[C]) peek() token { return ps.toks[ps.pos] }

func (ps *polyParser[C]) next() token {
	t := ps.toks[ps.pos]
	if t.kind != tokEnd {
		ps.pos++
	}
	return t
}

func (ps *polyParser[C]) isOp(text string) bool {
	t := ps.peek()
	return t.kind == tokOp && t.text == text
}

// expr := ['+'|'-'] term { ('+'|'-') term }
func (ps *polyParser[C]) expr() (*Polynomial[C], error) {
	negate := false
	if ps.isOp("+") || ps.isOp("-") {
		negate = ps.next().text == "-"
	}
	acc, err := ps.term()
	if err != nil {
		return nil, err
	}
	if negate {
		acc = acc.Negate()
	}
	for ps.isOp("+") || ps.isOp("-") {
		op := ps.next().text
		t, err := ps.term()
		if err != nil {
			return nil, err
		}
		if op == "+" {
			acc = acc.Sum(t)
		} else {
			acc = acc.Subtract(t)
		}
	}
	return acc, nil
}

// term := power { ['*' | '/'] power }
func (ps *polyParser[C]) term() (*Polynomial[C], error) {
	acc, err := ps.power()
	if err != nil {
		return nil, err
	}
	for {
		t := ps.peek()
		switch {
		case t.kind == tokOp && t.text == "*":
			ps.next()
			f, err := ps.power()
			if err != nil {
				return nil, err
			}
			acc = acc.Multiply(f)
		case t.kind == tokOp && t.text == "/":
			ps.next()
			f, err := ps.power()
			if err != nil {
				return nil, err
			}
			if !f.IsConstant() || f.IsZero() {
				return nil, fmt.Errorf("%w: division by non-constant %v at %d", ErrParse, f, t.pos)
			}
			acc = acc.DivideScalar(f.LeadingCoeff())
		case t.kind == tokNumber || t.kind == tokIdent || (t.kind == tokOp && t.text == "("):
			f, err := ps.power()
			if err != nil {
				return nil, err
			}
			acc = acc.Multiply(f)
		default:
			return acc, nil
		}
	}
}

// power := atom [ '^' integer ]
func (ps *polyParser[C]) power() (*Polynomial[C], error) {
	base, err := ps.atom()
	if err != nil {
		return nil, err
	}
	if !ps.isOp("^") {
		return base, nil
	}
	ps.next()
	t := ps.next()
	if t.kind != tokNumber {
		return nil, fmt.Errorf("%w: exponent expected at %d", ErrParse, t.pos)
	}
	k, err := strconv.Atoi(t.text)
	if err != nil {
		return nil, fmt.Errorf("%w: exponent %q: %v", ErrParse, t.text, err)
	}
	out := ps.r.One()
	for range k {
		out = out.Multiply(base)
	}
	return out, nil
}

// atom := number | variable | '(' expr ')'
func (ps *polyParser[C]) atom() (*Polynomial[C], error) {
	t := ps.next()
	switch {
	case t.kind == tokNumber:
		c, err := ps.r.coeffs.Parse(t.text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		return ps.r.Const(c), nil
	case t.kind == tokIdent:
		return ps.r.Var(t.text)
	case t.kind == tokOp && t.text == "(":
		if end, ok := ps.tupleEnd(); ok {
			text := string(ps.src[t.pos : ps.toks[end].pos+1])
			c, err := ps.r.coeffs.Parse(text)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrParse, err)
			}
			ps.pos = end + 1
			return ps.r.Const(c), nil
		}
		p, err := ps.expr()
		if err != nil {
			return nil, err
		}
		if !ps.isOp(")") {
			return nil, fmt.Errorf("%w: missing ')' at %d", ErrParse, ps.peek().pos)
		}
		ps.next()
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrParse, t.text, t.pos)
	}
}

// tupleEnd reports whether the group opened just before the current
// token is a coefficient tuple, and returns the index of its closing
// parenthesis.
func (ps *polyParser[C]) tupleEnd() (int, bool) {
	depth, comma := 0, false
	for i := ps.pos; i < len(ps.toks); i++ {
		t := ps.toks[i]
		switch {
		case t.kind == tokEnd:
			return 0, false
		case t.kind == tokOp && t.text == "(":
			depth++
		case t.kind == tokOp && t.text == ")":
			if depth == 0 {
				return i, comma
			}
			depth--
		case t.kind == tokOp && t.text == "," && depth == 0:
			comma = true
		}
	}
	return 0, false
}
