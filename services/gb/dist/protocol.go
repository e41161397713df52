// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dist runs a Groebner basis computation across processes.
//
// # Description
//
// A Coordinator owns the canonical basis and pair queue. Workers connect
// over a websocket, receive the ring setup and the basis, and pull tasks
// one at a time. A task is either a critical pair or a fed-back
// polynomial; the worker reduces it against its cached basis and returns
// the nonzero remainders together with the basis length it used. The
// coordinator reduces a remainder again if its basis has grown since,
// then appends it and hands the new elements to workers with their next
// task. Tasks held by a worker that disconnects or exceeds the pair
// timeout are requeued.
//
// # Protocol
//
//	worker                      coordinator
//	hello          ------>
//	               <------      setup
//	pair_request   ------>
//	               <------      basis (only when it grew), pair_reply
//	result         ------>
//	pair_request   ------>
//	               <------      no_work_yet | terminate
//
// Every message is one JSON object.
package dist

import (
	"fmt"

	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

// MessageType tags a protocol message.
type MessageType string

const (
	MsgHello       MessageType = "hello"
	MsgSetup       MessageType = "setup"
	MsgPairRequest MessageType = "pair_request"
	MsgPairReply   MessageType = "pair_reply"
	MsgNoWorkYet   MessageType = "no_work_yet"
	MsgTerminate   MessageType = "terminate"
	MsgBasis       MessageType = "basis"
	MsgResult      MessageType = "result"
)

// TaskKind distinguishes the two kinds of work in a pair reply.
type TaskKind string

const (
	TaskPair TaskKind = "pair"
	TaskPoly TaskKind = "poly"
)

// WireTerm is one term on the wire. Coefficients travel in their
// canonical string form.
type WireTerm struct {
	Exp   []int  `json:"e"`
	Coeff string `json:"c"`
}

// WirePolynomial is a polynomial on the wire, terms in descending order.
type WirePolynomial struct {
	Terms []WireTerm `json:"t"`
}

// Message is the single envelope of the protocol. Fields are used
// according to Type.
type Message struct {
	Type MessageType `json:"type"`

	// hello
	WorkerID string `json:"worker_id,omitempty"`

	// setup
	Ring    string `json:"ring,omitempty"`
	Variant string `json:"variant,omitempty"`

	// basis: elements From, From+1, ...
	From  int              `json:"from,omitempty"`
	Polys []WirePolynomial `json:"polys,omitempty"`

	// pair_reply and result
	TaskID uint64          `json:"task_id,omitempty"`
	Kind   TaskKind        `json:"kind,omitempty"`
	I      int             `json:"i,omitempty"`
	J      int             `json:"j,omitempty"`
	Poly   *WirePolynomial `json:"poly,omitempty"`

	// result: remainders live in Polys
	BasisLen int `json:"basis_len,omitempty"`
	Reduced  int `json:"reduced,omitempty"`

	// terminate
	Reason string `json:"reason,omitempty"`
}

// Encode converts p to its wire form.
func Encode[C ring.Element[C]](p *poly.Polynomial[C]) WirePolynomial {
	terms := p.Terms()
	w := WirePolynomial{Terms: make([]WireTerm, len(terms))}
	for i, t := range terms {
		w.Terms[i] = WireTerm{Exp: []int(t.Exp), Coeff: t.Coeff.String()}
	}
	return w
}

// EncodeList converts every element of ps.
func EncodeList[C ring.Element[C]](ps []*poly.Polynomial[C]) []WirePolynomial {
	out := make([]WirePolynomial, len(ps))
	for i, p := range ps {
		out[i] = Encode(p)
	}
	return out
}

// Decode parses w as a polynomial of r.
func Decode[C ring.Element[C]](r *poly.Ring[C], w WirePolynomial) (*poly.Polynomial[C], error) {
	terms := make([]poly.Term[C], 0, len(w.Terms))
	for _, t := range w.Terms {
		if len(t.Exp) != r.NumVars() {
			return nil, fmt.Errorf("%w: exponent %v has %d entries, ring has %d variables",
				ErrDecode, t.Exp, len(t.Exp), r.NumVars())
		}
		for _, e := range t.Exp {
			if e < 0 {
				return nil, fmt.Errorf("%w: negative exponent in %v", ErrDecode, t.Exp)
			}
		}
		c, err := r.Coefficients().Parse(t.Coeff)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		terms = append(terms, poly.Term[C]{Exp: poly.ExpVector(t.Exp), Coeff: c})
	}
	return r.FromTerms(terms), nil
}

// DecodeList parses every element of ws.
func DecodeList[C ring.Element[C]](r *poly.Ring[C], ws []WirePolynomial) ([]*poly.Polynomial[C], error) {
	out := make([]*poly.Polynomial[C], len(ws))
	for i, w := range ws {
		p, err := Decode(r, w)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
