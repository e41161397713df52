// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pairs implements the critical pair queue of Buchberger's
// algorithm.
//
// # Description
//
// Every basis element registered with Append is paired with all earlier
// elements. Pairs are handed out lowest lcm degree first. Two standard
// criteria prune pairs whose S-polynomial is known to reduce to zero:
//
//   - Product criterion: coprime leading monomials. Applied when the pair
//     is created; the pair is recorded as eliminated.
//   - Chain criterion: some basis element k has a leading monomial
//     dividing lcm(i, j) while the pairs (i, k) and (j, k) are already
//     done. Applied when the pair is popped.
//
// # Thread Safety
//
// Queue is safe for concurrent use. Pair generation and pops are
// serialized under one mutex.
package pairs

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/AleutianAI/groebner/services/gb/poly"
)

// Pair is a critical pair of basis indices I < J.
type Pair struct {
	I, J int

	// LCM is the lcm of the leading exponents of basis elements I and J.
	LCM poly.ExpVector

	// Eliminated is set when the product criterion proves the pair
	// redundant.
	Eliminated bool

	seq uint64
}

// Key identifies the pair independent of its queue metadata.
func (p Pair) Key() [2]int { return [2]int{p.I, p.J} }

func (p Pair) String() string {
	return fmt.Sprintf("(%d,%d)", p.I, p.J)
}

// Criteria selects the elimination criteria of a Queue.
type Criteria struct {
	Product bool
	Chain   bool
}

// AllCriteria enables both criteria; valid for commutative rings over
// fields and for pseudo reduction over domains.
var AllCriteria = Criteria{Product: true, Chain: true}

// Stats counts queue events.
type Stats struct {
	// Put is the number of pairs inserted into the queue.
	Put int

	// Eliminated is the number of pairs dropped by the product criterion.
	Eliminated int

	// Skipped is the number of pairs dropped by the chain criterion.
	Skipped int

	// Popped is the number of pairs handed out.
	Popped int

	// Requeued is the number of pairs returned after abandonment.
	Requeued int
}

// Queue is a lock-serialized priority queue of critical pairs.
type Queue struct {
	mu    sync.Mutex
	order poly.TermOrder
	crit  Criteria
	lms   []poly.ExpVector
	pq    pairHeap
	done  map[[2]int]bool
	seq   uint64
	stats Stats
}

// NewQueue creates an empty queue for the given term order.
func NewQueue(order poly.TermOrder, crit Criteria) *Queue {
	q := &Queue{
		order: order,
		crit:  crit,
		done:  make(map[[2]int]bool),
	}
	q.pq.order = order
	return q
}

// Append registers the leading exponent of a new basis element and pairs
// it with every earlier element. It returns the index of the element.
func (q *Queue) Append(lm poly.ExpVector) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	j := len(q.lms)
	q.lms = append(q.lms, lm)
	for i := range j {
		p := &Pair{I: i, J: j, LCM: q.lms[i].Lcm(lm), seq: q.seq}
		q.seq++
		if q.crit.Product && q.lms[i].IsCoprime(lm) {
			p.Eliminated = true
			q.done[p.Key()] = true
			q.stats.Eliminated++
			continue
		}
		heap.Push(&q.pq, p)
		q.stats.Put++
	}
	return j
}

// Pop returns the next pair, or false when the queue is empty.
func (q *Queue) Pop() (Pair, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.pq.Len() > 0 {
		p := heap.Pop(&q.pq).(*Pair)
		if q.crit.Chain && q.chainCriterion(p) {
			q.done[p.Key()] = true
			q.stats.Skipped++
			continue
		}
		q.stats.Popped++
		return *p, true
	}
	return Pair{}, false
}

// chainCriterion reports whether some k proves p redundant.
func (q *Queue) chainCriterion(p *Pair) bool {
	for k, lm := range q.lms {
		if k == p.I || k == p.J || !lm.Divides(p.LCM) {
			continue
		}
		if q.isDone(p.I, k) && q.isDone(p.J, k) {
			return true
		}
	}
	return false
}

func (q *Queue) isDone(a, b int) bool {
	if a > b {
		a, b = b, a
	}
	return q.done[[2]int{a, b}]
}

// Done marks a popped pair as completely processed: its reduced
// S-polynomial is part of the basis or was zero.
func (q *Queue) Done(p Pair) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done[p.Key()] = true
}

// Requeue returns an abandoned pair to the queue.
func (q *Queue) Requeue(p Pair) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := p
	heap.Push(&q.pq, &cp)
	q.stats.Requeued++
}

// Len returns the number of queued pairs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pq.Len()
}

// HasNext reports whether a pair is queued.
func (q *Queue) HasNext() bool { return q.Len() > 0 }

// Size returns the number of registered basis elements.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lms)
}

// Stats returns a snapshot of the counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// pairHeap orders pairs by lcm degree, then term order, then creation.
type pairHeap struct {
	order poly.TermOrder
	items []*Pair
}

func (h *pairHeap) Len() int { return len(h.items) }

func (h *pairHeap) Less(a, b int) bool {
	x, y := h.items[a], h.items[b]
	if dx, dy := x.LCM.TotalDegree(), y.LCM.TotalDegree(); dx != dy {
		return dx < dy
	}
	if c := h.order.Compare(x.LCM, y.LCM); c != 0 {
		return c < 0
	}
	return x.seq < y.seq
}

func (h *pairHeap) Swap(a, b int) { h.items[a], h.items[b] = h.items[b], h.items[a] }

func (h *pairHeap) Push(x any) { h.items = append(h.items, x.(*Pair)) }

func (h *pairHeap) Pop() any {
	n := len(h.items)
	p := h.items[n-1]
	h.items[n-1] = nil
	h.items = h.items[:n-1]
	return p
}
