// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package basis provides the append-only polynomial list shared by the
// Groebner orchestrators.
//
// # Description
//
// Elements are never mutated or removed once appended, and an element's
// index is its permanent identity. Readers take the published length L
// and work on the first L elements without holding a lock; writers
// publish by appending under the mutex and bumping the atomic length.
//
// # Thread Safety
//
// Basis is safe for concurrent use.
package basis

import (
	"sync"
	"sync/atomic"

	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

// Basis is an append-only list of polynomials.
type Basis[C ring.Element[C]] struct {
	mu     sync.RWMutex
	elems  []*poly.Polynomial[C]
	length atomic.Int64
}

// New returns an empty basis.
func New[C ring.Element[C]]() *Basis[C] {
	return &Basis[C]{}
}

// Append publishes p and returns its index.
func (b *Basis[C]) Append(p *poly.Polynomial[C]) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.elems = append(b.elems, p)
	n := len(b.elems)
	b.length.Store(int64(n))
	return n - 1
}

// Len returns the published length.
func (b *Basis[C]) Len() int {
	return int(b.length.Load())
}

// Get returns element i, which must be below Len.
func (b *Basis[C]) Get(i int) *poly.Polynomial[C] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.elems[i]
}

// Snapshot returns the first n published elements. The returned slice
// shares storage with the basis and must not be modified.
func (b *Basis[C]) Snapshot(n int) []*poly.Polynomial[C] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n = min(n, len(b.elems))
	return b.elems[:n:n]
}

// All returns every published element.
func (b *Basis[C]) All() []*poly.Polynomial[C] {
	return b.Snapshot(b.Len())
}
