// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pairs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/groebner/services/gb/poly"
)

func TestQueue_FirstElementHasNoPairs(t *testing.T) {
	q := NewQueue(poly.Lex, AllCriteria)
	assert.Equal(t, 0, q.Append(poly.ExpVector{1, 0}))
	assert.False(t, q.HasNext())

	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestQueue_PairsEveryPriorIndex(t *testing.T) {
	q := NewQueue(poly.DegRevLex, Criteria{})
	q.Append(poly.ExpVector{2, 0})
	q.Append(poly.ExpVector{1, 1})
	q.Append(poly.ExpVector{0, 3})

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 3, q.Size())

	var got [][2]int
	for {
		p, ok := q.Pop()
		if !ok {
			break
		}
		assert.Less(t, p.I, p.J)
		got = append(got, p.Key())
	}
	// lcm degrees: (0,1)=3, (0,2)=5, (1,2)=4
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}, {0, 2}}, got)
	assert.Equal(t, 3, q.Stats().Popped)
}

func TestQueue_ProductCriterion(t *testing.T) {
	q := NewQueue(poly.Lex, AllCriteria)
	q.Append(poly.ExpVector{2, 0})
	q.Append(poly.ExpVector{0, 3})

	assert.False(t, q.HasNext())
	st := q.Stats()
	assert.Equal(t, 1, st.Eliminated)
	assert.Equal(t, 0, st.Put)
}

func TestQueue_ChainCriterion(t *testing.T) {
	q := NewQueue(poly.DegRevLex, Criteria{Chain: true})
	q.Append(poly.ExpVector{1, 1, 0}) // 0: x y
	q.Append(poly.ExpVector{0, 1, 1}) // 1: y z
	q.Append(poly.ExpVector{0, 1, 0}) // 2: y

	// (0,2) and (1,2) have lcm degree 2 and are popped first.
	for range 2 {
		p, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, 2, p.J)
		q.Done(p)
	}

	// y divides lcm(x y, y z) and both chain pairs are done.
	_, ok := q.Pop()
	assert.False(t, ok)
	assert.Equal(t, 1, q.Stats().Skipped)
}

func TestQueue_ChainCriterionWaitsForDone(t *testing.T) {
	q := NewQueue(poly.DegRevLex, Criteria{Chain: true})
	q.Append(poly.ExpVector{1, 1, 0})
	q.Append(poly.ExpVector{0, 1, 1})
	q.Append(poly.ExpVector{0, 1, 0})

	// Pop the two chain pairs without completing them.
	for range 2 {
		_, ok := q.Pop()
		require.True(t, ok)
	}
	p, ok := q.Pop()
	require.True(t, ok, "in-flight pairs must not justify elimination")
	assert.Equal(t, [2]int{0, 1}, p.Key())
}

func TestQueue_Requeue(t *testing.T) {
	q := NewQueue(poly.Lex, Criteria{})
	q.Append(poly.ExpVector{1})
	q.Append(poly.ExpVector{2})

	p, ok := q.Pop()
	require.True(t, ok)
	assert.False(t, q.HasNext())

	q.Requeue(p)
	again, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, p.Key(), again.Key())
	assert.Equal(t, 1, q.Stats().Requeued)
}

func TestQueue_ConcurrentAppendAndPop(t *testing.T) {
	q := NewQueue(poly.DegLex, Criteria{})
	const n = 40

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.Append(poly.ExpVector{i % 5, i % 7})
		}(i)
	}
	wg.Wait()

	seen := make(map[[2]int]bool)
	var mu sync.Mutex
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				p, ok := q.Pop()
				if !ok {
					return
				}
				mu.Lock()
				assert.False(t, seen[p.Key()], "pair %v handed out twice", p)
				seen[p.Key()] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n*(n-1)/2)
}
