// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStream_SameSeedSameSequence(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 100; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("sequences diverged at draw %d", i)
		}
	}
}

func TestStream_DifferentSeeds(t *testing.T) {
	a := New(1)
	b := New(2)
	same := 0
	for i := 0; i < 20; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	assert.Less(t, same, 20)
}

func TestStream_SplitIgnoresParentPosition(t *testing.T) {
	parent := New(7)
	before := parent.Split(3).Float64()
	for i := 0; i < 50; i++ {
		parent.Float64()
	}
	after := parent.Split(3).Float64()
	assert.Equal(t, before, after)
}

func TestStream_SplitIdsDiffer(t *testing.T) {
	parent := New(7)
	assert.NotEqual(t, parent.Split(0).Float64(), parent.Split(1).Float64())
	assert.NotEqual(t, parent.Split(0).Seed(), parent.Seed())
}

func TestStream_ChildAdvancesParent(t *testing.T) {
	a, b := New(11), New(11)
	first, second := a.Child(), a.Child()
	assert.NotEqual(t, first.Seed(), second.Seed())
	assert.Equal(t, first.Seed(), b.Child().Seed())
}

func TestStream_Ranges(t *testing.T) {
	s := New(99)
	for i := 0; i < 1000; i++ {
		f := s.Float64()
		if f < 0 || f >= 1 {
			t.Fatalf("Float64 out of range: %v", f)
		}
		n := s.IntN(5)
		if n < 0 || n >= 5 {
			t.Fatalf("IntN out of range: %d", n)
		}
	}
	assert.False(t, s.Bernoulli(0))
	assert.True(t, s.Bernoulli(1))
	assert.Contains(t, []int{4, 8}, s.Pick([]int{4, 8}))
}
