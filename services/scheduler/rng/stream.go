// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rng provides explicit, seedable random streams.
//
// Every consumer of randomness in the scheduler receives a *Stream instead of
// reaching for a global source. A stream can be split into independent child
// streams by id, which lets parallel workers draw numbers without sharing
// state while keeping whole runs reproducible for a given seed.
//
// # Thread Safety
//
// A Stream is NOT safe for concurrent use. Split the stream and hand each
// goroutine its own child.
package rng

import (
	"math/rand/v2"
)

// golden is the 64-bit golden ratio increment used by splitmix64.
const golden = 0x9e3779b97f4a7c15

// Stream is a deterministic pseudo-random source.
type Stream struct {
	seed uint64
	r    *rand.Rand
}

// New creates a stream seeded with seed.
func New(seed uint64) *Stream {
	return &Stream{
		seed: seed,
		r:    rand.New(rand.NewPCG(seed, mix(seed+golden))),
	}
}

// Seed returns the seed the stream was created with.
func (s *Stream) Seed() uint64 {
	return s.seed
}

// Split derives a child stream from the stream's seed and id.
//
// Split does not consume numbers from the parent, so the same (seed, id)
// pair always yields the same child regardless of how far the parent has
// advanced. Distinct ids give statistically independent children.
func (s *Stream) Split(id uint64) *Stream {
	return New(mix(s.seed ^ mix(id+golden)))
}

// Child consumes one draw from the stream and returns a new stream seeded
// from it. Unlike Split, successive calls return different children.
func (s *Stream) Child() *Stream {
	return New(mix(s.r.Uint64()))
}

// Float64 returns a uniform number in [0, 1).
func (s *Stream) Float64() float64 {
	return s.r.Float64()
}

// IntN returns a uniform integer in [0, n). It panics if n <= 0.
func (s *Stream) IntN(n int) int {
	return s.r.IntN(n)
}

// Bernoulli returns true with probability p.
func (s *Stream) Bernoulli(p float64) bool {
	return s.r.Float64() < p
}

// Pick returns a uniformly chosen element of choices. It panics on an empty
// slice.
func (s *Stream) Pick(choices []int) int {
	return choices[s.r.IntN(len(choices))]
}

// mix is the splitmix64 finalizer.
func mix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
