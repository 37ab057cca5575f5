// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memory models how a learner forgets.
//
// A Memory records what has been presented and when. A Model turns that
// record plus a parameter tuple into a recall probability. Count-based
// models also implement CountModel so planners can evaluate hypothetical
// futures from presentation counts and elapsed times alone.
//
// # Models
//
//   - exp_decay: fr = α(1-β)^(n-1), p = exp(-fr·Δ)
//   - power_law: fr = α(1-β)^(n-1), p = (1+Δ)^(-fr)
//   - act_r:     a = ln Σ_j age_j^(-d), p = 1 / (1 + exp((τ-a)/s))
//
// An item never presented has recall probability 0 under every model.
package memory

import (
	"fmt"
	"math"
	"slices"
)

// Epsilon is the clamp applied to probabilities before taking logarithms.
const Epsilon = 2.220446049250313e-16

// Memory is the presentation record of every item.
//
// Memory is not safe for concurrent mutation. Readers may share a Memory
// while nothing calls Update.
type Memory struct {
	presentations []int
	last          []float64
	times         [][]float64
}

// New creates an empty record for nItem items.
func New(nItem int) *Memory {
	return &Memory{
		presentations: make([]int, nItem),
		last:          make([]float64, nItem),
		times:         make([][]float64, nItem),
	}
}

// NItem returns the number of items.
func (m *Memory) NItem() int { return len(m.presentations) }

// Presentations returns how many times item was presented.
func (m *Memory) Presentations(item int) int { return m.presentations[item] }

// LastPresented returns the time of the most recent presentation of item.
// Meaningless when the item was never presented.
func (m *Memory) LastPresented(item int) float64 { return m.last[item] }

// Times returns every presentation time of item. The slice is shared.
func (m *Memory) Times(item int) []float64 { return m.times[item] }

// Seen reports whether item was presented at least once.
func (m *Memory) Seen(item int) bool { return m.presentations[item] > 0 }

// Delta returns the time elapsed since item was last presented.
func (m *Memory) Delta(item int, now float64) float64 { return now - m.last[item] }

// NSeen returns the number of distinct items presented so far.
func (m *Memory) NSeen() int {
	n := 0
	for _, c := range m.presentations {
		if c > 0 {
			n++
		}
	}
	return n
}

// Update records a presentation of item at now.
//
// Panics when item is out of range; callers choose items from the
// possible-action set, so an out-of-range item is a logic fault.
func (m *Memory) Update(item int, now float64) {
	if item < 0 || item >= len(m.presentations) {
		panic(fmt.Sprintf("memory: item %d out of range [0,%d)", item, len(m.presentations)))
	}
	m.presentations[item]++
	m.last[item] = now
	m.times[item] = append(m.times[item], now)
}

// Reset forgets every presentation.
func (m *Memory) Reset() {
	for i := range m.presentations {
		m.presentations[i] = 0
		m.last[i] = 0
		m.times[i] = nil
	}
}

// Clone returns a deep copy.
func (m *Memory) Clone() *Memory {
	c := &Memory{
		presentations: slices.Clone(m.presentations),
		last:          slices.Clone(m.last),
		times:         make([][]float64, len(m.times)),
	}
	for i, ts := range m.times {
		c.times[i] = slices.Clone(ts)
	}
	return c
}

// Counts returns a copy of the per-item presentation counts.
func (m *Memory) Counts() []int { return slices.Clone(m.presentations) }

// Deltas returns the per-item elapsed time at now. Unseen items report 0.
func (m *Memory) Deltas(now float64) []float64 {
	d := make([]float64, len(m.last))
	for i := range d {
		if m.presentations[i] > 0 {
			d[i] = now - m.last[i]
		}
	}
	return d
}

// LogLikelihood returns log P(success | p) with p clamped to
// [Epsilon, 1-Epsilon].
func LogLikelihood(p float64, success bool) float64 {
	p = math.Min(math.Max(p, Epsilon), 1-Epsilon)
	if success {
		return math.Log(p)
	}
	return math.Log1p(-p)
}
