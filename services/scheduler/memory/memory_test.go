// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Update(t *testing.T) {
	m := New(3)
	assert.Equal(t, 0, m.NSeen())
	assert.False(t, m.Seen(1))

	m.Update(1, 4)
	m.Update(1, 7)

	assert.Equal(t, 2, m.Presentations(1))
	assert.Equal(t, 7.0, m.LastPresented(1))
	assert.Equal(t, []float64{4, 7}, m.Times(1))
	assert.Equal(t, 1, m.NSeen())
	assert.Equal(t, 3.0, m.Delta(1, 10))
	assert.Equal(t, []float64{0, 3, 0}, m.Deltas(10))
}

func TestMemory_UpdateOutOfRangePanics(t *testing.T) {
	m := New(2)
	assert.Panics(t, func() { m.Update(2, 0) })
	assert.Panics(t, func() { m.Update(-1, 0) })
}

func TestMemory_CloneIsIndependent(t *testing.T) {
	m := New(2)
	m.Update(0, 1)
	c := m.Clone()
	c.Update(0, 2)

	assert.Equal(t, 1, m.Presentations(0))
	assert.Equal(t, 2, c.Presentations(0))
	assert.Len(t, m.Times(0), 1)

	m.Reset()
	assert.Equal(t, 0, m.NSeen())
	assert.Equal(t, 1, c.NSeen())
}

func TestExponential_FirstPresentation(t *testing.T) {
	m := New(1)
	params := []float64{0.05, 0.3}

	assert.Equal(t, 0.0, Exponential{}.RecallProbability(m, 0, params, 0))

	m.Update(0, 0)
	got := Exponential{}.RecallProbability(m, 0, params, 1)
	assert.InDelta(t, math.Exp(-0.05), got, 1e-12)
}

func TestCountModels_Monotonic(t *testing.T) {
	params := []float64{0.1, 0.2}
	for _, model := range []CountModel{Exponential{}, PowerLaw{}} {
		t.Run(string(model.Kind()), func(t *testing.T) {
			prev := 1.0
			for delta := 0.0; delta <= 50; delta += 5 {
				p := model.RecallFromCounts(2, delta, params)
				if p > prev {
					t.Errorf("recall increased with delta at %v: %v > %v", delta, p, prev)
				}
				prev = p
			}
			prev = 0
			for n := 1; n <= 10; n++ {
				p := model.RecallFromCounts(n, 10, params)
				if p < prev {
					t.Errorf("recall decreased with n at %d: %v < %v", n, p, prev)
				}
				prev = p
			}
			assert.Equal(t, 0.0, model.RecallFromCounts(0, 3, params))
		})
	}
}

func TestACTR_Recall(t *testing.T) {
	m := New(1)
	params := []float64{0.5, -0.7, 0.25}
	assert.Equal(t, 0.0, ACTR{}.RecallProbability(m, 0, params, 0))

	m.Update(0, 0)
	m.Update(0, 10)

	early := ACTR{}.RecallProbability(m, 0, params, 11)
	late := ACTR{}.RecallProbability(m, 0, params, 500)
	assert.Greater(t, early, late)
	assert.GreaterOrEqual(t, late, 0.0)
	assert.LessOrEqual(t, early, 1.0)

	// Same-step presentation: age clamps to 1.
	assert.InDelta(t, math.Log(1+math.Pow(10, -0.5)), Activation([]float64{0, 10}, 10, 0.5), 1e-12)
}

func TestLogLikelihood_Clamped(t *testing.T) {
	assert.False(t, math.IsInf(LogLikelihood(0, true), 0))
	assert.False(t, math.IsInf(LogLikelihood(1, false), 0))
	assert.InDelta(t, math.Log(0.9), LogLikelihood(0.9, true), 1e-12)
	assert.InDelta(t, math.Log(0.1), LogLikelihood(0.9, false), 1e-12)
}

func TestLogLikelihoodGrid(t *testing.T) {
	m := New(1)
	m.Update(0, 0)
	points := [][]float64{{0.01, 0.1}, {0.5, 0.1}}
	out := make([]float64, 2)
	LogLikelihoodGrid(Exponential{}, m, 0, points, true, 2, out)

	assert.InDelta(t, -0.02, out[0], 1e-12)
	assert.InDelta(t, -1.0, out[1], 1e-12)
}

func TestParams(t *testing.T) {
	global := Params{Global: []float64{1, 2}}
	assert.Equal(t, []float64{1, 2}, global.For(5))
	assert.False(t, global.ItemSpecific())
	require.NoError(t, global.Validate(2, 3))
	assert.ErrorIs(t, global.Validate(3, 3), ErrInvalidParams)

	perItem := Params{PerItem: [][]float64{{1, 2}, {3, 4}}}
	assert.Equal(t, []float64{3, 4}, perItem.For(1))
	assert.True(t, perItem.ItemSpecific())
	require.NoError(t, perItem.Validate(2, 2))
	assert.ErrorIs(t, perItem.Validate(2, 3), ErrInvalidParams)
}
