// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package belief

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/AleutianAI/mnemo/services/scheduler/grid"
	"github.com/AleutianAI/mnemo/services/scheduler/memory"
)

func newTestEngine(t *testing.T, resolution int, opts ...Option) *Engine {
	t.Helper()
	g, err := grid.New([]string{"alpha", "beta"}, []grid.Bound{{Low: 0.001, High: 0.2}, {Low: 0, High: 0.5}}, resolution)
	require.NoError(t, err)
	e, err := New(memory.Exponential{}, g, 3, opts...)
	require.NoError(t, err)
	return e
}

func assertNormalized(t *testing.T, lp []float64) {
	t.Helper()
	if lse := floats.LogSumExp(lp); math.Abs(lse) > 1e-9 {
		t.Errorf("log-posterior not normalized: logsumexp = %v", lse)
	}
}

func TestEngine_UniformPrior(t *testing.T) {
	e := newTestEngine(t, 5)
	lp := e.LogPosterior(0)
	assertNormalized(t, lp)
	for _, v := range lp {
		assert.InDelta(t, -math.Log(25), v, 1e-12)
	}
}

func TestEngine_StaysNormalized(t *testing.T) {
	e := newTestEngine(t, 10)
	mem := memory.New(3)
	now := 0.0
	for step := 0; step < 30; step++ {
		item := step % 3
		e.Update(mem, item, step%4 != 0, now)
		mem.Update(item, now)
		now++
		assertNormalized(t, e.LogPosterior(item))
	}
}

func TestEngine_TwoPointPosterior(t *testing.T) {
	g, err := grid.FromPoints([]string{"alpha", "beta"}, [][]float64{{0.1, 0.2}, {0.3, 0.4}})
	require.NoError(t, err)
	e, err := New(memory.Exponential{}, g, 1)
	require.NoError(t, err)

	require.NoError(t, e.UpdateLogLikelihood(0, []float64{math.Log(0.9), math.Log(0.1)}))

	post := e.Posterior(0)
	assert.InDelta(t, 0.9, post[0], 1e-12)
	assert.InDelta(t, 0.1, post[1], 1e-12)

	mean := e.PosteriorMean()
	assert.InDelta(t, 0.9*0.1+0.1*0.3, mean[0], 1e-12)
	assert.InDelta(t, 0.9*0.2+0.1*0.4, mean[1], 1e-12)

	std := e.PosteriorStd()
	assert.InDelta(t, math.Sqrt(0.9*0.1)*0.2, std[0], 1e-12)

	assert.ErrorIs(t, e.UpdateLogLikelihood(0, []float64{0}), ErrLikelihoodLength)
}

func TestEngine_DegenerateEvidence(t *testing.T) {
	e := newTestEngine(t, 4)
	ll := make([]float64, e.Grid().Len())
	for i := range ll {
		ll[i] = math.Log(memory.Epsilon)
	}
	require.NoError(t, e.UpdateLogLikelihood(0, ll))
	assertNormalized(t, e.LogPosterior(0))
}

func TestEngine_ItemSpecific(t *testing.T) {
	e := newTestEngine(t, 5, WithItemSpecific(true))
	mem := memory.New(3)
	mem.Update(1, 0)

	before := e.LogPosterior(2)
	e.Update(mem, 1, false, 5)

	assert.Equal(t, before, e.LogPosterior(2))
	assert.NotEqual(t, before, e.LogPosterior(1))
	assertNormalized(t, e.LogPosterior(1))

	pe := e.PointEstimate()
	require.True(t, pe.ItemSpecific())
	assert.Len(t, pe.PerItem, 3)
}

func TestEngine_ParallelMatchesSerial(t *testing.T) {
	serial := newTestEngine(t, 20, WithParallelism(1<<30, 1))
	parallel := newTestEngine(t, 20, WithParallelism(10, 3))

	mem := memory.New(3)
	mem.Update(0, 0)
	mem.Update(0, 2)
	serial.Update(mem, 0, true, 7)
	parallel.Update(mem, 0, true, 7)

	s, p := serial.LogPosterior(0), parallel.LogPosterior(0)
	for i := range s {
		assert.InDelta(t, s[i], p[i], 1e-12)
	}
}

func TestEngine_ModelDimensionMismatch(t *testing.T) {
	g, err := grid.New([]string{"alpha", "beta"}, []grid.Bound{{Low: 0, High: 1}, {Low: 0, High: 1}}, 3)
	require.NoError(t, err)
	_, err = New(memory.ACTR{}, g, 2)
	assert.ErrorIs(t, err, grid.ErrInvalidGrid)
}

func TestEngine_Confident(t *testing.T) {
	g, err := grid.FromPoints([]string{"alpha", "beta"}, [][]float64{{0.1, 0.2}, {0.3, 0.4}})
	require.NoError(t, err)
	e, err := New(memory.Exponential{}, g, 1)
	require.NoError(t, err)
	assert.False(t, e.Confident(0.1))

	require.NoError(t, e.UpdateLogLikelihood(0, []float64{0, math.Log(memory.Epsilon)}))
	assert.True(t, e.Confident(0.1))
}

func TestEngine_MostInformativeItem(t *testing.T) {
	e := newTestEngine(t, 8)
	mem := memory.New(3)
	mem.Update(1, 0)

	// Unseen items carry no information; the seen item does.
	assert.Equal(t, 0.0, e.InformationGain(mem, 0, 3))
	assert.Greater(t, e.InformationGain(mem, 1, 3), 0.0)
	assert.Equal(t, 1, e.MostInformativeItem(mem, []int{0, 1, 2}, 3))
	assert.Equal(t, 0, e.MostInformativeItem(mem, []int{0, 2}, 3))
}
