// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package policy

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/mnemo/services/scheduler/memory"
	"github.com/AleutianAI/mnemo/services/scheduler/rng"
	"github.com/AleutianAI/mnemo/services/scheduler/session"
)

var testTask = session.Task{Length: 5, Gap: 50, Step: 1, Sessions: 4}

func testOptions(nItem int) Options {
	return Options{
		Task:            testTask,
		NItem:           nItem,
		LearntThreshold: 0.9,
		Reward:          DefaultReward(),
		Leitner:         LeitnerOptions{NBox: 5, DelayMin: 2, DelayFactor: 2},
		Sampling:        SamplingOptions{NSample: 20, Horizon: 8, Workers: 4},
		MCTS:            MCTSOptions{ExplorationConstant: math.Sqrt2, Horizon: 6, Iterations: 200},
		Recursive:       RecursiveOptions{Horizon: 6},
	}
}

var testParams = memory.Params{Global: []float64{0.05, 0.3}}

func TestPossibleActions(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   []int
	}{
		{"nothing seen", []int{0, 0, 0}, []int{0}},
		{"some seen", []int{2, 0, 1, 0}, []int{0, 1, 2}},
		{"all seen", []int{1, 1, 3}, []int{0, 1, 2}},
		{"gap in seen", []int{0, 4, 0}, []int{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &PlanState{Counts: tt.counts, Deltas: make([]float64, len(tt.counts))}
			assert.Equal(t, tt.want, PossibleActions(s))
		})
	}
}

func TestPlanState_ApplyMatchesClock(t *testing.T) {
	mem := memory.New(3)
	var clock session.Clock
	s := NewPlanState(mem, clock)

	sequence := []int{0, 1, 0, 2, 2, 1, 0, 0, 1, 2, 1, 0}
	for _, item := range sequence {
		s.Apply(item, testTask)
		mem.Update(item, clock.Now)
		clock.Advance(testTask)

		assert.Equal(t, mem.Counts(), s.Counts)
		assert.Equal(t, clock.IterInSession, s.IterInSession)
		for i := range s.Deltas {
			if mem.Seen(i) {
				assert.InDelta(t, mem.Delta(i, clock.Now), s.Deltas[i], 1e-9, "item %d", i)
			}
		}
	}
}

func TestPlanState_ApplySessionGap(t *testing.T) {
	task := session.Task{Length: 2, Gap: 10, Step: 1, Sessions: 1}
	s := &PlanState{Counts: []int{1, 1}, Deltas: []float64{3, 4}}

	s.Apply(0, task)
	assert.Equal(t, []float64{1, 5}, s.Deltas)
	assert.Equal(t, 1, s.IterInSession)

	s.Apply(1, task)
	assert.Equal(t, []float64{12, 11}, s.Deltas)
	assert.Equal(t, 0, s.IterInSession)
	assert.Equal(t, []int{2, 2}, s.Counts)
}

func TestThresholdRule(t *testing.T) {
	assert.Equal(t, 0, ThresholdRule([]float64{0, 0}, []int{0, 0}, 0.9))
	// Weak seen item is reviewed.
	assert.Equal(t, 1, ThresholdRule([]float64{0.95, 0.5, 0}, []int{1, 1, 0}, 0.9))
	// Everything above threshold: introduce.
	assert.Equal(t, 2, ThresholdRule([]float64{0.95, 0.92, 0}, []int{1, 1, 0}, 0.9))
	// All seen: weakest even above threshold.
	assert.Equal(t, 1, ThresholdRule([]float64{0.99, 0.95}, []int{1, 1}, 0.9))
	// Ties go to the smallest index.
	assert.Equal(t, 0, ThresholdRule([]float64{0.5, 0.5}, []int{1, 1}, 0.9))
}

func TestReward_Bounds(t *testing.T) {
	stream := rng.New(3)
	model := memory.Exponential{}
	for _, reward := range []Reward{DefaultReward(), {Kind: RewardThreshold, Threshold: 0.9}} {
		for trial := 0; trial < 200; trial++ {
			n := 1 + stream.IntN(6)
			s := &PlanState{Counts: make([]int, n), Deltas: make([]float64, n)}
			for i := range s.Counts {
				s.Counts[i] = stream.IntN(4)
				s.Deltas[i] = stream.Float64() * 100
			}
			params := memory.Params{Global: []float64{stream.Float64() * 0.2, stream.Float64() * 0.5}}
			r := reward.Score(model, params, s)
			if r < 0 || r > 1 {
				t.Fatalf("%s reward out of range: %v", reward.Kind, r)
			}
		}
	}
}

func TestReward_Values(t *testing.T) {
	thr := Reward{Kind: RewardThreshold, Threshold: 0.9}
	assert.Equal(t, 0.25, thr.ScoreRecall([]float64{0.95, 0.5, 0.99, 0}, []int{1, 1, 0, 0}))

	sig := DefaultReward()
	assert.InDelta(t, 0.5/2, sig.ScoreRecall([]float64{0.9, 0}, []int{1, 0}), 1e-12)
	assert.Equal(t, 0.0, sig.ScoreRecall(nil, nil))

	assert.Error(t, Reward{Kind: "nope"}.Validate())
}

func TestLeitner_BoxTransitions(t *testing.T) {
	p, err := NewLeitner(nil, testOptions(2))
	require.NoError(t, err)
	l := p.(*Leitner)

	l.Notify(0, true, 10)
	assert.Equal(t, 1, l.Box(0))
	assert.Equal(t, 14.0, l.Due(0))

	l.Notify(0, true, 14)
	assert.Equal(t, 2, l.Box(0))
	l.Notify(0, false, 20)
	assert.Equal(t, 0, l.Box(0))
	assert.Equal(t, 22.0, l.Due(0))
}

func TestLeitner_ConsecutiveCorrectCapsAtLastBox(t *testing.T) {
	p, err := NewLeitner(nil, testOptions(1))
	require.NoError(t, err)
	l := p.(*Leitner)
	for n := 1; n <= 8; n++ {
		l.Notify(0, true, float64(n))
		if got, want := l.Box(0), min(n, 4); got != want {
			t.Errorf("after %d correct: box = %d, want %d", n, got, want)
		}
	}
}

func TestLeitner_Selection(t *testing.T) {
	p, err := NewLeitner(nil, testOptions(3))
	require.NoError(t, err)
	l := p.(*Leitner)
	mem := memory.New(3)
	ctx := context.Background()

	pick := func(now float64) int {
		item, err := l.SelectAction(ctx, Decision{Memory: mem, Clock: session.Clock{Now: now}})
		require.NoError(t, err)
		return item
	}

	assert.Equal(t, 0, pick(0))
	l.Notify(0, true, 0) // due 4
	assert.Equal(t, 1, pick(1))
	l.Notify(1, false, 1) // due 3

	// Item 1 due at 3, item 0 at 4: at 5 item 1 is the most overdue.
	assert.Equal(t, 1, pick(5))
	// Nothing due yet: introduce item 2.
	assert.Equal(t, 2, pick(2))

	l.Notify(2, true, 2) // due 6
	// All seen, none due: earliest due.
	assert.Equal(t, 1, pick(2.5))

	l.Reset()
	assert.Equal(t, 0, pick(100))
}

func TestLeitner_InvalidOptions(t *testing.T) {
	opts := testOptions(2)
	opts.Leitner.DelayFactor = 1
	_, err := NewLeitner(nil, opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestThreshold_SingleItem(t *testing.T) {
	p, err := NewThreshold(memory.Exponential{}, testOptions(1))
	require.NoError(t, err)
	mem := memory.New(1)

	item, err := p.SelectAction(context.Background(), Decision{Memory: mem, Params: testParams})
	require.NoError(t, err)
	assert.Equal(t, 0, item)
}

func TestThreshold_ReviewsWeakItem(t *testing.T) {
	p, err := NewThreshold(memory.Exponential{}, testOptions(3))
	require.NoError(t, err)
	mem := memory.New(3)
	mem.Update(0, 0)
	mem.Update(1, 9)

	// At t=10 item 0 has p=exp(-0.5), item 1 has p=exp(-0.05).
	item, err := p.SelectAction(context.Background(), Decision{Memory: mem, Params: testParams, Clock: session.Clock{Now: 10}})
	require.NoError(t, err)
	assert.Equal(t, 0, item)

	mem.Update(0, 10)
	item, err = p.SelectAction(context.Background(), Decision{Memory: mem, Params: testParams, Clock: session.Clock{Now: 10.5}})
	require.NoError(t, err)
	assert.Equal(t, 2, item)
}

func TestPlanningPolicies_RejectActivationModel(t *testing.T) {
	for _, ctor := range []Constructor{NewSampling, NewMCTS, NewRecursive, NewRecursiveThreshold} {
		_, err := ctor(memory.ACTR{}, testOptions(3))
		assert.ErrorIs(t, err, ErrPlanningModel)
	}
}

func seededDecision(mem *memory.Memory, seed uint64, now float64) Decision {
	return Decision{Memory: mem, Params: testParams, Clock: session.Clock{Now: now}, Rand: rng.New(seed)}
}

func warmMemory() *memory.Memory {
	mem := memory.New(4)
	mem.Update(0, 0)
	mem.Update(1, 1)
	mem.Update(0, 2)
	return mem
}

func TestPlanningPolicies_DeterministicAndValid(t *testing.T) {
	ctx := context.Background()
	for _, ctor := range []Constructor{NewSampling, NewMCTS, NewRecursive, NewRecursiveThreshold} {
		p, err := ctor(memory.Exponential{}, testOptions(4))
		require.NoError(t, err)
		t.Run(string(p.Kind()), func(t *testing.T) {
			mem := warmMemory()
			first, err := p.SelectAction(ctx, seededDecision(mem, 17, 3))
			require.NoError(t, err)
			second, err := p.SelectAction(ctx, seededDecision(mem, 17, 3))
			require.NoError(t, err)

			assert.Equal(t, first, second)
			assert.Contains(t, []int{0, 1, 2}, first)
		})
	}
}

func TestPlanningPolicies_OnlyActionWhenNothingSeen(t *testing.T) {
	ctx := context.Background()
	for _, ctor := range []Constructor{NewSampling, NewMCTS, NewRecursive, NewRecursiveThreshold} {
		p, err := ctor(memory.Exponential{}, testOptions(4))
		require.NoError(t, err)
		item, err := p.SelectAction(ctx, seededDecision(memory.New(4), 1, 0))
		require.NoError(t, err)
		assert.Equal(t, 0, item, "policy %s", p.Kind())
	}
}

func TestSampling_IndependentOfWorkerCount(t *testing.T) {
	ctx := context.Background()
	mem := warmMemory()

	serialOpts := testOptions(4)
	serialOpts.Sampling.Workers = 1
	serial, err := NewSampling(memory.Exponential{}, serialOpts)
	require.NoError(t, err)
	parallel, err := NewSampling(memory.Exponential{}, testOptions(4))
	require.NoError(t, err)

	for seed := uint64(0); seed < 5; seed++ {
		a, err := serial.SelectAction(ctx, seededDecision(mem, seed, 3))
		require.NoError(t, err)
		b, err := parallel.SelectAction(ctx, seededDecision(mem, seed, 3))
		require.NoError(t, err)
		assert.Equal(t, a, b, "seed %d", seed)
	}
}

func TestSampling_CancelledContext(t *testing.T) {
	p, err := NewSampling(memory.Exponential{}, testOptions(4))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.SelectAction(ctx, seededDecision(warmMemory(), 1, 3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecursiveThreshold_KeepsReviewWhenMyopicReviews(t *testing.T) {
	p, err := NewRecursiveThreshold(memory.Exponential{}, testOptions(3))
	require.NoError(t, err)
	mem := memory.New(3)
	mem.Update(0, 0)

	// Item 0 is far below threshold at t=100, so the myopic choice reviews it.
	item, err := p.SelectAction(context.Background(), seededDecision(mem, 1, 100))
	require.NoError(t, err)
	assert.Equal(t, 0, item)
}
