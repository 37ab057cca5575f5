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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/mnemo/services/scheduler/memory"
	"github.com/AleutianAI/mnemo/services/scheduler/rng"
	"github.com/AleutianAI/mnemo/services/scheduler/session"
)

func newTestTree(horizon int) *searchTree {
	root := NewPlanState(warmMemory(), session.Clock{Now: 3})
	return newSearchTree(memory.Exponential{}, testParams, testTask, DefaultReward(), horizon, root)
}

func TestRobustChild_PrefersVisitsOverMean(t *testing.T) {
	tr := newTestTree(4)
	a := tr.expand(0)
	b := tr.expand(0)
	tr.nodes[a].visits, tr.nodes[a].total = 100, 50 // mean 0.5
	tr.nodes[b].visits, tr.nodes[b].total = 5, 4.5  // mean 0.9

	assert.Equal(t, a, tr.robustChild(0))
	assert.Equal(t, 0, tr.nodes[tr.robustChild(0)].action)
}

func TestRobustChild_TieGoesToSmallestAction(t *testing.T) {
	tr := newTestTree(4)
	first := tr.expand(0)
	second := tr.expand(0)
	tr.nodes[first].visits = 7
	tr.nodes[second].visits = 7

	assert.Equal(t, first, tr.robustChild(0))
	assert.Equal(t, -1, tr.robustChild(second))
}

func TestSearchTree_ExpandTerminalPanics(t *testing.T) {
	tr := newTestTree(1)
	child := tr.expand(0)
	assert.True(t, tr.terminal(child))
	assert.Empty(t, tr.nodes[child].untried)
	assert.Panics(t, func() { tr.expand(child) })
}

func TestSearchTree_ValueAveragesRootReward(t *testing.T) {
	tr := newTestTree(1)
	reward := DefaultReward()
	rootScore := reward.Score(memory.Exponential{}, testParams, tr.nodes[0].state)
	assert.InDelta(t, rootScore, tr.nodes[0].pathSum, 1e-12)

	child := tr.expand(0)
	childScore := reward.Score(memory.Exponential{}, testParams, tr.nodes[child].state)
	got := tr.simulate(child, rng.New(1))
	assert.InDelta(t, (rootScore+childScore)/2, got, 1e-12)
}

func TestSearchTree_UnvisitedChildSelectedFirst(t *testing.T) {
	tr := newTestTree(4)
	a := tr.expand(0)
	b := tr.expand(0)
	tr.nodes[0].visits = 10
	tr.nodes[a].visits, tr.nodes[a].total = 10, 10

	assert.Equal(t, b, tr.bestUCB(0, 1.4))
}

func TestSearchTree_VisitsAddUp(t *testing.T) {
	tr := newTestTree(5)
	stream := rng.New(5)
	for i := 0; i < 150; i++ {
		tr.iterate(1.4, stream)
	}

	root := tr.nodes[0]
	assert.Equal(t, 150, root.visits)
	sum := 0
	for _, ci := range root.children {
		sum += tr.nodes[ci].visits
		mean := tr.nodes[ci].mean()
		if mean < 0 || mean > 1 {
			t.Errorf("child mean out of range: %v", mean)
		}
	}
	assert.Equal(t, root.visits, sum)
	for i := range tr.nodes {
		if tr.nodes[i].depth > 5 {
			t.Errorf("node %d exceeds horizon: depth %d", i, tr.nodes[i].depth)
		}
	}
}

func TestMCTS_TracesSearch(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	opts := testOptions(4)
	opts.Tracer = NewDecisionTracerWithProvider(tp, nil, true)
	opts.MCTS.Iterations = 20

	p, err := NewMCTS(memory.Exponential{}, opts)
	require.NoError(t, err)
	_, err = p.SelectAction(context.Background(), seededDecision(warmMemory(), 2, 3))
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "mcts.run", spans[0].Name())
}

func TestDecisionTracer_NilAndDisabled(t *testing.T) {
	var nilTracer *DecisionTracer
	ctx, span := nilTracer.StartDecision(context.Background(), KindMCTS, 0)
	assert.NotNil(t, ctx)
	nilTracer.EndDecision(span, 1, nil)

	disabled := NewDecisionTracer(nil, false)
	_, span = disabled.StartSearch(context.Background(), MCTSOptions{}, 2)
	disabled.EndSearch(span, 1, 0, 0, 0)
}
