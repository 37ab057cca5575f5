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
	"fmt"
	"log/slog"
	"math"

	"github.com/AleutianAI/mnemo/services/scheduler/memory"
	"github.com/AleutianAI/mnemo/services/scheduler/rng"
	"github.com/AleutianAI/mnemo/services/scheduler/session"
)

// DefaultExplorationConstant is sqrt(2).
var DefaultExplorationConstant = math.Sqrt2

// MCTS plans with Monte-Carlo tree search.
//
// Each decision builds a fresh tree rooted at the real state and runs
// Iterations rounds of select, expand, simulate and backpropagate. The
// returned action is the robust child of the root: the most visited, ties
// to the smallest item index.
type MCTS struct {
	model  memory.CountModel
	task   session.Task
	reward Reward
	opts   MCTSOptions
	logger *slog.Logger
	tracer *DecisionTracer
}

var _ Policy = (*MCTS)(nil)

// NewMCTS builds the tree-search policy. A non-positive exploration constant
// falls back to DefaultExplorationConstant.
func NewMCTS(model memory.Model, opts Options) (Policy, error) {
	cm, err := countModel(KindMCTS, model)
	if err != nil {
		return nil, err
	}
	mo := opts.MCTS
	if err := requirePositive(KindMCTS, "horizon", mo.Horizon); err != nil {
		return nil, err
	}
	if err := requirePositive(KindMCTS, "iterations", mo.Iterations); err != nil {
		return nil, err
	}
	if err := opts.Reward.Validate(); err != nil {
		return nil, err
	}
	if mo.ExplorationConstant <= 0 {
		mo.ExplorationConstant = DefaultExplorationConstant
	}
	return &MCTS{
		model:  cm,
		task:   opts.Task,
		reward: opts.Reward,
		opts:   mo,
		logger: opts.logger(),
		tracer: opts.Tracer,
	}, nil
}

func (m *MCTS) Kind() Kind { return KindMCTS }

func (m *MCTS) SelectAction(ctx context.Context, d Decision) (int, error) {
	root := NewPlanState(d.Memory, d.Clock)
	if actions := PossibleActions(root); len(actions) == 1 {
		return actions[0], nil
	}

	t := newSearchTree(m.model, d.Params, m.task, m.reward, m.opts.Horizon, root)
	ctx, span := m.tracer.StartSearch(ctx, m.opts, len(t.nodes[0].untried))

	stream := d.Rand.Child()
	for i := 0; i < m.opts.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			span.End()
			return 0, fmt.Errorf("mcts iteration %d: %w", i, err)
		}
		t.iterate(m.opts.ExplorationConstant, stream)
	}

	best := t.robustChild(0)
	if best < 0 {
		span.End()
		return 0, fmt.Errorf("mcts: root has no children after %d iterations", m.opts.Iterations)
	}
	chosen := &t.nodes[best]
	recordSearch(ctx, m.opts.Iterations, len(t.nodes))
	recordRollouts(ctx, KindMCTS, m.opts.Iterations)
	m.tracer.EndSearch(span, len(t.nodes), chosen.action, chosen.visits, chosen.mean())
	return chosen.action, nil
}

func (m *MCTS) Notify(int, bool, float64) {}
func (m *MCTS) Reset()                    {}

// node is one state in the search arena. Links are arena indices.
type node struct {
	parent   int
	action   int
	depth    int
	state    *PlanState
	children []int
	untried  []int
	visits   int
	total    float64

	// pathSum is the sum of rewards of the states from the root down to
	// this node, both included.
	pathSum float64
}

func (n *node) mean() float64 {
	if n.visits == 0 {
		return 0
	}
	return n.total / float64(n.visits)
}

// searchTree is an arena of nodes. Index 0 is the root.
type searchTree struct {
	model   memory.CountModel
	params  memory.Params
	task    session.Task
	reward  Reward
	horizon int
	nodes   []node
}

func newSearchTree(model memory.CountModel, params memory.Params, task session.Task, reward Reward, horizon int, root *PlanState) *searchTree {
	t := &searchTree{
		model:   model,
		params:  params,
		task:    task,
		reward:  reward,
		horizon: horizon,
	}
	t.nodes = append(t.nodes, node{
		parent:  -1,
		action:  -1,
		state:   root,
		untried: PossibleActions(root),
		pathSum: reward.Score(model, params, root),
	})
	return t
}

func (t *searchTree) terminal(i int) bool {
	return t.nodes[i].depth >= t.horizon
}

// iterate runs one select, expand, simulate, backpropagate round.
func (t *searchTree) iterate(c float64, stream *rng.Stream) {
	leaf := t.selectLeaf(c)
	if !t.terminal(leaf) {
		leaf = t.expand(leaf)
	}
	t.backpropagate(leaf, t.simulate(leaf, stream))
}

// selectLeaf descends by UCB1 until a node is terminal or has untried
// actions.
func (t *searchTree) selectLeaf(c float64) int {
	i := 0
	for !t.terminal(i) && len(t.nodes[i].untried) == 0 {
		i = t.bestUCB(i, c)
	}
	return i
}

// bestUCB returns the child of i with the highest UCB1 score. Unvisited
// children score +Inf. Ties go to the earliest expanded child.
func (t *searchTree) bestUCB(i int, c float64) int {
	parent := &t.nodes[i]
	logN := math.Log(float64(parent.visits))
	best, bestScore := -1, math.Inf(-1)
	for _, ci := range parent.children {
		child := &t.nodes[ci]
		score := math.Inf(1)
		if child.visits > 0 {
			score = child.mean() + c*math.Sqrt(logN/float64(child.visits))
		}
		if score > bestScore {
			best, bestScore = ci, score
		}
	}
	return best
}

// expand creates the child for the first untried action of i. Expanding a
// terminal node is a logic fault and panics.
func (t *searchTree) expand(i int) int {
	if t.terminal(i) {
		panic(fmt.Sprintf("mcts: expand called on terminal node %d at depth %d", i, t.nodes[i].depth))
	}
	parent := &t.nodes[i]
	action := parent.untried[0]
	parent.untried = parent.untried[1:]

	st := parent.state.Clone()
	st.Apply(action, t.task)
	child := node{
		parent:  i,
		action:  action,
		depth:   parent.depth + 1,
		state:   st,
		pathSum: parent.pathSum + t.reward.Score(t.model, t.params, st),
	}
	if child.depth < t.horizon {
		child.untried = PossibleActions(st)
	}

	idx := len(t.nodes)
	t.nodes = append(t.nodes, child)
	t.nodes[i].children = append(t.nodes[i].children, idx)
	return idx
}

// simulate plays random actions from i to the horizon and returns the mean
// reward over the whole sequence of horizon+1 states, root included.
func (t *searchTree) simulate(i int, stream *rng.Stream) float64 {
	n := &t.nodes[i]
	sum, depth := n.pathSum, n.depth
	if depth >= t.horizon {
		return sum / float64(depth+1)
	}
	st := n.state.Clone()
	for ; depth < t.horizon; depth++ {
		st.Apply(stream.Pick(PossibleActions(st)), t.task)
		sum += t.reward.Score(t.model, t.params, st)
	}
	return sum / float64(t.horizon+1)
}

func (t *searchTree) backpropagate(i int, value float64) {
	for ; i >= 0; i = t.nodes[i].parent {
		t.nodes[i].visits++
		t.nodes[i].total += value
	}
}

// robustChild returns the most visited child of i, ties to the smallest
// action, or -1 when i has no children.
func (t *searchTree) robustChild(i int) int {
	best := -1
	for _, ci := range t.nodes[i].children {
		c := &t.nodes[ci]
		if best < 0 {
			best = ci
			continue
		}
		b := &t.nodes[best]
		if c.visits > b.visits || (c.visits == b.visits && c.action < b.action) {
			best = ci
		}
	}
	return best
}
