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

	"github.com/AleutianAI/mnemo/services/scheduler/memory"
	"github.com/AleutianAI/mnemo/services/scheduler/session"
)

// Recursive plans one step ahead of the threshold rule: every possible
// action is followed by threshold choices up to the horizon and scored by the
// mean reward along that path. Ties keep the threshold choice.
type Recursive struct {
	planner
}

// RecursiveThreshold weighs the threshold choice against reviewing the
// weakest seen item instead, when the threshold choice would introduce a new
// item. Each candidate is followed by threshold choices to the horizon and
// scored by the fraction of items above the learnt threshold at the end.
// Ties keep the threshold choice.
type RecursiveThreshold struct {
	planner
}

var (
	_ Policy = (*Recursive)(nil)
	_ Policy = (*RecursiveThreshold)(nil)
)

// planner holds what both recursive variants share.
type planner struct {
	model     memory.CountModel
	task      session.Task
	reward    Reward
	threshold float64
	horizon   int
}

func newPlanner(kind Kind, model memory.Model, opts Options, reward Reward) (planner, error) {
	cm, err := countModel(kind, model)
	if err != nil {
		return planner{}, err
	}
	if err := requirePositive(kind, "horizon", opts.Recursive.Horizon); err != nil {
		return planner{}, err
	}
	if opts.LearntThreshold <= 0 || opts.LearntThreshold >= 1 {
		return planner{}, fmt.Errorf("%w: learnt threshold must be in (0,1), got %v", ErrInvalidOptions, opts.LearntThreshold)
	}
	if err := reward.Validate(); err != nil {
		return planner{}, err
	}
	return planner{
		model:     cm,
		task:      opts.Task,
		reward:    reward,
		threshold: opts.LearntThreshold,
		horizon:   opts.Recursive.Horizon,
	}, nil
}

// NewRecursive builds the Recursive policy with the configured reward.
func NewRecursive(model memory.Model, opts Options) (Policy, error) {
	p, err := newPlanner(KindRecursive, model, opts, opts.Reward)
	if err != nil {
		return nil, err
	}
	return &Recursive{planner: p}, nil
}

// NewRecursiveThreshold builds the RecursiveThreshold policy. It always
// scores with the threshold reward at the learnt threshold.
func NewRecursiveThreshold(model memory.Model, opts Options) (Policy, error) {
	reward := Reward{Kind: RewardThreshold, Threshold: opts.LearntThreshold}
	p, err := newPlanner(KindRecursiveThreshold, model, opts, reward)
	if err != nil {
		return nil, err
	}
	return &RecursiveThreshold{planner: p}, nil
}

func (r *Recursive) Kind() Kind { return KindRecursive }

func (r *Recursive) SelectAction(ctx context.Context, d Decision) (int, error) {
	root := NewPlanState(d.Memory, d.Clock)
	myopic := r.thresholdChoice(root, d.Params, nil)
	actions := PossibleActions(root)
	if len(actions) == 1 {
		return actions[0], nil
	}

	best, bestScore := myopic, r.pathMean(root, myopic, d.Params)
	for _, a := range actions {
		if a == myopic {
			continue
		}
		if s := r.pathMean(root, a, d.Params); s > bestScore {
			best, bestScore = a, s
		}
	}
	recordRollouts(ctx, KindRecursive, len(actions))
	return best, nil
}

func (r *RecursiveThreshold) Kind() Kind { return KindRecursiveThreshold }

func (r *RecursiveThreshold) SelectAction(ctx context.Context, d Decision) (int, error) {
	root := NewPlanState(d.Memory, d.Clock)
	p := root.Recall(r.model, d.Params, nil)
	myopic := ThresholdRule(p, root.Counts, r.threshold)
	if root.Counts[myopic] > 0 {
		return myopic, nil
	}
	weakest := weakestSeen(p, root.Counts)
	if weakest < 0 {
		return myopic, nil
	}

	recordRollouts(ctx, KindRecursiveThreshold, 2)
	if r.terminalScore(root, weakest, d.Params) > r.terminalScore(root, myopic, d.Params) {
		return weakest, nil
	}
	return myopic, nil
}

func (p *planner) Notify(int, bool, float64) {}
func (p *planner) Reset()                    {}

func (p *planner) thresholdChoice(s *PlanState, params memory.Params, buf []float64) int {
	return ThresholdRule(s.Recall(p.model, params, buf), s.Counts, p.threshold)
}

// pathMean applies first and then threshold choices until horizon
// presentations, returning the mean reward along the path.
func (p *planner) pathMean(from *PlanState, first int, params memory.Params) float64 {
	st := from.Clone()
	buf := make([]float64, len(st.Counts))
	st.Apply(first, p.task)
	sum := p.reward.Score(p.model, params, st)
	for step := 1; step < p.horizon; step++ {
		st.Apply(p.thresholdChoice(st, params, buf), p.task)
		sum += p.reward.Score(p.model, params, st)
	}
	return sum / float64(p.horizon)
}

// terminalScore is pathMean scored only at the final state.
func (p *planner) terminalScore(from *PlanState, first int, params memory.Params) float64 {
	st := from.Clone()
	buf := make([]float64, len(st.Counts))
	st.Apply(first, p.task)
	for step := 1; step < p.horizon; step++ {
		st.Apply(p.thresholdChoice(st, params, buf), p.task)
	}
	return p.reward.Score(p.model, params, st)
}
