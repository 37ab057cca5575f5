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
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/mnemo/services/scheduler/memory"
	"github.com/AleutianAI/mnemo/services/scheduler/rng"
	"github.com/AleutianAI/mnemo/services/scheduler/session"
)

// Sampling compares candidates by the mean reward of random rollouts.
//
// Each candidate gets NSample rollouts of Horizon presentations: the
// candidate first, then uniformly random possible actions. A rollout's value
// is the mean reward along its path. Rollouts run concurrently; rollout
// (candidate c, sample s) draws from its own sub-stream, so the result does
// not depend on scheduling.
type Sampling struct {
	model  memory.CountModel
	task   session.Task
	reward Reward
	opts   SamplingOptions
	logger *slog.Logger
}

var _ Policy = (*Sampling)(nil)

// NewSampling builds a Sampling policy. Workers <= 0 means GOMAXPROCS.
func NewSampling(model memory.Model, opts Options) (Policy, error) {
	cm, err := countModel(KindSampling, model)
	if err != nil {
		return nil, err
	}
	so := opts.Sampling
	if err := requirePositive(KindSampling, "n_sample", so.NSample); err != nil {
		return nil, err
	}
	if err := requirePositive(KindSampling, "horizon", so.Horizon); err != nil {
		return nil, err
	}
	if err := opts.Reward.Validate(); err != nil {
		return nil, err
	}
	if so.Workers <= 0 {
		so.Workers = runtime.GOMAXPROCS(0)
	}
	return &Sampling{
		model:  cm,
		task:   opts.Task,
		reward: opts.Reward,
		opts:   so,
		logger: opts.logger(),
	}, nil
}

func (s *Sampling) Kind() Kind { return KindSampling }

func (s *Sampling) SelectAction(ctx context.Context, d Decision) (int, error) {
	root := NewPlanState(d.Memory, d.Clock)
	actions := PossibleActions(root)
	if len(actions) == 1 {
		return actions[0], nil
	}

	n := s.opts.NSample
	values := make([]float64, len(actions)*n)
	base := d.Rand.Child()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for ai, action := range actions {
		for k := 0; k < n; k++ {
			idx := ai*n + k
			stream := base.Split(uint64(idx))
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				values[idx] = rollout(s.model, d.Params, s.task, s.reward, root, action, s.opts.Horizon, stream)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("sampling rollouts: %w", err)
	}
	recordRollouts(ctx, KindSampling, len(values))

	best, bestMean := actions[0], math.Inf(-1)
	for ai, action := range actions {
		var sum float64
		for _, v := range values[ai*n : (ai+1)*n] {
			sum += v
		}
		if mean := sum / float64(n); mean > bestMean {
			best, bestMean = action, mean
		}
	}
	s.logger.Debug("sampling decision",
		slog.Int("candidates", len(actions)),
		slog.Int("item", best),
		slog.Float64("mean_reward", bestMean),
	)
	return best, nil
}

func (s *Sampling) Notify(int, bool, float64) {}
func (s *Sampling) Reset()                    {}

// rollout presents first, then random possible actions, until horizon
// presentations have been made. Returns the mean reward along the path.
func rollout(m memory.CountModel, params memory.Params, task session.Task, reward Reward,
	from *PlanState, first, horizon int, stream *rng.Stream) float64 {
	st := from.Clone()
	st.Apply(first, task)
	sum := reward.Score(m, params, st)
	for step := 1; step < horizon; step++ {
		st.Apply(stream.Pick(PossibleActions(st)), task)
		sum += reward.Score(m, params, st)
	}
	return sum / float64(horizon)
}
