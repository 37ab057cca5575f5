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
	"fmt"
	"math"

	"github.com/AleutianAI/mnemo/services/scheduler/memory"
)

// RewardKind selects how a hypothetical state is scored.
type RewardKind string

const (
	RewardSigmoid   RewardKind = "sigmoid"
	RewardThreshold RewardKind = "threshold"
)

const (
	DefaultSigmoidK  = 100.0
	DefaultSigmoidX0 = 0.9
)

// Reward scores a state in [0, 1]. Unseen items contribute 0 and the sum is
// divided by the total item count.
type Reward struct {
	Kind RewardKind

	// K and X0 shape the sigmoid.
	K  float64
	X0 float64

	// Threshold is the recall level counted as learnt.
	Threshold float64
}

// DefaultReward is the sigmoid reward with k=100 and x0=0.9.
func DefaultReward() Reward {
	return Reward{Kind: RewardSigmoid, K: DefaultSigmoidK, X0: DefaultSigmoidX0, Threshold: DefaultSigmoidX0}
}

// Validate checks the reward kind.
func (r Reward) Validate() error {
	switch r.Kind {
	case RewardSigmoid, RewardThreshold:
		return nil
	}
	return fmt.Errorf("%w: unknown reward %q", ErrInvalidOptions, r.Kind)
}

// Score evaluates s under params.
func (r Reward) Score(m memory.CountModel, params memory.Params, s *PlanState) float64 {
	if len(s.Counts) == 0 {
		return 0
	}
	var total float64
	for i, n := range s.Counts {
		if n == 0 {
			continue
		}
		total += r.item(m.RecallFromCounts(n, s.Deltas[i], params.For(i)))
	}
	return total / float64(len(s.Counts))
}

// ScoreRecall evaluates precomputed recall probabilities.
func (r Reward) ScoreRecall(p []float64, counts []int) float64 {
	if len(counts) == 0 {
		return 0
	}
	var total float64
	for i, n := range counts {
		if n > 0 {
			total += r.item(p[i])
		}
	}
	return total / float64(len(counts))
}

func (r Reward) item(p float64) float64 {
	if r.Kind == RewardThreshold {
		if p > r.Threshold {
			return 1
		}
		return 0
	}
	return 1 / (1 + math.Exp(-r.K*(p-r.X0)))
}
