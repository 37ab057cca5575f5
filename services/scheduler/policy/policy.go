// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy chooses which item the learner reviews next.
//
// # Variants
//
// The set of policies is closed and named by Kind:
//
//   - leitner: box scheduling driven by the learner's own responses
//   - threshold: myopic, review the weakest item once it drops below the
//     learnt threshold, otherwise introduce a new item
//   - sampling: compare candidates by Monte-Carlo rollouts
//   - mcts: UCB1 tree search over hypothetical futures
//   - recursive: one planned step followed by threshold rollouts
//   - recursive_threshold: threshold choice backed off to the weakest seen
//     item when that scores better at the horizon
//
// Every variant implements Policy. Planning variants evaluate hypothetical
// futures on a PlanState and need a memory.CountModel.
//
// # Randomness
//
// Policies never read global random state. Decision.Rand is the only source
// and planners split it per rollout, so a fixed seed reproduces every
// decision.
package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/mnemo/services/scheduler/memory"
	"github.com/AleutianAI/mnemo/services/scheduler/rng"
	"github.com/AleutianAI/mnemo/services/scheduler/session"
)

var (
	// ErrPlanningModel is returned when a planning policy is paired with a
	// model that is not a memory.CountModel.
	ErrPlanningModel = errors.New("policy requires a count-based memory model")

	// ErrInvalidOptions is returned for unusable policy constants.
	ErrInvalidOptions = errors.New("invalid policy options")
)

// Kind names a policy variant.
type Kind string

const (
	KindLeitner            Kind = "leitner"
	KindThreshold          Kind = "threshold"
	KindSampling           Kind = "sampling"
	KindMCTS               Kind = "mcts"
	KindRecursive          Kind = "recursive"
	KindRecursiveThreshold Kind = "recursive_threshold"
)

// Kinds lists every policy variant.
func Kinds() []Kind {
	return []Kind{KindLeitner, KindThreshold, KindSampling, KindMCTS, KindRecursive, KindRecursiveThreshold}
}

// Decision is everything a policy may read to choose an item.
type Decision struct {
	// Memory is the real presentation record. Read-only.
	Memory *memory.Memory

	// Params is the parameter assignment used to predict recall.
	Params memory.Params

	// Clock is the current simulated time.
	Clock session.Clock

	// Rand is the decision's random stream.
	Rand *rng.Stream
}

// Policy selects the next item to present.
type Policy interface {
	// Kind returns the variant name.
	Kind() Kind

	// SelectAction returns the index of the item to present.
	SelectAction(ctx context.Context, d Decision) (int, error)

	// Notify reports the observed response to the presented item.
	Notify(item int, success bool, now float64)

	// Reset clears per-run state.
	Reset()
}

// LeitnerOptions configures the Leitner policy.
type LeitnerOptions struct {
	NBox        int
	DelayMin    float64
	DelayFactor float64
}

// SamplingOptions configures the Sampling policy.
type SamplingOptions struct {
	NSample int
	Horizon int
	Workers int
}

// MCTSOptions configures the tree search.
type MCTSOptions struct {
	ExplorationConstant float64
	Horizon             int
	Iterations          int
}

// RecursiveOptions configures both recursive variants.
type RecursiveOptions struct {
	Horizon int
}

// Options carries the constants every constructor draws from.
type Options struct {
	Task            session.Task
	NItem           int
	LearntThreshold float64
	Reward          Reward

	Leitner   LeitnerOptions
	Sampling  SamplingOptions
	MCTS      MCTSOptions
	Recursive RecursiveOptions

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Tracer may be nil.
	Tracer *DecisionTracer
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Constructor builds a policy from a model and options.
type Constructor func(model memory.Model, opts Options) (Policy, error)

func countModel(kind Kind, model memory.Model) (memory.CountModel, error) {
	cm, ok := model.(memory.CountModel)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot plan with %s", ErrPlanningModel, kind, model.Kind())
	}
	return cm, nil
}

func requirePositive(kind Kind, name string, v int) error {
	if v <= 0 {
		return fmt.Errorf("%w: %s %s must be > 0, got %d", ErrInvalidOptions, kind, name, v)
	}
	return nil
}
