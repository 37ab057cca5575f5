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
	"math"
	"slices"

	"github.com/AleutianAI/mnemo/services/scheduler/memory"
	"github.com/AleutianAI/mnemo/services/scheduler/session"
)

// PlanState is a hypothetical memory state: presentation counts, time since
// last presentation and position in the current session.
type PlanState struct {
	Counts        []int
	Deltas        []float64
	IterInSession int
}

// NewPlanState snapshots the real record at the clock's time.
func NewPlanState(mem *memory.Memory, clock session.Clock) *PlanState {
	return &PlanState{
		Counts:        mem.Counts(),
		Deltas:        mem.Deltas(clock.Now),
		IterInSession: clock.IterInSession,
	}
}

// Clone returns a deep copy.
func (s *PlanState) Clone() *PlanState {
	return &PlanState{
		Counts:        slices.Clone(s.Counts),
		Deltas:        slices.Clone(s.Deltas),
		IterInSession: s.IterInSession,
	}
}

// Apply presents item. Time advances exactly as session.Clock.Advance does.
func (s *PlanState) Apply(item int, task session.Task) {
	s.Counts[item]++
	for i := range s.Deltas {
		s.Deltas[i] += task.Step
	}
	s.Deltas[item] = task.Step
	s.IterInSession++
	if s.IterInSession >= task.Length {
		for i := range s.Deltas {
			s.Deltas[i] += task.Gap
		}
		s.IterInSession = 0
	}
}

// Recall fills out with every item's recall probability under params and
// returns it. out is allocated when nil.
func (s *PlanState) Recall(m memory.CountModel, params memory.Params, out []float64) []float64 {
	if out == nil {
		out = make([]float64, len(s.Counts))
	}
	for i, n := range s.Counts {
		out[i] = m.RecallFromCounts(n, s.Deltas[i], params.For(i))
	}
	return out
}

// PossibleActions returns the items worth considering from s: item 0 when
// nothing has been seen, every item when everything has, otherwise the seen
// items plus the first unseen one. The result is ascending.
func PossibleActions(s *PlanState) []int {
	actions := make([]int, 0, len(s.Counts))
	unseenAdded := false
	for i, n := range s.Counts {
		switch {
		case n > 0:
			actions = append(actions, i)
		case !unseenAdded:
			actions = append(actions, i)
			unseenAdded = true
		}
	}
	return actions
}

// ThresholdRule is the myopic choice over recall probabilities p: when every
// item is seen or some seen item is below threshold, the seen item with the
// lowest recall; otherwise the first unseen item. Returns 0 when nothing is
// seen. Ties go to the smallest index.
func ThresholdRule(p []float64, counts []int, threshold float64) int {
	weakest, firstUnseen := -1, -1
	minP := math.Inf(1)
	for i, n := range counts {
		if n == 0 {
			if firstUnseen < 0 {
				firstUnseen = i
			}
			continue
		}
		if p[i] < minP {
			weakest, minP = i, p[i]
		}
	}
	switch {
	case weakest < 0:
		return 0
	case firstUnseen < 0 || minP < threshold:
		return weakest
	default:
		return firstUnseen
	}
}

// weakestSeen returns the seen item with the lowest recall, or -1.
func weakestSeen(p []float64, counts []int) int {
	weakest := -1
	for i, n := range counts {
		if n > 0 && (weakest < 0 || p[i] < p[weakest]) {
			weakest = i
		}
	}
	return weakest
}
