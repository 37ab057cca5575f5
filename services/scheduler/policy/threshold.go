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
)

// Threshold is the myopic policy. It evaluates the real record directly, so
// it works with every memory model.
type Threshold struct {
	model     memory.Model
	threshold float64
	p         []float64
}

var _ Policy = (*Threshold)(nil)

// NewThreshold builds a Threshold policy.
func NewThreshold(model memory.Model, opts Options) (Policy, error) {
	if opts.LearntThreshold <= 0 || opts.LearntThreshold >= 1 {
		return nil, fmt.Errorf("%w: learnt threshold must be in (0,1), got %v", ErrInvalidOptions, opts.LearntThreshold)
	}
	return &Threshold{model: model, threshold: opts.LearntThreshold}, nil
}

func (t *Threshold) Kind() Kind { return KindThreshold }

func (t *Threshold) SelectAction(_ context.Context, d Decision) (int, error) {
	n := d.Memory.NItem()
	if len(t.p) != n {
		t.p = make([]float64, n)
	}
	for i := range t.p {
		t.p[i] = t.model.RecallProbability(d.Memory, i, d.Params.For(i), d.Clock.Now)
	}
	return ThresholdRule(t.p, d.Memory.Counts(), t.threshold), nil
}

func (t *Threshold) Notify(int, bool, float64) {}
func (t *Threshold) Reset()                    {}
