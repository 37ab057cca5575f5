// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memory

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned when a parameter tuple does not fit a model.
var ErrInvalidParams = errors.New("invalid model parameters")

// Kind names a forgetting model.
type Kind string

const (
	KindExponential Kind = "exp_decay"
	KindPowerLaw    Kind = "power_law"
	KindACTR        Kind = "act_r"
)

// Model computes recall probabilities from a presentation record.
type Model interface {
	// Kind returns the model's registry name.
	Kind() Kind

	// Labels returns the parameter names in tuple order.
	Labels() []string

	// RecallProbability returns P(recall item at now | params).
	// Returns 0 for items never presented.
	RecallProbability(mem *Memory, item int, params []float64, now float64) float64
}

// CountModel is a Model whose recall depends only on the presentation count
// and the time since the last presentation.
type CountModel interface {
	Model

	// RecallFromCounts returns P(recall) for an item presented n times, last
	// presented delta time units ago. Returns 0 when n == 0.
	RecallFromCounts(n int, delta float64, params []float64) float64
}

// LogLikelihoodGrid writes log P(success | point) for every point into out.
// out must have len(points) elements.
func LogLikelihoodGrid(m Model, mem *Memory, item int, points [][]float64, success bool, now float64, out []float64) {
	for i, p := range points {
		out[i] = LogLikelihood(m.RecallProbability(mem, item, p, now), success)
	}
}

// Params is a parameter assignment: one global tuple, or one tuple per item.
type Params struct {
	Global  []float64   `json:"global,omitempty" yaml:"global,omitempty"`
	PerItem [][]float64 `json:"per_item,omitempty" yaml:"per_item,omitempty"`
}

// For returns the tuple that applies to item.
func (p Params) For(item int) []float64 {
	if p.PerItem != nil {
		return p.PerItem[item]
	}
	return p.Global
}

// ItemSpecific reports whether the assignment carries one tuple per item.
func (p Params) ItemSpecific() bool { return p.PerItem != nil }

// Validate checks that every tuple has dim values and, in item-specific
// mode, that there is one tuple per item.
func (p Params) Validate(dim, nItem int) error {
	if p.PerItem == nil {
		if len(p.Global) != dim {
			return fmt.Errorf("%w: expected %d values, got %d", ErrInvalidParams, dim, len(p.Global))
		}
		return nil
	}
	if len(p.PerItem) != nItem {
		return fmt.Errorf("%w: expected %d item tuples, got %d", ErrInvalidParams, nItem, len(p.PerItem))
	}
	for i, tuple := range p.PerItem {
		if len(tuple) != dim {
			return fmt.Errorf("%w: item %d expected %d values, got %d", ErrInvalidParams, i, dim, len(tuple))
		}
	}
	return nil
}
