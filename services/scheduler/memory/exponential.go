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

import "math"

// Exponential is the exponential-decay model with repetition effect.
// Parameters are (alpha, beta): the initial forgetting rate and the fraction
// of it removed by each further presentation.
type Exponential struct{}

var _ CountModel = Exponential{}

func (Exponential) Kind() Kind       { return KindExponential }
func (Exponential) Labels() []string { return []string{"alpha", "beta"} }

func (e Exponential) RecallProbability(mem *Memory, item int, params []float64, now float64) float64 {
	return e.RecallFromCounts(mem.Presentations(item), mem.Delta(item, now), params)
}

func (Exponential) RecallFromCounts(n int, delta float64, params []float64) float64 {
	if n == 0 {
		return 0
	}
	return math.Exp(-forgettingRate(n, params) * delta)
}

// PowerLaw replaces the exponential with a power function of elapsed time.
// Same parameters as Exponential.
type PowerLaw struct{}

var _ CountModel = PowerLaw{}

func (PowerLaw) Kind() Kind       { return KindPowerLaw }
func (PowerLaw) Labels() []string { return []string{"alpha", "beta"} }

func (p PowerLaw) RecallProbability(mem *Memory, item int, params []float64, now float64) float64 {
	return p.RecallFromCounts(mem.Presentations(item), mem.Delta(item, now), params)
}

func (PowerLaw) RecallFromCounts(n int, delta float64, params []float64) float64 {
	if n == 0 {
		return 0
	}
	return math.Pow(1+delta, -forgettingRate(n, params))
}

// forgettingRate is α(1-β)^(n-1).
func forgettingRate(n int, params []float64) float64 {
	return params[0] * math.Pow(1-params[1], float64(n-1))
}
