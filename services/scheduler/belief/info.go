// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package belief

import (
	"math"

	"github.com/AleutianAI/mnemo/services/scheduler/memory"
)

// InformationGain returns the mutual information, in nats, between the
// response to item at now and the grid point, under the current posterior.
func (e *Engine) InformationGain(mem *memory.Memory, item int, now float64) float64 {
	if !mem.Seen(item) {
		return 0
	}
	w := e.fillWeights(item)
	var q, conditional float64
	for j, point := range e.grid.Points() {
		if w[j] == 0 {
			continue
		}
		p := e.model.RecallProbability(mem, item, point, now)
		q += w[j] * p
		conditional += w[j] * binaryEntropy(p)
	}
	gain := binaryEntropy(q) - conditional
	if gain < 0 {
		return 0
	}
	return gain
}

// MostInformativeItem returns the candidate with the highest information
// gain. Ties go to the earliest candidate. Panics on an empty candidate list.
func (e *Engine) MostInformativeItem(mem *memory.Memory, candidates []int, now float64) int {
	best := candidates[0]
	bestGain := math.Inf(-1)
	for _, c := range candidates {
		if g := e.InformationGain(mem, c, now); g > bestGain {
			best, bestGain = c, g
		}
	}
	return best
}

func binaryEntropy(p float64) float64 {
	p = math.Min(math.Max(p, memory.Epsilon), 1-memory.Epsilon)
	return -p*math.Log(p) - (1-p)*math.Log1p(-p)
}
