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

// ACTR is the activation model. Parameters are (d, tau, s): decay,
// retrieval threshold and noise.
//
// Recall depends on every past presentation time, so ACTR is not a
// CountModel and cannot drive the planning policies.
type ACTR struct{}

var _ Model = ACTR{}

func (ACTR) Kind() Kind       { return KindACTR }
func (ACTR) Labels() []string { return []string{"d", "tau", "s"} }

func (a ACTR) RecallProbability(mem *Memory, item int, params []float64, now float64) float64 {
	times := mem.Times(item)
	if len(times) == 0 {
		return 0
	}
	return recallFromActivation(Activation(times, now, params[0]), params[1], params[2])
}

// Activation returns ln Σ_j age_j^(-d). Ages at or below zero count as one
// time unit so a same-step presentation stays finite.
func Activation(times []float64, now, decay float64) float64 {
	var sum float64
	for _, t := range times {
		age := now - t
		if age <= 0 {
			age = 1
		}
		sum += math.Pow(age, -decay)
	}
	return math.Log(sum)
}

func recallFromActivation(a, tau, s float64) float64 {
	if s <= 0 {
		if a > tau {
			return 1
		}
		return 0
	}
	z := (tau - a) / s
	switch {
	case z > 20:
		return 0
	case z < -20:
		return 1
	}
	return 1 / (1 + math.Exp(z))
}
