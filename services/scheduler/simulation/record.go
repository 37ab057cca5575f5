// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package simulation

import (
	"time"

	"github.com/AleutianAI/mnemo/services/scheduler/config"
)

// Presentation is one reviewed item.
type Presentation struct {
	Item    int     `json:"item"`
	Time    float64 `json:"time"`
	Success bool    `json:"success"`
}

// StepEvent is passed to step callbacks after every review.
type StepEvent struct {
	T             int
	Item          int
	Success       bool
	PosteriorMean []float64
	PosteriorStd  []float64
}

// StepFunc observes a completed step.
type StepFunc func(StepEvent)

// Record is the outcome of one simulated learner.
type Record struct {
	ID        string         `json:"id"`
	AgentID   string         `json:"agent_id"`
	StartedAt time.Time      `json:"started_at"`
	Elapsed   time.Duration  `json:"elapsed"`
	Config    config.Config  `json:"config"`
	History   []Presentation `json:"history"`
	NSeen     []int          `json:"n_seen"`

	// PosteriorMean and PosteriorStd hold one trajectory per parameter
	// label, one value per step.
	PosteriorMean map[string][]float64 `json:"posterior_mean"`
	PosteriorStd  map[string][]float64 `json:"posterior_std"`

	// FinalRecall is every item's true recall probability at the end.
	FinalRecall []float64 `json:"final_recall"`
	NLearnt     int       `json:"n_learnt"`

	// HandoverStep is the first step the policy chose the item. It is -1
	// when an adaptive run never left exploration.
	HandoverStep int `json:"handover_step"`
}

// SuccessRate returns the fraction of successful reviews.
func (r *Record) SuccessRate() float64 {
	if len(r.History) == 0 {
		return 0
	}
	n := 0
	for _, p := range r.History {
		if p.Success {
			n++
		}
	}
	return float64(n) / float64(len(r.History))
}

// FinalSeen returns the number of distinct items seen by the end.
func (r *Record) FinalSeen() int {
	if len(r.NSeen) == 0 {
		return 0
	}
	return r.NSeen[len(r.NSeen)-1]
}
