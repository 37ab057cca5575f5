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
	"math"

	"github.com/AleutianAI/mnemo/services/scheduler/memory"
)

// Leitner schedules items through boxes of increasing review delay.
//
// An item enters box 0 on its first presentation. A correct response moves
// it up one box (capped at the last); an incorrect one sends it back to box
// 0. Either way the item becomes due delay(box) after the response, where
// delay(box) = DelayMin · DelayFactor^box.
type Leitner struct {
	opts LeitnerOptions

	box  []int
	due  []float64
	seen []bool
}

var _ Policy = (*Leitner)(nil)

// NewLeitner builds a Leitner policy. The model is unused.
func NewLeitner(_ memory.Model, opts Options) (Policy, error) {
	lo := opts.Leitner
	if err := requirePositive(KindLeitner, "n_box", lo.NBox); err != nil {
		return nil, err
	}
	if lo.DelayMin <= 0 || lo.DelayFactor <= 1 {
		return nil, fmt.Errorf("%w: leitner delays must satisfy delay_min > 0 and delay_factor > 1", ErrInvalidOptions)
	}
	if err := requirePositive(KindLeitner, "n_item", opts.NItem); err != nil {
		return nil, err
	}
	l := &Leitner{
		opts: lo,
		box:  make([]int, opts.NItem),
		due:  make([]float64, opts.NItem),
		seen: make([]bool, opts.NItem),
	}
	return l, nil
}

func (l *Leitner) Kind() Kind { return KindLeitner }

// SelectAction returns the most overdue due item; when nothing is due, the
// first unseen item; when everything is seen, the item due soonest.
func (l *Leitner) SelectAction(_ context.Context, d Decision) (int, error) {
	now := d.Clock.Now
	overdue, maxLate := -1, math.Inf(-1)
	soonest, minDue := -1, math.Inf(1)
	firstUnseen := -1
	for i := range l.box {
		if !l.seen[i] {
			if firstUnseen < 0 {
				firstUnseen = i
			}
			continue
		}
		if late := now - l.due[i]; late >= 0 && late > maxLate {
			overdue, maxLate = i, late
		}
		if l.due[i] < minDue {
			soonest, minDue = i, l.due[i]
		}
	}
	switch {
	case overdue >= 0:
		return overdue, nil
	case firstUnseen >= 0:
		return firstUnseen, nil
	default:
		return soonest, nil
	}
}

// Notify moves item between boxes according to the response.
func (l *Leitner) Notify(item int, success bool, now float64) {
	l.seen[item] = true
	if success {
		l.box[item] = min(l.box[item]+1, l.opts.NBox-1)
	} else {
		l.box[item] = 0
	}
	l.due[item] = now + l.Delay(l.box[item])
}

// Delay returns the review delay of box.
func (l *Leitner) Delay(box int) float64 {
	return l.opts.DelayMin * math.Pow(l.opts.DelayFactor, float64(box))
}

// Box returns the current box of item.
func (l *Leitner) Box(item int) int { return l.box[item] }

// Due returns the next review time of item.
func (l *Leitner) Due(item int) float64 { return l.due[item] }

func (l *Leitner) Reset() {
	for i := range l.box {
		l.box[i] = 0
		l.due[i] = 0
		l.seen[i] = false
	}
}
