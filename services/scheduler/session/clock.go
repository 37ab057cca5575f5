// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session tracks simulated time across review sessions.
package session

import (
	"errors"
	"fmt"
)

// ErrInvalidTask is returned for unusable session settings.
var ErrInvalidTask = errors.New("invalid session settings")

// Task holds the session constants shared by the clock and the planners.
type Task struct {
	// Length is the number of reviews per session.
	Length int `json:"session_length" yaml:"session_length"`

	// Gap is the time added between two sessions.
	Gap float64 `json:"session_gap" yaml:"session_gap"`

	// Step is the time one review takes.
	Step float64 `json:"time_per_iteration" yaml:"time_per_iteration"`

	// Sessions is the number of sessions in a run.
	Sessions int `json:"n_session" yaml:"n_session"`
}

// Validate checks the task constants.
func (t Task) Validate() error {
	switch {
	case t.Length <= 0:
		return fmt.Errorf("%w: session length must be > 0, got %d", ErrInvalidTask, t.Length)
	case t.Gap < 0:
		return fmt.Errorf("%w: session gap must be >= 0, got %v", ErrInvalidTask, t.Gap)
	case t.Step <= 0:
		return fmt.Errorf("%w: time per iteration must be > 0, got %v", ErrInvalidTask, t.Step)
	case t.Sessions <= 0:
		return fmt.Errorf("%w: session count must be > 0, got %d", ErrInvalidTask, t.Sessions)
	}
	return nil
}

// Iterations returns the total number of reviews in a run.
func (t Task) Iterations() int { return t.Length * t.Sessions }

// Clock is the simulated time of a run.
type Clock struct {
	Now           float64 `json:"now"`
	IterInSession int     `json:"iter_in_session"`
	Session       int     `json:"session"`
}

// Advance moves the clock past one review. When the review closes a session
// the in-session counter resets and the inter-session gap elapses.
func (c *Clock) Advance(task Task) {
	c.Now += task.Step
	c.IterInSession++
	if c.IterInSession >= task.Length {
		c.Now += task.Gap
		c.IterInSession = 0
		c.Session++
	}
}

// Reset returns the clock to time zero.
func (c *Clock) Reset() {
	*c = Clock{}
}
