// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_Advance(t *testing.T) {
	task := Task{Length: 3, Gap: 100, Step: 2, Sessions: 2}
	var c Clock

	c.Advance(task)
	c.Advance(task)
	if c.Now != 4 || c.IterInSession != 2 || c.Session != 0 {
		t.Errorf("mid-session clock = %+v", c)
	}

	c.Advance(task)
	if c.Now != 106 || c.IterInSession != 0 || c.Session != 1 {
		t.Errorf("end-of-session clock = %+v", c)
	}

	c.Reset()
	assert.Equal(t, Clock{}, c)
}

func TestTask_Validate(t *testing.T) {
	valid := Task{Length: 10, Gap: 5, Step: 1, Sessions: 3}
	assert.NoError(t, valid.Validate())
	assert.Equal(t, 30, valid.Iterations())

	for _, bad := range []Task{
		{Length: 0, Gap: 5, Step: 1, Sessions: 1},
		{Length: 1, Gap: -1, Step: 1, Sessions: 1},
		{Length: 1, Gap: 0, Step: 0, Sessions: 1},
		{Length: 1, Gap: 0, Step: 1, Sessions: 0},
	} {
		assert.ErrorIs(t, bad.Validate(), ErrInvalidTask, "%+v", bad)
	}
}
