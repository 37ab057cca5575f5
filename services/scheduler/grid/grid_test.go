// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package grid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CartesianOrder(t *testing.T) {
	g, err := New([]string{"alpha", "beta"}, []Bound{{0, 1}, {10, 20}}, 3)
	require.NoError(t, err)

	assert.Equal(t, 9, g.Len())
	assert.Equal(t, 2, g.Dim())
	assert.Equal(t, []float64{0, 10}, g.Point(0))
	assert.Equal(t, []float64{0, 15}, g.Point(1))
	assert.Equal(t, []float64{0, 20}, g.Point(2))
	assert.Equal(t, []float64{0.5, 10}, g.Point(3))
	assert.Equal(t, []float64{1, 20}, g.Point(8))
}

func TestNew_SingleResolution(t *testing.T) {
	g, err := New([]string{"a"}, []Bound{{0.3, 0.9}}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, 0.3, g.Point(0)[0])
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name       string
		labels     []string
		bounds     []Bound
		resolution int
	}{
		{"length mismatch", []string{"a", "b"}, []Bound{{0, 1}}, 3},
		{"no dimensions", nil, nil, 3},
		{"zero resolution", []string{"a"}, []Bound{{0, 1}}, 0},
		{"inverted bound", []string{"a"}, []Bound{{1, 0}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.labels, tt.bounds, tt.resolution)
			if !errors.Is(err, ErrInvalidGrid) {
				t.Errorf("expected ErrInvalidGrid, got %v", err)
			}
		})
	}
}

func TestFromPoints(t *testing.T) {
	g, err := FromPoints([]string{"alpha", "beta"}, [][]float64{{0.1, 0.2}, {0.3, 0.4}})
	require.NoError(t, err)

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []Bound{{0.1, 0.3}, {0.2, 0.4}}, g.Bounds())
	assert.Equal(t, []float64{0.2, 0.4}, g.Column(1))

	_, err = FromPoints([]string{"alpha"}, [][]float64{{0.1, 0.2}})
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = FromPoints([]string{"alpha"}, nil)
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = FromPoints([]string{"alpha"}, [][]float64{{}})
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = FromPoints([]string{"alpha", "beta"}, [][]float64{{0.1}, {0.1, 0.2}})
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = FromPoints(nil, [][]float64{{}})
	assert.ErrorIs(t, err, ErrInvalidGrid)
}
