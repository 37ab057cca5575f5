// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package grid builds the discrete parameter grids the belief engine
// integrates over.
package grid

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidGrid is returned for malformed grid definitions.
var ErrInvalidGrid = errors.New("invalid parameter grid")

// Bound is the closed [Low, High] range of one parameter dimension.
type Bound struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// Width returns High - Low.
func (b Bound) Width() float64 {
	return b.High - b.Low
}

// Grid is an immutable, ordered set of parameter points.
//
// Points built by New enumerate the Cartesian product of per-dimension
// linspaces with the last dimension varying fastest, so the index of a
// point is stable for a given definition.
type Grid struct {
	labels []string
	bounds []Bound
	points [][]float64
}

// New builds the Cartesian grid of resolution evenly spaced values per
// dimension, endpoints included.
//
// Returns ErrInvalidGrid when labels and bounds differ in length, when
// resolution is not positive or when a bound has Low > High.
func New(labels []string, bounds []Bound, resolution int) (*Grid, error) {
	if len(labels) != len(bounds) {
		return nil, fmt.Errorf("%w: %d labels for %d bounds", ErrInvalidGrid, len(labels), len(bounds))
	}
	if len(bounds) == 0 {
		return nil, fmt.Errorf("%w: no dimensions", ErrInvalidGrid)
	}
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: resolution must be > 0, got %d", ErrInvalidGrid, resolution)
	}
	axes := make([][]float64, len(bounds))
	for d, b := range bounds {
		if b.Low > b.High {
			return nil, fmt.Errorf("%w: dimension %q has low %v > high %v", ErrInvalidGrid, labels[d], b.Low, b.High)
		}
		axis := make([]float64, resolution)
		if resolution == 1 {
			axis[0] = b.Low
		} else {
			floats.Span(axis, b.Low, b.High)
		}
		axes[d] = axis
	}

	total := 1
	for range axes {
		total *= resolution
	}
	points := make([][]float64, total)
	for i := range points {
		p := make([]float64, len(axes))
		rem := i
		for d := len(axes) - 1; d >= 0; d-- {
			p[d] = axes[d][rem%resolution]
			rem /= resolution
		}
		points[i] = p
	}

	return &Grid{
		labels: append([]string(nil), labels...),
		bounds: append([]Bound(nil), bounds...),
		points: points,
	}, nil
}

// FromPoints builds a grid from explicit points. Bounds are the per-dimension
// minimum and maximum of the points.
func FromPoints(labels []string, points [][]float64) (*Grid, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no points", ErrInvalidGrid)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no labels", ErrInvalidGrid)
	}
	bounds := make([]Bound, len(labels))
	copied := make([][]float64, len(points))
	for i, p := range points {
		if len(p) != len(labels) {
			return nil, fmt.Errorf("%w: point %d has %d values for %d labels", ErrInvalidGrid, i, len(p), len(labels))
		}
		for d, v := range p {
			if i == 0 || v < bounds[d].Low {
				bounds[d].Low = v
			}
			if i == 0 || v > bounds[d].High {
				bounds[d].High = v
			}
		}
		copied[i] = append([]float64(nil), p...)
	}
	return &Grid{
		labels: append([]string(nil), labels...),
		bounds: bounds,
		points: copied,
	}, nil
}

// Len returns the number of points.
func (g *Grid) Len() int { return len(g.points) }

// Dim returns the number of parameter dimensions.
func (g *Grid) Dim() int { return len(g.labels) }

// Labels returns a copy of the dimension labels.
func (g *Grid) Labels() []string { return append([]string(nil), g.labels...) }

// Bounds returns a copy of the dimension bounds.
func (g *Grid) Bounds() []Bound { return append([]Bound(nil), g.bounds...) }

// Point returns the point at index i. The slice is shared; callers must not
// modify it.
func (g *Grid) Point(i int) []float64 { return g.points[i] }

// Points returns all points. The slices are shared; callers must not modify
// them.
func (g *Grid) Points() [][]float64 { return g.points }

// Column returns the values of dimension d across all points.
func (g *Grid) Column(d int) []float64 {
	col := make([]float64, len(g.points))
	for i, p := range g.points {
		col[i] = p[d]
	}
	return col
}
