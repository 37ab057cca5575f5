// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package belief maintains a grid posterior over forgetting-model parameters.
//
// The Engine holds a normalized log-posterior over the points of a
// grid.Grid. Each observed response adds the model's log-likelihood for
// every point and renormalizes with log-sum-exp, so the vector always
// satisfies logsumexp(logPost) == 0 up to floating error.
//
// In item-specific mode the engine keeps one independent posterior per item
// and an observation on item i updates only posterior i.
//
// # Thread Safety
//
// Engine is not safe for concurrent use. Likelihood evaluation for large
// grids fans out internally, but Update returns only after all workers are
// done.
package belief

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/AleutianAI/mnemo/services/scheduler/grid"
	"github.com/AleutianAI/mnemo/services/scheduler/memory"
)

// ErrLikelihoodLength is returned when a likelihood vector does not match
// the grid.
var ErrLikelihoodLength = errors.New("likelihood length does not match grid")

const (
	// DefaultParallelMin is the grid size from which likelihoods are
	// computed in parallel.
	DefaultParallelMin = 4096

	// DefaultWorkers is the number of likelihood chunks for large grids.
	DefaultWorkers = 4
)

// Engine is the grid Bayesian belief over model parameters.
type Engine struct {
	model        memory.Model
	grid         *grid.Grid
	nItem        int
	itemSpecific bool
	parallelMin  int
	workers      int

	logPost [][]float64
	columns [][]float64
	ll      []float64
	weights []float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithItemSpecific keeps one posterior per item.
func WithItemSpecific(on bool) Option {
	return func(e *Engine) { e.itemSpecific = on }
}

// WithParallelism sets the grid size from which likelihood evaluation is
// split across workers goroutines. workers <= 1 disables it.
func WithParallelism(minPoints, workers int) Option {
	return func(e *Engine) {
		e.parallelMin = minPoints
		e.workers = workers
	}
}

// New creates an engine with a uniform prior.
func New(model memory.Model, g *grid.Grid, nItem int, opts ...Option) (*Engine, error) {
	if g == nil || g.Len() == 0 {
		return nil, fmt.Errorf("%w: empty grid", grid.ErrInvalidGrid)
	}
	if g.Dim() != len(model.Labels()) {
		return nil, fmt.Errorf("%w: grid has %d dimensions, model %s expects %d",
			grid.ErrInvalidGrid, g.Dim(), model.Kind(), len(model.Labels()))
	}
	e := &Engine{
		model:       model,
		grid:        g,
		nItem:       nItem,
		parallelMin: DefaultParallelMin,
		workers:     DefaultWorkers,
		ll:          make([]float64, g.Len()),
		weights:     make([]float64, g.Len()),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.columns = make([][]float64, g.Dim())
	for d := range e.columns {
		e.columns[d] = g.Column(d)
	}
	n := 1
	if e.itemSpecific {
		n = nItem
	}
	e.logPost = make([][]float64, n)
	for i := range e.logPost {
		e.logPost[i] = make([]float64, g.Len())
	}
	e.Initialize()
	return e, nil
}

// Initialize resets every posterior to the uniform prior.
func (e *Engine) Initialize() {
	for _, lp := range e.logPost {
		for j := range lp {
			lp[j] = 0
		}
		normalize(lp)
	}
}

// Grid returns the grid the engine integrates over.
func (e *Engine) Grid() *grid.Grid { return e.grid }

// ItemSpecific reports whether the engine keeps per-item posteriors.
func (e *Engine) ItemSpecific() bool { return e.itemSpecific }

// Update conditions the belief on one response to item. mem must be the
// record before the presentation being scored is applied.
func (e *Engine) Update(mem *memory.Memory, item int, success bool, now float64) {
	e.likelihood(mem, item, success, now)
	// Lengths match by construction.
	_ = e.UpdateLogLikelihood(item, e.ll)
}

// UpdateLogLikelihood adds ll to the posterior of item and renormalizes.
func (e *Engine) UpdateLogLikelihood(item int, ll []float64) error {
	if len(ll) != e.grid.Len() {
		return fmt.Errorf("%w: got %d, want %d", ErrLikelihoodLength, len(ll), e.grid.Len())
	}
	lp := e.logPost[e.index(item)]
	floats.Add(lp, ll)
	normalize(lp)
	return nil
}

// LogPosterior returns a copy of the log-posterior that applies to item.
func (e *Engine) LogPosterior(item int) []float64 {
	return append([]float64(nil), e.logPost[e.index(item)]...)
}

// Posterior returns the normalized posterior weights that apply to item.
func (e *Engine) Posterior(item int) []float64 {
	w := make([]float64, e.grid.Len())
	for j, v := range e.logPost[e.index(item)] {
		w[j] = math.Exp(v)
	}
	return w
}

// Mean returns the posterior mean of each parameter for item.
func (e *Engine) Mean(item int) []float64 {
	w := e.fillWeights(item)
	out := make([]float64, len(e.columns))
	for d, col := range e.columns {
		out[d] = stat.Mean(col, w)
	}
	return out
}

// Std returns the posterior population standard deviation of each
// parameter for item.
func (e *Engine) Std(item int) []float64 {
	w := e.fillWeights(item)
	out := make([]float64, len(e.columns))
	for d, col := range e.columns {
		_, out[d] = stat.PopMeanStdDev(col, w)
	}
	return out
}

// PosteriorMean returns the posterior mean per parameter. In item-specific
// mode it is the average of the per-item means.
func (e *Engine) PosteriorMean() []float64 {
	return e.average(e.Mean)
}

// PosteriorStd returns the posterior standard deviation per parameter. In
// item-specific mode it is the average of the per-item deviations.
func (e *Engine) PosteriorStd() []float64 {
	return e.average(e.Std)
}

// PointEstimate returns the posterior-mean parameters, per item when the
// engine is item-specific.
func (e *Engine) PointEstimate() memory.Params {
	if !e.itemSpecific {
		return memory.Params{Global: e.Mean(0)}
	}
	per := make([][]float64, e.nItem)
	for i := range per {
		per[i] = e.Mean(i)
	}
	return memory.Params{PerItem: per}
}

// Confident reports whether every parameter's posterior std is below
// fraction of that parameter's bound width.
func (e *Engine) Confident(fraction float64) bool {
	bounds := e.grid.Bounds()
	for d, s := range e.PosteriorStd() {
		if s >= fraction*bounds[d].Width() {
			return false
		}
	}
	return true
}

func (e *Engine) index(item int) int {
	if e.itemSpecific {
		return item
	}
	return 0
}

func (e *Engine) fillWeights(item int) []float64 {
	for j, v := range e.logPost[e.index(item)] {
		e.weights[j] = math.Exp(v)
	}
	return e.weights
}

func (e *Engine) average(per func(int) []float64) []float64 {
	if !e.itemSpecific {
		return per(0)
	}
	out := make([]float64, e.grid.Dim())
	for i := 0; i < e.nItem; i++ {
		floats.Add(out, per(i))
	}
	floats.Scale(1/float64(e.nItem), out)
	return out
}

func (e *Engine) likelihood(mem *memory.Memory, item int, success bool, now float64) {
	points := e.grid.Points()
	if e.workers <= 1 || len(points) < e.parallelMin {
		memory.LogLikelihoodGrid(e.model, mem, item, points, success, now, e.ll)
		return
	}

	chunk := (len(points) + e.workers - 1) / e.workers
	var g errgroup.Group
	for start := 0; start < len(points); start += chunk {
		end := min(start+chunk, len(points))
		g.Go(func() error {
			memory.LogLikelihoodGrid(e.model, mem, item, points[start:end], success, now, e.ll[start:end])
			return nil
		})
	}
	_ = g.Wait()
}

// normalize subtracts logsumexp(lp) from every entry.
func normalize(lp []float64) {
	lse := floats.LogSumExp(lp)
	if math.IsInf(lse, 0) || math.IsNaN(lse) {
		return
	}
	floats.AddConst(-lse, lp)
}
