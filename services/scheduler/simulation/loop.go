// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package simulation runs one simulated learner against one policy.
//
// Each step the loop picks the parameters the policy sees, asks the policy
// for an item, samples the learner's response under the true parameters,
// feeds the response to the belief and the policy, and advances the clock.
//
// # Randomness
//
// All randomness derives from Config.Seed. Responses and decisions draw from
// separate sub-streams so that a policy consuming more randomness does not
// change the learner's responses to the same sequence of items.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/mnemo/services/scheduler/belief"
	"github.com/AleutianAI/mnemo/services/scheduler/config"
	"github.com/AleutianAI/mnemo/services/scheduler/grid"
	"github.com/AleutianAI/mnemo/services/scheduler/memory"
	"github.com/AleutianAI/mnemo/services/scheduler/policy"
	"github.com/AleutianAI/mnemo/services/scheduler/registry"
	"github.com/AleutianAI/mnemo/services/scheduler/rng"
	"github.com/AleutianAI/mnemo/services/scheduler/session"
)

// ErrFinished is returned by Step once every iteration has run.
var ErrFinished = errors.New("simulation finished")

const (
	responseStream uint64 = 1
	decisionStream uint64 = 2
)

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the loop's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithTracer sets the decision tracer passed to the policy.
func WithTracer(t *policy.DecisionTracer) Option {
	return func(l *Loop) { l.tracer = t }
}

// WithStepCallback registers fn to run after every step.
func WithStepCallback(fn StepFunc) Option {
	return func(l *Loop) { l.callbacks = append(l.callbacks, fn) }
}

// Loop is one learner-policy pairing.
//
// Thread Safety: Not safe for concurrent use.
type Loop struct {
	cfg    config.Config
	task   session.Task
	mode   config.ParamMode
	model  memory.Model
	truth  memory.Params
	belief *belief.Engine
	policy policy.Policy

	mem       *memory.Memory
	clock     session.Clock
	t         int
	handover  int
	responses *rng.Stream
	decisions *rng.Stream

	logger    *slog.Logger
	tracer    *policy.DecisionTracer
	callbacks []StepFunc
	progress  *rate.Sometimes

	history   []Presentation
	nSeen     []int
	postMean  map[string][]float64
	postStd   map[string][]float64
	startedAt time.Time
}

// New builds a loop from a validated configuration.
//
// Inputs:
//   - cfg: Run configuration. Validated again here.
//   - reg: Resolves the model and policy names.
//   - opts: Optional logger, tracer and step callbacks.
//
// Outputs:
//   - *Loop: Ready to run, clock at zero.
//   - error: Non-nil on invalid configuration or unknown names.
func New(cfg config.Config, reg *registry.Registry, opts ...Option) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model, err := reg.Model(cfg.Model.Kind)
	if err != nil {
		return nil, err
	}
	g, err := grid.New(cfg.Model.ParamLabels, cfg.Model.Bounds, cfg.Model.GridSize)
	if err != nil {
		return nil, fmt.Errorf("build grid: %w", err)
	}
	eng, err := belief.New(model, g, cfg.NItem,
		belief.WithItemSpecific(cfg.Model.ItemSpecific),
		belief.WithParallelism(cfg.Belief.ParallelMin, cfg.Belief.Workers),
	)
	if err != nil {
		return nil, fmt.Errorf("build belief: %w", err)
	}

	l := &Loop{
		cfg:    cfg,
		task:   cfg.SessionTask(),
		mode:   config.ParamMode(cfg.Policy.ParamMode),
		model:  model,
		truth:  cfg.Truth(),
		belief: eng,
		mem:    memory.New(cfg.NItem),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(
		slog.String("agent_id", cfg.AgentID),
		slog.String("policy", cfg.Policy.Kind),
	)

	popts := cfg.PolicyOptions()
	popts.Logger = l.logger
	popts.Tracer = l.tracer
	l.policy, err = reg.NewPolicy(cfg.Policy.Kind, model, popts)
	if err != nil {
		return nil, fmt.Errorf("build policy: %w", err)
	}

	if iv := cfg.Observability.ProgressInterval; iv > 0 {
		l.progress = &rate.Sometimes{Interval: iv}
	}
	l.Reset()
	return l, nil
}

// Reset returns the loop to time zero with the same seed.
func (l *Loop) Reset() {
	root := rng.New(l.cfg.Seed)
	l.responses = root.Split(responseStream)
	l.decisions = root.Split(decisionStream)

	l.mem.Reset()
	l.clock.Reset()
	l.t = 0
	l.handover = 0
	if l.mode == config.ParamAdaptive {
		l.handover = -1
	}
	l.belief.Initialize()
	l.policy.Reset()

	n := l.task.Iterations()
	l.history = make([]Presentation, 0, n)
	l.nSeen = make([]int, 0, n)
	l.postMean = make(map[string][]float64)
	l.postStd = make(map[string][]float64)
	for _, label := range l.cfg.Model.ParamLabels {
		l.postMean[label] = make([]float64, 0, n)
		l.postStd[label] = make([]float64, 0, n)
	}
	l.startedAt = time.Time{}
}

// Done reports whether every iteration has run.
func (l *Loop) Done() bool { return l.t >= l.task.Iterations() }

// Clock returns the current simulated time.
func (l *Loop) Clock() session.Clock { return l.clock }

// Memory returns the learner's presentation record. Read-only.
func (l *Loop) Memory() *memory.Memory { return l.mem }

// Belief returns the posterior engine.
func (l *Loop) Belief() *belief.Engine { return l.belief }

// Step runs one review.
//
// Outputs:
//   - error: ErrFinished after the last iteration, or the policy's error.
//     Context cancellation surfaces through the policy.
func (l *Loop) Step(ctx context.Context) error {
	if l.Done() {
		return ErrFinished
	}
	if l.startedAt.IsZero() {
		l.startedAt = time.Now()
	}
	now := l.clock.Now

	start := time.Now()
	item, err := l.choose(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return fmt.Errorf("step %d: %w", l.t, err)
	}

	p := l.model.RecallProbability(l.mem, item, l.truth.For(item), now)
	success := l.responses.Float64() < p

	l.belief.Update(l.mem, item, success, now)
	l.policy.Notify(item, success, now)
	l.mem.Update(item, now)

	l.history = append(l.history, Presentation{Item: item, Time: now, Success: success})
	l.nSeen = append(l.nSeen, l.mem.NSeen())
	mean, std := l.belief.PosteriorMean(), l.belief.PosteriorStd()
	for d, label := range l.cfg.Model.ParamLabels {
		l.postMean[label] = append(l.postMean[label], mean[d])
		l.postStd[label] = append(l.postStd[label], std[d])
	}

	recordStep(ctx, l.cfg.Policy.Kind, success, elapsed)
	ev := StepEvent{T: l.t, Item: item, Success: success, PosteriorMean: mean, PosteriorStd: std}
	for _, fn := range l.callbacks {
		fn(ev)
	}
	if l.progress != nil {
		l.progress.Do(func() {
			l.logger.Info("run progress",
				slog.Int("step", l.t+1),
				slog.Int("of", l.task.Iterations()),
				slog.Int("seen", l.mem.NSeen()),
			)
		})
	}

	l.clock.Advance(l.task)
	l.t++
	return nil
}

// choose picks the parameters the policy sees and asks it for an item. In
// adaptive mode the loop explores until the belief is confident or the step
// cap is reached; the policy is consulted from then on.
func (l *Loop) choose(ctx context.Context) (int, error) {
	d := policy.Decision{
		Memory: l.mem,
		Clock:  l.clock,
		Rand:   l.decisions,
	}
	switch l.mode {
	case config.ParamOmniscient:
		d.Params = l.truth
	case config.ParamAdaptive:
		if l.handover < 0 {
			if !l.exploreDone() {
				return l.explore(), nil
			}
			l.handover = l.t
			l.logger.Info("adaptive hand-over",
				slog.Int("step", l.t),
				slog.Int("seen", l.mem.NSeen()),
			)
		}
		d.Params = l.belief.PointEstimate()
	default:
		d.Params = l.belief.PointEstimate()
	}

	ctx, span := l.tracer.StartDecision(ctx, l.policy.Kind(), l.t)
	item, err := l.policy.SelectAction(ctx, d)
	l.tracer.EndDecision(span, item, err)
	return item, err
}

func (l *Loop) exploreDone() bool {
	if limit := l.cfg.Policy.AdaptiveMaxSteps; limit > 0 && l.t >= limit {
		return true
	}
	return l.belief.Confident(l.cfg.Policy.AdaptiveConfidence)
}

// explore returns the most informative candidate, or the new item when no
// seen item is worth AdaptiveMinGain.
func (l *Loop) explore() int {
	now := l.clock.Now
	candidates := policy.PossibleActions(policy.NewPlanState(l.mem, l.clock))
	best := l.belief.MostInformativeItem(l.mem, candidates, now)
	if l.belief.InformationGain(l.mem, best, now) >= l.cfg.Policy.AdaptiveMinGain {
		return best
	}
	for _, c := range candidates {
		if !l.mem.Seen(c) {
			return c
		}
	}
	return best
}

// Run steps until the end of the task and returns the run record.
func (l *Loop) Run(ctx context.Context) (*Record, error) {
	l.logger.Info("run started",
		slog.Uint64("seed", l.cfg.Seed),
		slog.String("model", l.cfg.Model.Kind),
		slog.String("param_mode", string(l.mode)),
		slog.Int("iterations", l.task.Iterations()),
	)
	for !l.Done() {
		if err := l.Step(ctx); err != nil {
			return nil, err
		}
	}
	rec := l.Record()
	recordRun(ctx, l.cfg.Policy.Kind, rec.NLearnt)
	l.logger.Info("run finished",
		slog.String("run_id", rec.ID),
		slog.Int("n_learnt", rec.NLearnt),
		slog.Int("n_seen", rec.FinalSeen()),
		slog.Duration("elapsed", rec.Elapsed),
	)
	return rec, nil
}

// Record snapshots the run so far. FinalRecall is evaluated at the current
// clock under the true parameters.
func (l *Loop) Record() *Record {
	rec := &Record{
		ID:            uuid.NewString(),
		AgentID:       l.cfg.AgentID,
		StartedAt:     l.startedAt,
		Config:        l.cfg,
		History:       append([]Presentation(nil), l.history...),
		NSeen:         append([]int(nil), l.nSeen...),
		PosteriorMean: make(map[string][]float64, len(l.postMean)),
		PosteriorStd:  make(map[string][]float64, len(l.postStd)),
		FinalRecall:   make([]float64, l.cfg.NItem),
		HandoverStep:  l.handover,
	}
	if !l.startedAt.IsZero() {
		rec.Elapsed = time.Since(l.startedAt)
	}
	for k, v := range l.postMean {
		rec.PosteriorMean[k] = append([]float64(nil), v...)
	}
	for k, v := range l.postStd {
		rec.PosteriorStd[k] = append([]float64(nil), v...)
	}
	for i := range rec.FinalRecall {
		rec.FinalRecall[i] = l.model.RecallProbability(l.mem, i, l.truth.For(i), l.clock.Now)
		if rec.FinalRecall[i] > l.cfg.Task.LearntThreshold {
			rec.NLearnt++
		}
	}
	return rec
}
