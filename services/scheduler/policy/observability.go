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
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "mnemo.policy"

// DecisionTracer provides OpenTelemetry tracing for decisions and searches.
// A nil *DecisionTracer is valid and traces nothing.
//
// Thread Safety: Safe for concurrent use.
type DecisionTracer struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	enabled bool
}

// NewDecisionTracer creates a tracer on the global provider.
//
// Inputs:
//   - logger: Logger for debug output (nil uses slog.Default()).
//   - enabled: When false every span is a no-op.
//
// Outputs:
//   - *DecisionTracer: Tracer instance.
func NewDecisionTracer(logger *slog.Logger, enabled bool) *DecisionTracer {
	return NewDecisionTracerWithProvider(otel.GetTracerProvider(), logger, enabled)
}

// NewDecisionTracerWithProvider creates a tracer on an explicit provider.
func NewDecisionTracerWithProvider(tp trace.TracerProvider, logger *slog.Logger, enabled bool) *DecisionTracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &DecisionTracer{
		tracer:  tp.Tracer(tracerName),
		logger:  logger,
		enabled: enabled,
	}
}

// StartDecision starts a span around one item choice.
func (t *DecisionTracer) StartDecision(ctx context.Context, kind Kind, step int) (context.Context, trace.Span) {
	if t == nil || !t.enabled {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "policy.decide",
		trace.WithAttributes(
			attribute.String("policy.kind", string(kind)),
			attribute.Int("policy.step", step),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndDecision completes a decision span.
func (t *DecisionTracer) EndDecision(span trace.Span, item int, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("policy.item", item))
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// StartSearch starts a span for one MCTS run.
func (t *DecisionTracer) StartSearch(ctx context.Context, opts MCTSOptions, rootActions int) (context.Context, trace.Span) {
	if t == nil || !t.enabled {
		return ctx, noop.Span{}
	}
	ctx, span := t.tracer.Start(ctx, "mcts.run",
		trace.WithAttributes(
			attribute.Int("mcts.iterations", opts.Iterations),
			attribute.Int("mcts.horizon", opts.Horizon),
			attribute.Float64("mcts.exploration_constant", opts.ExplorationConstant),
			attribute.Int("mcts.root_actions", rootActions),
		),
	)
	t.logger.DebugContext(ctx, "MCTS run started",
		slog.Int("iterations", opts.Iterations),
		slog.Int("horizon", opts.Horizon),
		slog.Int("root_actions", rootActions),
	)
	return ctx, span
}

// EndSearch completes a search span with the tree summary.
func (t *DecisionTracer) EndSearch(span trace.Span, nodes, chosen, chosenVisits int, chosenMean float64) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("mcts.result.nodes", nodes),
		attribute.Int("mcts.result.action", chosen),
		attribute.Int("mcts.result.visits", chosenVisits),
		attribute.Float64("mcts.result.mean_reward", chosenMean),
	)
	span.SetStatus(codes.Ok, "")
	span.End()

	if t != nil && t.enabled {
		t.logger.Debug("MCTS run completed",
			slog.Int("nodes", nodes),
			slog.Int("action", chosen),
			slog.Int("visits", chosenVisits),
			slog.Float64("mean_reward", chosenMean),
		)
	}
}
