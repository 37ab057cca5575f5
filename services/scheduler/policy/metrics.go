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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("mnemo.policy")

var (
	searchIterations metric.Int64Counter
	searchNodes      metric.Int64Histogram
	rolloutsTotal    metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		searchIterations, err = meter.Int64Counter(
			"mnemo_mcts_iterations_total",
			metric.WithDescription("Total MCTS iterations run"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		searchNodes, err = meter.Int64Histogram(
			"mnemo_mcts_tree_nodes",
			metric.WithDescription("Nodes in the search tree at decision time"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rolloutsTotal, err = meter.Int64Counter(
			"mnemo_rollouts_total",
			metric.WithDescription("Total planning rollouts by policy"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func recordSearch(ctx context.Context, iterations, nodes int) {
	if initMetrics() != nil {
		return
	}
	searchIterations.Add(ctx, int64(iterations))
	searchNodes.Record(ctx, int64(nodes))
}

func recordRollouts(ctx context.Context, kind Kind, n int) {
	if initMetrics() != nil {
		return
	}
	rolloutsTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("policy", string(kind))))
}
