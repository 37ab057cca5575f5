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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("mnemo.simulation")

var (
	stepsTotal       metric.Int64Counter
	successTotal     metric.Int64Counter
	decisionDuration metric.Float64Histogram
	itemsLearnt      metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		stepsTotal, err = meter.Int64Counter(
			"mnemo_steps_total",
			metric.WithDescription("Total review steps by policy"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		successTotal, err = meter.Int64Counter(
			"mnemo_recall_success_total",
			metric.WithDescription("Total successful recalls by policy"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		decisionDuration, err = meter.Float64Histogram(
			"mnemo_decision_duration_seconds",
			metric.WithDescription("Time spent choosing an item"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		itemsLearnt, err = meter.Int64Histogram(
			"mnemo_items_learnt",
			metric.WithDescription("Items above the learnt threshold at the end of a run"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func recordStep(ctx context.Context, policy string, success bool, decision time.Duration) {
	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("policy", policy))
	stepsTotal.Add(ctx, 1, attrs)
	if success {
		successTotal.Add(ctx, 1, attrs)
	}
	decisionDuration.Record(ctx, decision.Seconds(), attrs)
}

func recordRun(ctx context.Context, policy string, learnt int) {
	if initMetrics() != nil {
		return
	}
	itemsLearnt.Record(ctx, int64(learnt), metric.WithAttributes(attribute.String("policy", policy)))
}
