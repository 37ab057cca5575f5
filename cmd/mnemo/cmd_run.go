// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/mnemo/pkg/logging"
	"github.com/AleutianAI/mnemo/services/scheduler/config"
	"github.com/AleutianAI/mnemo/services/scheduler/policy"
	"github.com/AleutianAI/mnemo/services/scheduler/simulation"
	"github.com/AleutianAI/mnemo/services/scheduler/telemetry"
)

type runFlags struct {
	configPath  string
	metricsAddr string
	policy      string
	seed        uint64
	noStore     bool
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate one learner under one policy and store the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "YAML or JSON run configuration")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	cmd.Flags().StringVar(&f.policy, "policy", "", "override the configured policy")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "override the configured seed")
	cmd.Flags().BoolVar(&f.noStore, "no-store", false, "do not persist the run record")
	return cmd
}

func (a *app) run(cmd *cobra.Command, f *runFlags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.policy != "" {
		cfg.Policy.Kind = f.policy
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = f.seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := a.newLogger(cmd, cfg.Observability.LogLevel); err != nil {
		return err
	}
	logger := a.logger.Slog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Init(ctx, telemetryConfig(cfg, f, cmd))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("telemetry shutdown", "error", err)
			if !a.flags.jsonOut {
				a.printer.Warning("telemetry was not flushed: " + err.Error())
			}
		}
	}()

	if f.metricsAddr != "" {
		srv, err := serveMetrics(f.metricsAddr, providers.MetricsHandler(), a.logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	ctx, span := otel.Tracer("mnemo.cmd").Start(ctx, "mnemo.run",
		trace.WithAttributes(
			attribute.String("policy.kind", cfg.Policy.Kind),
			attribute.String("model.kind", cfg.Model.Kind),
			attribute.Int64("seed", int64(cfg.Seed)),
		),
	)
	defer span.End()
	logger = telemetry.LoggerWithTrace(ctx, logger)

	tracer := policy.NewDecisionTracer(logger, cfg.Observability.TracingEnabled)
	loop, err := simulation.New(cfg, a.registry,
		simulation.WithLogger(logger),
		simulation.WithTracer(tracer),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	rec, err := loop.Run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.String("run.id", rec.ID), attribute.Int("run.n_learnt", rec.NLearnt))

	if !f.noStore {
		s, err := a.openStore()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()
		if err := s.Put(ctx, rec); err != nil {
			return fmt.Errorf("store run: %w", err)
		}
		a.logger.Info("run stored", "run_id", rec.ID, "db", a.flags.dbPath)
	}

	if a.flags.jsonOut {
		return a.writeJSON(rec)
	}
	renderRecord(a.printer, rec)
	if f.noStore {
		a.printer.Warning("run " + rec.ID + " was not stored")
	} else {
		a.printer.Success("stored run " + rec.ID)
	}
	return nil
}

// telemetryConfig enables stdout tracing when the run config asks for
// tracing and no exporter was chosen through the environment.
func telemetryConfig(cfg config.Config, f *runFlags, cmd *cobra.Command) telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.Writer = cmd.ErrOrStderr()
	if cfg.Observability.TracingEnabled && tc.TraceExporter == "none" {
		tc.TraceExporter = "stdout"
	}
	if f.metricsAddr != "" {
		tc.MetricExporter = "prometheus"
	} else if cfg.Observability.MetricsEnabled && tc.MetricExporter == "none" {
		tc.MetricExporter = "stdout"
	}
	return tc
}

func serveMetrics(addr string, handler http.Handler, logger *logging.Logger) (*http.Server, error) {
	if handler == nil {
		return nil, errors.New("metrics handler unavailable")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return srv, nil
}
