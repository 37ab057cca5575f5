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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/mnemo/pkg/logging"
	"github.com/AleutianAI/mnemo/pkg/ux"
	"github.com/AleutianAI/mnemo/services/scheduler/registry"
	"github.com/AleutianAI/mnemo/services/scheduler/store"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	dbPath   string
	logLevel string
	logDir   string
	jsonOut  bool
}

// app is the state a command needs once flags are parsed.
type app struct {
	flags    *globalFlags
	registry *registry.Registry
	printer  *ux.Printer
	logger   *logging.Logger
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	a := &app{flags: flags, registry: registry.Default()}

	root := &cobra.Command{
		Use:           "mnemo",
		Short:         "Simulate spaced-repetition policies against modelled learners",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger != nil {
				return a.logger.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.dbPath, "db", defaultDBPath(), "run store directory")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	pf.StringVar(&flags.logDir, "log-dir", "", "also write JSON logs to this directory")
	pf.BoolVar(&flags.jsonOut, "json", false, "print machine-readable JSON")

	root.AddCommand(
		newRunCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newDeleteCmd(a),
		newKindsCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if err := a.newLogger(cmd, a.flags.logLevel); err != nil {
		return err
	}

	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		a.printer = ux.NewPrinter(f)
	} else {
		a.printer = ux.NewPlainPrinter(cmd.OutOrStdout())
	}
	return nil
}

// newLogger replaces the app logger. The --log-level flag, when given, wins
// over level.
func (a *app) newLogger(cmd *cobra.Command, level string) error {
	if a.flags.logLevel != "" {
		level = a.flags.logLevel
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
	a.logger = logging.New(logging.Config{
		Level:   lvl,
		LogDir:  a.flags.logDir,
		Service: cmd.Name(),
		Writer:  cmd.ErrOrStderr(),
	})
	return nil
}

func (a *app) openStore() (*store.Store, error) {
	a.logger.Debug("opening run store", "path", a.flags.dbPath)
	cfg := store.DefaultConfig(a.flags.dbPath)
	cfg.Logger = a.logger.Slog()
	return store.Open(cfg)
}

func defaultDBPath() string {
	if v := os.Getenv("MNEMO_DB"); v != "" {
		return v
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".mnemo", "runs")
	}
	return filepath.Join(".mnemo", "runs")
}
