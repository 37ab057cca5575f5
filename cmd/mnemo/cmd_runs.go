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
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonOut {
				return a.writeJSON(runs)
			}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.ID,
					r.StartedAt.Format(time.DateTime),
					r.AgentID,
					r.Policy,
					r.Model,
					strconv.Itoa(r.NLearnt) + "/" + strconv.Itoa(r.NItem),
				}
			}
			a.printer.Table([]string{"ID", "STARTED", "AGENT", "POLICY", "MODEL", "LEARNT"}, rows)
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.flags.jsonOut {
				return a.writeJSON(rec)
			}
			renderRecord(a.printer, rec)
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.logger.Info("run deleted", "run_id", args[0])
			a.printer.Success("deleted run " + args[0])
			return nil
		},
	}
}

func newKindsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the available memory models and policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := map[string][]string{
				"models":   a.registry.Models(),
				"policies": a.registry.Policies(),
			}
			if a.flags.jsonOut {
				return a.writeJSON(kinds)
			}
			a.printer.Box("Models", kinds["models"])
			a.printer.Box("Policies", kinds["policies"])
			return nil
		},
	}
}
