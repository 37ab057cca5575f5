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
	"encoding/json"
	"fmt"
	"time"

	"github.com/AleutianAI/mnemo/pkg/ux"
	"github.com/AleutianAI/mnemo/services/scheduler/simulation"
)

// writeJSON prints v as indented JSON to the printer's destination.
func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.printer.Writer())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderRecord prints the run summary: identity, outcome and the final
// posterior estimate next to the true parameters.
func renderRecord(p *ux.Printer, rec *simulation.Record) {
	cfg := rec.Config
	p.Title("Run " + rec.ID)
	p.Field("id", rec.ID)
	p.Field("agent", rec.AgentID)
	p.Field("policy", cfg.Policy.Kind)
	p.Field("param mode", cfg.Policy.ParamMode)
	p.Field("model", cfg.Model.Kind)
	p.Field("seed", cfg.Seed)
	p.Field("reviews", len(rec.History))
	p.Field("seen", p.ProgressBar(rec.FinalSeen(), cfg.NItem, 30))
	p.Field("learnt", p.ProgressBar(rec.NLearnt, cfg.NItem, 30))
	p.Field("success rate", fmt.Sprintf("%.3f", rec.SuccessRate()))
	if rec.Elapsed > 0 {
		p.Field("elapsed", rec.Elapsed.Round(time.Millisecond))
	}

	truth := cfg.Truth()
	lines := make([]string, 0, len(cfg.Model.ParamLabels))
	for d, label := range cfg.Model.ParamLabels {
		mean, std := last(rec.PosteriorMean[label]), last(rec.PosteriorStd[label])
		line := fmt.Sprintf("%-6s %.4f ± %.4f", label, mean, std)
		if !truth.ItemSpecific() {
			line += fmt.Sprintf("  (true %.4f)", truth.Global[d])
		}
		lines = append(lines, line)
	}
	p.Box("Posterior", lines)
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}
