// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates scheduler run configuration.
//
// Load order is defaults, then the file (YAML first, JSON fallback), then
// MNEMO_* environment variables, then Validate.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/mnemo/services/scheduler/grid"
	"github.com/AleutianAI/mnemo/services/scheduler/memory"
	"github.com/AleutianAI/mnemo/services/scheduler/policy"
	"github.com/AleutianAI/mnemo/services/scheduler/session"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// ParamMode selects which parameters feed the policy.
type ParamMode string

const (
	// ParamPosterior uses the belief's posterior mean.
	ParamPosterior ParamMode = "posterior"

	// ParamOmniscient uses the ground-truth parameters.
	ParamOmniscient ParamMode = "omniscient"

	// ParamAdaptive presents the most informative item until the belief is
	// confident, then uses the posterior mean.
	ParamAdaptive ParamMode = "adaptive"
)

// Config is a complete run description.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type Config struct {
	Seed    uint64 `json:"seed" yaml:"seed"`
	AgentID string `json:"agent_id" yaml:"agent_id"`
	NItem   int    `json:"n_item" yaml:"n_item" validate:"min=1"`

	Task          TaskConfig          `json:"task" yaml:"task"`
	Model         ModelConfig         `json:"model" yaml:"model"`
	Policy        PolicyConfig        `json:"policy" yaml:"policy"`
	Belief        BeliefConfig        `json:"belief" yaml:"belief"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// TaskConfig holds the session structure.
type TaskConfig struct {
	SessionLength    int     `json:"session_length" yaml:"session_length" validate:"min=1"`
	SessionGap       float64 `json:"session_gap" yaml:"session_gap" validate:"gte=0"`
	TimePerIteration float64 `json:"time_per_iteration" yaml:"time_per_iteration" validate:"gt=0"`
	NSession         int     `json:"n_session" yaml:"n_session" validate:"min=1"`
	LearntThreshold  float64 `json:"learnt_threshold" yaml:"learnt_threshold" validate:"gt=0,lt=1"`
}

// ModelConfig describes the forgetting model, its parameter grid and the
// learner's true parameters.
type ModelConfig struct {
	Kind         string       `json:"kind" yaml:"kind" validate:"required,modelkind"`
	ParamLabels  []string     `json:"param_labels" yaml:"param_labels" validate:"required,min=1,dive,required"`
	Bounds       []grid.Bound `json:"bounds" yaml:"bounds" validate:"required,min=1"`
	GridSize     int          `json:"grid_size" yaml:"grid_size" validate:"min=1"`
	ItemSpecific bool         `json:"item_specific" yaml:"item_specific"`
	Truth        []float64    `json:"truth,omitempty" yaml:"truth,omitempty"`
	TruthPerItem [][]float64  `json:"truth_per_item,omitempty" yaml:"truth_per_item,omitempty"`
}

// PolicyConfig selects the policy and holds every variant's constants.
type PolicyConfig struct {
	Kind      string `json:"kind" yaml:"kind" validate:"required,policykind"`
	ParamMode string `json:"param_mode" yaml:"param_mode" validate:"required,oneof=posterior omniscient adaptive"`

	// AdaptiveConfidence is the fraction of each bound width the posterior
	// std must fall below before adaptive mode hands over to the policy.
	AdaptiveConfidence float64 `json:"adaptive_confidence" yaml:"adaptive_confidence" validate:"gt=0,lte=1"`

	// AdaptiveMaxSteps caps the exploration phase. Zero means no cap.
	AdaptiveMaxSteps int `json:"adaptive_max_steps" yaml:"adaptive_max_steps" validate:"gte=0"`

	// AdaptiveMinGain is the information gain, in nats, below which a seen
	// item is not worth repeating and the next new item is presented instead.
	AdaptiveMinGain float64 `json:"adaptive_min_gain" yaml:"adaptive_min_gain" validate:"gte=0"`

	Reward    RewardConfig    `json:"reward" yaml:"reward"`
	Leitner   LeitnerConfig   `json:"leitner" yaml:"leitner"`
	Sampling  SamplingConfig  `json:"sampling" yaml:"sampling"`
	MCTS      MCTSConfig      `json:"mcts" yaml:"mcts"`
	Recursive RecursiveConfig `json:"recursive" yaml:"recursive"`
}

// RewardConfig selects the planning reward.
type RewardConfig struct {
	Kind      string  `json:"kind" yaml:"kind" validate:"required,oneof=sigmoid threshold"`
	SigmoidK  float64 `json:"sigmoid_k" yaml:"sigmoid_k" validate:"gt=0"`
	SigmoidX0 float64 `json:"sigmoid_x0" yaml:"sigmoid_x0" validate:"gte=0,lte=1"`
	Threshold float64 `json:"threshold" yaml:"threshold" validate:"gte=0,lte=1"`
}

type LeitnerConfig struct {
	NBox        int     `json:"n_box" yaml:"n_box" validate:"min=1"`
	DelayMin    float64 `json:"delay_min" yaml:"delay_min" validate:"gt=0"`
	DelayFactor float64 `json:"delay_factor" yaml:"delay_factor" validate:"gt=1"`
}

type SamplingConfig struct {
	NSample int `json:"n_sample" yaml:"n_sample" validate:"min=1"`
	Horizon int `json:"horizon" yaml:"horizon" validate:"min=1"`
	Workers int `json:"workers" yaml:"workers" validate:"gte=0"`
}

type MCTSConfig struct {
	ExplorationConstant float64 `json:"exploration_constant" yaml:"exploration_constant" validate:"gt=0"`
	Horizon             int     `json:"horizon" yaml:"horizon" validate:"min=1"`
	Iterations          int     `json:"iterations" yaml:"iterations" validate:"min=1"`
}

type RecursiveConfig struct {
	Horizon int `json:"horizon" yaml:"horizon" validate:"min=1"`
}

// BeliefConfig tunes likelihood parallelism.
type BeliefConfig struct {
	ParallelMin int `json:"parallel_min" yaml:"parallel_min" validate:"min=1"`
	Workers     int `json:"workers" yaml:"workers" validate:"min=1"`
}

// ObservabilityConfig contains logging, tracing and metrics settings.
type ObservabilityConfig struct {
	TracingEnabled   bool          `json:"tracing_enabled" yaml:"tracing_enabled"`
	MetricsEnabled   bool          `json:"metrics_enabled" yaml:"metrics_enabled"`
	LogLevel         string        `json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	ProgressInterval time.Duration `json:"progress_interval" yaml:"progress_interval"`
}

// Default returns the reference configuration: 100 items, 15 sessions of
// 100 two-second reviews a day apart, exponential decay on a 20x20 grid and
// the threshold policy fed by the posterior.
func Default() Config {
	return Config{
		Seed:    123,
		AgentID: "agent-0",
		NItem:   100,
		Task: TaskConfig{
			SessionLength:    100,
			SessionGap:       86200,
			TimePerIteration: 2,
			NSession:         15,
			LearntThreshold:  0.9,
		},
		Model: ModelConfig{
			Kind:        string(memory.KindExponential),
			ParamLabels: []string{"alpha", "beta"},
			Bounds:      []grid.Bound{{Low: 0.001, High: 0.2}, {Low: 0, High: 0.5}},
			GridSize:    20,
			Truth:       []float64{0.02, 0.2},
		},
		Policy: PolicyConfig{
			Kind:               string(policy.KindThreshold),
			ParamMode:          string(ParamPosterior),
			AdaptiveConfidence: 0.1,
			AdaptiveMaxSteps:   100,
			AdaptiveMinGain:    0.01,
			Reward: RewardConfig{
				Kind:      string(policy.RewardSigmoid),
				SigmoidK:  policy.DefaultSigmoidK,
				SigmoidX0: policy.DefaultSigmoidX0,
				Threshold: 0.9,
			},
			Leitner:   LeitnerConfig{NBox: 10, DelayMin: 2, DelayFactor: 2},
			Sampling:  SamplingConfig{NSample: 500, Horizon: 100},
			MCTS:      MCTSConfig{ExplorationConstant: math.Sqrt2, Horizon: 10, Iterations: 500},
			Recursive: RecursiveConfig{Horizon: 10},
		},
		Belief: BeliefConfig{ParallelMin: 4096, Workers: 4},
		Observability: ObservabilityConfig{
			LogLevel:         "info",
			ProgressInterval: 5 * time.Second,
		},
	}
}

// Load reads configuration.
//
// Inputs:
//   - configPath: YAML or JSON file. Empty or missing uses defaults.
//
// Outputs:
//   - Config: The merged configuration.
//   - error: Non-nil when the file cannot be parsed or validation fails.
func Load(configPath string) (Config, error) {
	config := Default()

	if configPath != "" {
		if err := loadConfigFile(configPath, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(&config)

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(config *Config) {
	if v := os.Getenv("MNEMO_SEED"); v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Seed = u
		}
	}
	if v := os.Getenv("MNEMO_AGENT_ID"); v != "" {
		config.AgentID = v
	}
	if v := os.Getenv("MNEMO_N_ITEM"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.NItem = i
		}
	}

	// Task
	if v := os.Getenv("MNEMO_SESSION_LENGTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Task.SessionLength = i
		}
	}
	if v := os.Getenv("MNEMO_N_SESSION"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Task.NSession = i
		}
	}
	if v := os.Getenv("MNEMO_SESSION_GAP"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Task.SessionGap = f
		}
	}

	// Model
	if v := os.Getenv("MNEMO_MODEL"); v != "" {
		config.Model.Kind = v
	}
	if v := os.Getenv("MNEMO_GRID_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Model.GridSize = i
		}
	}

	// Policy
	if v := os.Getenv("MNEMO_POLICY"); v != "" {
		config.Policy.Kind = v
	}
	if v := os.Getenv("MNEMO_PARAM_MODE"); v != "" {
		config.Policy.ParamMode = v
	}
	if v := os.Getenv("MNEMO_MCTS_ITERATIONS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Policy.MCTS.Iterations = i
		}
	}
	if v := os.Getenv("MNEMO_MCTS_HORIZON"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Policy.MCTS.Horizon = i
		}
	}
	if v := os.Getenv("MNEMO_SAMPLING_N_SAMPLE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Policy.Sampling.NSample = i
		}
	}

	// Observability
	if v := os.Getenv("MNEMO_TRACING_ENABLED"); v != "" {
		config.Observability.TracingEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("MNEMO_METRICS_ENABLED"); v != "" {
		config.Observability.MetricsEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("MNEMO_LOG_LEVEL"); v != "" {
		config.Observability.LogLevel = v
	}
}

// Validate checks struct constraints and the cross-field rules the tags
// cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	m := c.Model
	if len(m.ParamLabels) != len(m.Bounds) {
		return fmt.Errorf("%w: %d param labels for %d bounds", ErrInvalidConfig, len(m.ParamLabels), len(m.Bounds))
	}
	for i, b := range m.Bounds {
		if b.Low > b.High {
			return fmt.Errorf("%w: bound %q has low %v > high %v", ErrInvalidConfig, m.ParamLabels[i], b.Low, b.High)
		}
	}
	if m.ItemSpecific && m.TruthPerItem == nil {
		return fmt.Errorf("%w: item_specific requires truth_per_item", ErrInvalidConfig)
	}
	if err := c.Truth().Validate(len(m.ParamLabels), c.NItem); err != nil {
		return fmt.Errorf("%w: truth: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Truth returns the ground-truth parameter assignment.
func (c Config) Truth() memory.Params {
	if c.Model.ItemSpecific {
		return memory.Params{PerItem: c.Model.TruthPerItem}
	}
	return memory.Params{Global: c.Model.Truth}
}

// SessionTask converts the task section for the clock and planners.
func (c Config) SessionTask() session.Task {
	return session.Task{
		Length:   c.Task.SessionLength,
		Gap:      c.Task.SessionGap,
		Step:     c.Task.TimePerIteration,
		Sessions: c.Task.NSession,
	}
}

// PolicyOptions converts the policy section for policy constructors.
func (c Config) PolicyOptions() policy.Options {
	p := c.Policy
	return policy.Options{
		Task:            c.SessionTask(),
		NItem:           c.NItem,
		LearntThreshold: c.Task.LearntThreshold,
		Reward: policy.Reward{
			Kind:      policy.RewardKind(p.Reward.Kind),
			K:         p.Reward.SigmoidK,
			X0:        p.Reward.SigmoidX0,
			Threshold: p.Reward.Threshold,
		},
		Leitner: policy.LeitnerOptions{
			NBox:        p.Leitner.NBox,
			DelayMin:    p.Leitner.DelayMin,
			DelayFactor: p.Leitner.DelayFactor,
		},
		Sampling: policy.SamplingOptions{
			NSample: p.Sampling.NSample,
			Horizon: p.Sampling.Horizon,
			Workers: p.Sampling.Workers,
		},
		MCTS: policy.MCTSOptions{
			ExplorationConstant: p.MCTS.ExplorationConstant,
			Horizon:             p.MCTS.Horizon,
			Iterations:          p.MCTS.Iterations,
		},
		Recursive: policy.RecursiveOptions{Horizon: p.Recursive.Horizon},
	}
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("policykind", func(fl validator.FieldLevel) bool {
		return slices.Contains(policy.Kinds(), policy.Kind(fl.Field().String()))
	})
	_ = validate.RegisterValidation("modelkind", func(fl validator.FieldLevel) bool {
		switch memory.Kind(fl.Field().String()) {
		case memory.KindExponential, memory.KindPowerLaw, memory.KindACTR:
			return true
		}
		return false
	})
}
