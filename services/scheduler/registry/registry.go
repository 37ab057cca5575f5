// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package registry maps model and policy names to their constructors.
//
// A Registry is built once at startup and passed to whoever needs to resolve
// a name. It is never mutated after Build returns, so it is safe to share.
package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/AleutianAI/mnemo/services/scheduler/memory"
	"github.com/AleutianAI/mnemo/services/scheduler/policy"
)

var (
	ErrUnknownModel  = errors.New("unknown memory model")
	ErrUnknownPolicy = errors.New("unknown policy")
	ErrDuplicate     = errors.New("duplicate registration")
)

// Registry resolves names to models and policy constructors.
type Registry struct {
	models   map[memory.Kind]memory.Model
	policies map[policy.Kind]policy.Constructor
}

// Builder collects registrations before freezing them into a Registry.
type Builder struct {
	models   map[memory.Kind]memory.Model
	policies map[policy.Kind]policy.Constructor
	err      error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		models:   make(map[memory.Kind]memory.Model),
		policies: make(map[policy.Kind]policy.Constructor),
	}
}

// Model registers a model under its own kind.
func (b *Builder) Model(m memory.Model) *Builder {
	if _, ok := b.models[m.Kind()]; ok && b.err == nil {
		b.err = fmt.Errorf("%w: model %s", ErrDuplicate, m.Kind())
	}
	b.models[m.Kind()] = m
	return b
}

// Policy registers a policy constructor.
func (b *Builder) Policy(kind policy.Kind, ctor policy.Constructor) *Builder {
	if _, ok := b.policies[kind]; ok && b.err == nil {
		b.err = fmt.Errorf("%w: policy %s", ErrDuplicate, kind)
	}
	b.policies[kind] = ctor
	return b
}

// Build freezes the registrations.
func (b *Builder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	r := &Registry{
		models:   make(map[memory.Kind]memory.Model, len(b.models)),
		policies: make(map[policy.Kind]policy.Constructor, len(b.policies)),
	}
	for k, v := range b.models {
		r.models[k] = v
	}
	for k, v := range b.policies {
		r.policies[k] = v
	}
	return r, nil
}

// Default registers every built-in model and policy.
func Default() *Registry {
	r, err := NewBuilder().
		Model(memory.Exponential{}).
		Model(memory.PowerLaw{}).
		Model(memory.ACTR{}).
		Policy(policy.KindLeitner, policy.NewLeitner).
		Policy(policy.KindThreshold, policy.NewThreshold).
		Policy(policy.KindSampling, policy.NewSampling).
		Policy(policy.KindMCTS, policy.NewMCTS).
		Policy(policy.KindRecursive, policy.NewRecursive).
		Policy(policy.KindRecursiveThreshold, policy.NewRecursiveThreshold).
		Build()
	if err != nil {
		panic(err)
	}
	return r
}

// Model returns the model registered as kind.
func (r *Registry) Model(kind string) (memory.Model, error) {
	m, ok := r.models[memory.Kind(kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, kind)
	}
	return m, nil
}

// NewPolicy constructs the policy registered as kind.
func (r *Registry) NewPolicy(kind string, model memory.Model, opts policy.Options) (policy.Policy, error) {
	ctor, ok := r.policies[policy.Kind(kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, kind)
	}
	return ctor(model, opts)
}

// Models lists the registered model kinds in sorted order.
func (r *Registry) Models() []string {
	out := make([]string, 0, len(r.models))
	for k := range r.models {
		out = append(out, string(k))
	}
	slices.Sort(out)
	return out
}

// Policies lists the registered policy kinds in sorted order.
func (r *Registry) Policies() []string {
	out := make([]string, 0, len(r.policies))
	for k := range r.policies {
		out = append(out, string(k))
	}
	slices.Sort(out)
	return out
}
