// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/mnemo/services/scheduler/config"
	"github.com/AleutianAI/mnemo/services/scheduler/simulation"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(id string, started time.Time) *simulation.Record {
	return &simulation.Record{
		ID:        id,
		AgentID:   "agent-" + id,
		StartedAt: started,
		Config:    config.Default(),
		History: []simulation.Presentation{
			{Item: 0, Time: 0},
			{Item: 0, Time: 2, Success: true},
		},
		NSeen:         []int{1, 1},
		PosteriorMean: map[string][]float64{"alpha": {0.1, 0.09}},
		FinalRecall:   []float64{0.95},
		NLearnt:       1,
	}
}

func TestPutGet(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	rec := record("a", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, s.Put(ctx, rec))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)

	assert.Equal(t, rec.History, got.History)
	assert.Equal(t, rec.PosteriorMean, got.PosteriorMean)
	assert.Equal(t, rec.Config.Policy.Kind, got.Config.Policy.Kind)
	assert.True(t, rec.StartedAt.Equal(got.StartedAt))
}

func TestGet_NotFound(t *testing.T) {
	s := openMemory(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPut_EmptyID(t *testing.T) {
	s := openMemory(t)
	assert.ErrorIs(t, s.Put(context.Background(), &simulation.Record{}), ErrEmptyID)
}

func TestList_OrderedByStart(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// Keys sort a < b < c; start times do not.
	require.NoError(t, s.Put(ctx, record("a", base.Add(2*time.Hour))))
	require.NoError(t, s.Put(ctx, record("b", base)))
	require.NoError(t, s.Put(ctx, record("c", base.Add(time.Hour))))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "c", list[1].ID)
	assert.Equal(t, "a", list[2].ID)
	assert.Equal(t, "threshold", list[0].Policy)
	assert.Equal(t, 100, list[0].NItem)
}

func TestDelete(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, record("a", time.Now())))

	require.NoError(t, s.Delete(ctx, "a"))
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "a"), ErrNotFound)
}

func TestCancelledContext(t *testing.T) {
	s := openMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Put(ctx, record("a", time.Now())), context.Canceled)
	_, err := s.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_Persistent(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = time.Hour

	s, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), record("a", time.Now())))
	require.NoError(t, s.Close())

	s, err = Open(cfg)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, got.NLearnt)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}
