// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/benystat/pkg/charger"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func statusAt(ts time.Time, power float64) *charger.Status {
	return &charger.Status{
		State:       "charging",
		Currents:    []int{10, 11, 12},
		Voltages:    []int{230, 231, 232},
		Power:       power,
		TotalKWh:    4.2,
		Temperature: 30,
		MaxCurrent:  16,
		TimerState:  "UNSET",
		UpdatedAt:   ts,
	}
}

func TestRecordAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if _, err := store.Record(ctx, 1, statusAt(base.Add(time.Duration(i)*time.Minute), float64(i))); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	withDLB := statusAt(base.Add(time.Hour), 9)
	withDLB.DLB = &charger.DLBValues{Solar: 1.5, Grid: -0.3}
	if err := store.Publish(ctx, 2, withDLB); err != nil {
		t.Fatalf("publish: %v", err)
	}

	entries, err := store.Recent(ctx, 1, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Status.Power != 2 || entries[1].Status.Power != 1 {
		t.Errorf("expected newest first, got %v then %v", entries[0].Status.Power, entries[1].Status.Power)
	}
	got := entries[0].Status
	if len(got.Currents) != 3 || got.Currents[2] != 12 || got.Voltages[0] != 230 {
		t.Errorf("phase values not restored: %+v", got)
	}
	if !got.UpdatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("timestamp = %v", got.UpdatedAt)
	}
	if got.DLB != nil {
		t.Error("expected no DLB values")
	}

	all, err := store.Recent(ctx, 0, 10)
	if err != nil {
		t.Fatalf("recent all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(all))
	}
	if all[0].Serial != 2 || all[0].Status.DLB == nil || all[0].Status.DLB.Grid != -0.3 {
		t.Errorf("unexpected newest entry %+v", all[0])
	}
}

func TestPrune(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if _, err := store.Record(ctx, 1, statusAt(base.Add(time.Duration(i)*time.Hour), 1)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	n, err := store.Prune(ctx, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d rows, want 2", n)
	}

	entries, _ := store.Recent(ctx, 1, 10)
	if len(entries) != 3 {
		t.Errorf("expected 3 remaining entries, got %d", len(entries))
	}
}
