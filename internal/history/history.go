// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package history records status polls in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/Thermoquad/benystat/pkg/charger"
)

const schema = `
CREATE TABLE IF NOT EXISTS status (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	serial      INTEGER NOT NULL,
	recorded_at INTEGER NOT NULL,
	state       TEXT    NOT NULL,
	power       REAL    NOT NULL,
	total_kwh   REAL    NOT NULL,
	temperature INTEGER NOT NULL,
	max_current INTEGER NOT NULL,
	timer_state TEXT    NOT NULL,
	currents    TEXT    NOT NULL,
	voltages    TEXT    NOT NULL,
	dlb         TEXT
);
CREATE INDEX IF NOT EXISTS idx_status_serial_time ON status (serial, recorded_at);
`

// Entry is one recorded poll
type Entry struct {
	ID     int64
	Serial int
	Status charger.Status
}

// Store wraps the history database
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// Open opens or creates the database at path and applies the schema
func Open(path string, logger zerolog.Logger) (*Store, error) {
	logger = logger.With().Str("component", "history").Logger()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		logger.Warn().Err(err).Msg("failed to enable WAL mode")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info().Str("path", path).Msg("history opened")
	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Publish records a status; it lets the store act as a telemetry sink
func (s *Store) Publish(ctx context.Context, serial int, status *charger.Status) error {
	_, err := s.Record(ctx, serial, status)
	return err
}

// Record inserts a status and returns its row id
func (s *Store) Record(ctx context.Context, serial int, status *charger.Status) (int64, error) {
	currents, err := json.Marshal(status.Currents)
	if err != nil {
		return 0, err
	}
	voltages, err := json.Marshal(status.Voltages)
	if err != nil {
		return 0, err
	}
	var dlb sql.NullString
	if status.DLB != nil {
		data, err := json.Marshal(status.DLB)
		if err != nil {
			return 0, err
		}
		dlb = sql.NullString{String: string(data), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO status (serial, recorded_at, state, power, total_kwh, temperature,
			max_current, timer_state, currents, voltages, dlb)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		serial, status.UpdatedAt.UnixMilli(), status.State, status.Power, status.TotalKWh,
		status.Temperature, status.MaxCurrent, status.TimerState,
		string(currents), string(voltages), dlb,
	)
	if err != nil {
		return 0, fmt.Errorf("insert status: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries for a charger, newest first. A zero
// serial matches every charger.
func (s *Store) Recent(ctx context.Context, serial, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, serial, recorded_at, state, power, total_kwh, temperature,
			max_current, timer_state, currents, voltages, dlb
		FROM status
		WHERE ? = 0 OR serial = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`, serial, serial, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                  Entry
			recordedAt         int64
			currents, voltages string
			dlb                sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Serial, &recordedAt, &e.Status.State, &e.Status.Power,
			&e.Status.TotalKWh, &e.Status.Temperature, &e.Status.MaxCurrent, &e.Status.TimerState,
			&currents, &voltages, &dlb); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}

		e.Status.UpdatedAt = time.UnixMilli(recordedAt)
		if err := json.Unmarshal([]byte(currents), &e.Status.Currents); err != nil {
			return nil, fmt.Errorf("decode currents: %w", err)
		}
		if err := json.Unmarshal([]byte(voltages), &e.Status.Voltages); err != nil {
			return nil, fmt.Errorf("decode voltages: %w", err)
		}
		if dlb.Valid {
			e.Status.DLB = &charger.DLBValues{}
			if err := json.Unmarshal([]byte(dlb.String), e.Status.DLB); err != nil {
				return nil, fmt.Errorf("decode dlb: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries recorded before the cutoff
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM status WHERE recorded_at < ?", before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n > 0 {
		s.logger.Debug().Int64("rows", n).Msg("history pruned")
	}
	return n, err
}
