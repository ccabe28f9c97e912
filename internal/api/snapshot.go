// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package api

import (
	"sync"
	"time"

	"github.com/Thermoquad/benystat/pkg/charger"
)

// Snapshot holds the outcome of the latest poll
type Snapshot struct {
	mu       sync.RWMutex
	serial   int
	status   *charger.Status
	lastErr  error
	polledAt time.Time
}

// NewSnapshot creates an empty snapshot for a charger
func NewSnapshot(serial int) *Snapshot {
	return &Snapshot{serial: serial}
}

// Update stores a poll result. A failed poll keeps the previous status.
func (s *Snapshot) Update(status *charger.Status, err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polledAt = at
	s.lastErr = err
	if err == nil {
		s.status = status
	}
}

// Get returns the last good status, the time of the last poll and its error
func (s *Snapshot) Get() (*charger.Status, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.polledAt, s.lastErr
}

// Serial returns the charger serial
func (s *Snapshot) Serial() int {
	return s.serial
}
