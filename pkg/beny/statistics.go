// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Statistics tracks message statistics and error rates
type Statistics struct {
	mu sync.Mutex

	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalMessages     uint64
	ValidMessages     uint64
	ChecksumErrors    uint64
	UnknownTypes      uint64
	MalformedMessages uint64
	FieldErrors       uint64
	AccessDenied      uint64

	// Rates (calculated)
	MessageRate float64 // messages/sec
	ErrorRate   float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records the outcome of one decode
func (s *Statistics) Update(msg *Message, decodeErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.TotalMessages++
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		switch {
		case errors.Is(decodeErr, ErrChecksumMismatch):
			s.ChecksumErrors++
		case errors.Is(decodeErr, ErrUnknownMessageType):
			s.UnknownTypes++
		default:
			s.MalformedMessages++
		}
		return
	}

	if msg == nil {
		return
	}
	if msg.Kind == KindAccessDenied {
		s.AccessDenied++
		return
	}
	if len(msg.Errors) > 0 {
		s.FieldErrors += uint64(len(msg.Errors))
		return
	}
	s.ValidMessages++
}

// CalculateRates calculates message and error rates
func (s *Statistics) CalculateRates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()
}

func (s *Statistics) calculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.MessageRate = float64(s.TotalMessages) / elapsed
		s.ErrorRate = float64(s.errorCount()) / elapsed
	}
}

func (s *Statistics) errorCount() uint64 {
	return s.ChecksumErrors + s.UnknownTypes + s.MalformedMessages + s.FieldErrors
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()

	percent := func(n uint64) float64 {
		if s.TotalMessages == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalMessages)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== Statistics (%.0f seconds) ===\n", time.Since(s.StartTime).Seconds())
	fmt.Fprintf(&b, "Total Messages:  %8d\n", s.TotalMessages)
	fmt.Fprintf(&b, "Valid Messages:  %8d (%.1f%%)\n", s.ValidMessages, percent(s.ValidMessages))

	if s.ChecksumErrors > 0 {
		fmt.Fprintf(&b, "Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, percent(s.ChecksumErrors))
	}
	if s.UnknownTypes > 0 {
		fmt.Fprintf(&b, "Unknown Types:   %8d (%.1f%%)\n", s.UnknownTypes, percent(s.UnknownTypes))
	}
	if s.MalformedMessages > 0 {
		fmt.Fprintf(&b, "Malformed:       %8d (%.1f%%)\n", s.MalformedMessages, percent(s.MalformedMessages))
	}
	if s.FieldErrors > 0 {
		fmt.Fprintf(&b, "Field Errors:    %8d\n", s.FieldErrors)
	}
	if s.AccessDenied > 0 {
		fmt.Fprintf(&b, "Access Denied:   %8d\n", s.AccessDenied)
	}

	fmt.Fprintf(&b, "Message Rate:    %8.1f msg/s\n", s.MessageRate)
	fmt.Fprintf(&b, "Error Rate:      %8.2f err/s\n", s.ErrorRate)

	return b.String()
}

// Snapshot returns a copy of the counters safe to read without locking
func (s *Statistics) Snapshot() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()
	return Statistics{
		StartTime:         s.StartTime,
		LastUpdateTime:    s.LastUpdateTime,
		TotalMessages:     s.TotalMessages,
		ValidMessages:     s.ValidMessages,
		ChecksumErrors:    s.ChecksumErrors,
		UnknownTypes:      s.UnknownTypes,
		MalformedMessages: s.MalformedMessages,
		FieldErrors:       s.FieldErrors,
		AccessDenied:      s.AccessDenied,
		MessageRate:       s.MessageRate,
		ErrorRate:         s.ErrorRate,
	}
}

// Reset clears all statistics
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.TotalMessages = 0
	s.ValidMessages = 0
	s.ChecksumErrors = 0
	s.UnknownTypes = 0
	s.MalformedMessages = 0
	s.FieldErrors = 0
	s.AccessDenied = 0
	s.MessageRate = 0
	s.ErrorRate = 0
}
