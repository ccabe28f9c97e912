// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import (
	"strings"
	"testing"
)

func TestStatistics_Update(t *testing.T) {
	stats := NewStatistics()

	inputs := []string{
		handshakeMsg,
		values1PMsg,
		accessDenied,
		// bad checksum
		values1PMsg[:len(values1PMsg)-2] + "00",
		// invalid charger state
		"55aa11001a70001000e60e1004d282090300071e160000200a77",
		// non-hex characters
		"55aa12000bzz1c",
	}
	unknown, _ := AppendChecksum("55aa99000b00")
	inputs = append(inputs, unknown)

	for _, raw := range inputs {
		msg, err := Decode(raw, KindAuto)
		stats.Update(msg, err)
	}

	snap := stats.Snapshot()
	if snap.TotalMessages != 7 {
		t.Errorf("expected 7 messages, got %d", snap.TotalMessages)
	}
	// access denials are not counted as valid
	if snap.ValidMessages != 2 {
		t.Errorf("expected 2 valid messages, got %d", snap.ValidMessages)
	}
	if snap.MalformedMessages != 1 {
		t.Errorf("expected 1 malformed message, got %d", snap.MalformedMessages)
	}
	if snap.ChecksumErrors != 1 {
		t.Errorf("expected 1 checksum error, got %d", snap.ChecksumErrors)
	}
	if snap.UnknownTypes != 1 {
		t.Errorf("expected 1 unknown type, got %d", snap.UnknownTypes)
	}
	if snap.FieldErrors != 1 {
		t.Errorf("expected 1 field error, got %d", snap.FieldErrors)
	}
	if snap.AccessDenied != 1 {
		t.Errorf("expected 1 access denied, got %d", snap.AccessDenied)
	}

	summary := stats.String()
	if !strings.Contains(summary, "Checksum Errors:") || !strings.Contains(summary, "Unknown Types:") {
		t.Errorf("summary missing error lines:\n%s", summary)
	}
}

func TestStatistics_Reset(t *testing.T) {
	stats := NewStatistics()
	stats.Update(nil, ErrChecksumMismatch)
	stats.Reset()

	if snap := stats.Snapshot(); snap.TotalMessages != 0 || snap.ChecksumErrors != 0 {
		t.Errorf("counters not cleared: %+v", &snap)
	}
}
