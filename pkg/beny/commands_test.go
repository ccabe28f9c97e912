// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		input    string
		expected Clock
		wantErr  bool
	}{
		{input: "07:30", expected: Clock{Hour: 7, Minute: 30}},
		{input: "23:59:59", expected: Clock{Hour: 23, Minute: 59}},
		{input: " 0:05 ", expected: Clock{Hour: 0, Minute: 5}},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "noon", wantErr: true},
		{input: "1:2:3:4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c, err := ParseClock(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", c)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, c)
			}
		})
	}
}

func TestClock_String(t *testing.T) {
	if s := (Clock{Hour: 7, Minute: 5}).String(); s != "07:05" {
		t.Errorf("expected 07:05, got %s", s)
	}
}

func TestPinHex(t *testing.T) {
	tests := []struct {
		pin      string
		expected string
		wantErr  bool
	}{
		{pin: "1", expected: "00001"},
		{pin: "123456", expected: "1e240"},
		{pin: "1048575", expected: "fffff"},
		{pin: "1048576", wantErr: true},
		{pin: "-1", wantErr: true},
		{pin: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.pin, func(t *testing.T) {
			got, err := PinHex(tt.pin)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestFitsField(t *testing.T) {
	if !FitsField(KindSetMaxCurrent, "max_current", 255) {
		t.Error("255 should fit a two-digit field")
	}
	if FitsField(KindSetMaxCurrent, "max_current", 256) {
		t.Error("256 should not fit a two-digit field")
	}
	if FitsField(KindSetMaxCurrent, "nonexistent", 1) {
		t.Error("unknown field should not fit")
	}
	if w := FieldWidth(KindSetTimer, "start_h"); w != 3 {
		t.Errorf("timer start hour width should be 3, got %d", w)
	}
}

func TestBuilders_Encode(t *testing.T) {
	end := Clock{Hour: 6, Minute: 30}
	tests := []struct {
		name string
		req  Request
		kind Kind
	}{
		{name: "poll", req: NewPollDevices("00001", 12345678), kind: KindPollDevices},
		{name: "values", req: NewRequestData("00001", RequestValues), kind: KindRequestData},
		{name: "model", req: NewRequestData("00001", RequestModel), kind: KindRequestData},
		{name: "dlb", req: NewRequestDLB("00001"), kind: KindRequestDLB},
		{name: "stop", req: NewChargerCommand("00001", CommandStop), kind: KindSendChargerCommand},
		{name: "timer", req: NewSetTimer("00001", Clock{Hour: 22}, &end), kind: KindSetTimer},
		{name: "timer start only", req: NewSetTimer("00001", Clock{Hour: 22}, nil), kind: KindSetTimer},
		{name: "reset timer", req: NewResetTimer("00001"), kind: KindResetTimer},
		{name: "settings", req: NewRequestSettings("00001"), kind: KindRequestSettings},
		{name: "schedule", req: NewSetSchedule("00001", []time.Weekday{time.Monday}, Clock{Hour: 1}, Clock{Hour: 5}), kind: KindSetSchedule},
		{name: "monthly", req: NewSetMaxMonthlyConsumption("00001", 300), kind: KindSetMaxMonthlyConsumption},
		{name: "session", req: NewSetMaxSessionConsumption("00001", 20), kind: KindSetMaxSessionConsumption},
		{name: "current", req: NewSetMaxCurrent("00001", 32), kind: KindSetMaxCurrent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.req.Kind != tt.kind {
				t.Fatalf("expected kind %s, got %s", tt.kind, tt.req.Kind)
			}
			msg, err := Encode(tt.req.Kind, tt.req.Params)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if left := Placeholders(msg); len(left) != 0 {
				t.Errorf("unsubstituted placeholders %v in %s", left, msg)
			}
			length, _ := ByteValueAt(msg, Span(6, 10))
			if len(msg) != length*2 {
				t.Errorf("message is %d chars, header declares %d bytes", len(msg), length)
			}
			if !ValidateChecksum(msg) {
				t.Errorf("checksum does not validate: %s", msg)
			}
		})
	}
}

func TestNewSetTimer_EndFlag(t *testing.T) {
	withEnd := NewSetTimer("00001", Clock{Hour: 1}, &Clock{Hour: 2})
	if withEnd.Params["end_timer_set"] != "0001" {
		t.Errorf("expected end flag 0001, got %q", withEnd.Params["end_timer_set"])
	}
	startOnly := NewSetTimer("00001", Clock{Hour: 1}, nil)
	if startOnly.Params["end_timer_set"] != "0000" {
		t.Errorf("expected end flag 0000, got %q", startOnly.Params["end_timer_set"])
	}
	if withEnd.Params["start_h"] != "001" {
		t.Errorf("expected three-digit start hour, got %q", withEnd.Params["start_h"])
	}
}

func TestNewSetSchedule_Mask(t *testing.T) {
	req := NewSetSchedule("00001", []time.Weekday{time.Sunday, time.Saturday}, Clock{}, Clock{})
	if req.Params["weekdays"] != "41" {
		t.Errorf("expected mask 41, got %q", req.Params["weekdays"])
	}

	msg := MustEncode(req.Kind, req.Params)
	decoded := mustDecode(t, msg, KindSetSchedule)
	expectInt(t, decoded, "weekdays", 0x41)
}
