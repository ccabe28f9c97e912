// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Command builder functions create Requests ready for encoding.
// They render every value as zero-padded hex of the width declared by the
// catalog, so callers never deal with placeholder widths directly. Range
// checks (e.g. allowed currents) are left to the caller.

// Request is an outbound message kind with its placeholder values
type Request struct {
	Kind   Kind
	Params map[string]string
}

// Clock is a time of day as used by timers and schedules
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" or "HH:MM:SS" (seconds are ignored)
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Clock{}, fmt.Errorf("invalid time %q (expected HH:MM)", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// FieldWidth returns the hex width of an outbound field, or -1 if unknown
func FieldWidth(kind Kind, name string) int {
	def := Lookup(kind)
	if def == nil {
		return -1
	}
	f, ok := def.Field(name)
	if !ok {
		return -1
	}
	return f.Range.Width()
}

// FitsField reports whether value can be rendered in the width of a field
func FitsField(kind Kind, name string, value int) bool {
	width := FieldWidth(kind, name)
	if width <= 0 || value < 0 {
		return false
	}
	return width >= 15 || value < 1<<(4*width)
}

func fieldHex(kind Kind, name string, value int) string {
	return EncodeUnsigned(value, FieldWidth(kind, name))
}

// PinHex converts the decimal PIN shown on the charger into the five hex
// digits carried by every command
func PinHex(pin string) (string, error) {
	value, err := strconv.Atoi(strings.TrimSpace(pin))
	if err != nil || value < 0 {
		return "", fmt.Errorf("invalid PIN %q", pin)
	}
	if !FitsField(KindRequestData, "pin", value) {
		return "", fmt.Errorf("PIN %q exceeds %d hex digits", pin, FieldWidth(KindRequestData, "pin"))
	}
	return fieldHex(KindRequestData, "pin", value), nil
}

// NewPollDevices creates a POLL_DEVICES broadcast. Chargers answer with a
// Handshake carrying their serial, IP address and port.
func NewPollDevices(pin string, serial int) Request {
	return Request{
		Kind: KindPollDevices,
		Params: map[string]string{
			"pin":    pin,
			"serial": fieldHex(KindPollDevices, "serial", serial),
		},
	}
}

// NewRequestData creates a data request. RequestValues is answered with
// SendValues1P/3P, RequestModel with SendModel.
func NewRequestData(pin string, requestType RequestType) Request {
	return Request{
		Kind: KindRequestData,
		Params: map[string]string{
			"pin":          pin,
			"request_type": fieldHex(KindRequestData, "request_type", int(requestType)),
		},
	}
}

// NewRequestDLB creates a dynamic load balancing request
func NewRequestDLB(pin string) Request {
	return Request{
		Kind: KindRequestDLB,
		Params: map[string]string{
			"pin":          pin,
			"request_type": fieldHex(KindRequestDLB, "request_type", int(RequestDLB)),
		},
	}
}

// NewChargerCommand creates a start or stop charging command
func NewChargerCommand(pin string, command ChargerCommand) Request {
	return Request{
		Kind: KindSendChargerCommand,
		Params: map[string]string{
			"pin":             pin,
			"charger_command": fieldHex(KindSendChargerCommand, "charger_command", int(command)),
		},
	}
}

// NewSetTimer creates a timer command. A nil end leaves only the start time set.
func NewSetTimer(pin string, start Clock, end *Clock) Request {
	endSet := 0
	endClock := Clock{}
	if end != nil {
		endSet = 1
		endClock = *end
	}
	return Request{
		Kind: KindSetTimer,
		Params: map[string]string{
			"pin":           pin,
			"end_timer_set": fieldHex(KindSetTimer, "end_timer_set", endSet),
			"start_h":       fieldHex(KindSetTimer, "start_h", start.Hour),
			"start_min":     fieldHex(KindSetTimer, "start_min", start.Minute),
			"end_h":         fieldHex(KindSetTimer, "end_h", endClock.Hour),
			"end_min":       fieldHex(KindSetTimer, "end_min", endClock.Minute),
		},
	}
}

// NewResetTimer clears the charging timer
func NewResetTimer(pin string) Request {
	return Request{
		Kind:   KindResetTimer,
		Params: map[string]string{"pin": pin},
	}
}

// NewRequestSettings requests the weekly schedule settings
func NewRequestSettings(pin string) Request {
	return Request{
		Kind:   KindRequestSettings,
		Params: map[string]string{"pin": pin},
	}
}

// NewSetSchedule creates a weekly schedule command. Days not present in the
// set are disabled; an empty set disables the schedule.
func NewSetSchedule(pin string, days []time.Weekday, start, end Clock) Request {
	mask := 0
	for _, day := range days {
		mask |= 1 << uint(day)
	}
	return Request{
		Kind: KindSetSchedule,
		Params: map[string]string{
			"pin":       pin,
			"weekdays":  fieldHex(KindSetSchedule, "weekdays", mask),
			"start_h":   fieldHex(KindSetSchedule, "start_h", start.Hour),
			"start_min": fieldHex(KindSetSchedule, "start_min", start.Minute),
			"end_h":     fieldHex(KindSetSchedule, "end_h", end.Hour),
			"end_min":   fieldHex(KindSetSchedule, "end_min", end.Minute),
		},
	}
}

// NewSetMaxMonthlyConsumption sets the monthly energy limit in kWh
func NewSetMaxMonthlyConsumption(pin string, kwh int) Request {
	return Request{
		Kind: KindSetMaxMonthlyConsumption,
		Params: map[string]string{
			"pin":                 pin,
			"maximum_consumption": fieldHex(KindSetMaxMonthlyConsumption, "maximum_consumption", kwh),
		},
	}
}

// NewSetMaxSessionConsumption sets the per-session energy limit in kWh
func NewSetMaxSessionConsumption(pin string, kwh int) Request {
	return Request{
		Kind: KindSetMaxSessionConsumption,
		Params: map[string]string{
			"pin":                 pin,
			"maximum_consumption": fieldHex(KindSetMaxSessionConsumption, "maximum_consumption", kwh),
		},
	}
}

// NewSetMaxCurrent sets the maximum charging current in amps
func NewSetMaxCurrent(pin string, amps int) Request {
	return Request{
		Kind: KindSetMaxCurrent,
		Params: map[string]string{
			"pin":         pin,
			"max_current": fieldHex(KindSetMaxCurrent, "max_current", amps),
		},
	}
}
