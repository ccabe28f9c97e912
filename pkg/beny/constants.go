// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package beny provides a Go implementation of the Beny WiFi charger protocol.
//
// Beny chargers exchange ASCII-hex encoded messages over UDP. Every message
// starts with a fixed header (marker, message type, length/id), carries a
// positional payload and ends with a one-byte additive checksum. This package
// provides the message catalog, checksum handling, and table-driven
// encoding/decoding of those messages.
package beny

// Header layout (hex character positions)
const (
	HeaderMarker = 0x55aa
	HeaderSize   = 10

	DefaultPort = 3333
)

// Message type codes found at header positions [4,6)
const (
	TypePoll         = 0x03
	TypeRequest      = 0x10
	TypeResponse     = 0x11
	TypeAccessDenied = 0x12
	TypeDLBRequest   = 0x7b
)

// checksumToken is the template placeholder replaced by the computed checksum
const checksumToken = "[checksum]"

// sendValues3PMinLength is the shortest response carrying the full 3-phase layout
const sendValues3PMinLength = 62

// ChargerState represents the charger operating state
type ChargerState int

// Charger state values
const (
	StateAbnormal ChargerState = iota
	StateUnplugged
	StateStandby
	StateStarting
	StateUnknown
	StateWaiting
	StateCharging
)

var chargerStateNames = map[ChargerState]string{
	StateAbnormal:  "ABNORMAL",
	StateUnplugged: "UNPLUGGED",
	StateStandby:   "STANDBY",
	StateStarting:  "STARTING",
	StateUnknown:   "UNKNOWN",
	StateWaiting:   "WAITING",
	StateCharging:  "CHARGING",
}

func (s ChargerState) String() string {
	if name, ok := chargerStateNames[s]; ok {
		return name
	}
	return "INVALID"
}

// TimerState represents which parts of the charging timer are set
type TimerState int

// Timer state values
const (
	TimerUnset TimerState = iota
	TimerStartTime
	TimerEndTime
	TimerStartEndTime
)

var timerStateNames = map[TimerState]string{
	TimerUnset:        "UNSET",
	TimerStartTime:    "START_TIME",
	TimerEndTime:      "END_TIME",
	TimerStartEndTime: "START_END_TIME",
}

func (s TimerState) String() string {
	if name, ok := timerStateNames[s]; ok {
		return name
	}
	return "INVALID"
}

// ChargerCommand starts or stops a charging session
type ChargerCommand int

// Charger command values
const (
	CommandStop ChargerCommand = iota
	CommandStart
)

var chargerCommandNames = map[ChargerCommand]string{
	CommandStop:  "STOP",
	CommandStart: "START",
}

func (c ChargerCommand) String() string {
	if name, ok := chargerCommandNames[c]; ok {
		return name
	}
	return "INVALID"
}

// RequestType selects the data set returned by the charger
type RequestType int

// Request type values
const (
	RequestModel    RequestType = 4
	RequestValues   RequestType = 112
	RequestSettings RequestType = 113
	RequestDLB      RequestType = 123
)

var requestTypeNames = map[RequestType]string{
	RequestModel:    "MODEL",
	RequestValues:   "VALUES",
	RequestSettings: "SETTINGS",
	RequestDLB:      "DLB",
}

func (r RequestType) String() string {
	if name, ok := requestTypeNames[r]; ok {
		return name
	}
	return "INVALID"
}

// Weekday names in bit order of the schedule bitmask (bit 0 = sunday)
var weekdayNames = [7]string{
	"sunday",
	"monday",
	"tuesday",
	"wednesday",
	"thursday",
	"friday",
	"saturday",
}

// WeekdayNames returns the weekday keys used in decoded schedules, sunday first
func WeekdayNames() []string {
	names := make([]string, len(weekdayNames))
	copy(names, weekdayNames[:])
	return names
}
