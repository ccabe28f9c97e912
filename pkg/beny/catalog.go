// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import (
	"fmt"
	"strings"
)

// Kind identifies one message layout of the catalog
type Kind int

// Message kinds. KindAuto asks the decoder to detect the kind.
const (
	KindAuto Kind = iota

	// Outbound (client → charger)
	KindPollDevices
	KindRequestData
	KindRequestDLB
	KindSendChargerCommand
	KindSetTimer
	KindResetTimer
	KindRequestSettings
	KindSetSchedule
	KindSetMaxMonthlyConsumption
	KindSetMaxSessionConsumption
	KindSetMaxCurrent

	// Inbound (charger → client)
	KindHandshake
	KindSendModel
	KindSendValues1P
	KindSendValues3P
	KindSendDLB
	KindSendSettings
	KindAccessDenied

	kindCount
)

// Direction tells whether a kind is sent to or received from the charger
type Direction int

// Direction values
const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "outbound"
	}
	return "inbound"
}

// Field describes where a value lives in a message and how it is interpreted
type Field struct {
	Name      string
	Range     Range
	Transform Transform
}

// Definition is the immutable layout record of a message kind
type Definition struct {
	Kind        Kind
	Name        string
	Description string
	Direction   Direction
	Template    string // outbound only
	Fields      []Field
}

// Field returns the named field of the definition
func (d *Definition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// headerFields are common to every message kind
var headerFields = []Field{
	{Name: "header", Range: Span(0, 4)},
	{Name: "message_type", Range: Span(4, 6)},
	{Name: "message_id", Range: Span(6, 10)},
}

var pinField = Field{Name: "pin", Range: Span(13, 18)}

// catalog is indexed by Kind
var catalog = [kindCount]*Definition{
	KindPollDevices: {
		Name:        "PollDevices",
		Description: "Send broadcast to 255.255.255.255 and wait for answers",
		Template:    "55aa03000f000[pin]03[serial][checksum]",
		Fields: []Field{
			pinField,
			{Name: "serial", Range: Span(20, 28)},
		},
	},
	KindRequestData: {
		Name:        "RequestData",
		Description: "Request values or model",
		Template:    "55aa10000b000[pin][request_type][checksum]",
		Fields: []Field{
			pinField,
			{Name: "request_type", Range: Span(18, 20), Transform: TransformRequestType},
		},
	},
	KindRequestDLB: {
		Name:        "RequestDLB",
		Description: "Request dynamic load balancing values",
		Template:    "55aa7b000b000[pin][request_type][checksum]",
		Fields: []Field{
			pinField,
			{Name: "request_type", Range: Span(18, 20), Transform: TransformRequestType},
		},
	},
	KindSendChargerCommand: {
		Name:        "SendChargerCommand",
		Description: "Start or stop charging",
		Template:    "55aa10000c000[pin]06[charger_command][checksum]",
		Fields: []Field{
			pinField,
			{Name: "charger_command", Range: Span(20, 22), Transform: TransformChargerCommand},
		},
	},
	KindSetTimer: {
		Name:        "SetTimer",
		Description: "Set charging timer",
		Template:    "55aa10001c000[pin]6900016008000[end_timer_set][start_h][start_min]00[end_h][end_min]0017153b[checksum]",
		Fields: []Field{
			pinField,
			{Name: "end_timer_set", Range: Span(31, 35)},
			{Name: "start_h", Range: Span(35, 38)},
			{Name: "start_min", Range: Span(38, 40)},
			{Name: "end_h", Range: Span(42, 44)},
			{Name: "end_min", Range: Span(44, 46)},
		},
	},
	KindResetTimer: {
		Name:        "ResetTimer",
		Description: "Reset charging timer",
		Template:    "55aa10001c000[pin]690000000000000000000000000000171035[checksum]",
		Fields:      []Field{pinField},
	},
	KindRequestSettings: {
		Name:        "RequestSettings",
		Description: "Request settings",
		Template:    "55aa10000b000[pin]71[checksum]",
		Fields:      []Field{pinField},
	},
	KindSetSchedule: {
		Name:        "SetSchedule",
		Description: "Set weekly charging schedule",
		Template:    "55aa100016000[pin]7519010e0f2725[weekdays][start_h][start_min][end_h][end_min][checksum]",
		Fields: []Field{
			pinField,
			{Name: "weekdays", Range: Span(32, 34)},
			{Name: "start_h", Range: Span(34, 36)},
			{Name: "start_min", Range: Span(36, 38)},
			{Name: "end_h", Range: Span(38, 40)},
			{Name: "end_min", Range: Span(40, 42)},
		},
	},
	KindSetMaxMonthlyConsumption: {
		Name:        "SetMaxMonthlyConsumption",
		Description: "Set maximum monthly consumption",
		Template:    "55aa10000d000[pin]78[maximum_consumption][checksum]",
		Fields: []Field{
			pinField,
			{Name: "maximum_consumption", Range: Span(20, 24)},
		},
	},
	KindSetMaxSessionConsumption: {
		Name:        "SetMaxSessionConsumption",
		Description: "Set maximum session consumption",
		Template:    "55aa10000c000[pin]74[maximum_consumption][checksum]",
		Fields: []Field{
			pinField,
			{Name: "maximum_consumption", Range: Span(20, 22)},
		},
	},
	KindSetMaxCurrent: {
		Name:        "SetMaxCurrent",
		Description: "Set maximum charging current",
		Template:    "55aa10000d000[pin]6d00[max_current][checksum]",
		Fields: []Field{
			pinField,
			{Name: "max_current", Range: Span(22, 24)},
		},
	},

	KindHandshake: {
		Name:        "Handshake",
		Description: "Receive charger handshake",
		Direction:   Inbound,
		Fields: []Field{
			{Name: "serial", Range: Span(12, 20)},
			{Name: "ip", Range: Range{Start: 20, End: 28, Step: 2}, Transform: TransformIPAddress},
			{Name: "port", Range: Span(28, 32)},
		},
	},
	KindSendModel: {
		Name:        "SendModel",
		Description: "Receive model from charger",
		Direction:   Inbound,
		Fields: []Field{
			{Name: "request_type", Range: Span(10, 12), Transform: TransformRequestType},
			{Name: "model", Range: Span(12, -2), Transform: TransformModelString},
		},
	},
	KindSendValues1P: {
		Name:        "SendValues1P",
		Description: "Receive values from 1-phase charger",
		Direction:   Inbound,
		Fields: []Field{
			{Name: "request_type", Range: Span(10, 12), Transform: TransformRequestType},
			{Name: "current1", Range: Span(14, 16)},
			{Name: "voltage1", Range: Span(18, 20)},
			{Name: "power", Range: Span(20, 24), Transform: TransformTenths},
			{Name: "total_kwh", Range: Span(24, 28), Transform: TransformTenths},
			{Name: "temperature", Range: Span(28, 30), Transform: TransformTemperature},
			{Name: "state", Range: Span(30, 32), Transform: TransformChargerState},
			{Name: "timer_state", Range: Span(32, 34), Transform: TransformTimerState},
			{Name: "timer_start_h", Range: Span(36, 38)},
			{Name: "timer_start_min", Range: Span(38, 40)},
			{Name: "timer_end_h", Range: Span(40, 42)},
			{Name: "timer_end_min", Range: Span(42, 44)},
			{Name: "max_current", Range: Span(46, 48)},
			{Name: "maximum_session_consumption", Range: Span(48, 50)},
		},
	},
	KindSendValues3P: {
		Name:        "SendValues3P",
		Description: "Receive values from 3-phase charger",
		Direction:   Inbound,
		Fields: []Field{
			{Name: "request_type", Range: Span(10, 12), Transform: TransformRequestType},
			{Name: "current1", Range: Span(13, 14)},
			{Name: "current2", Range: Span(15, 16)},
			{Name: "current3", Range: Span(17, 18)},
			{Name: "voltage1", Range: Span(20, 22)},
			{Name: "voltage2", Range: Span(24, 26)},
			{Name: "voltage3", Range: Span(28, 30)},
			{Name: "power", Range: Span(30, 34), Transform: TransformTenths},
			{Name: "total_kwh", Range: Span(34, 38), Transform: TransformTenths},
			{Name: "temperature", Range: Span(38, 40), Transform: TransformTemperature},
			{Name: "state", Range: Span(40, 42), Transform: TransformChargerState},
			{Name: "timer_state", Range: Span(42, 44), Transform: TransformTimerState},
			{Name: "timer_start_h", Range: Span(44, 46)},
			{Name: "timer_start_min", Range: Span(46, 48)},
			{Name: "timer_end_h", Range: Span(50, 52)},
			{Name: "timer_end_min", Range: Span(52, 54)},
			{Name: "max_current", Range: Span(56, 58)},
			{Name: "maximum_session_consumption", Range: Span(58, 60)},
		},
	},
	KindSendDLB: {
		Name:        "SendDLB",
		Description: "Receive dynamic load balancing values",
		Direction:   Inbound,
		Fields: []Field{
			{Name: "request_type", Range: Span(10, 12)},
			{Name: "solar_power", Range: Span(16, 20), Transform: TransformTenths},
			{Name: "ev_power", Range: Span(20, 24), Transform: TransformTenths},
			{Name: "house_power", Range: Span(24, 28), Transform: TransformTenths},
			{Name: "grid_power", Range: Span(28, 32), Transform: TransformSignedTenths},
		},
	},
	KindSendSettings: {
		Name:        "SendSettings",
		Description: "Receive settings from charger",
		Direction:   Inbound,
		Fields: []Field{
			{Name: "weekdays", Range: Span(30, 32), Transform: TransformWeekdays},
			{Name: "timer_start_h", Range: Span(32, 34)},
			{Name: "timer_start_min", Range: Span(34, 36)},
			{Name: "timer_end_h", Range: Span(36, 38)},
			{Name: "timer_end_min", Range: Span(38, 40)},
		},
	},
	KindAccessDenied: {
		Name:        "AccessDenied",
		Description: "Access denied message",
		Direction:   Inbound,
	},
}

var kindsByName = make(map[string]Kind, kindCount)

func init() {
	for i, def := range catalog {
		if def == nil {
			continue
		}
		def.Kind = Kind(i)
		kindsByName[strings.ToLower(def.Name)] = Kind(i)
	}
}

// String returns the symbolic name of the kind
func (k Kind) String() string {
	if def := Lookup(k); def != nil {
		return def.Name
	}
	if k == KindAuto {
		return "Auto"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Lookup returns the definition of a kind, or nil for KindAuto and unknown kinds
func Lookup(k Kind) *Definition {
	if k <= KindAuto || k >= kindCount {
		return nil
	}
	return catalog[k]
}

// ParseKind resolves a kind by its symbolic name (case-insensitive)
func ParseKind(name string) (Kind, error) {
	if k, ok := kindsByName[strings.ToLower(name)]; ok {
		return k, nil
	}
	return KindAuto, fmt.Errorf("%w: %q", ErrUnknownMessageType, name)
}

// Kinds returns all catalog kinds of the given direction in catalog order
func Kinds(direction Direction) []Kind {
	kinds := make([]Kind, 0, kindCount)
	for i, def := range catalog {
		if def != nil && def.Direction == direction {
			kinds = append(kinds, Kind(i))
		}
	}
	return kinds
}

// detectRule maps header discriminants to an inbound kind.
// requestType -1 and length 0 mean "any".
type detectRule struct {
	messageType int
	requestType int
	minLength   int
	maxLength   int
	kind        Kind
}

var detectRules = []detectRule{
	{messageType: TypePoll, requestType: -1, kind: KindHandshake},
	{messageType: TypeAccessDenied, requestType: -1, kind: KindAccessDenied},
	{messageType: TypeResponse, requestType: int(RequestValues), minLength: sendValues3PMinLength, kind: KindSendValues3P},
	{messageType: TypeResponse, requestType: int(RequestValues), maxLength: sendValues3PMinLength - 1, kind: KindSendValues1P},
	{messageType: TypeResponse, requestType: int(RequestModel), kind: KindSendModel},
	{messageType: TypeResponse, requestType: int(RequestSettings), kind: KindSendSettings},
	{messageType: TypeResponse, requestType: int(RequestDLB), kind: KindSendDLB},
	{messageType: TypeDLBRequest, requestType: int(RequestDLB), kind: KindSendDLB},
}

// DetectKind infers the inbound kind of a raw message from its header
func DetectKind(data string) (Kind, error) {
	messageType, err := ByteValueAt(data, Span(4, 6))
	if err != nil {
		return KindAuto, fmt.Errorf("%w: %w", ErrUnknownMessageType, err)
	}
	requestType := -1
	if value, err := ByteValueAt(data, Span(10, 12)); err == nil {
		requestType = value
	}

	for _, rule := range detectRules {
		if rule.messageType != messageType {
			continue
		}
		if rule.requestType >= 0 && rule.requestType != requestType {
			continue
		}
		if rule.minLength > 0 && len(data) < rule.minLength {
			continue
		}
		if rule.maxLength > 0 && len(data) > rule.maxLength {
			continue
		}
		return rule.kind, nil
	}

	return KindAuto, fmt.Errorf("%w: type 0x%02x request 0x%02x length %d", ErrUnknownMessageType, messageType, requestType, len(data))
}
