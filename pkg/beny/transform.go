// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import (
	"fmt"
	"strconv"
	"strings"
)

// Transform selects how a raw field value is interpreted
type Transform int

// Transform values
const (
	TransformPlain Transform = iota
	TransformChargerState
	TransformTimerState
	TransformChargerCommand
	TransformRequestType
	TransformTenths
	TransformSignedTenths
	TransformTemperature
	TransformModelString
	TransformIPAddress
	TransformWeekdays
)

var transformNames = map[Transform]string{
	TransformPlain:          "plain",
	TransformChargerState:   "charger-state",
	TransformTimerState:     "timer-state",
	TransformChargerCommand: "charger-command",
	TransformRequestType:    "request-type",
	TransformTenths:         "tenths",
	TransformSignedTenths:   "signed-tenths",
	TransformTemperature:    "temperature",
	TransformModelString:    "model",
	TransformIPAddress:      "ip",
	TransformWeekdays:       "weekdays",
}

func (t Transform) String() string {
	if name, ok := transformNames[t]; ok {
		return name
	}
	return "unknown"
}

// temperatureBias is added by the charger to keep temperatures positive
const temperatureBias = 100

// ScheduleField is the derived key set next to a decoded weekday bitmask
const ScheduleField = "schedule"

// Schedule values of ScheduleField
const (
	ScheduleEnabled  = "enabled"
	ScheduleDisabled = "disabled"
)

// decodeField extracts a field from a message and applies its transform.
// The returned map holds extra derived fields (only set for weekday masks).
func decodeField(data string, f Field) (any, map[string]any, error) {
	switch f.Transform {
	case TransformModelString:
		digits, err := f.Range.Slice(data)
		if err != nil {
			return nil, nil, err
		}
		model, err := DecodeASCII(digits)
		return model, nil, err

	case TransformIPAddress:
		chunks, err := f.Range.Chunks(data)
		if err != nil {
			return nil, nil, err
		}
		octets := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			value, err := ParseHex(chunk)
			if err != nil {
				return nil, nil, err
			}
			octets = append(octets, strconv.Itoa(value))
		}
		return strings.Join(octets, "."), nil, nil
	}

	raw, err := ByteValueAt(data, f.Range)
	if err != nil {
		return nil, nil, err
	}
	return ApplyTransform(f.Transform, raw)
}

// ApplyTransform interprets a raw unsigned value. Only numeric and enum
// transforms are accepted; string transforms need the full message.
func ApplyTransform(t Transform, raw int) (any, map[string]any, error) {
	switch t {
	case TransformPlain:
		return raw, nil, nil

	case TransformChargerState:
		name, ok := chargerStateNames[ChargerState(raw)]
		if !ok {
			return nil, nil, fmt.Errorf("%w: charger state %d", ErrInvalidEnumValue, raw)
		}
		return name, nil, nil

	case TransformTimerState:
		name, ok := timerStateNames[TimerState(raw)]
		if !ok {
			return nil, nil, fmt.Errorf("%w: timer state %d", ErrInvalidEnumValue, raw)
		}
		return name, nil, nil

	case TransformChargerCommand:
		name, ok := chargerCommandNames[ChargerCommand(raw)]
		if !ok {
			return nil, nil, fmt.Errorf("%w: charger command %d", ErrInvalidEnumValue, raw)
		}
		return name, nil, nil

	case TransformRequestType:
		name, ok := requestTypeNames[RequestType(raw)]
		if !ok {
			return nil, nil, fmt.Errorf("%w: request type %d", ErrInvalidEnumValue, raw)
		}
		return name, nil, nil

	case TransformTenths:
		return float64(raw) / 10, nil, nil

	case TransformSignedTenths:
		return float64(Signed16(raw)) / 10, nil, nil

	case TransformTemperature:
		return raw - temperatureBias, nil, nil

	case TransformWeekdays:
		schedule := ScheduleDisabled
		if raw != 0 {
			schedule = ScheduleEnabled
		}
		return WeekdaysFromMask(raw), map[string]any{ScheduleField: schedule}, nil
	}

	return nil, nil, fmt.Errorf("transform %s cannot be applied to a numeric value", t)
}

// Signed16 converts a 16-bit two's complement value
func Signed16(raw int) int {
	if raw >= 0x8000 {
		return raw - 0x10000
	}
	return raw
}

// WeekdaysFromMask expands a schedule bitmask (bit 0 = sunday) into day flags
func WeekdaysFromMask(mask int) map[string]bool {
	days := make(map[string]bool, len(weekdayNames))
	for bit, name := range weekdayNames {
		days[name] = mask&(1<<bit) != 0
	}
	return days
}

// WeekdayMask folds day flags back into a schedule bitmask
func WeekdayMask(days map[string]bool) int {
	mask := 0
	for bit, name := range weekdayNames {
		if days[name] {
			mask |= 1 << bit
		}
	}
	return mask
}

// DecodeASCII decodes hex pairs into an ASCII string
func DecodeASCII(digits string) (string, error) {
	if len(digits)%2 != 0 {
		return "", fmt.Errorf("%w: odd length string field (%d chars)", ErrMalformedHex, len(digits))
	}
	var b strings.Builder
	b.Grow(len(digits) / 2)
	for i := 0; i < len(digits); i += 2 {
		value, err := ParseHex(digits[i : i+2])
		if err != nil {
			return "", err
		}
		b.WriteByte(byte(value))
	}
	return b.String(), nil
}

// EncodeASCII renders a string as lowercase hex pairs
func EncodeASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		b.WriteString(EncodeUnsigned(int(s[i]), 2))
	}
	return b.String()
}
