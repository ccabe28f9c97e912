// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import (
	"sort"
	"time"
)

// Message represents a decoded Beny protocol message
type Message struct {
	Kind      Kind
	Raw       string
	Fields    map[string]any
	Errors    []*FieldError
	Timestamp time.Time
}

func newMessage(kind Kind, raw string) *Message {
	return &Message{
		Kind:      kind,
		Raw:       raw,
		Fields:    make(map[string]any),
		Timestamp: time.Now(),
	}
}

// Has reports whether the field exists, including absent (nil) values
func (m *Message) Has(name string) bool {
	_, ok := m.Fields[name]
	return ok
}

// Keys returns the field names in sorted order
func (m *Message) Keys() []string {
	keys := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Field value extraction helpers

// GetInt extracts an integer field
func (m *Message) GetInt(name string) (int, bool) {
	v, ok := m.Fields[name]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case float64:
		return int(val), true
	}
	return 0, false
}

// GetFloat extracts a numeric field as float64
func (m *Message) GetFloat(name string) (float64, bool) {
	v, ok := m.Fields[name]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	}
	return 0, false
}

// GetString extracts a string field (enum names, model, ip)
func (m *Message) GetString(name string) (string, bool) {
	v, ok := m.Fields[name]
	if !ok {
		return "", false
	}
	if val, ok := v.(string); ok {
		return val, true
	}
	return "", false
}

// GetWeekdays extracts a decoded weekday bitmask
func (m *Message) GetWeekdays(name string) (map[string]bool, bool) {
	v, ok := m.Fields[name]
	if !ok {
		return nil, false
	}
	if val, ok := v.(map[string]bool); ok {
		return val, true
	}
	return nil, false
}
