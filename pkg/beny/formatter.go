// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beny

import (
	"fmt"
	"strings"
)

// FormatMessage formats a decoded message into a human-readable string
func FormatMessage(m *Message) string {
	timestamp := m.Timestamp.Format("15:04:05.000")
	msgType, _ := m.GetInt("message_type")
	msgID, _ := m.GetInt("message_id")

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s (0x%02X) id=0x%04X len=%d\n", timestamp, m.Kind, msgType, msgID, len(m.Raw)/2)

	def := Lookup(m.Kind)
	if def == nil || len(def.Fields) == 0 {
		b.WriteString("  (no payload)\n")
		return b.String()
	}

	for _, f := range def.Fields {
		fmt.Fprintf(&b, "  %s: %s\n", f.Name, FormatValue(m.Fields[f.Name]))
		if f.Transform == TransformWeekdays {
			fmt.Fprintf(&b, "  %s: %s\n", ScheduleField, FormatValue(m.Fields[ScheduleField]))
		}
	}

	for _, err := range m.Errors {
		fmt.Fprintf(&b, "  [WARN] %v\n", err)
	}

	return b.String()
}

// FormatValue renders a decoded field value
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case float64:
		return fmt.Sprintf("%.1f", val)
	case string:
		return val
	case map[string]bool:
		days := make([]string, 0, len(weekdayNames))
		for _, name := range weekdayNames {
			if val[name] {
				days = append(days, name[:3])
			}
		}
		if len(days) == 0 {
			return "none"
		}
		return strings.Join(days, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// FormatDefinition describes a catalog entry, including its field layout
func FormatDefinition(def *Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) - %s\n", def.Name, def.Direction, def.Description)
	if def.Template != "" {
		fmt.Fprintf(&b, "  template: %s\n", def.Template)
	}
	for _, f := range def.Fields {
		end := fmt.Sprintf("%d", f.Range.End)
		if f.Range.End < 0 {
			end = fmt.Sprintf("len%d", f.Range.End)
		}
		step := ""
		if f.Range.Step > 0 {
			step = fmt.Sprintf(" step %d", f.Range.Step)
		}
		fmt.Fprintf(&b, "  %-28s [%d,%s)%s %s\n", f.Name, f.Range.Start, end, step, f.Transform)
	}
	return b.String()
}
