// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Config{Level: "debug", JSON: true}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closer.Close()

	l := Component(logger, "client")
	l.Debug().Int("serial", 42).Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "client" || entry["app"] != "benystat" {
		t.Errorf("missing fields in %v", entry)
	}
	if entry["serial"] != float64(42) || entry["message"] != "hello" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNew_Level(t *testing.T) {
	tests := []struct {
		level   string
		debug   bool
		warning bool
	}{
		{"debug", true, true},
		{"warn", false, true},
		{"", false, true},
		{"bogus", false, true},
		{"error", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, _, err := New(Config{Level: tt.level, JSON: true}, &buf)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			logger.Debug().Msg("debug-line")
			logger.Warn().Msg("warn-line")

			if got := strings.Contains(buf.String(), "debug-line"); got != tt.debug {
				t.Errorf("debug written = %v, want %v", got, tt.debug)
			}
			if got := strings.Contains(buf.String(), "warn-line"); got != tt.warning {
				t.Errorf("warn written = %v, want %v", got, tt.warning)
			}
		})
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Config{Level: "info"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info().Msg("charger found")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("console output should not be JSON: %q", out)
	}
	if !strings.Contains(out, "charger found") {
		t.Errorf("message missing from %q", out)
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benystat.log")
	var buf bytes.Buffer
	logger, closer, err := New(Config{Level: "info", File: path}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info().Msg("to file")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"message":"to file"`) {
		t.Errorf("log file missing JSON entry: %q", data)
	}
}
