// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/benystat/pkg/beny"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "benystat.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvPIN, "")

	path := writeConfig(t, `
charger:
  ip: 192.168.1.10
  pin: "1234"
  model: BCP-A2N-L
  timeout: 3s
monitor:
  interval: 30s
mqtt:
  broker: tcp://localhost:1883
redis:
  addr: localhost:6379
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Charger.IP != "192.168.1.10" {
		t.Errorf("ip = %q", cfg.Charger.IP)
	}
	if cfg.Charger.Port != beny.DefaultPort {
		t.Errorf("port = %d, want default %d", cfg.Charger.Port, beny.DefaultPort)
	}
	if cfg.Charger.Timeout != 3*time.Second {
		t.Errorf("timeout = %v", cfg.Charger.Timeout)
	}
	if cfg.Monitor.Interval != 30*time.Second {
		t.Errorf("interval = %v", cfg.Monitor.Interval)
	}
	if cfg.MQTT.Topic != "benystat/status" {
		t.Errorf("mqtt topic default = %q", cfg.MQTT.Topic)
	}
	if cfg.Redis.KeyPrefix != "benystat" || cfg.Redis.TTL != 10*time.Minute {
		t.Errorf("redis defaults = %+v", cfg.Redis)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	t.Setenv(EnvPIN, "4321")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Charger.PIN != "4321" {
		t.Errorf("expected PIN from environment, got %q", cfg.Charger.PIN)
	}
	if cfg.Charger.Retries != 2 {
		t.Errorf("retries = %d", cfg.Charger.Retries)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(EnvPIN, "")

	tests := []struct {
		name    string
		content string
		invalid bool
	}{
		{"bad yaml", "charger: [", false},
		{"port", "charger:\n  port: 70000\n", true},
		{"pin", "charger:\n  pin: abc\n", true},
		{"charger type", "charger:\n  charger_type: 2P\n", true},
		{"interval", "monitor:\n  interval: 100ms\n", true},
		{"qos", "mqtt:\n  broker: tcp://x:1883\n  qos: 3\n", true},
		{"relay scheme", "relay:\n  url: http://relay\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrInvalidConfig) != tt.invalid {
				t.Errorf("errors.Is(ErrInvalidConfig) = %v, want %v (%v)", !tt.invalid, tt.invalid, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestSave(t *testing.T) {
	t.Setenv(EnvPIN, "")

	cfg := Default()
	cfg.Charger.IP = "10.0.0.5"
	cfg.Charger.Serial = 12345678
	cfg.Charger.ChargerType = "3P"

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Charger.IP != "10.0.0.5" || loaded.Charger.Serial != 12345678 {
		t.Errorf("unexpected charger config %+v", loaded.Charger)
	}
	if loaded.ChargerType() != beny.ChargerTypeThreePhase {
		t.Errorf("charger type = %q", loaded.ChargerType())
	}
}

func TestChargerTypeFromModel(t *testing.T) {
	tests := []struct {
		model    string
		explicit string
		wantType beny.ChargerType
	}{
		{"BCP-A2N-L", "", beny.ChargerTypeOf("BCP-A2N-L")},
		{"BCP-A2N-L", "3P", beny.ChargerTypeThreePhase},
		{"", "", beny.ChargerTypeUnknown},
	}

	for _, tt := range tests {
		cfg := Default()
		cfg.Charger.Model = tt.model
		cfg.Charger.ChargerType = tt.explicit
		cfg.ChargerTypeFromModel()
		if cfg.ChargerType() != tt.wantType {
			t.Errorf("model %q explicit %q: got %q, want %q", tt.model, tt.explicit, cfg.ChargerType(), tt.wantType)
		}
		if tt.model != "" && cfg.Charger.DLB != beny.SupportsDLB(tt.model) {
			t.Errorf("model %q: DLB = %v", tt.model, cfg.Charger.DLB)
		}
	}
}
