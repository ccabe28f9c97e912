// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the benystat device file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/benystat/pkg/beny"
	"github.com/Thermoquad/benystat/pkg/charger"
)

// Environment overrides
const (
	EnvPIN      = "BENY_PIN"
	EnvPassword = "BENY_PASSWORD"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full device file
type Config struct {
	Charger ChargerConfig `yaml:"charger"`
	Relay   RelayConfig   `yaml:"relay,omitempty"`
	Logging LoggingConfig `yaml:"logging"`
	Monitor MonitorConfig `yaml:"monitor"`
	MQTT    MQTTConfig    `yaml:"mqtt,omitempty"`
	Redis   RedisConfig   `yaml:"redis,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
}

// ChargerConfig identifies the charger and how to reach it
type ChargerConfig struct {
	IP          string        `yaml:"ip"`
	Port        int           `yaml:"port"`
	PIN         string        `yaml:"pin,omitempty"` // decimal, as shown in the app
	Serial      int           `yaml:"serial,omitempty"`
	Model       string        `yaml:"model,omitempty"`
	ChargerType string        `yaml:"charger_type,omitempty"` // "1P", "3P" or empty to detect
	DLB         bool          `yaml:"dlb"`
	Timeout     time.Duration `yaml:"timeout"`
	Retries     int           `yaml:"retries"`
}

// RelayConfig points at a WebSocket relay in front of the charger
type RelayConfig struct {
	URL           string `yaml:"url,omitempty"`
	Username      string `yaml:"username,omitempty"`
	SkipSSLVerify bool   `yaml:"skip_ssl_verify,omitempty"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file,omitempty"`
}

// MonitorConfig controls the polling loop and its HTTP endpoint
type MonitorConfig struct {
	Interval       time.Duration `yaml:"interval"`
	Listen         string        `yaml:"listen"`
	AllowedOrigins []string      `yaml:"allowed_origins,omitempty"`

	// EnableControl exposes the start/stop and max-current endpoints
	EnableControl bool `yaml:"enable_control,omitempty"`
}

// MQTTConfig enables status publishing to a broker
type MQTTConfig struct {
	Broker   string `yaml:"broker,omitempty"`
	ClientID string `yaml:"client_id,omitempty"`
	Topic    string `yaml:"topic,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	QoS      byte   `yaml:"qos,omitempty"`
	Retain   bool   `yaml:"retain,omitempty"`
}

// RedisConfig enables the last-status cache
type RedisConfig struct {
	Addr      string        `yaml:"addr,omitempty"`
	DB        int           `yaml:"db,omitempty"`
	KeyPrefix string        `yaml:"key_prefix,omitempty"`
	TTL       time.Duration `yaml:"ttl,omitempty"`
}

// HistoryConfig enables the SQLite status history
type HistoryConfig struct {
	Path      string        `yaml:"path,omitempty"`
	Retention time.Duration `yaml:"retention,omitempty"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Charger: ChargerConfig{
			Port:    beny.DefaultPort,
			Timeout: charger.DefaultTimeout,
			Retries: charger.DefaultRetries,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Monitor: MonitorConfig{
			Interval: 10 * time.Second,
			Listen:   ":9108",
		},
	}
}

// Load reads a YAML device file over the defaults. An empty path returns
// the defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	}

	cfg.ApplyDefaults()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyDefaults fills zero values left by the YAML document or flag overrides
func (c *Config) ApplyDefaults() {
	def := Default()
	if c.Charger.Port == 0 {
		c.Charger.Port = def.Charger.Port
	}
	if c.Charger.Timeout == 0 {
		c.Charger.Timeout = def.Charger.Timeout
	}
	if c.Charger.Retries == 0 {
		c.Charger.Retries = def.Charger.Retries
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Monitor.Interval == 0 {
		c.Monitor.Interval = def.Monitor.Interval
	}
	if c.Monitor.Listen == "" {
		c.Monitor.Listen = def.Monitor.Listen
	}
	if c.MQTT.Broker != "" && c.MQTT.Topic == "" {
		c.MQTT.Topic = "benystat/status"
	}
	if c.Redis.Addr != "" {
		if c.Redis.KeyPrefix == "" {
			c.Redis.KeyPrefix = "benystat"
		}
		if c.Redis.TTL == 0 {
			c.Redis.TTL = 10 * time.Minute
		}
	}
}

// ApplyEnv applies environment overrides
func (c *Config) ApplyEnv() {
	if pin := os.Getenv(EnvPIN); pin != "" {
		c.Charger.PIN = pin
	}
}

// Validate checks the configuration for values the charger cannot accept
func (c *Config) Validate() error {
	var problems []string

	if c.Charger.Port <= 0 || c.Charger.Port > 65535 {
		problems = append(problems, fmt.Sprintf("charger.port %d out of range", c.Charger.Port))
	}
	if c.Charger.PIN != "" {
		if _, err := beny.PinHex(c.Charger.PIN); err != nil {
			problems = append(problems, "charger.pin: "+err.Error())
		}
	}
	switch beny.ChargerType(strings.ToUpper(c.Charger.ChargerType)) {
	case beny.ChargerTypeUnknown, beny.ChargerTypeSinglePhase, beny.ChargerTypeThreePhase:
	default:
		problems = append(problems, fmt.Sprintf("charger.charger_type %q (use 1P or 3P)", c.Charger.ChargerType))
	}
	if c.Charger.Timeout < 0 {
		problems = append(problems, "charger.timeout must be positive")
	}
	if c.Charger.Retries < 0 {
		problems = append(problems, "charger.retries must be positive")
	}
	if c.Monitor.Interval < time.Second {
		problems = append(problems, "monitor.interval must be at least 1s")
	}
	if c.MQTT.QoS > 2 {
		problems = append(problems, fmt.Sprintf("mqtt.qos %d (use 0, 1 or 2)", c.MQTT.QoS))
	}
	if c.Relay.URL != "" && !strings.HasPrefix(c.Relay.URL, "ws://") && !strings.HasPrefix(c.Relay.URL, "wss://") {
		problems = append(problems, "relay.url must use ws:// or wss://")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ChargerType returns the configured phase layout
func (c *Config) ChargerType() beny.ChargerType {
	return beny.ChargerType(strings.ToUpper(c.Charger.ChargerType))
}

// ChargerTypeFromModel fills the charger type and DLB flag from the model
// when they are not set explicitly
func (c *Config) ChargerTypeFromModel() {
	if c.Charger.Model == "" {
		return
	}
	if c.Charger.ChargerType == "" {
		c.Charger.ChargerType = string(beny.ChargerTypeOf(c.Charger.Model))
	}
	if !c.Charger.DLB {
		c.Charger.DLB = beny.SupportsDLB(c.Charger.Model)
	}
}
