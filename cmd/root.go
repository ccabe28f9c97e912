// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/benystat/internal/config"
	"github.com/Thermoquad/benystat/internal/logging"
)

var (
	configPath string

	// Charger flags
	chargerIP   string
	chargerPort int

	// WebSocket relay flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Logging flags
	logLevel string
	logJSON  bool

	cfg       *config.Config
	logger    = zerolog.Nop()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "benystat",
	Short: "Beny WiFi charger protocol tool",
	Long: `Benystat - A CLI tool for talking to Beny WiFi EV chargers.

Decodes and encodes the charger's hex protocol, discovers chargers on the
local network, reads live values, sends commands and runs a monitor that
exports metrics, MQTT status, a Redis cache and a SQLite history.

Connection modes:
  UDP:       --ip 192.168.1.10 [--port 3333]
  WebSocket: --url ws://host/path [--username user]

Settings are read from the YAML file given by --config; flags override it.
The charger PIN is read from the config file or the BENY_PIN environment
variable, or prompted interactively if not set. The relay password is read
from BENY_PASSWORD or prompted. Neither has a flag, to avoid leaking
credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")

	rootCmd.PersistentFlags().StringVar(&chargerIP, "ip", "", "Charger IP address")
	rootCmd.PersistentFlags().IntVarP(&chargerPort, "port", "p", 3333, "Charger UDP port")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket relay URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log JSON lines instead of console output")
}

// setup loads the config file, applies flag overrides and builds the logger
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	flags := cmd.Flags()
	if flags.Changed("ip") {
		cfg.Charger.IP = chargerIP
	}
	if flags.Changed("port") {
		cfg.Charger.Port = chargerPort
	}
	if flags.Changed("url") {
		cfg.Relay.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.Relay.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Relay.SkipSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-json") {
		cfg.Logging.JSON = logJSON
	}
	cfg.ChargerTypeFromModel()

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, logCloser, err = logging.New(logging.Config{
		Level: cfg.Logging.Level,
		JSON:  cfg.Logging.JSON,
		File:  cfg.Logging.File,
	}, os.Stderr)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
