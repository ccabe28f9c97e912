// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/benystat/internal/api"
	"github.com/Thermoquad/benystat/internal/history"
	"github.com/Thermoquad/benystat/internal/metrics"
	"github.com/Thermoquad/benystat/internal/monitor"
	"github.com/Thermoquad/benystat/internal/telemetry"
)

var (
	monitorInterval   time.Duration
	monitorListen     string
	monitorMQTTBroker string
	monitorRedisAddr  string
	monitorHistory    string
	monitorControl    bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll the charger and export its status",
	Long: `Poll the charger on an interval and export every status:

  - HTTP API:   GET /api/status, /api/history, /api/stats, /healthz
  - Prometheus: GET /metrics
  - MQTT:       JSON status on <topic>/<serial> (when a broker is set)
  - Redis:      last status under <prefix>:<serial>:status (when an address is set)
  - SQLite:     status history (when a database path is set)

With --control (or monitor.enable_control), the API also accepts
POST /api/control/start, POST /api/control/stop and
PUT /api/control/max-current {"amps": N}.

Runs until interrupted.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 0, "Poll interval (default from config, 10s)")
	monitorCmd.Flags().StringVar(&monitorListen, "listen", "", "HTTP listen address (default from config, :9108)")
	monitorCmd.Flags().StringVar(&monitorMQTTBroker, "mqtt-broker", "", "MQTT broker URL (tcp://host:1883)")
	monitorCmd.Flags().StringVar(&monitorRedisAddr, "redis-addr", "", "Redis address (host:6379)")
	monitorCmd.Flags().StringVar(&monitorHistory, "history-db", "", "SQLite history database path")
	monitorCmd.Flags().BoolVar(&monitorControl, "control", false, "Enable the control endpoints")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("interval") {
		cfg.Monitor.Interval = monitorInterval
	}
	if flags.Changed("listen") {
		cfg.Monitor.Listen = monitorListen
	}
	if flags.Changed("mqtt-broker") {
		cfg.MQTT.Broker = monitorMQTTBroker
	}
	if flags.Changed("redis-addr") {
		cfg.Redis.Addr = monitorRedisAddr
	}
	if flags.Changed("history-db") {
		cfg.History.Path = monitorHistory
	}
	if flags.Changed("control") {
		cfg.Monitor.EnableControl = monitorControl
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, connInfo, err := OpenClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	var sinks telemetry.Fanout
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing sinks")
		}
	}()

	if cfg.MQTT.Broker != "" {
		publisher := telemetry.NewMQTTPublisher(cfg.MQTT, logger)
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := publisher.Connect(connectCtx)
		cancel()
		if err != nil {
			return err
		}
		sinks = append(sinks, publisher)
	}

	if cfg.Redis.Addr != "" {
		cache := telemetry.NewRedisCache(cfg.Redis, logger)
		if err := cache.Ping(ctx); err != nil {
			cache.Close()
			return err
		}
		sinks = append(sinks, cache)
	}

	var store *history.Store
	if cfg.History.Path != "" {
		store, err = history.Open(cfg.History.Path, logger)
		if err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	m := metrics.New()
	snapshot := api.NewSnapshot(cfg.Charger.Serial)

	server := api.NewServer(cfg.Monitor, api.Options{
		Snapshot:   snapshot,
		Controller: client,
		Metrics:    m,
		History:    store,
		Logger:     logger,
	})

	mon := monitor.New(monitor.Options{
		Poller:    client,
		Serial:    cfg.Charger.Serial,
		Interval:  cfg.Monitor.Interval,
		Snapshot:  snapshot,
		Metrics:   m,
		Sink:      sinks,
		History:   store,
		Retention: cfg.History.Retention,
		Logger:    logger,
	})

	fmt.Printf("Benystat - Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("HTTP: %s\n", cfg.Monitor.Listen)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(gctx) })
	g.Go(func() error { return mon.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
