// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package monitor polls a charger on an interval and fans each status out to
// the API snapshot, Prometheus metrics and telemetry sinks.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/benystat/internal/api"
	"github.com/Thermoquad/benystat/internal/history"
	"github.com/Thermoquad/benystat/internal/metrics"
	"github.com/Thermoquad/benystat/internal/telemetry"
	"github.com/Thermoquad/benystat/pkg/charger"
)

// Poller fetches one status from a charger
type Poller interface {
	FetchStatus(ctx context.Context) (*charger.Status, error)
}

// Options configures a Monitor. Everything except Poller is optional.
type Options struct {
	Poller   Poller
	Serial   int
	Interval time.Duration

	Snapshot *api.Snapshot
	Metrics  *metrics.Metrics
	Sink     telemetry.Sink

	// History is pruned of entries older than Retention once an hour
	History   *history.Store
	Retention time.Duration

	// OnStatus is called after every poll, successful or not
	OnStatus func(*charger.Status, error)

	Logger zerolog.Logger
}

// Monitor runs the polling loop
type Monitor struct {
	opts   Options
	logger zerolog.Logger

	failures  int
	lastPrune time.Time
	now       func() time.Time
}

// New creates a monitor
func New(opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	return &Monitor{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "monitor").Logger(),
		now:    time.Now,
	}
}

// Run polls immediately and then on every tick until ctx is done
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info().
		Int("serial", m.opts.Serial).
		Dur("interval", m.opts.Interval).
		Msg("monitor started")

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		m.Poll(ctx)

		select {
		case <-ctx.Done():
			m.logger.Info().Msg("monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll performs one poll and distributes the result
func (m *Monitor) Poll(ctx context.Context) {
	start := m.now()
	status, err := m.opts.Poller.FetchStatus(ctx)
	if ctx.Err() != nil {
		return
	}

	if m.opts.Metrics != nil {
		m.opts.Metrics.ObservePoll(start, err)
	}
	if m.opts.Snapshot != nil {
		m.opts.Snapshot.Update(status, err, start)
	}
	if m.opts.OnStatus != nil {
		m.opts.OnStatus(status, err)
	}

	if err != nil {
		m.failures++
		event := m.logger.Warn()
		if m.failures > 1 {
			// only the first failure of a streak is a warning
			event = m.logger.Debug()
		}
		event.Err(err).Int("consecutive_failures", m.failures).Msg("poll failed")
		return
	}

	if m.failures > 0 {
		m.logger.Info().Int("failures", m.failures).Msg("charger reachable again")
		m.failures = 0
	}

	m.logger.Debug().
		Str("state", status.State).
		Float64("power", status.Power).
		Msg("status received")

	if m.opts.Metrics != nil {
		m.opts.Metrics.ObserveStatus(status)
	}
	if m.opts.Sink != nil {
		if err := m.opts.Sink.Publish(ctx, m.opts.Serial, status); err != nil {
			m.logger.Warn().Err(err).Msg("publish failed")
		}
	}

	m.prune(ctx)
}

func (m *Monitor) prune(ctx context.Context) {
	if m.opts.History == nil || m.opts.Retention <= 0 {
		return
	}
	now := m.now()
	if now.Sub(m.lastPrune) < time.Hour {
		return
	}
	m.lastPrune = now
	if _, err := m.opts.History.Prune(ctx, now.Add(-m.opts.Retention)); err != nil {
		m.logger.Warn().Err(err).Msg("history prune failed")
	}
}

// Failures returns the number of consecutive failed polls
func (m *Monitor) Failures() int {
	return m.failures
}
