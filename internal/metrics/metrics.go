// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exports charger readings as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Thermoquad/benystat/pkg/beny"
	"github.com/Thermoquad/benystat/pkg/charger"
)

const namespace = "benystat"

// Metrics holds the collectors for one monitored charger
type Metrics struct {
	registry *prometheus.Registry

	Power       prometheus.Gauge
	TotalEnergy prometheus.Gauge
	Temperature prometheus.Gauge
	MaxCurrent  prometheus.Gauge
	Current     *prometheus.GaugeVec
	Voltage     *prometheus.GaugeVec
	State       *prometheus.GaugeVec
	DLBPower    *prometheus.GaugeVec

	Polls       prometheus.Counter
	PollErrors  *prometheus.CounterVec
	PollLatency prometheus.Histogram
	LastUpdate  prometheus.Gauge
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Power: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "power_kilowatts",
			Help:      "Charging power",
		}),
		TotalEnergy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "energy_kilowatt_hours",
			Help:      "Energy delivered in the current session",
		}),
		Temperature: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Charger temperature",
		}),
		MaxCurrent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "max_current_amperes",
			Help:      "Configured maximum charging current",
		}),
		Current: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_amperes",
			Help:      "Charging current per phase",
		}, []string{"phase"}),
		Voltage: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voltage_volts",
			Help:      "Voltage per phase",
		}, []string{"phase"}),
		State: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "1 for the current charger state, 0 otherwise",
		}, []string{"state"}),
		DLBPower: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dlb_power_kilowatts",
			Help:      "Dynamic load balancing power readings",
		}, []string{"source"}),
		Polls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Status polls issued",
		}),
		PollErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Failed status polls by reason",
		}, []string{"reason"}),
		PollLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_latency_seconds",
			Help:      "Status poll round trip time",
			Buckets:   prometheus.DefBuckets,
		}),
		LastUpdate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_update_timestamp_seconds",
			Help:      "Unix time of the last successful poll",
		}),
	}
}

// ObserveStatus records a successful poll
func (m *Metrics) ObserveStatus(s *charger.Status) {
	m.Power.Set(s.Power)
	m.TotalEnergy.Set(s.TotalKWh)
	m.Temperature.Set(float64(s.Temperature))
	m.MaxCurrent.Set(float64(s.MaxCurrent))

	for i, current := range s.Currents {
		m.Current.WithLabelValues(strconv.Itoa(i + 1)).Set(float64(current))
	}
	for i, voltage := range s.Voltages {
		m.Voltage.WithLabelValues(strconv.Itoa(i + 1)).Set(float64(voltage))
	}

	for state := beny.StateAbnormal; state <= beny.StateCharging; state++ {
		name := strings.ToLower(state.String())
		value := 0.0
		if name == s.State {
			value = 1
		}
		m.State.WithLabelValues(name).Set(value)
	}

	if s.DLB != nil {
		m.DLBPower.WithLabelValues("solar").Set(s.DLB.Solar)
		m.DLBPower.WithLabelValues("ev").Set(s.DLB.EV)
		m.DLBPower.WithLabelValues("house").Set(s.DLB.House)
		m.DLBPower.WithLabelValues("grid").Set(s.DLB.Grid)
	}

	m.LastUpdate.Set(float64(s.UpdatedAt.Unix()))
}

// ObservePoll counts a poll and its latency. A failed poll is counted under
// its reason.
func (m *Metrics) ObservePoll(start time.Time, err error) {
	m.Polls.Inc()
	m.PollLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		m.PollErrors.WithLabelValues(Reason(err)).Inc()
	}
}

// Reason maps a client error to a metric label
func Reason(err error) string {
	switch {
	case errors.Is(err, charger.ErrTimeout):
		return "timeout"
	case errors.Is(err, charger.ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, beny.ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, beny.ErrUnknownMessageType):
		return "unknown_type"
	case errors.Is(err, beny.ErrMalformedHex):
		return "malformed"
	default:
		return "other"
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
