// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package telemetry forwards charger status snapshots to MQTT and Redis.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Thermoquad/benystat/pkg/charger"
)

// ErrNotConnected is returned when publishing before a connection exists
var ErrNotConnected = errors.New("telemetry sink not connected")

// Sink receives every successful status poll
type Sink interface {
	Publish(ctx context.Context, serial int, status *charger.Status) error
	Close() error
}

// Payload is the JSON document sent to every sink
type Payload struct {
	Serial    int             `json:"serial"`
	Timestamp string          `json:"timestamp"`
	Status    *charger.Status `json:"status"`
}

// NewPayload wraps a status with its charger serial
func NewPayload(serial int, status *charger.Status) Payload {
	return Payload{
		Serial:    serial,
		Timestamp: status.UpdatedAt.UTC().Format(time.RFC3339),
		Status:    status,
	}
}

// Marshal encodes a payload as JSON
func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Fanout publishes to several sinks and joins their errors
type Fanout []Sink

// Publish sends the status to every sink
func (f Fanout) Publish(ctx context.Context, serial int, status *charger.Status) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Publish(ctx, serial, status); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink
func (f Fanout) Close() error {
	var errs []error
	for _, sink := range f {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
