// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package charger talks to Beny WiFi chargers over UDP (or a WebSocket
// relay), serialising request/response pairs and applying per-attempt
// timeouts and retries around the beny codec.
package charger

import "errors"

var (
	// ErrAccessDenied is returned when the charger rejects the PIN
	ErrAccessDenied = errors.New("charger denied access (check PIN)")

	// ErrTimeout is returned when no response arrived in time
	ErrTimeout = errors.New("request timed out")

	// ErrInvalidCurrent is returned for currents outside 6-32 A
	ErrInvalidCurrent = errors.New("maximum current must be between 6 and 32 amps")

	// ErrOutOfRange is returned for values that do not fit their wire field
	ErrOutOfRange = errors.New("value out of range")

	// ErrUnplugged is returned for commands refused while no vehicle is connected
	ErrUnplugged = errors.New("charger is unplugged")

	// ErrClosed is returned when using a closed transport
	ErrClosed = errors.New("transport closed")
)
