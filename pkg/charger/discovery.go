// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package charger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/Thermoquad/benystat/pkg/beny"
	"github.com/rs/zerolog"
)

// DefaultBroadcast is the address POLL_DEVICES is sent to
const DefaultBroadcast = "255.255.255.255"

// Device is a charger that answered a discovery broadcast
type Device struct {
	Serial int    `json:"serial"`
	IP     string `json:"ip"`
	Port   int    `json:"port"`
	Source string `json:"source"`
}

// DiscoverOptions configures a discovery broadcast
type DiscoverOptions struct {
	Broadcast string
	Port      int
	PIN       string
	Serial    int
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// Discover broadcasts POLL_DEVICES and collects handshakes until the timeout
// expires. Devices are returned sorted by serial, one entry per serial.
func Discover(ctx context.Context, opts DiscoverOptions) ([]Device, error) {
	if opts.Broadcast == "" {
		opts.Broadcast = DefaultBroadcast
	}
	if opts.Port == 0 {
		opts.Port = beny.DefaultPort
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	logger := opts.Logger.With().Str("component", "discovery").Logger()
	decoder := beny.NewDecoder(opts.Logger)

	request, err := beny.Encode(beny.KindPollDevices, beny.NewPollDevices(opts.PIN, opts.Serial).Params)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	defer conn.Close()

	target, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(opts.Broadcast, strconv.Itoa(opts.Port)))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", opts.Broadcast, err)
	}

	deadline := time.Now().Add(opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	// Unblock the read loop on cancellation
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.WriteTo([]byte(request), target); err != nil {
		return nil, fmt.Errorf("broadcast to %s: %w", target, err)
	}
	logger.Debug().Str("target", target.String()).Msg("poll sent")

	seen := make(map[int]Device)
	buf := make([]byte, maxDatagram)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				break
			}
			return nil, fmt.Errorf("receive: %w", err)
		}

		msg, err := decoder.Decode(string(buf[:n]), beny.KindAuto)
		if err != nil || msg.Kind != beny.KindHandshake {
			logger.Debug().Str("from", addr.String()).Err(err).Msg("ignoring non-handshake datagram")
			continue
		}

		device := Device{Source: addr.String()}
		device.Serial, _ = msg.GetInt("serial")
		device.IP, _ = msg.GetString("ip")
		device.Port, _ = msg.GetInt("port")
		if _, dup := seen[device.Serial]; !dup {
			logger.Info().
				Int("serial", device.Serial).
				Str("ip", device.IP).
				Int("port", device.Port).
				Msg("charger found")
		}
		seen[device.Serial] = device
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, ctx.Err()
	}

	devices := make([]Device, 0, len(seen))
	for _, d := range seen {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Serial < devices[j].Serial })
	return devices, nil
}
