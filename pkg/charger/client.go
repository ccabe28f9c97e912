// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package charger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/benystat/pkg/beny"
	"github.com/rs/zerolog"
)

// Defaults used by the charger app
const (
	DefaultTimeout = 8 * time.Second
	DefaultRetries = 2

	MinCurrent = 6
	MaxCurrent = 32
)

// Options configures a Client
type Options struct {
	// PIN as the five hex digits carried on the wire (see beny.PinHex)
	PIN string

	// ChargerType forces the values layout; empty detects it per response
	ChargerType beny.ChargerType

	// DLB requests dynamic load balancing values with every status
	DLB bool

	Timeout time.Duration
	Retries int
	Logger  zerolog.Logger
}

// Client issues requests to one charger. Request/response pairs are
// serialised; the client is safe for concurrent use.
type Client struct {
	mu        sync.Mutex
	transport Transport
	opts      Options
	logger    zerolog.Logger
	decoder   *beny.Decoder
	encoder   *beny.Encoder
	stats     *beny.Statistics
	now       func() time.Time
}

// New creates a client on top of a transport
func New(transport Transport, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries <= 0 {
		opts.Retries = DefaultRetries
	}
	logger := opts.Logger.With().Str("component", "charger").Str("transport", transport.String()).Logger()
	return &Client{
		transport: transport,
		opts:      opts,
		logger:    logger,
		decoder:   beny.NewDecoder(opts.Logger),
		encoder:   beny.NewEncoder(opts.Logger),
		stats:     beny.NewStatistics(),
		now:       time.Now,
	}
}

// Close closes the underlying transport
func (c *Client) Close() error {
	return c.transport.Close()
}

// Statistics returns the decode statistics of all responses seen so far
func (c *Client) Statistics() *beny.Statistics {
	return c.stats
}

// roundTrip sends a raw message, retrying only on timeouts
func (c *Client) roundTrip(ctx context.Context, raw string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for attempt := 1; attempt <= c.opts.Retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		resp, err := c.transport.RoundTrip(attemptCtx, raw)
		cancel()
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, ErrTimeout) || ctx.Err() != nil {
			return "", err
		}
		c.logger.Warn().
			Int("attempt", attempt).
			Int("retries", c.opts.Retries).
			Msg("request timed out")
	}

	c.logger.Error().Int("retries", c.opts.Retries).Msg("request failed after retries")
	return "", fmt.Errorf("%w after %d attempts", ErrTimeout, c.opts.Retries)
}

// request sends req and decodes the response. KindAuto accepts any detected
// inbound kind; otherwise the response is decoded with the expected layout.
func (c *Client) request(ctx context.Context, req beny.Request, expected beny.Kind) (*beny.Message, error) {
	raw, err := c.encoder.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.roundTrip(ctx, raw)
	if err != nil {
		return nil, err
	}

	if detected, err := beny.DetectKind(resp); err == nil && detected == beny.KindAccessDenied {
		c.stats.Update(&beny.Message{Kind: beny.KindAccessDenied}, nil)
		return nil, ErrAccessDenied
	}

	msg, err := c.decoder.Decode(resp, expected)
	c.stats.Update(msg, err)
	if err != nil {
		return nil, fmt.Errorf("%s response: %w", req.Kind, err)
	}
	return msg, nil
}

// command sends req and only checks the response for an access denial
func (c *Client) command(ctx context.Context, req beny.Request) error {
	raw, err := c.encoder.EncodeRequest(req)
	if err != nil {
		return err
	}

	resp, err := c.roundTrip(ctx, raw)
	if err != nil {
		return err
	}

	if kind, err := beny.DetectKind(resp); err == nil && kind == beny.KindAccessDenied {
		return ErrAccessDenied
	}

	c.logger.Info().Str("command", req.Kind.String()).Msg("command sent")
	return nil
}

// FetchValues requests the current measurements
func (c *Client) FetchValues(ctx context.Context) (*beny.Message, error) {
	expected := beny.KindAuto
	if c.opts.ChargerType != beny.ChargerTypeUnknown {
		expected = c.opts.ChargerType.ValuesKind()
	}
	msg, err := c.request(ctx, beny.NewRequestData(c.opts.PIN, beny.RequestValues), expected)
	if err != nil {
		return nil, err
	}
	if msg.Kind != beny.KindSendValues1P && msg.Kind != beny.KindSendValues3P {
		return nil, fmt.Errorf("%w: expected values, got %s", beny.ErrUnknownMessageType, msg.Kind)
	}
	return msg, nil
}

// FetchModel requests the model string
func (c *Client) FetchModel(ctx context.Context) (string, error) {
	msg, err := c.request(ctx, beny.NewRequestData(c.opts.PIN, beny.RequestModel), beny.KindSendModel)
	if err != nil {
		return "", err
	}
	model, ok := msg.GetString("model")
	if !ok {
		return "", fmt.Errorf("model field missing: %v", msg.Errors)
	}
	return model, nil
}

// FetchDLB requests dynamic load balancing values
func (c *Client) FetchDLB(ctx context.Context) (*beny.Message, error) {
	return c.request(ctx, beny.NewRequestDLB(c.opts.PIN), beny.KindSendDLB)
}

// FetchStatus requests values (and DLB values when enabled) and derives the
// charger status
func (c *Client) FetchStatus(ctx context.Context) (*Status, error) {
	values, err := c.FetchValues(ctx)
	if err != nil {
		return nil, err
	}
	status := NewStatus(values, c.now())

	if c.opts.DLB {
		dlb, err := c.FetchDLB(ctx)
		if err != nil {
			return nil, fmt.Errorf("DLB: %w", err)
		}
		status.DLB = NewDLBValues(dlb)
	}

	c.logger.Debug().
		Str("state", status.State).
		Float64("power", status.Power).
		Msg("status updated")

	return status, nil
}

// FetchSchedule requests the weekly schedule
func (c *Client) FetchSchedule(ctx context.Context) (*Schedule, error) {
	msg, err := c.request(ctx, beny.NewRequestSettings(c.opts.PIN), beny.KindSendSettings)
	if err != nil {
		return nil, err
	}
	return NewSchedule(msg), nil
}

// requirePlugged refuses commands while no vehicle is connected
func (c *Client) requirePlugged(ctx context.Context) error {
	values, err := c.FetchValues(ctx)
	if err != nil {
		return err
	}
	if state, _ := values.GetString("state"); state == beny.StateUnplugged.String() {
		return ErrUnplugged
	}
	return nil
}

// StartCharging starts a charging session
func (c *Client) StartCharging(ctx context.Context) error {
	return c.setCharging(ctx, beny.CommandStart)
}

// StopCharging stops the charging session
func (c *Client) StopCharging(ctx context.Context) error {
	return c.setCharging(ctx, beny.CommandStop)
}

func (c *Client) setCharging(ctx context.Context, command beny.ChargerCommand) error {
	if err := c.requirePlugged(ctx); err != nil {
		return err
	}
	return c.command(ctx, beny.NewChargerCommand(c.opts.PIN, command))
}

// SetTimer sets the charging timer; a nil end sets only the start time
func (c *Client) SetTimer(ctx context.Context, start beny.Clock, end *beny.Clock) error {
	if err := c.requirePlugged(ctx); err != nil {
		return err
	}
	return c.command(ctx, beny.NewSetTimer(c.opts.PIN, start, end))
}

// ResetTimer clears the charging timer
func (c *Client) ResetTimer(ctx context.Context) error {
	if err := c.requirePlugged(ctx); err != nil {
		return err
	}
	return c.command(ctx, beny.NewResetTimer(c.opts.PIN))
}

// SetSchedule sets the weekly charging schedule
func (c *Client) SetSchedule(ctx context.Context, days []time.Weekday, start, end beny.Clock) error {
	return c.command(ctx, beny.NewSetSchedule(c.opts.PIN, days, start, end))
}

// SetMaxCurrent sets the maximum charging current in amps
func (c *Client) SetMaxCurrent(ctx context.Context, amps int) error {
	if amps < MinCurrent || amps > MaxCurrent {
		return fmt.Errorf("%w: %d", ErrInvalidCurrent, amps)
	}
	return c.command(ctx, beny.NewSetMaxCurrent(c.opts.PIN, amps))
}

// SetMaxMonthlyConsumption sets the monthly energy limit in kWh
func (c *Client) SetMaxMonthlyConsumption(ctx context.Context, kwh int) error {
	if !beny.FitsField(beny.KindSetMaxMonthlyConsumption, "maximum_consumption", kwh) {
		return fmt.Errorf("%w: monthly consumption %d kWh", ErrOutOfRange, kwh)
	}
	return c.command(ctx, beny.NewSetMaxMonthlyConsumption(c.opts.PIN, kwh))
}

// SetMaxSessionConsumption sets the per-session energy limit in kWh
func (c *Client) SetMaxSessionConsumption(ctx context.Context, kwh int) error {
	if !beny.FitsField(beny.KindSetMaxSessionConsumption, "maximum_consumption", kwh) {
		return fmt.Errorf("%w: session consumption %d kWh", ErrOutOfRange, kwh)
	}
	return c.command(ctx, beny.NewSetMaxSessionConsumption(c.opts.PIN, kwh))
}
