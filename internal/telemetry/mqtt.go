// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/benystat/internal/config"
	"github.com/Thermoquad/benystat/pkg/charger"
)

// MQTTPublisher publishes status payloads to a broker
type MQTTPublisher struct {
	cfg    config.MQTTConfig
	client mqtt.Client
	logger zerolog.Logger
}

// NewMQTTPublisher configures a client for the broker. Call Connect before
// publishing.
func NewMQTTPublisher(cfg config.MQTTConfig, logger zerolog.Logger) *MQTTPublisher {
	logger = logger.With().Str("component", "mqtt").Logger()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	} else {
		host, _ := os.Hostname()
		opts.SetClientID(fmt.Sprintf("benystat-%s", host))
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info().Str("broker", cfg.Broker).Msg("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("MQTT connection lost")
	})

	return &MQTTPublisher{
		cfg:    cfg,
		client: mqtt.NewClient(opts),
		logger: logger,
	}
}

// Connect dials the broker, giving up when ctx ends
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	token := p.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT connect failed: %w", err)
	}
	return nil
}

// Topic returns the topic a charger publishes on
func (p *MQTTPublisher) Topic(serial int) string {
	if serial == 0 {
		return p.cfg.Topic
	}
	return p.cfg.Topic + "/" + strconv.Itoa(serial)
}

// Publish sends the status as a JSON payload
func (p *MQTTPublisher) Publish(ctx context.Context, serial int, status *charger.Status) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	data, err := NewPayload(serial, status).Marshal()
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	topic := p.Topic(serial)
	token := p.client.Publish(topic, p.cfg.QoS, p.cfg.Retain, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.logger.Debug().Str("topic", topic).Int("bytes", len(data)).Msg("status published")
	return nil
}

// Close disconnects, waiting up to a second for in-flight messages
func (p *MQTTPublisher) Close() error {
	if p.client.IsConnected() {
		p.client.Disconnect(1000)
	}
	return nil
}
