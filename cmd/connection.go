// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Thermoquad/benystat/internal/config"
	"github.com/Thermoquad/benystat/pkg/beny"
	"github.com/Thermoquad/benystat/pkg/charger"
)

// Secrets resolved once per process, so reconnects never prompt again
var (
	cachedPIN      string
	cachedPassword string
)

// promptSecret reads a value from the terminal without echo
func promptSecret(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)

	secret, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %v", strings.ToLower(label), err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(line), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(secret), nil
}

// GetPassword retrieves the relay password from the environment or prompts
func GetPassword() (string, error) {
	if cachedPassword != "" {
		return cachedPassword, nil
	}
	if pw := os.Getenv(config.EnvPassword); pw != "" {
		return pw, nil
	}
	pw, err := promptSecret("Password")
	if err != nil {
		return "", err
	}
	cachedPassword = pw
	return pw, nil
}

// GetPIN returns the charger PIN as wire hex digits. The decimal PIN comes
// from the config file, BENY_PIN or an interactive prompt.
func GetPIN() (string, error) {
	if cachedPIN != "" {
		return cachedPIN, nil
	}
	pin := cfg.Charger.PIN
	if pin == "" {
		var err error
		pin, err = promptSecret("PIN")
		if err != nil {
			return "", err
		}
	}
	hex, err := beny.PinHex(pin)
	if err != nil {
		return "", err
	}
	cachedPIN = hex
	return hex, nil
}

// OpenTransport opens a UDP or WebSocket transport based on flags and config
func OpenTransport(ctx context.Context) (charger.Transport, string, error) {
	if cfg.Relay.URL != "" {
		password := ""
		if cfg.Relay.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		transport, err := charger.DialWebSocket(ctx, cfg.Relay.URL, cfg.Relay.Username, password, cfg.Relay.SkipSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return transport, fmt.Sprintf("WebSocket: %s", cfg.Relay.URL), nil
	}

	if cfg.Charger.IP != "" {
		transport := charger.NewUDPTransport(cfg.Charger.IP, cfg.Charger.Port)
		return transport, fmt.Sprintf("UDP: %s:%d", cfg.Charger.IP, cfg.Charger.Port), nil
	}

	return nil, "", fmt.Errorf("either --ip or --url must be specified")
}

// OpenClient opens a transport and wraps it in a charger client
func OpenClient(ctx context.Context) (*charger.Client, string, error) {
	transport, connInfo, err := OpenTransport(ctx)
	if err != nil {
		return nil, "", err
	}

	pin, err := GetPIN()
	if err != nil {
		transport.Close()
		return nil, "", err
	}

	client := charger.New(transport, charger.Options{
		PIN:         pin,
		ChargerType: cfg.ChargerType(),
		DLB:         cfg.Charger.DLB,
		Timeout:     cfg.Charger.Timeout,
		Retries:     cfg.Charger.Retries,
		Logger:      logger,
	})
	return client, connInfo, nil
}
