// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/benystat/pkg/charger"
)

var dashboardInterval time.Duration

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI for monitoring and controlling a charger",
	Long: `Monitor and control a Beny charger via an interactive terminal UI.

Features:
  - Live values (state, per-phase current and voltage, power, energy)
  - Dynamic load balancing readings when enabled
  - Start/stop charging and set the maximum current
  - Protocol statistics and an event log
  - Automatic reconnection when a WebSocket relay drops

Tab switches between the current input and the charge button. Enter sends
the focused control; r polls immediately.

Supports both UDP and WebSocket connections.`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", 5*time.Second, "Poll interval")
}

// clientManager handles the client lifecycle and reconnection
type clientManager struct {
	client   *charger.Client
	connInfo string
	mu       sync.RWMutex
	p        *tea.Program
	done     chan struct{}
	pollNow  chan struct{}
}

func (cm *clientManager) getClient() *charger.Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.client
}

func (cm *clientManager) setClient(client *charger.Client, connInfo string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.client = client
	cm.connInfo = connInfo
}

func runDashboard(cmd *cobra.Command, args []string) error {
	client, connInfo, err := OpenClient(cmd.Context())
	if err != nil {
		return err
	}

	cm := &clientManager{
		client:   client,
		connInfo: connInfo,
		done:     make(chan struct{}),
		pollNow:  make(chan struct{}, 1),
	}

	m := initialDashboardModel(cm, connInfo)
	p := tea.NewProgram(m, tea.WithAltScreen())
	cm.p = p

	go cm.pollLoop(dashboardInterval)

	_, err = p.Run()
	close(cm.done)
	cm.getClient().Close()
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// requestPoll asks the poll loop for an immediate poll
func (cm *clientManager) requestPoll() {
	select {
	case cm.pollNow <- struct{}{}:
	default:
	}
}

// pollLoop fetches the status on every tick and reconnects on a closed transport
func (cm *clientManager) pollLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Charger.Timeout*time.Duration(cfg.Charger.Retries+1))
		status, err := cm.getClient().FetchStatus(ctx)
		cancel()

		select {
		case <-cm.done:
			return
		default:
		}

		cm.p.Send(statusMsg{status: status, err: err, at: time.Now()})

		if errors.Is(err, charger.ErrClosed) {
			cm.p.Send(connectionLostMsg{})
			if !cm.reconnect() {
				return
			}
			continue
		}

		select {
		case <-cm.done:
			return
		case <-ticker.C:
		case <-cm.pollNow:
		}
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *clientManager) reconnect() bool {
	cm.getClient().Close()

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		client, connInfo, err := OpenClient(ctx)
		cancel()
		if err == nil {
			cm.setClient(client, connInfo)
			cm.p.Send(reconnectedMsg{connInfo: connInfo})
			return true
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// runCommand sends a charger command off the UI goroutine
func (cm *clientManager) runCommand(name string, fn func(context.Context, *charger.Client) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Charger.Timeout*time.Duration(cfg.Charger.Retries+1))
		defer cancel()
		err := fn(ctx, cm.getClient())
		if err == nil {
			cm.requestPoll()
		}
		return commandResultMsg{name: name, err: err}
	}
}
