// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/benystat/pkg/charger"
)

var (
	discoveryTimeout   int
	discoveryBroadcast string
	discoverySerial    int
	discoverySave      string
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Discover chargers on the local network",
	Long: `Broadcast POLL_DEVICES and list the chargers that answer.

Chargers answer with a handshake carrying their serial number, IP address
and port. Duplicate answers are merged by serial.

Examples:
  benystat discovery
  benystat discovery --broadcast 192.168.1.255 --timeout 10
  benystat discovery --save benystat.yaml

Exit codes:
  0 - Discovery successful (at least one charger found)
  1 - Discovery failed (no chargers answered)
  2 - Network error`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 5, "Timeout in seconds for discovery")
	discoveryCmd.Flags().StringVar(&discoveryBroadcast, "broadcast", charger.DefaultBroadcast, "Broadcast address")
	discoveryCmd.Flags().IntVar(&discoverySerial, "serial", 0, "Serial number to include in the poll")
	discoveryCmd.Flags().StringVar(&discoverySave, "save", "", "Write the first charger found to this config file")
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	pin, err := GetPIN()
	if err != nil {
		return err
	}

	fmt.Printf("Benystat - Charger Discovery\n")
	fmt.Printf("Broadcast: %s:%d\n", discoveryBroadcast, cfg.Charger.Port)
	fmt.Printf("Timeout: %d seconds\n\n", discoveryTimeout)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	devices, err := charger.Discover(ctx, charger.DiscoverOptions{
		Broadcast: discoveryBroadcast,
		Port:      cfg.Charger.Port,
		PIN:       pin,
		Serial:    discoverySerial,
		Timeout:   time.Duration(discoveryTimeout) * time.Second,
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Discovery error: %v\n", err)
		os.Exit(2)
	}

	if len(devices) == 0 {
		fmt.Printf("TIMEOUT: No chargers responded in %ds\n", discoveryTimeout)
		fmt.Printf("Check the PIN, the broadcast address and that the charger is on WiFi.\n")
		os.Exit(1)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Serial", "IP", "Port", "Answered From"})
	table.SetBorder(false)
	for _, d := range devices {
		table.Append([]string{strconv.Itoa(d.Serial), d.IP, strconv.Itoa(d.Port), d.Source})
	}
	table.Render()

	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Chargers found: %d\n", len(devices))

	if discoverySave != "" {
		first := devices[0]
		saved := *cfg
		saved.Charger.IP = first.IP
		saved.Charger.Port = first.Port
		saved.Charger.Serial = first.Serial
		// the PIN stays in BENY_PIN or the prompt
		saved.Charger.PIN = ""
		if err := saved.Save(discoverySave); err != nil {
			return err
		}
		fmt.Printf("Saved charger %d to %s\n", first.Serial, discoverySave)
	}

	return nil
}
