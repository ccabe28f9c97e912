// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/benystat/pkg/beny"
	"github.com/Thermoquad/benystat/pkg/charger"
)

var pingTimeout int

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the connection by requesting the charger model",
	Long: `Request the charger model and wait for a valid answer until timeout.

Useful for checking the IP address, the PIN and the relay connection.
The reported model also tells the charger type (1P/3P) and DLB support.

Exit codes:
  0 - Model received before timeout
  1 - Timeout or access denied
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 10, "Timeout in seconds to wait for an answer")
}

func runPing(cmd *cobra.Command, args []string) error {
	client, connInfo, err := OpenClient(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer client.Close()

	fmt.Printf("Benystat - Ping\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n\n", pingTimeout)

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(pingTimeout)*time.Second)
	defer cancel()

	start := time.Now()
	model, err := client.FetchModel(ctx)
	switch {
	case err == nil:
	case errors.Is(err, charger.ErrAccessDenied):
		fmt.Fprintf(os.Stderr, "ACCESS DENIED: check the PIN\n")
		os.Exit(1)
	case errors.Is(err, charger.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No answer within %d seconds\n", pingTimeout)
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	chargerType := beny.ChargerTypeOf(model)
	if chargerType == beny.ChargerTypeUnknown {
		chargerType = "unknown"
	}

	fmt.Printf("SUCCESS: Received model in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  Model: %s\n", model)
	fmt.Printf("  Type: %s\n", chargerType)
	fmt.Printf("  DLB: %v\n", beny.SupportsDLB(model))
	if !beny.KnownModel(model) {
		fmt.Printf("  (model not in the known model list)\n")
	}
	return nil
}
