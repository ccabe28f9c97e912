// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/benystat/internal/history"
)

var (
	historyDB     string
	historyLimit  int
	historySerial int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show statuses recorded by the monitor",
	Long: `Print the most recent statuses stored in the monitor's SQLite history,
newest first.

Example:
  benystat history --history-db ~/.local/share/benystat/history.db --limit 50`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyDB, "history-db", "", "SQLite history database path (default from config)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().IntVar(&historySerial, "serial", 0, "Only show this charger (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := cfg.History.Path
	if historyDB != "" {
		path = historyDB
	}
	if path == "" {
		return fmt.Errorf("no history database: set history.path or --history-db")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("history database: %w", err)
	}

	store, err := history.Open(path, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(cmd.Context(), historySerial, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No entries recorded")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Serial", "State", "Power kW", "Energy kWh", "Currents A", "Temp °C", "Grid kW"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	for _, e := range entries {
		s := e.Status
		currents := make([]string, len(s.Currents))
		for i, c := range s.Currents {
			currents[i] = strconv.Itoa(c)
		}
		grid := "-"
		if s.DLB != nil {
			grid = fmt.Sprintf("%.1f", s.DLB.Grid)
		}
		table.Append([]string{
			s.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(e.Serial),
			s.State,
			fmt.Sprintf("%.1f", s.Power),
			fmt.Sprintf("%.1f", s.TotalKWh),
			strings.Join(currents, "/"),
			strconv.Itoa(s.Temperature),
			grid,
		})
	}
	table.Render()
	return nil
}
