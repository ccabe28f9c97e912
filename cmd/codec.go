// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/benystat/pkg/beny"
)

var (
	decodeKind  string
	decodeStats bool
	kindsFields bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode [hex...]",
	Short: "Decode charger messages in human-readable format",
	Long: `Decode Beny protocol messages given as arguments, or one per line on stdin.

The message kind is detected from the header unless --kind is given. Checksum
failures and unknown types are reported and skipped.

Examples:
  benystat decode 55aa11001a70001000e60e1004d282060300071e160000200a74
  benystat decode --kind SendDLB 55aa11000e7b0000006400c8012cfffff0
  cat capture.txt | benystat decode --stats`,
	RunE: runDecode,
}

var encodeCmd = &cobra.Command{
	Use:   "encode <kind> [name=hex...]",
	Short: "Build an outbound message from placeholder values",
	Long: `Fill the template of an outbound message kind and append its checksum.

Placeholder values are hex digits of exactly the placeholder width. Use
"benystat kinds --fields" to list the placeholders of each kind.

Example:
  benystat encode SetMaxCurrent pin=00001 max_current=10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEncode,
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the message catalog",
	RunE:  runKinds,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(kindsCmd)

	decodeCmd.Flags().StringVarP(&decodeKind, "kind", "k", "", "Expected message kind (default: detect)")
	decodeCmd.Flags().BoolVar(&decodeStats, "stats", false, "Print statistics after decoding")
	kindsCmd.Flags().BoolVar(&kindsFields, "fields", false, "Show field layouts")
}

func runDecode(cmd *cobra.Command, args []string) error {
	kind := beny.KindAuto
	if decodeKind != "" {
		var err error
		kind, err = beny.ParseKind(decodeKind)
		if err != nil {
			return err
		}
	}

	decoder := beny.NewDecoder(logger)
	stats := beny.NewStatistics()

	decodeOne := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			return
		}
		msg, err := decoder.Decode(raw, kind)
		stats.Update(msg, err)
		if err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			return
		}
		fmt.Print(beny.FormatMessage(msg))
	}

	if len(args) > 0 {
		for _, raw := range args {
			decodeOne(raw)
		}
	} else {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			decodeOne(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}

	if decodeStats {
		fmt.Println()
		fmt.Print(stats.String())
	}
	return nil
}

func runEncode(cmd *cobra.Command, args []string) error {
	kind, err := beny.ParseKind(args[0])
	if err != nil {
		return err
	}

	params := make(map[string]string, len(args)-1)
	for _, arg := range args[1:] {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("invalid parameter %q (expected name=hex)", arg)
		}
		params[name] = value
	}

	msg, err := beny.NewEncoder(logger).Encode(kind, params)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func runKinds(cmd *cobra.Command, args []string) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Kind", "Direction", "Placeholders", "Description"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	var kinds []beny.Kind
	kinds = append(kinds, beny.Kinds(beny.Outbound)...)
	kinds = append(kinds, beny.Kinds(beny.Inbound)...)

	for _, kind := range kinds {
		def := beny.Lookup(kind)
		var placeholders []string
		for _, name := range beny.Placeholders(def.Template) {
			if name != "checksum" {
				placeholders = append(placeholders, name)
			}
		}
		table.Append([]string{
			def.Name,
			def.Direction.String(),
			strings.Join(placeholders, " "),
			def.Description,
		})
	}
	table.Render()

	if kindsFields {
		for _, kind := range kinds {
			fmt.Println()
			fmt.Print(beny.FormatDefinition(beny.Lookup(kind)))
		}
	}
	return nil
}
