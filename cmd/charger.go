// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/benystat/internal/telemetry"
	"github.com/Thermoquad/benystat/pkg/beny"
	"github.com/Thermoquad/benystat/pkg/charger"
)

var (
	statusJSON   bool
	statusCached bool

	timerStart string
	timerEnd   string

	scheduleDays  string
	scheduleStart string
	scheduleEnd   string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read live values from the charger",
	Long: `Request the charger values (and DLB values when enabled) and print the
derived status: state, per-phase currents and voltages, power, energy,
temperature and the next timer start/end.

With --cached the last status published by a running monitor is read from
the Redis cache instead (requires redis.addr and charger.serial).`,
	RunE: runStatus,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start charging",
	Long:  "Start charging. Refused while no vehicle is plugged in.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, "Charging started", func(ctx context.Context, c *charger.Client) error {
			return c.StartCharging(ctx)
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop charging",
	Long:  "Stop charging. Refused while no vehicle is plugged in.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, "Charging stopped", func(ctx context.Context, c *charger.Client) error {
			return c.StopCharging(ctx)
		})
	},
}

var setTimerCmd = &cobra.Command{
	Use:   "set-timer",
	Short: "Set a one-shot charging timer",
	Long: `Set the charging timer. --start is required; --end is optional.

Example:
  benystat set-timer --start 22:00 --end 06:30`,
	RunE: runSetTimer,
}

var resetTimerCmd = &cobra.Command{
	Use:   "reset-timer",
	Short: "Clear the charging timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, "Timer reset", func(ctx context.Context, c *charger.Client) error {
			return c.ResetTimer(ctx)
		})
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Set the weekly charging schedule",
	Long: `Set the weekly charging schedule. Days are a comma separated list of
day names (sun,mon,...) or "none" to disable the schedule.

Example:
  benystat schedule --days mon,tue,wed,thu,fri --start 22:00 --end 06:00`,
	RunE: runSchedule,
}

var getScheduleCmd = &cobra.Command{
	Use:   "get-schedule",
	Short: "Read the weekly charging schedule",
	RunE:  runGetSchedule,
}

var maxCurrentCmd = &cobra.Command{
	Use:   "max-current <amps>",
	Short: "Set the maximum charging current (6-32 A)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amps, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid current %q", args[0])
		}
		return withClient(cmd, fmt.Sprintf("Maximum current set to %d A", amps), func(ctx context.Context, c *charger.Client) error {
			return c.SetMaxCurrent(ctx, amps)
		})
	},
}

var maxMonthlyCmd = &cobra.Command{
	Use:   "max-monthly <kwh>",
	Short: "Set the maximum monthly consumption",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kwh, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid consumption %q", args[0])
		}
		return withClient(cmd, fmt.Sprintf("Maximum monthly consumption set to %d kWh", kwh), func(ctx context.Context, c *charger.Client) error {
			return c.SetMaxMonthlyConsumption(ctx, kwh)
		})
	},
}

var maxSessionCmd = &cobra.Command{
	Use:   "max-session <kwh>",
	Short: "Set the maximum consumption per session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kwh, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid consumption %q", args[0])
		}
		return withClient(cmd, fmt.Sprintf("Maximum session consumption set to %d kWh", kwh), func(ctx context.Context, c *charger.Client) error {
			return c.SetMaxSessionConsumption(ctx, kwh)
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, startCmd, stopCmd, setTimerCmd, resetTimerCmd,
		scheduleCmd, getScheduleCmd, maxCurrentCmd, maxMonthlyCmd, maxSessionCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the status as JSON")
	statusCmd.Flags().BoolVar(&statusCached, "cached", false, "Read the last status from the Redis cache")

	setTimerCmd.Flags().StringVar(&timerStart, "start", "", "Start time (HH:MM)")
	setTimerCmd.Flags().StringVar(&timerEnd, "end", "", "End time (HH:MM)")
	_ = setTimerCmd.MarkFlagRequired("start")

	scheduleCmd.Flags().StringVar(&scheduleDays, "days", "", "Days (sun,mon,tue,wed,thu,fri,sat or none)")
	scheduleCmd.Flags().StringVar(&scheduleStart, "start", "", "Start time (HH:MM)")
	scheduleCmd.Flags().StringVar(&scheduleEnd, "end", "", "End time (HH:MM)")
	_ = scheduleCmd.MarkFlagRequired("days")
	_ = scheduleCmd.MarkFlagRequired("start")
	_ = scheduleCmd.MarkFlagRequired("end")
}

// withClient opens a client, runs fn and prints done on success
func withClient(cmd *cobra.Command, done string, fn func(context.Context, *charger.Client) error) error {
	client, _, err := OpenClient(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	if err := fn(cmd.Context(), client); err != nil {
		return err
	}
	fmt.Println(done)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusCached {
		return runCachedStatus(cmd)
	}

	client, connInfo, err := OpenClient(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	status, err := client.FetchStatus(cmd.Context())
	if err != nil {
		return err
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Printf("Connection: %s\n\n", connInfo)
	fmt.Print(FormatStatus(status))
	return nil
}

func runCachedStatus(cmd *cobra.Command) error {
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("--cached requires redis.addr in the config file")
	}
	if cfg.Charger.Serial == 0 {
		return fmt.Errorf("--cached requires charger.serial in the config file")
	}
	cfg.ApplyDefaults()

	cache := telemetry.NewRedisCache(cfg.Redis, logger)
	defer cache.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Charger.Timeout)
	defer cancel()

	payload, err := cache.Latest(ctx, cfg.Charger.Serial)
	if err != nil {
		return err
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	fmt.Printf("Cached: %s (serial %d, published %s)\n\n", cache.Key(payload.Serial), payload.Serial, payload.Timestamp)
	fmt.Print(FormatStatus(payload.Status))
	return nil
}

// FormatStatus renders a status for the terminal
func FormatStatus(s *charger.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "State:        %s\n", s.State)
	for i := range s.Currents {
		fmt.Fprintf(&b, "Phase %d:      %d A  %d V\n", i+1, s.Currents[i], s.Voltages[i])
	}
	fmt.Fprintf(&b, "Power:        %.1f kW\n", s.Power)
	fmt.Fprintf(&b, "Energy:       %.1f kWh\n", s.TotalKWh)
	fmt.Fprintf(&b, "Temperature:  %d °C\n", s.Temperature)
	fmt.Fprintf(&b, "Max current:  %d A\n", s.MaxCurrent)
	if s.MaxSessionConsumption > 0 {
		fmt.Fprintf(&b, "Session cap:  %d kWh\n", s.MaxSessionConsumption)
	}
	fmt.Fprintf(&b, "Timer:        %s\n", s.TimerState)
	if s.TimerStart != nil {
		fmt.Fprintf(&b, "  next start: %s\n", s.TimerStart.Format("Mon 15:04"))
	}
	if s.TimerEnd != nil {
		fmt.Fprintf(&b, "  next end:   %s\n", s.TimerEnd.Format("Mon 15:04"))
	}
	if s.DLB != nil {
		fmt.Fprintf(&b, "DLB:          solar %.1f kW  ev %.1f kW  house %.1f kW  grid %.1f kW\n",
			s.DLB.Solar, s.DLB.EV, s.DLB.House, s.DLB.Grid)
	}
	return b.String()
}

func runSetTimer(cmd *cobra.Command, args []string) error {
	start, err := beny.ParseClock(timerStart)
	if err != nil {
		return err
	}
	var end *beny.Clock
	if timerEnd != "" {
		e, err := beny.ParseClock(timerEnd)
		if err != nil {
			return err
		}
		end = &e
	}

	done := "Timer set to start at " + start.String()
	if end != nil {
		done += ", end at " + end.String()
	}
	return withClient(cmd, done, func(ctx context.Context, c *charger.Client) error {
		return c.SetTimer(ctx, start, end)
	})
}

// ParseDays parses a comma separated list of day names. "none" yields no days.
func ParseDays(s string) ([]time.Weekday, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "none" || s == "" {
		return nil, nil
	}

	var days []time.Weekday
	seen := make(map[time.Weekday]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		found := false
		for i, name := range beny.WeekdayNames() {
			if part == name || (len(part) >= 3 && strings.HasPrefix(name, part)) {
				day := time.Weekday(i)
				if !seen[day] {
					days = append(days, day)
					seen[day] = true
				}
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown day %q", part)
		}
	}
	return days, nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	days, err := ParseDays(scheduleDays)
	if err != nil {
		return err
	}
	start, err := beny.ParseClock(scheduleStart)
	if err != nil {
		return err
	}
	end, err := beny.ParseClock(scheduleEnd)
	if err != nil {
		return err
	}

	return withClient(cmd, "Schedule set", func(ctx context.Context, c *charger.Client) error {
		return c.SetSchedule(ctx, days, start, end)
	})
}

func runGetSchedule(cmd *cobra.Command, args []string) error {
	client, _, err := OpenClient(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	schedule, err := client.FetchSchedule(cmd.Context())
	if err != nil {
		return err
	}

	state := "disabled"
	if schedule.Enabled {
		state = "enabled"
	}
	fmt.Printf("Schedule: %s\n", state)
	fmt.Printf("Days:     %s\n", beny.FormatValue(schedule.Weekdays))
	fmt.Printf("Start:    %s\n", schedule.Start)
	fmt.Printf("End:      %s\n", schedule.End)
	return nil
}
