// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package charger

import (
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/benystat/pkg/beny"
)

// Status is the interpreted state of a charger
type Status struct {
	Kind                  beny.Kind  `json:"-"`
	State                 string     `json:"charger_state"`
	Currents              []int      `json:"currents"`
	Voltages              []int      `json:"voltages"`
	Power                 float64    `json:"power"`
	TotalKWh              float64    `json:"total_kwh"`
	Temperature           int        `json:"temperature"`
	TimerState            string     `json:"timer_state"`
	TimerStart            *time.Time `json:"timer_start"`
	TimerEnd              *time.Time `json:"timer_end"`
	MaxCurrent            int        `json:"max_current"`
	MaxSessionConsumption int        `json:"maximum_session_consumption"`
	DLB                   *DLBValues `json:"dlb,omitempty"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// DLBValues are the dynamic load balancing powers in kW. Grid power is
// negative while exporting.
type DLBValues struct {
	Solar float64 `json:"solar_power"`
	EV    float64 `json:"ev_power"`
	House float64 `json:"house_power"`
	Grid  float64 `json:"grid_power"`
}

// Schedule is the weekly charging schedule
type Schedule struct {
	Enabled  bool            `json:"enabled"`
	Weekdays map[string]bool `json:"weekdays"`
	Start    beny.Clock      `json:"-"`
	End      beny.Clock      `json:"-"`
}

// NewStatus interprets a SendValues message at the given time
func NewStatus(values *beny.Message, now time.Time) *Status {
	status := &Status{
		Kind:      values.Kind,
		UpdatedAt: now,
	}

	if state, ok := values.GetString("state"); ok {
		status.State = strings.ToLower(state)
	}
	status.TimerState, _ = values.GetString("timer_state")
	status.Power, _ = values.GetFloat("power")
	status.TotalKWh, _ = values.GetFloat("total_kwh")
	status.Temperature, _ = values.GetInt("temperature")
	status.MaxCurrent, _ = values.GetInt("max_current")
	status.MaxSessionConsumption, _ = values.GetInt("maximum_session_consumption")

	phases := 1
	if values.Kind == beny.KindSendValues3P {
		phases = 3
	}
	for i := 1; i <= phases; i++ {
		current, _ := values.GetInt("current" + strconv.Itoa(i))
		voltage, _ := values.GetInt("voltage" + strconv.Itoa(i))
		status.Currents = append(status.Currents, current)
		status.Voltages = append(status.Voltages, voltage)
	}

	startH, _ := values.GetInt("timer_start_h")
	startMin, _ := values.GetInt("timer_start_min")
	endH, _ := values.GetInt("timer_end_h")
	endMin, _ := values.GetInt("timer_end_min")
	status.TimerStart, status.TimerEnd = DeriveTimer(
		status.TimerState,
		beny.Clock{Hour: startH, Minute: startMin},
		beny.Clock{Hour: endH, Minute: endMin},
		now,
	)

	return status
}

// NewDLBValues interprets a SendDLB message
func NewDLBValues(msg *beny.Message) *DLBValues {
	dlb := &DLBValues{}
	dlb.Solar, _ = msg.GetFloat("solar_power")
	dlb.EV, _ = msg.GetFloat("ev_power")
	dlb.House, _ = msg.GetFloat("house_power")
	dlb.Grid, _ = msg.GetFloat("grid_power")
	return dlb
}

// NewSchedule interprets a SendSettings message
func NewSchedule(msg *beny.Message) *Schedule {
	schedule := &Schedule{}
	if state, ok := msg.GetString(beny.ScheduleField); ok {
		schedule.Enabled = state == beny.ScheduleEnabled
	}
	schedule.Weekdays, _ = msg.GetWeekdays("weekdays")
	schedule.Start.Hour, _ = msg.GetInt("timer_start_h")
	schedule.Start.Minute, _ = msg.GetInt("timer_start_min")
	schedule.End.Hour, _ = msg.GetInt("timer_end_h")
	schedule.End.Minute, _ = msg.GetInt("timer_end_min")
	return schedule
}

// Days returns the enabled weekdays in week order
func (s *Schedule) Days() []time.Weekday {
	var days []time.Weekday
	for i, name := range beny.WeekdayNames() {
		if s.Weekdays[name] {
			days = append(days, time.Weekday(i))
		}
	}
	return days
}

// DeriveTimer turns the timer fields of a values response into the next start
// and end instants. Unset parts are nil. Times already past today move to the
// next day, and the end always lies after the start.
func DeriveTimer(timerState string, start, end beny.Clock, now time.Time) (*time.Time, *time.Time) {
	var startAt, endAt *time.Time

	switch timerState {
	case beny.TimerStartTime.String(), beny.TimerStartEndTime.String():
		t := nextOccurrence(start, now)
		startAt = &t
		if timerState == beny.TimerStartEndTime.String() {
			e := nextOccurrence(end, now)
			if !e.After(t) {
				e = e.AddDate(0, 0, 1)
			}
			endAt = &e
		}
	case beny.TimerEndTime.String():
		e := nextOccurrence(end, now)
		endAt = &e
	}

	return startAt, endAt
}

func nextOccurrence(c beny.Clock, now time.Time) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, 0, 0, now.Location())
	if t.Before(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
