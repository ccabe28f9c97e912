// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/benystat/pkg/beny"
	"github.com/Thermoquad/benystat/pkg/charger"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const maxLogEntries = 100

// Focus states
const (
	focusCurrentInput = iota
	focusChargeButton
	focusCount
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// dashboardModel is the Bubble Tea model for the dashboard
type dashboardModel struct {
	clientMgr *clientManager
	connInfo  string

	// Latest poll
	status   *charger.Status
	lastErr  error
	lastPoll time.Time
	started  time.Time

	eventLog []logEntry

	// Control
	currentInput textinput.Model
	focusedField int
	pending      string

	// UI state
	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type dashboardTickMsg time.Time

type statusMsg struct {
	status *charger.Status
	err    error
	at     time.Time
}

type commandResultMsg struct {
	name string
	err  error
}

type connectionLostMsg struct{}

type reconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialDashboardModel(clientMgr *clientManager, connInfo string) dashboardModel {
	ti := textinput.New()
	ti.Placeholder = "16"
	ti.CharLimit = 2
	ti.Width = 4
	ti.Focus()

	return dashboardModel{
		clientMgr:    clientMgr,
		connInfo:     connInfo,
		started:      time.Now(),
		eventLog:     make([]logEntry, 0),
		currentInput: ti,
		focusedField: focusCurrentInput,
		width:        80,
		height:       24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, dashboardTickCmd())
}

func dashboardTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return dashboardTickMsg(t)
	})
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case dashboardTickMsg:
		return m, dashboardTickCmd()

	case statusMsg:
		m.handleStatus(msg)

	case commandResultMsg:
		m.pending = ""
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s failed: %v", msg.name, msg.err), true)
		} else {
			m.addLogEntry(msg.name+" sent", false)
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.addLogEntry("Connection lost - reconnecting...", true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.addLogEntry("Reconnected", false)
	}

	var cmd tea.Cmd
	if m.focusedField == focusCurrentInput {
		m.currentInput, cmd = m.currentInput.Update(msg)
	}
	return m, cmd
}

func (m dashboardModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab":
		m.cycleFocus(1)
		return m, nil

	case "shift+tab":
		m.cycleFocus(-1)
		return m, nil

	case "r":
		if m.focusedField != focusCurrentInput {
			m.clientMgr.requestPoll()
			m.addLogEntry("Refresh requested", false)
			return m, nil
		}

	case "enter":
		return m.handleEnter()
	}

	if m.focusedField == focusCurrentInput {
		var cmd tea.Cmd
		m.currentInput, cmd = m.currentInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *dashboardModel) cycleFocus(delta int) {
	m.focusedField = (m.focusedField + delta + focusCount) % focusCount
	if m.focusedField == focusCurrentInput {
		m.currentInput.Focus()
	} else {
		m.currentInput.Blur()
	}
}

func (m dashboardModel) handleEnter() (tea.Model, tea.Cmd) {
	if m.connectionLost {
		m.addLogEntry("Cannot send command: connection lost", true)
		return m, nil
	}
	if m.pending != "" {
		m.addLogEntry(fmt.Sprintf("Waiting for %s to finish", m.pending), true)
		return m, nil
	}

	switch m.focusedField {
	case focusCurrentInput:
		value := m.currentInput.Value()
		if value == "" {
			value = m.currentInput.Placeholder
		}
		amps, err := strconv.Atoi(value)
		if err != nil || amps < charger.MinCurrent || amps > charger.MaxCurrent {
			m.addLogEntry(fmt.Sprintf("Current must be between %d and %d A", charger.MinCurrent, charger.MaxCurrent), true)
			return m, nil
		}
		m.pending = fmt.Sprintf("Max current %d A", amps)
		return m, m.clientMgr.runCommand(m.pending, func(ctx context.Context, c *charger.Client) error {
			return c.SetMaxCurrent(ctx, amps)
		})

	case focusChargeButton:
		if m.isCharging() {
			m.pending = "Stop"
			return m, m.clientMgr.runCommand(m.pending, func(ctx context.Context, c *charger.Client) error {
				return c.StopCharging(ctx)
			})
		}
		m.pending = "Start"
		return m, m.clientMgr.runCommand(m.pending, func(ctx context.Context, c *charger.Client) error {
			return c.StartCharging(ctx)
		})
	}
	return m, nil
}

func (m *dashboardModel) handleStatus(msg statusMsg) {
	m.lastPoll = msg.at
	if msg.err != nil {
		if m.lastErr == nil || m.lastErr.Error() != msg.err.Error() {
			m.addLogEntry(fmt.Sprintf("Poll failed: %v", msg.err), true)
		}
		m.lastErr = msg.err
		return
	}

	if m.lastErr != nil {
		m.addLogEntry("Charger reachable", false)
	}
	m.lastErr = nil

	if m.status != nil && m.status.State != msg.status.State {
		m.addLogEntry(fmt.Sprintf("State: %s -> %s", m.status.State, msg.status.State), false)
	} else if m.status == nil {
		m.addLogEntry(fmt.Sprintf("State: %s", msg.status.State), false)
	}
	m.status = msg.status
}

func (m dashboardModel) isCharging() bool {
	return m.status != nil && m.status.State == strings.ToLower(beny.StateCharging.String())
}

func (m *dashboardModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-maxLogEntries:]
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	focusedBoxStyle = boxStyle.
			BorderForeground(lipgloss.Color("12"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("12")).
			Padding(0, 2)

	focusedButtonStyle = buttonStyle.
				Background(lipgloss.Color("10"))
)

func (m dashboardModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("BENYSTAT DASHBOARD"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit Tab=switch r=refresh", connStatus)))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf(" Running for %s", formatAge(time.Since(m.started)))))
	s.WriteString("\n\n")

	leftWidth := 44
	rightWidth := m.width - leftWidth - 6
	if rightWidth < 30 {
		rightWidth = 30
	}

	values := boxStyle.Width(leftWidth).Render(m.renderValues())
	controls := m.renderControls()
	controlBox := boxStyle
	if m.focusedField == focusCurrentInput || m.focusedField == focusChargeButton {
		controlBox = focusedBoxStyle
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, values, " ", controlBox.Width(rightWidth).Render(controls)))
	s.WriteString("\n\n")

	s.WriteString(m.renderStatisticsBar())
	s.WriteString("\n\n")

	s.WriteString(m.renderEventLog())

	return s.String()
}

func (m dashboardModel) renderValues() string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("CHARGER"))
	s.WriteString("\n")

	if m.status == nil {
		if m.lastErr != nil {
			s.WriteString(errorStyle.Render(m.lastErr.Error()))
		} else {
			s.WriteString(warningStyle.Render("Waiting for first poll..."))
		}
		return s.String()
	}

	st := m.status
	row := func(label, value string) {
		s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", label)), valueStyle.Render(value)))
	}

	state := strings.ToUpper(st.State)
	if m.lastErr != nil {
		state += " (stale)"
	}
	row("State:", state)
	for i := range st.Currents {
		row(fmt.Sprintf("Phase %d:", i+1), fmt.Sprintf("%d A  %d V", st.Currents[i], st.Voltages[i]))
	}
	row("Power:", fmt.Sprintf("%.1f kW", st.Power))
	row("Energy:", fmt.Sprintf("%.1f kWh", st.TotalKWh))
	row("Temp:", fmt.Sprintf("%d °C", st.Temperature))
	row("Max current:", fmt.Sprintf("%d A", st.MaxCurrent))

	timer := st.TimerState
	if st.TimerStart != nil {
		timer += " " + st.TimerStart.Format("15:04")
	}
	if st.TimerEnd != nil {
		timer += " -> " + st.TimerEnd.Format("15:04")
	}
	row("Timer:", timer)

	if st.DLB != nil {
		s.WriteString("\n")
		s.WriteString(labelStyle.Render("LOAD BALANCING"))
		s.WriteString("\n")
		row("Solar:", fmt.Sprintf("%.1f kW", st.DLB.Solar))
		row("EV:", fmt.Sprintf("%.1f kW", st.DLB.EV))
		row("House:", fmt.Sprintf("%.1f kW", st.DLB.House))
		grid := fmt.Sprintf("%.1f kW", st.DLB.Grid)
		if st.DLB.Grid < 0 {
			grid += " (export)"
		}
		row("Grid:", grid)
	}

	s.WriteString(headerStyle.Render(fmt.Sprintf("\nUpdated %s ago", formatAge(time.Since(m.lastPoll)))))
	return s.String()
}

func (m dashboardModel) renderControls() string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("CONTROL"))
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("Max current (A): "))
	if m.focusedField == focusCurrentInput {
		s.WriteString(m.currentInput.View())
	} else {
		val := m.currentInput.Value()
		if val == "" {
			val = m.currentInput.Placeholder
		}
		s.WriteString(fmt.Sprintf("[%s]", val))
	}
	s.WriteString("\n\n")

	btnText := "[ Start Charging ]"
	if m.isCharging() {
		btnText = "[ Stop Charging ]"
	}
	if m.focusedField == focusChargeButton {
		s.WriteString(focusedButtonStyle.Render(btnText))
	} else {
		s.WriteString(buttonStyle.Render(btnText))
	}

	if m.pending != "" {
		s.WriteString("\n\n")
		s.WriteString(warningStyle.Render(m.pending + "..."))
	}
	return s.String()
}

func (m dashboardModel) renderStatisticsBar() string {
	stats := m.clientMgr.getClient().Statistics().Snapshot()

	var validPercent, errorPercent float64
	if stats.TotalMessages > 0 {
		validPercent = float64(stats.ValidMessages) * 100.0 / float64(stats.TotalMessages)
		totalErrors := stats.TotalMessages - stats.ValidMessages
		errorPercent = float64(totalErrors) * 100.0 / float64(stats.TotalMessages)
	}

	errText := valueStyle.Render("0.0%")
	if errorPercent > 0 {
		errText = errorStyle.Render(fmt.Sprintf("%.1f%%", errorPercent))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		labelStyle.Render("Messages:"), valueStyle.Render(fmt.Sprintf("%d", stats.TotalMessages)),
		labelStyle.Render("Valid:"), valueStyle.Render(fmt.Sprintf("%.1f%%", validPercent)),
		labelStyle.Render("Errors:"), errText,
		labelStyle.Render("Denied:"), valueStyle.Render(fmt.Sprintf("%d", stats.AccessDenied)),
	)
	return boxStyle.Width(m.width - 4).Render(content)
}

func (m dashboardModel) renderEventLog() string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := 8
	if len(m.eventLog) < logHeight {
		logHeight = len(m.eventLog)
	}
	startIdx := len(m.eventLog) - logHeight

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyle
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

// formatAge renders a duration as its two largest units, e.g. "2h 5m"
func formatAge(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	d = d.Round(time.Second)

	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60
	seconds := int(d/time.Second) % 60

	var parts []string
	for _, p := range []struct {
		n    int
		unit string
	}{{days, "d"}, {hours, "h"}, {minutes, "m"}, {seconds, "s"}} {
		if p.n > 0 || len(parts) > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", p.n, p.unit))
		}
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, " ")
}
