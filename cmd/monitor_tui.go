// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 SciGlob Instruments

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/device"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/tc36"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/thp"
	"github.com/ashutoshjoshi1/SciglobV4.0/pkg/witmotion"
)

const monitorRefresh = 250 * time.Millisecond

// Messages
type monitorTickMsg time.Time
type eventMsg device.Event
type outcomeMsg device.Outcome

// monitorModel is the dashboard state; device values are copied from the
// sessions on every tick
type monitorModel struct {
	ctx   context.Context
	bench *bench

	input  textinput.Model
	status string
	busy   bool

	connected  map[device.Kind]bool
	imu        witmotion.Values
	imuStats   witmotion.StatsSnapshot
	temp       tc36.Reading
	ambient    thp.Reading
	hasAmbient bool
	fwPosition int
	fwKnown    bool
	motorBaud  int

	events    []device.Event
	maxEvents int

	width    int
	height   int
	quitting bool
}

func newMonitorModel(ctx context.Context, b *bench) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "motor 45 | fw goto 3 | tc 25.0 | connect all"
	ti.Prompt = "> "
	ti.CharLimit = 64
	ti.Focus()

	return monitorModel{
		ctx:       ctx,
		bench:     b,
		input:     ti,
		connected: make(map[device.Kind]bool),
		maxEvents: 200,
		width:     100,
		height:    30,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(monitorTickCmd(), textinput.Blink)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(monitorRefresh, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 6

	case monitorTickMsg:
		m.refresh()
		return m, monitorTickCmd()

	case eventMsg:
		m.events = append(m.events, device.Event(msg))
		if len(m.events) > m.maxEvents {
			m.events = m.events[len(m.events)-m.maxEvents:]
		}
		return m, nil

	case outcomeMsg:
		m.busy = false
		if msg.OK {
			m.status = ""
		} else {
			m.status = msg.Message
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m monitorModel) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}
	if line == "quit" || line == "exit" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.busy {
		m.status = "busy, wait for the previous command"
		return m, nil
	}

	c, err := parseCommand(line)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.input.SetValue("")
	m.status = "running: " + line
	m.busy = true

	ctx, b := m.ctx, m.bench
	return m, func() tea.Msg {
		return outcomeMsg(b.execute(ctx, c))
	}
}

func (m *monitorModel) refresh() {
	b := m.bench
	for _, kind := range allKinds {
		m.connected[kind] = b.session(kind).IsConnected()
	}
	m.imu = b.imu.Latest()
	m.imuStats = b.imu.Statistics().Snapshot()
	m.temp = b.tcPoller.Latest()
	m.ambient, m.hasAmbient = b.thp.Latest()
	m.fwPosition, m.fwKnown = b.fw.Position()
	m.motorBaud = b.motor.Baud()
}

var monTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("12")).
	Background(lipgloss.Color("235")).
	Padding(0, 1)

var monBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("240")).
	Padding(0, 1)

var (
	monHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	monLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	monValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	monErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	monWarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func (m monitorModel) View() string {
	if m.quitting {
		return "Disconnecting...\n"
	}

	var s strings.Builder
	s.WriteString(monTitleStyle.Render("BENCH MONITOR"))
	s.WriteString("\n")
	s.WriteString(monHeaderStyle.Render("Ctrl+C to quit | type a command and press Enter"))
	s.WriteString("\n\n")

	left := monBoxStyle.Render(m.renderDevices())
	right := monBoxStyle.Render(m.renderIMU())
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right))
	s.WriteString("\n")

	s.WriteString(monLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	logHeight := m.height - 24
	if logHeight < 5 {
		logHeight = 5
	}
	s.WriteString(monBoxStyle.Width(m.width - 4).Render(m.renderEvents(logHeight)))
	s.WriteString("\n")

	s.WriteString(m.input.View())
	s.WriteString("\n")
	if m.status != "" {
		s.WriteString(monWarnStyle.Render(m.status))
	}
	return s.String()
}

func (m monitorModel) state(kind device.Kind) string {
	if m.connected[kind] {
		return monValueStyle.Render("●")
	}
	return monErrorStyle.Render("○")
}

func (m monitorModel) renderDevices() string {
	var b strings.Builder
	row := func(kind device.Kind, label, value string) {
		fmt.Fprintf(&b, "%s %s %s\n", m.state(kind), monLabelStyle.Render(fmt.Sprintf("%-13s", label)), value)
	}

	motor := "-"
	if m.connected[device.KindMotor] {
		motor = fmt.Sprintf("%d baud", m.motorBaud)
	}
	row(device.KindMotor, "Motor:", motor)

	fw := "unknown"
	if m.fwKnown {
		fw = fmt.Sprintf("position %d", m.fwPosition)
	}
	row(device.KindFilterWheel, "Filter wheel:", fw)

	tc := "-"
	if m.temp.Valid {
		tc = fmt.Sprintf("%.2f °C (SP %.1f °C)", m.temp.Current, m.temp.Setpoint)
	}
	row(device.KindTemperature, "Controller:", tc)

	amb := "-"
	if m.hasAmbient {
		amb = fmt.Sprintf("%.1f °C  %.1f %%RH  %.1f hPa", m.ambient.Temperature, m.ambient.Humidity, m.ambient.Pressure)
	}
	row(device.KindAmbient, "Box sensor:", amb)

	imu := "-"
	if m.connected[device.KindIMU] {
		imu = fmt.Sprintf("%.1f frames/s, %d resync bytes", m.imuStats.FrameRate, m.imuStats.Discarded)
	}
	row(device.KindIMU, "IMU:", imu)
	return strings.TrimRight(b.String(), "\n")
}

func (m monitorModel) renderIMU() string {
	v := m.imu
	var b strings.Builder
	fmt.Fprintf(&b, "%s roll %7.2f  pitch %7.2f  yaw %7.2f\n", monLabelStyle.Render("Angle:"), v.Angle.Roll, v.Angle.Pitch, v.Angle.Yaw)
	fmt.Fprintf(&b, "%s %7.3f %7.3f %7.3f g\n", monLabelStyle.Render("Accel:"), v.Acceleration.X, v.Acceleration.Y, v.Acceleration.Z)
	fmt.Fprintf(&b, "%s %7.2f %7.2f %7.2f °/s\n", monLabelStyle.Render("Gyro: "), v.AngularVelocity.X, v.AngularVelocity.Y, v.AngularVelocity.Z)
	fmt.Fprintf(&b, "%s %.2f  %.2f °C\n", monLabelStyle.Render("Baro: "), v.Pressure, v.Temperature)
	if v.HasFix {
		fmt.Fprintf(&b, "%s %.6f, %.6f", monLabelStyle.Render("GPS:  "), v.Latitude, v.Longitude)
	} else {
		fmt.Fprintf(&b, "%s %s", monLabelStyle.Render("GPS:  "), monHeaderStyle.Render("no fix"))
	}
	return b.String()
}

func (m monitorModel) renderEvents(height int) string {
	if len(m.events) == 0 {
		return monHeaderStyle.Render("  (no events yet)")
	}
	start := len(m.events) - height
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for _, ev := range m.events[start:] {
		stamp := monHeaderStyle.Render(ev.Time.Format("15:04:05.000"))
		line := fmt.Sprintf("[%s] %s", ev.Device, ev.Message)
		switch ev.Severity {
		case device.SeverityError:
			line = monErrorStyle.Render("✗ " + line)
		case device.SeverityWarning:
			line = monWarnStyle.Render("! " + line)
		default:
			line = "ℹ " + line
		}
		fmt.Fprintf(&b, "%s %s\n", stamp, line)
	}
	return strings.TrimRight(b.String(), "\n")
}
