package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/dxlmotion/internal/log"
	"github.com/gwillem/dxlmotion/pkg/motion"
	"github.com/gwillem/dxlmotion/pkg/playback"
	"github.com/gwillem/dxlmotion/pkg/robot"
)

type PlayCommand struct {
	Trajectory string        `long:"trajectory" short:"t" default:"sweep" choice:"sweep" choice:"ramp" choice:"center" description:"Trajectory to play"`
	Amplitude  float64       `long:"amplitude" default:"10" description:"Sweep amplitude or ramp distance in degrees"`
	Period     time.Duration `long:"period" default:"2s" description:"Sweep period"`
	Duration   time.Duration `long:"duration" default:"6s" description:"Trajectory duration"`
	Hz         float64       `long:"hz" default:"50" description:"Trajectory sample frequency"`
	Motors     []string      `long:"motor" short:"m" description:"Motor to drive (repeatable, default all)"`
	Hold       bool          `long:"hold" description:"Keep torque on when playback ends"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Distinct colors for up to eight motors, assigned in ID order
var motorColors = []string{"196", "208", "226", "46", "51", "201", "33", "250"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type playModel struct {
	player   *playback.Player
	cal      robot.Calibration
	names    []robot.MotorName
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	state    playback.State
	paused   bool
	quitting bool
}

func (m *playModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the player
type stateMsg playback.State
type logMsg string

func waitForState(p *playback.Player) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-p.States())
	}
}

func waitForLog(p *playback.Player) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-p.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *playModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *playModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func colorOf(i int) lipgloss.Color {
	return lipgloss.Color(motorColors[i%len(motorColors)])
}

func initialPlayModel(p *playback.Player, r *robot.Robot) playModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-100, 100),
	)

	names := r.Names()
	for i, name := range names {
		style := lipgloss.NewStyle().Foreground(colorOf(i))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}

	return playModel{
		player: p,
		cal:    r.Config().Motors,
		names:  names,
		chart:  &chart,
	}
}

func (m playModel) Init() tea.Cmd {
	// Start listening for state and log updates
	return tea.Batch(
		waitForState(m.player),
		waitForLog(m.player),
	)
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.player.Stop()
			return m, tea.Quit
		case " ", "p":
			if m.paused {
				m.player.Resume()
			} else {
				m.player.Suspend()
			}
			m.paused = !m.paused
			return m, nil
		}

	case stateMsg:
		m.state = playback.State(msg)
		for name, pos := range m.state.Positions {
			m.chart.PushDataSet(string(name), m.cal[name].Normalize(pos))
		}
		m.chart.DrawAll()
		if m.state.Done {
			return m, nil
		}
		return m, waitForState(m.player)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.player)
	}

	return m, nil
}

func (m playModel) View() string {
	if m.quitting {
		return "Playback stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("dxlmotion Play"))
	sb.WriteString(fmt.Sprintf(" - %.1fs", m.state.Elapsed.Seconds()))
	switch {
	case m.state.Done:
		sb.WriteString(statusStyle.Render("  [done]"))
	case m.paused:
		sb.WriteString(statusStyle.Render("  [paused]"))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(m.renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press space to pause, 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m playModel) renderLegend() string {
	var items []string
	for i, name := range m.names {
		colorStyle := lipgloss.NewStyle().Foreground(colorOf(i)).Bold(true)
		item := colorStyle.Render("━━") + " " + string(name)
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

func (c *PlayCommand) trajectory() playback.TrajectoryFunc {
	switch c.Trajectory {
	case "ramp":
		return playback.Ramp(c.Amplitude, c.Duration)
	case "center":
		return func(name robot.MotorName, start float64) motion.Trajectory[motion.Value] {
			return motion.MinimumJerk{From: start, To: 0, Duration: c.Duration}
		}
	default:
		return playback.Sweep(c.Amplitude, c.Period, c.Duration)
	}
}

func (c *PlayCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	r, err := robot.Open(context.Background(), cfg, log.Named("robot"))
	if err != nil {
		return fmt.Errorf("open robot: %w", err)
	}
	defer r.Close()

	motors := make([]robot.MotorName, 0, len(c.Motors))
	for _, name := range c.Motors {
		motors = append(motors, robot.MotorName(name))
	}

	player, err := playback.New(r, playback.Config{
		ControllerHz: c.Hz,
		Motors:       motors,
		Trajectory:   c.trajectory(),
		Hold:         c.Hold,
		Logger:       log.Named("playback"),
	})
	if err != nil {
		return err
	}

	// Start playback in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- player.Start(ctx)
	}()

	// Run TUI
	p := tea.NewProgram(initialPlayModel(player, r), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run UI: %w", err)
	}

	player.Stop()
	if err := <-done; err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	return nil
}
