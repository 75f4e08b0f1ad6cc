package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/dxlmotion/internal/log"
	"github.com/gwillem/dxlmotion/pkg/bus"
	"github.com/gwillem/dxlmotion/pkg/motion"
	"github.com/gwillem/dxlmotion/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct {
	Port  string `long:"port" description:"Serial port (scan all ports when empty)"`
	MaxID int    `long:"max-id" default:"6" description:"Highest servo ID to scan for"`
	Fake  bool   `long:"fake" description:"Write a configuration for the in-memory bus instead"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("dxlmotion Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	if c.Fake {
		cfg := &robot.Config{Driver: robot.DriverFake, Motors: robot.SO101()}
		return saveSetup(cfg)
	}

	// Step 1: Find the bus
	found := c.findBus()
	if found == nil {
		fmt.Println("No servos found.")
		fmt.Println("Make sure the bus is connected and powered on.")
		os.Exit(1)
	}

	cfg := &robot.Config{
		Port:   found.port,
		Driver: robot.DriverFeetech,
		Motors: layoutFor(found.ids),
	}

	// Step 2: Calibrate
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Calibrating ━━━"))
	fmt.Println()
	if err := calibrate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error calibrating: %v\n", err)
		os.Exit(1)
	}

	return saveSetup(cfg)
}

func saveSetup(cfg *robot.Config) error {
	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Try a trajectory with: " + headerStyle.Render("dxlmotion play"))
	return nil
}

// layoutFor names the motors found on the bus. IDs 1-6 are taken to be an
// SO-101 arm.
func layoutFor(ids []int) robot.Calibration {
	so101 := robot.SO101()
	if fmt.Sprint(ids) == fmt.Sprint(so101.MotorIDs()) {
		return so101
	}
	cal := make(robot.Calibration, len(ids))
	for _, id := range ids {
		cal[robot.MotorName(fmt.Sprintf("motor_%d", id))] = robot.MotorCalibration{ID: id, RangeMax: 4095}
	}
	return cal
}

type busInfo struct {
	port string
	ids  []int
}

func (c *SetupCommand) findBus() *busInfo {
	ports := []string{c.Port}
	if c.Port == "" {
		fmt.Println("Scanning serial ports...")
		fmt.Println()
		var err error
		ports, err = bus.ListPorts()
		if err != nil {
			fmt.Printf("Error listing ports: %v\n", err)
			return nil
		}
	}

	var buses []busInfo
	for _, port := range ports {
		ids, err := scanPort(port, c.MaxID)
		if err != nil || len(ids) == 0 {
			continue
		}
		fmt.Printf("  Found servos %v on %s\n", ids, port)
		buses = append(buses, busInfo{port: port, ids: ids})
	}

	switch len(buses) {
	case 0:
		return nil
	case 1:
		return &buses[0]
	}

	// Identify each bus by wiggling its first motor
	for i := range buses {
		if identifyWithWiggle(buses[i]) {
			return &buses[i]
		}
	}
	return nil
}

func scanPort(port string, maxID int) ([]int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := bus.OpenFeetech(bus.FeetechConfig{
		Port:    port,
		Timeout: 100 * time.Millisecond,
		Logger:  log.Named("scan"),
	})
	if err != nil {
		return nil, err
	}
	defer d.Close()

	return d.Scan(ctx, 1, maxID)
}

func identifyWithWiggle(b busInfo) bool {
	cfg := &robot.Config{Port: b.port, Driver: robot.DriverFeetech, Motors: layoutFor(b.ids)}
	r, err := robot.Open(context.Background(), cfg, log.Named("setup"))
	if err != nil {
		fmt.Printf("  Error opening %s: %v\n", b.port, err)
		return false
	}
	defer r.Close()

	fmt.Printf("\n  Wiggling first motor on %s...\n", b.port)
	if err := wiggle(r, r.Names()[0]); err != nil {
		fmt.Printf("  Error wiggling: %v\n", err)
	}

	var use bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Use the bus on %s?", b.port)).
				Description("The motor that just wiggled").
				Affirmative("Yes").
				Negative("No").
				Value(&use),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return use
}

// wiggle moves one motor gently around its position and releases it.
func wiggle(r *robot.Robot, name robot.MotorName) error {
	m, _ := r.Motor(name)
	start, ok := m.CurrentPosition()
	if !ok {
		return fmt.Errorf("position of %s unknown", name)
	}

	ctrl, err := motion.NewPose(m, motion.Sine{
		Amplitude: 3,
		Period:    600 * time.Millisecond,
		Offset:    start,
		Duration:  1200 * time.Millisecond,
	}, motion.Config{Hz: 50, Logger: log.Named("wiggle"), Name: string(name)})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	synced := make(chan struct{})
	go func() {
		defer close(synced)
		r.Run(ctx)
	}()

	m.SetCompliant(false)
	if err := ctrl.Start(); err != nil {
		cancel()
		<-synced
		return err
	}
	err = ctrl.Wait()
	cancel()
	<-synced

	// Return to the start position
	m.SetGoalPosition(start)
	if serr := r.Sync().Step(context.Background()); serr != nil {
		return serr
	}
	time.Sleep(300 * time.Millisecond)
	m.SetCompliant(true)
	if serr := r.Sync().Step(context.Background()); serr != nil {
		return serr
	}
	return err
}

func calibrate(cfg *robot.Config) error {
	r, err := robot.Open(context.Background(), cfg, log.Named("setup"))
	if err != nil {
		return err
	}
	defer r.Close()

	// Release all motors so the user can move them freely
	r.SetCompliant(true)
	if err := r.Sync().Step(context.Background()); err != nil {
		fmt.Printf("Warning: failed to release motors: %v\n", err)
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println("Explore the full range of motion for all joints.")
	fmt.Println()

	model := newCalibrationModel(r)
	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("calibration UI: %w", err)
	}

	cm := finalModel.(calibrationModel)
	for _, name := range cm.names {
		mc := cfg.Motors[name]
		if rng, ok := cm.ranges[name]; ok {
			mc.RangeMin, mc.RangeMax = rng.min, rng.max
			mc.Center = 0
		}
		cfg.Motors[name] = mc
	}
	return nil
}

// Calibration TUI model
type rawRange struct {
	cur, min, max int
}

type calibrationModel struct {
	robot    *robot.Robot
	names    []robot.MotorName
	ranges   map[robot.MotorName]rawRange
	quitting bool
}

type tickMsg time.Time

func newCalibrationModel(r *robot.Robot) calibrationModel {
	return calibrationModel{
		robot:  r,
		names:  r.Names(),
		ranges: make(map[robot.MotorName]rawRange),
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		if err := m.robot.Sync().Refresh(context.Background()); err != nil {
			log.L().Debugw("calibration read failed", "error", err)
		}
		cal := m.robot.Config().Motors
		for _, name := range m.names {
			motor, _ := m.robot.Motor(name)
			deg, ok := motor.CurrentPosition()
			if !ok {
				continue
			}
			raw, _ := cal[name].Scale().FromDegrees(deg)
			rng, seen := m.ranges[name]
			if !seen {
				rng = rawRange{min: raw, max: raw}
			}
			rng.cur = raw
			rng.min = min(rng.min, raw)
			rng.max = max(rng.max, raw)
			m.ranges[name] = rng
		}
		return m, tick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	// Table styles
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableMotorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.names))
	sizes := make([]int, 0, len(m.names))
	for _, name := range m.names {
		rng := m.ranges[name]
		sizes = append(sizes, rng.max-rng.min)
		rows = append(rows, []string{
			string(name),
			fmt.Sprintf("%d", rng.cur),
			fmt.Sprintf("%d", rng.min),
			fmt.Sprintf("%d", rng.max),
			fmt.Sprintf("%d", rng.max-rng.min),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableMotorStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(sizes) && sizes[row] > 500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	return t.Render() + "\n\n" + dimStyle.Render("Press Enter when done")
}
