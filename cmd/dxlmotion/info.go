package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/dxlmotion/internal/log"
	"github.com/gwillem/dxlmotion/pkg/motor"
	"github.com/gwillem/dxlmotion/pkg/robot"
)

type InfoCommand struct{}

func (c *InfoCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	r, err := robot.Open(context.Background(), cfg, log.Named("info"))
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Println(headerStyle.Render("dxlmotion Info"))
	driver := cfg.Driver
	if driver == "" {
		driver = robot.DriverFeetech
	}
	fmt.Println(dimStyle.Render(fmt.Sprintf("%s on %s", driver, cfg.Port)))
	fmt.Println()

	now := time.Now()
	rows := make([][]string, 0, len(r.Names()))
	for _, name := range r.Names() {
		m, _ := r.Motor(name)
		rows = append(rows, motorRow(name, m, now))
	}

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "ID", "Model", "Position", "Goal", "Compliant", "Torque", "Last read").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cellStyle.Bold(true).Foreground(lipgloss.Color("12"))
			}
			if col == 0 {
				return cellStyle.Foreground(lipgloss.Color("14"))
			}
			return cellStyle
		})
	fmt.Println(t.Render())

	stats := r.Sync().Stats()
	fmt.Println(dimStyle.Render(fmt.Sprintf("read errors: %d", stats.ReadErrors)))
	return nil
}

func motorRow(name robot.MotorName, m *motor.Motor, now time.Time) []string {
	unknown := dimStyle.Render("?")

	model, err := m.Model()
	if err != nil {
		model = unknown
	}
	position := unknown
	if p, ok := m.CurrentPosition(); ok {
		position = fmt.Sprintf("%.1f°", p)
	}
	goal := unknown
	if g, ok := m.GoalPosition(); ok {
		goal = fmt.Sprintf("%.1f°", g)
	}
	compliant := unknown
	if c, ok := m.Compliant(); ok {
		compliant = fmt.Sprint(c)
	}
	lastRead := dimStyle.Render("never")
	if at := m.LastRead(); !at.IsZero() {
		lastRead = fmt.Sprintf("%v ago", now.Sub(at).Round(time.Millisecond))
	}

	return []string{
		string(name),
		fmt.Sprint(m.ID()),
		model,
		position,
		goal,
		compliant,
		fmt.Sprintf("%.0f%%", m.TorqueLimit()),
		lastRead,
	}
}
