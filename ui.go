package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"forest-machine-map/pkg/machines"
)

var (
	accent = lipgloss.Color("99")
	faint  = lipgloss.Color("238")

	statusStyles = map[machines.Color]lipgloss.Style{
		machines.ColorGreen: lipgloss.NewStyle().Foreground(lipgloss.Color("76")),
		machines.ColorGold:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		machines.ColorRed:   lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Bold(true),
		machines.ColorGray:  lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	}
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
)

func statusText(s machines.Status) string {
	return statusStyles[machines.ColorOf(s)].Render("● " + s.Label())
}

// fleetTable renders records as a bordered table in catalog order.
func fleetTable(records []machines.Record) string {
	headerStyle := lipgloss.NewStyle().Foreground(accent).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ID,
			r.Name,
			string(r.Kind()),
			statusText(r.Status),
			r.Model,
			r.SerialNumber,
			strconv.Itoa(r.ManufactureYear),
			r.OperatorName,
			fmt.Sprintf("%.4f, %.4f", r.Position.Lat, r.Position.Lng),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(faint)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("ID", "NAME", "KIND", "STATUS", "MODEL", "SERIAL", "YEAR", "OPERATOR", "POSITION").
		Rows(rows...)
	return t.String() + "\n"
}

// statusSummary is a one-line count per status.
func statusSummary(reg *machines.Registry) string {
	counts := reg.Counts()
	parts := make([]string, 0, len(machines.Statuses))
	for _, s := range machines.Statuses {
		parts = append(parts, fmt.Sprintf("%s %d", statusText(s), counts[s]))
	}
	return strings.Join(parts, "   ")
}

func successLine(format string, a ...any) string {
	return successStyle.Render("✓") + " " + fmt.Sprintf(format, a...)
}
