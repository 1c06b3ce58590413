// internal/tui/styles.go
//
// lipgloss styles for the light and dark themes.

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/robalobadob/bingo/internal/persist"
)

const (
	cellWidth  = 12
	cellHeight = 2
)

// styles is the set of lipgloss styles for one theme.
type styles struct {
	title     lipgloss.Style
	info      lipgloss.Style
	cell      lipgloss.Style
	marked    lipgloss.Style
	free      lipgloss.Style
	highlight lipgloss.Color
	cursor    lipgloss.Color
	status    lipgloss.Style
	errStatus lipgloss.Style
	help      lipgloss.Style
	win       lipgloss.Style
}

func newStyles(t persist.Theme) styles {
	fg, bg, dim := lipgloss.Color("#1f2933"), lipgloss.Color("#ffffff"), lipgloss.Color("#9aa5b1")
	markBg, freeBg := lipgloss.Color("#a7f3d0"), lipgloss.Color("#fde68a")
	if t == persist.ThemeDark {
		fg, bg, dim = lipgloss.Color("#e4e7eb"), lipgloss.Color("#1f2933"), lipgloss.Color("#616e7c")
		markBg, freeBg = lipgloss.Color("#047857"), lipgloss.Color("#92400e")
	}

	base := lipgloss.NewStyle().
		Width(cellWidth).
		Height(cellHeight).
		Align(lipgloss.Center, lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Foreground(fg).
		Background(bg)

	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(fg).MarginBottom(1),
		info:      lipgloss.NewStyle().Foreground(dim),
		cell:      base,
		marked:    base.Copy().Background(markBg).Bold(true),
		free:      base.Copy().Background(freeBg).Bold(true),
		highlight: lipgloss.Color("#f59e0b"),
		cursor:    lipgloss.Color("#3b82f6"),
		status:    lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981")),
		errStatus: lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")),
		help:      lipgloss.NewStyle().Foreground(dim).MarginTop(1),
		win: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#f59e0b")).
			Foreground(lipgloss.Color("#f59e0b")),
	}
}
