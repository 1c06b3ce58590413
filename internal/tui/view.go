// internal/tui/view.go
//
// Terminal rendering of the board, prompt line, status and help.

package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robalobadob/bingo/internal/bingo"
)

const helpLine = "←↑↓→ move · space mark · e edit · a image · t title · c/p mode · 1-4 strategy\n" +
	"r shuffle · x reset · o export · i import · y copy · g png · T theme · q quit"

func (m Model) View() string {
	st := m.ctrl.State()
	var b strings.Builder

	title := st.Title
	if title == "" {
		title = "Bingo"
	}
	b.WriteString(m.st.title.Render(title))
	b.WriteString("\n")
	b.WriteString(m.st.info.Render(fmt.Sprintf("mode: %s  ·  strategy: %s", st.Mode, st.Strategy)))
	b.WriteString("\n")
	b.WriteString(m.grid(st))
	b.WriteString("\n")

	if m.showWin {
		b.WriteString(m.st.win.Render(fmt.Sprintf("BINGO! %s complete (any key to close)", st.Strategy)))
		b.WriteString("\n")
	}

	switch {
	case m.prompt != promptNone:
		b.WriteString(fmt.Sprintf("%s: %s█", promptLabels[m.prompt], m.input))
	case m.statusErr:
		b.WriteString(m.st.errStatus.Render(m.status))
	default:
		b.WriteString(m.st.status.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.st.help.Render(helpLine))
	return b.String()
}

// grid renders the 5×5 board; marks and highlights appear only in play mode.
func (m Model) grid(st bingo.State) string {
	play := st.Mode == bingo.ModePlay
	var relevant []int
	if play {
		relevant = st.Relevant()
	}

	rows := make([]string, 0, bingo.Size)
	for r := 0; r < bingo.Size; r++ {
		cells := make([]string, 0, bingo.Size)
		for c := 0; c < bingo.Size; c++ {
			i := r*bingo.Size + c
			cells = append(cells, m.cell(st.Squares[i], i, play, slices.Contains(relevant, i)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) cell(c bingo.Cell, i int, play, highlighted bool) string {
	style := m.st.cell
	switch {
	case i == bingo.FreeIndex:
		style = m.st.free
	case play && c.IsMarked:
		style = m.st.marked
	}
	switch {
	case i == m.cursor:
		style = style.Copy().Border(lipgloss.ThickBorder()).BorderForeground(m.st.cursor)
	case highlighted:
		style = style.Copy().BorderForeground(m.st.highlight)
	}

	text := c.Text
	if c.HasImage() {
		text = "[img] " + text
	}
	if play && c.IsMarked && i != bingo.FreeIndex {
		text = "✓ " + text
	}
	return style.Render(clip(text, cellWidth*cellHeight))
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
