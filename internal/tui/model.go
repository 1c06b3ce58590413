// internal/tui/model.go
//
// Terminal bingo player (bubbletea).
//   - Cursor over the 5×5 grid; every action goes through bingo.Controller,
//     so autosave observers see the same changes as the HTTP server.
//   - Single-line prompts for cell text, title, image and file paths.
//   - Win dialog shown after a short tea.Tick delay, once per streak.
//
// Keys:
//   arrows/hjkl move · space mark · e edit · a image · c/p mode · 1-4 strategy
//   r randomize · x reset · t title · o export · i import · y copy JSON
//   g PNG · T theme · q quit

package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bingo/internal/bingo"
	"github.com/robalobadob/bingo/internal/persist"
	"github.com/robalobadob/bingo/internal/render"
)

// prompt identifies what the input line is collecting.
type prompt int

const (
	promptNone prompt = iota
	promptText
	promptTitle
	promptImage
	promptExport
	promptImport
	promptPNG
)

var promptLabels = map[prompt]string{
	promptText:   "Cell text",
	promptTitle:  "Board title",
	promptImage:  "Image file (empty clears)",
	promptExport: "Export to",
	promptImport: "Import from",
	promptPNG:    "Save PNG to",
}

// winMsg fires after the notify delay; seq discards stale ticks.
type winMsg struct{ seq int }

// Model is the bubbletea model for one local board.
type Model struct {
	ctrl  *bingo.Controller
	saver *persist.Saver
	theme persist.Theme
	st    styles

	cursor int
	prompt prompt
	input  string

	status    string
	statusErr bool

	delay   time.Duration
	winSeq  int
	showWin bool

	copyText func(string) error
}

// New builds a Model over ctrl. saver provides the theme; delay is the
// pause between completing a win and showing the dialog.
func New(ctrl *bingo.Controller, saver *persist.Saver, delay time.Duration) Model {
	theme := saver.Theme(context.Background(), "")
	return Model{
		ctrl:     ctrl,
		saver:    saver,
		theme:    theme,
		st:       newStyles(theme),
		delay:    delay,
		copyText: clipboard.WriteAll,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case winMsg:
		if msg.seq == m.winSeq && m.ctrl.State().Won() {
			m.showWin = true
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.showWin {
			m.showWin = false
			return m, nil
		}
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		return m.updateBoard(msg)
	}
	return m, nil
}

// updatePrompt edits the input line.
func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		p, v := m.prompt, m.input
		m.prompt, m.input = promptNone, ""
		return m.commit(p, v), nil
	case tea.KeyEsc:
		m.prompt, m.input = promptNone, ""
		m.setStatus("cancelled")
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeyCtrlU:
		m.input = ""
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m Model) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.ctrl.State()
	switch key := msg.String(); key {
	case "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor >= bingo.Size {
			m.cursor -= bingo.Size
		}
	case "down", "j":
		if m.cursor < bingo.CellCount-bingo.Size {
			m.cursor += bingo.Size
		}
	case "left", "h":
		if m.cursor%bingo.Size > 0 {
			m.cursor--
		}
	case "right", "l":
		if m.cursor%bingo.Size < bingo.Size-1 {
			m.cursor++
		}

	case " ", "enter":
		_, out, err := m.ctrl.ToggleMark(m.cursor)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.status = ""
		cmd := m.notifyCmd(out)
		return m, cmd

	case "e":
		if err := m.editable(st); err != nil {
			m.setError(err)
			return m, nil
		}
		m.open(promptText, st.Squares[m.cursor].Text)
	case "a":
		if err := m.editable(st); err != nil {
			m.setError(err)
			return m, nil
		}
		m.open(promptImage, "")
	case "t":
		if st.Mode != bingo.ModeCreation {
			m.setError(bingo.ErrWrongMode)
			return m, nil
		}
		m.open(promptTitle, st.Title)

	case "c", "p":
		mode := bingo.ModeCreation
		if key == "p" {
			mode = bingo.ModePlay
		}
		if _, err := m.ctrl.SwitchMode(mode); err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus(string(mode) + " mode")
	case "1", "2", "3", "4":
		strategy := bingo.Strategies[int(key[0]-'1')]
		_, out, err := m.ctrl.SwitchStrategy(strategy)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("strategy: " + string(strategy))
		cmd := m.notifyCmd(out)
		return m, cmd

	case "r":
		m.ctrl.Randomize()
		m.setStatus("shuffled")
	case "x":
		m.ctrl.Reset()
		m.setStatus("board reset")

	case "o":
		m.open(promptExport, bingo.ExportFilename(st.Title))
	case "i":
		m.open(promptImport, "")
	case "g":
		m.open(promptPNG, strings.TrimSuffix(bingo.ExportFilename(st.Title), ".json")+".png")
	case "y":
		_, data, err := m.ctrl.Export()
		if err == nil {
			err = m.copyText(string(data))
		}
		if err != nil {
			m.setError(fmt.Errorf("copy to clipboard: %w", err))
			return m, nil
		}
		m.setStatus("board JSON copied to clipboard")

	case "T":
		m.theme = m.theme.Toggle()
		m.st = newStyles(m.theme)
		if err := m.saver.SetTheme(context.Background(), "", m.theme); err != nil {
			log.Warn().Err(err).Msg("save theme")
		}
		m.setStatus(string(m.theme) + " theme")
	}
	return m, nil
}

// commit applies a finished prompt.
func (m Model) commit(p prompt, v string) Model {
	var err error
	switch p {
	case promptText:
		_, err = m.ctrl.EditText(m.cursor, v)
	case promptTitle:
		_, err = m.ctrl.SetTitle(v)
	case promptImage:
		err = m.attachImage(strings.TrimSpace(v))
	case promptExport:
		err = m.exportFile(strings.TrimSpace(v))
	case promptImport:
		err = m.importFile(strings.TrimSpace(v))
	case promptPNG:
		err = m.pngFile(strings.TrimSpace(v))
	}
	if err != nil {
		m.setError(err)
		return m
	}
	m.setStatus("saved")
	return m
}

func (m Model) attachImage(path string) error {
	if path == "" {
		_, err := m.ctrl.EditImage(m.cursor, "")
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%s is not an image (%s)", path, ct)
	}
	_, err = m.ctrl.EditImage(m.cursor, bingo.EncodeDataURI(data, ct))
	return err
}

func (m Model) exportFile(path string) error {
	_, data, err := m.ctrl.Export()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (m Model) importFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = m.ctrl.Import(data)
	return err
}

func (m Model) pngFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	palette := render.Light
	if m.theme == persist.ThemeDark {
		palette = render.Dark
	}
	if err := render.PNG(f, m.ctrl.State(), render.Options{Palette: palette}); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// notifyCmd schedules the win dialog when out asks for it.
func (m *Model) notifyCmd(out bingo.Outcome) tea.Cmd {
	if !out.Notify {
		return nil
	}
	m.winSeq++
	seq := m.winSeq
	return tea.Tick(m.delay, func(time.Time) tea.Msg { return winMsg{seq: seq} })
}

func (m Model) editable(st bingo.State) error {
	if m.cursor == bingo.FreeIndex {
		return bingo.ErrFreeCell
	}
	if st.Mode != bingo.ModeCreation {
		return bingo.ErrWrongMode
	}
	return nil
}

func (m *Model) open(p prompt, initial string) {
	m.prompt, m.input = p, initial
	m.status = ""
}

func (m *Model) setStatus(s string) { m.status, m.statusErr = s, false }

func (m *Model) setError(err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, bingo.ErrWrongMode):
		msg = "not available in " + string(m.ctrl.State().Mode) + " mode"
	case errors.Is(err, bingo.ErrFreeCell):
		msg = "the free square cannot be changed"
	}
	m.status, m.statusErr = msg, true
}
