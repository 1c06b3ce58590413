// internal/bingo/engine.go
//
// Pure board mutations. Every function takes a State by value and returns
// the next State; on error the returned State equals the input.
//
// Rules:
//   - Index 12 (free cell) is never editable and is always marked in play mode.
//   - Marks change only in play mode; content changes only in creation mode.
//   - WinNotified is set the first time a winning streak is observed and
//     cleared when the streak ends, on reset, and on strategy change.
package bingo

import "strings"

// Shuffler is the random source used by Randomize. *rand.Rand from
// math/rand/v2 satisfies it.
type Shuffler interface {
	IntN(n int) int
}

// ToggleMark flips the mark of cell i and re-evaluates the win.
func (s State) ToggleMark(i int) (State, Outcome, error) {
	if err := checkIndex(i); err != nil {
		return s, s.outcome(), err
	}
	if s.Mode != ModePlay {
		return s, s.outcome(), ErrWrongMode
	}
	if i == FreeIndex {
		return s, s.outcome(), ErrFreeCell
	}
	s.Squares[i].IsMarked = !s.Squares[i].IsMarked
	return s.evaluate()
}

// EditText overwrites the text of cell i.
func (s State) EditText(i int, text string) (State, error) {
	if err := s.checkEditable(i); err != nil {
		return s, err
	}
	s.Squares[i].Text = text
	return s, nil
}

// EditImage overwrites the image of cell i. An empty dataURI removes it.
func (s State) EditImage(i int, dataURI string) (State, error) {
	if err := s.checkEditable(i); err != nil {
		return s, err
	}
	if dataURI == "" {
		s.Squares[i].Image = nil
		return s, nil
	}
	img := dataURI
	s.Squares[i].Image = &img
	return s, nil
}

func (s State) checkEditable(i int) error {
	if err := checkIndex(i); err != nil {
		return err
	}
	if i == FreeIndex {
		return ErrFreeCell
	}
	if s.Mode != ModeCreation {
		return ErrWrongMode
	}
	return nil
}

// Randomize applies a Fisher–Yates permutation to the 24 non-free cells.
// Cells move whole, so each mark stays with its content.
func (s State) Randomize(rng Shuffler) State {
	cells := make([]Cell, 0, CellCount-1)
	for i, c := range s.Squares {
		if i != FreeIndex {
			cells = append(cells, c)
		}
	}
	for i := len(cells) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		cells[i], cells[j] = cells[j], cells[i]
	}
	k := 0
	for i := range s.Squares {
		if i == FreeIndex {
			continue
		}
		s.Squares[i] = cells[k]
		k++
	}
	return s
}

// Reset clears the board. Creation mode wipes content and marks of every
// non-free cell; play mode clears marks only.
func (s State) Reset() State {
	for i := range s.Squares {
		if i == FreeIndex {
			continue
		}
		if s.Mode == ModeCreation {
			s.Squares[i] = Cell{}
		} else {
			s.Squares[i].IsMarked = false
		}
	}
	s.WinNotified = false
	return s
}

// SwitchMode changes the mode. Entering play mode marks the free cell.
func (s State) SwitchMode(m Mode) (State, error) {
	if m != ModeCreation && m != ModePlay {
		return s, ErrInvalidMode
	}
	if m == s.Mode {
		return s, nil
	}
	s.Mode = m
	if m == ModePlay {
		s.Squares[FreeIndex].IsMarked = true
	}
	return s, nil
}

// SwitchStrategy changes the win strategy, clears the notified flag and
// re-evaluates the win under the new strategy.
func (s State) SwitchStrategy(st Strategy) (State, Outcome, error) {
	if _, err := ParseStrategy(string(st)); err != nil {
		return s, s.outcome(), err
	}
	if st == s.Strategy {
		return s, s.outcome(), nil
	}
	s.Strategy = st
	s.WinNotified = false
	if s.Mode != ModePlay {
		return s, s.outcome(), nil
	}
	return s.evaluate()
}

// SetTitle replaces the board title. Line breaks become spaces and the
// result is trimmed. Only allowed in creation mode.
func (s State) SetTitle(title string) (State, error) {
	if s.Mode != ModeCreation {
		return s, ErrWrongMode
	}
	s.Title = CleanTitle(title)
	return s, nil
}

// CleanTitle normalises a title the way the title editor does.
func CleanTitle(title string) string {
	title = strings.ReplaceAll(title, "\r\n", " ")
	title = strings.ReplaceAll(title, "\n", " ")
	title = strings.ReplaceAll(title, "\r", " ")
	return strings.TrimSpace(title)
}

// Won reports whether the current board satisfies the active strategy.
func (s State) Won() bool { return CheckWin(s.Squares, s.Strategy) }

// Relevant returns the highlighted cells for the active strategy.
func (s State) Relevant() []int { return Relevant(s.Strategy) }

func (s State) outcome() Outcome {
	return Outcome{Won: s.Won()}
}

// evaluate computes the outcome and advances the notified flag.
func (s State) evaluate() (State, Outcome, error) {
	won := s.Won()
	out := Outcome{Won: won}
	switch {
	case won && !s.WinNotified:
		s.WinNotified = true
		out.Notify = true
	case !won:
		s.WinNotified = false
	}
	return s, out, nil
}
