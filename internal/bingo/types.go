// internal/bingo/types.go
//
// Core type definitions for the bingo board engine.
// Defines:
//   - Cell: one square of the 5x5 board (text, optional image, mark).
//   - Board: exactly 25 cells in row-major order.
//   - Mode: creation (authoring) or play (marking).
//   - Strategy: the active win condition.
//   - State: the whole board session (title, squares, mode, strategy, notified flag).

package bingo

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Size is the number of rows and columns.
	Size = 5
	// CellCount is the fixed number of cells on a board.
	CellCount = Size * Size
	// FreeIndex is the permanently free center cell (row 2, col 2).
	FreeIndex = 12
	// FreeText is the fixed label of the free cell.
	FreeText = "FREE"

	middleRow = 2
	middleCol = 2
)

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrFreeCell        = errors.New("free cell is not editable")
	ErrWrongMode       = errors.New("operation not allowed in current mode")
	ErrInvalidMode     = errors.New("invalid mode")
	ErrInvalidStrategy = errors.New("invalid strategy")
)

// Cell is a single bingo square.
// Image holds a data URI; nil encodes as JSON null.
type Cell struct {
	Text     string  `json:"text"`
	Image    *string `json:"image"`
	IsMarked bool    `json:"isMarked"`
}

// HasImage reports whether the cell carries an image.
func (c Cell) HasImage() bool { return c.Image != nil && *c.Image != "" }

// Board is the ordered 5x5 grid. Its length is fixed by the type.
type Board [CellCount]Cell

// Mode governs whether cells are editable or markable.
type Mode string

const (
	ModeCreation Mode = "creation"
	ModePlay     Mode = "play"
)

// ParseMode validates a mode string (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeCreation, ModePlay:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Strategy selects which cells must be fully marked to win.
type Strategy string

const (
	StrategySingle   Strategy = "single"
	StrategyCross    Strategy = "cross"
	StrategyPlus     Strategy = "plus"
	StrategyBlackout Strategy = "blackout"
)

// Strategies lists every strategy in display order.
var Strategies = []Strategy{StrategySingle, StrategyCross, StrategyPlus, StrategyBlackout}

// ParseStrategy validates a strategy string (case-insensitive).
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategySingle, StrategyCross, StrategyPlus, StrategyBlackout:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
}

// State is the complete board session. It is a value type: mutations
// return a new State and never touch the receiver.
type State struct {
	Title       string
	Squares     Board
	Mode        Mode
	Strategy    Strategy
	WinNotified bool
}

// Outcome is the win evaluation reported after a mark-affecting operation.
type Outcome struct {
	Won    bool `json:"won"`
	Notify bool `json:"notify"` // true the first time a winning streak is seen
}

// EmptyBoard returns a board with blank cells and the free cell marked.
func EmptyBoard() Board {
	var b Board
	b[FreeIndex] = Cell{Text: FreeText, IsMarked: true}
	return b
}

// NewState returns the startup state: empty board, creation mode, single strategy.
func NewState() State {
	return State{
		Squares:  EmptyBoard(),
		Mode:     ModeCreation,
		Strategy: StrategySingle,
	}
}

func checkIndex(i int) error {
	if i < 0 || i >= CellCount {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return nil
}
