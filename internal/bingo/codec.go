// internal/bingo/codec.go
//
// JSON exchange format for boards.
//   - Export writes {"title": ..., "squares": [25 cells]}.
//   - Import accepts that tagged object, or a legacy bare array of 25 cells.
//   - ExportFilename derives "bingo-board[-<slug>].json" from the title.

package bingo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// BaseFilename is used when the title sanitizes to nothing.
const BaseFilename = "bingo-board"

var (
	ErrMalformed = errors.New("invalid JSON format")
	ErrBoardSize = errors.New("board size mismatch")
)

// Document is the tagged export shape.
type Document struct {
	Title   string `json:"title"`
	Squares []Cell `json:"squares"`
}

// Imported is the result of a successful Import.
type Imported struct {
	Squares  Board
	Title    string
	HasTitle bool // false for the legacy array format
}

// Export encodes the title and board as a tagged document.
func Export(title string, b Board) ([]byte, error) {
	return json.Marshal(Document{Title: strings.TrimSpace(title), Squares: b[:]})
}

// Import decodes an exported document. The free cell is always marked on
// success; nothing else about it is validated.
func Import(data []byte) (Imported, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Imported{}, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	var (
		cells []Cell
		out   Imported
	)
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &cells); err != nil {
			return Imported{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case '{':
		var doc struct {
			Title   *string          `json:"title"`
			Squares *json.RawMessage `json:"squares"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return Imported{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if doc.Squares == nil || !isArray(*doc.Squares) {
			return Imported{}, fmt.Errorf("%w: missing squares array", ErrMalformed)
		}
		if err := json.Unmarshal(*doc.Squares, &cells); err != nil {
			return Imported{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if doc.Title != nil {
			out.Title, out.HasTitle = *doc.Title, true
		}
	default:
		if !json.Valid(trimmed) {
			return Imported{}, fmt.Errorf("%w: not JSON", ErrMalformed)
		}
		return Imported{}, ErrMalformed
	}

	if len(cells) != CellCount {
		return Imported{}, fmt.Errorf("%w: got %d squares, want %d", ErrBoardSize, len(cells), CellCount)
	}
	copy(out.Squares[:], cells)
	out.Squares[FreeIndex].IsMarked = true
	return out, nil
}

// ApplyImport replaces the board wholesale and, for tagged documents, the
// title. Mode and strategy are kept.
func (s State) ApplyImport(im Imported) State {
	s.Squares = im.Squares
	if im.HasTitle {
		s.Title = CleanTitle(im.Title)
	}
	s.WinNotified = false
	return s
}

func isArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lower-cases the title, collapses non-alphanumerics to single hyphens
// and trims leading and trailing hyphens.
func Slug(title string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
	return strings.Trim(s, "-")
}

// ExportFilename returns the download name for a board with this title.
func ExportFilename(title string) string {
	if slug := Slug(title); slug != "" {
		return BaseFilename + "-" + slug + ".json"
	}
	return BaseFilename + ".json"
}
