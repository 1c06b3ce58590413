// internal/httpserver/view.go
//
// JSON projection of a board for the page.
//   - Per-cell flags: free, editable (creation), markable (play), highlight.
//   - Marks, highlights and the won flag are only reported in play mode.

package httpserver

import (
	"github.com/robalobadob/bingo/internal/bingo"
	"github.com/robalobadob/bingo/internal/persist"
)

// cellView is what the page needs to draw one square.
type cellView struct {
	Index     int     `json:"index"`
	Text      string  `json:"text"`
	Image     *string `json:"image"`
	Marked    bool    `json:"marked"`
	Free      bool    `json:"free"`
	Editable  bool    `json:"editable"`
	Markable  bool    `json:"markable"`
	Highlight bool    `json:"highlight"`
}

// boardView projects a State for the rendering surface.
type boardView struct {
	Title         string         `json:"title"`
	TitleEditable bool           `json:"titleEditable"`
	Mode          bingo.Mode     `json:"mode"`
	Strategy      bingo.Strategy `json:"strategy"`
	Theme         persist.Theme  `json:"theme"`
	Cells         []cellView     `json:"cells"`
	Highlight     []int          `json:"highlight"`
	Won           bool           `json:"won"`
	WinNotified   bool           `json:"winNotified"`
}

// newBoardView derives editability, markability and highlights from st.
// Marks and highlights are only shown in play mode.
func newBoardView(st bingo.State, theme persist.Theme) boardView {
	play := st.Mode == bingo.ModePlay
	highlight := []int{}
	if play {
		highlight = st.Relevant()
	}
	hl := make(map[int]bool, len(highlight))
	for _, i := range highlight {
		hl[i] = true
	}

	cells := make([]cellView, bingo.CellCount)
	for i, c := range st.Squares {
		free := i == bingo.FreeIndex
		cells[i] = cellView{
			Index:     i,
			Text:      c.Text,
			Image:     c.Image,
			Marked:    play && c.IsMarked,
			Free:      free,
			Editable:  !play && !free,
			Markable:  play && !free,
			Highlight: hl[i],
		}
	}
	return boardView{
		Title:         st.Title,
		TitleEditable: !play,
		Mode:          st.Mode,
		Strategy:      st.Strategy,
		Theme:         theme,
		Cells:         cells,
		Highlight:     highlight,
		Won:           play && st.Won(),
		WinNotified:   st.WinNotified,
	}
}
