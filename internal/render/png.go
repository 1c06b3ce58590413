// internal/render/png.go
//
// Raster rendering of a board (GET /board.png, TUI "g" export).
// Draws the title, the 5x5 grid with cell text and images, marks in play
// mode, and the relevant-highlight border for the active strategy.
//
// Cell images are decoded from their data URIs (png, jpeg, gif, webp);
// undecodable images are skipped and the text is drawn alone.

package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	_ "golang.org/x/image/webp"

	"github.com/robalobadob/bingo/internal/bingo"
)

// Palette holds the colours for one theme.
type Palette struct {
	Background string
	Cell       string
	Border     string
	Text       string
	Marked     string
	Free       string
	Highlight  string
}

var (
	Light = Palette{
		Background: "#f5f7fb",
		Cell:       "#ffffff",
		Border:     "#cbd5e1",
		Text:       "#1e293b",
		Marked:     "#fca5a5",
		Free:       "#fde68a",
		Highlight:  "#6366f1",
	}
	Dark = Palette{
		Background: "#0f172a",
		Cell:       "#1e293b",
		Border:     "#334155",
		Text:       "#e2e8f0",
		Marked:     "#b91c1c",
		Free:       "#a16207",
		Highlight:  "#818cf8",
	}
)

// Options controls the output size and theme.
type Options struct {
	CellSize int // pixels per cell; default 160
	Palette  Palette
}

const (
	padding     = 24.0
	titleHeight = 56.0
	gap         = 8.0
)

var (
	fontsOnce sync.Once
	regular   *truetype.Font
	bold      *truetype.Font
	fontErr   error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regular, fontErr = truetype.Parse(goregular.TTF); fontErr != nil {
			return
		}
		bold, fontErr = truetype.Parse(gobold.TTF)
	})
	return fontErr
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// PNG writes the board as a PNG image.
func PNG(w io.Writer, st bingo.State, opts Options) error {
	dc, err := Draw(st, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// Draw renders the board into a new drawing context.
func Draw(st bingo.State, opts Options) (*gg.Context, error) {
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	if opts.CellSize <= 0 {
		opts.CellSize = 160
	}
	if opts.Palette == (Palette{}) {
		opts.Palette = Light
	}
	p := opts.Palette
	cell := float64(opts.CellSize)
	gridSize := bingo.Size*cell + (bingo.Size-1)*gap
	width := int(gridSize + 2*padding)
	height := int(gridSize + 2*padding + titleHeight)

	dc := gg.NewContext(width, height)
	dc.SetHexColor(p.Background)
	dc.Clear()

	title := st.Title
	if title == "" {
		title = "Bingo"
	}
	dc.SetFontFace(face(bold, 32))
	dc.SetHexColor(p.Text)
	dc.DrawStringAnchored(title, float64(width)/2, padding+titleHeight/2-8, 0.5, 0.5)

	highlight := map[int]bool{}
	if st.Mode == bingo.ModePlay {
		for _, i := range st.Relevant() {
			highlight[i] = true
		}
	}

	textFace := face(regular, cell/9)
	for i, c := range st.Squares {
		r, col := i/bingo.Size, i%bingo.Size
		x := padding + float64(col)*(cell+gap)
		y := padding + titleHeight + float64(r)*(cell+gap)
		drawCell(dc, p, textFace, c, i, x, y, cell, st.Mode == bingo.ModePlay, highlight[i])
	}
	return dc, nil
}

func drawCell(dc *gg.Context, p Palette, textFace font.Face, c bingo.Cell, idx int, x, y, size float64, play, highlighted bool) {
	fill := p.Cell
	switch {
	case idx == bingo.FreeIndex:
		fill = p.Free
	case play && c.IsMarked:
		fill = p.Marked
	}
	dc.DrawRoundedRectangle(x, y, size, size, 10)
	dc.SetHexColor(fill)
	dc.FillPreserve()
	dc.SetLineWidth(2)
	dc.SetHexColor(p.Border)
	if highlighted {
		dc.SetLineWidth(5)
		dc.SetHexColor(p.Highlight)
	}
	dc.Stroke()

	textTop := y + size/2
	if img := decodeImage(c); img != nil {
		drawFitted(dc, img, x+8, y+8, size-16, size*0.6)
		textTop = y + size*0.8
	}

	if c.Text != "" {
		dc.SetFontFace(textFace)
		dc.SetHexColor(p.Text)
		dc.DrawStringWrapped(c.Text, x+size/2, textTop, 0.5, 0.5, size-16, 1.2, gg.AlignCenter)
	}

	if play && c.IsMarked && idx != bingo.FreeIndex {
		dc.SetLineWidth(6)
		dc.SetHexColor(p.Text)
		m := size * 0.2
		dc.DrawLine(x+m, y+m, x+size-m, y+size-m)
		dc.DrawLine(x+size-m, y+m, x+m, y+size-m)
		dc.Stroke()
	}
}

func decodeImage(c bingo.Cell) image.Image {
	if !c.HasImage() {
		return nil
	}
	_, data, err := bingo.DecodeDataURI(*c.Image)
	if err != nil {
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	return img
}

// drawFitted scales img to fit the box while keeping its aspect ratio.
func drawFitted(dc *gg.Context, img image.Image, x, y, w, h float64) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	scale := w / float64(b.Dx())
	if s := h / float64(b.Dy()); s < scale {
		scale = s
	}
	dw, dh := float64(b.Dx())*scale, float64(b.Dy())*scale
	dc.Push()
	dc.Translate(x+(w-dw)/2, y+(h-dh)/2)
	dc.Scale(scale, scale)
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)
	dc.Pop()
}
