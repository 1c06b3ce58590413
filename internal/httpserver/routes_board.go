// internal/httpserver/routes_board.go
//
// HTTP routes for the caller's board.
//   - GET  /board                                 → current view
//   - PUT  /board/title                           → rename (creation mode)
//   - POST /board/mode, /board/strategy           → switch mode / win strategy
//   - POST /board/squares/{index}/toggle          → mark / unmark (play mode)
//   - PUT  /board/squares/{index}/text            → edit text (creation mode)
//   - POST /board/squares/{index}/image/preview   → upload → data URI (not stored)
//   - PUT  /board/squares/{index}/image           → confirm image (creation mode)
//   - POST /board/randomize, /board/reset
//   - GET  /board/export, POST /board/import      → JSON file exchange
//   - GET  /board.png                             → raster rendering
//   - GET  /board/events                          → SSE stream of views
//   - GET  /theme, POST /theme/toggle
//
// Mark-affecting routes return the win outcome together with the delay the
// client should wait before showing the win dialog.

package httpserver

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"

	"github.com/robalobadob/bingo/internal/bingo"
	"github.com/robalobadob/bingo/internal/persist"
	"github.com/robalobadob/bingo/internal/render"
)

// mountBoard registers all /board routes.
func (s *Server) mountBoard(r chi.Router) {
	r.Get("/board", s.handleGetBoard)
	r.Get("/board.png", s.handleBoardPNG)
	r.Put("/board/title", s.handleTitle)
	r.Post("/board/mode", s.handleMode)
	r.Post("/board/strategy", s.handleStrategy)
	r.Post("/board/randomize", s.handleRandomize)
	r.Post("/board/reset", s.handleReset)
	r.Get("/board/export", s.handleExport)
	r.Post("/board/import", s.handleImport)

	r.Post("/board/squares/{index}/toggle", s.handleToggle)
	r.Put("/board/squares/{index}/text", s.handleText)
	r.Post("/board/squares/{index}/image/preview", s.handleImagePreview)
	r.Put("/board/squares/{index}/image", s.handleImage)
}

// mountTheme registers the theme routes.
func (s *Server) mountTheme(r chi.Router) {
	r.Get("/theme", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]persist.Theme{"theme": s.saver.Theme(r.Context(), ownerFrom(r))})
	})
	r.Post("/theme/toggle", s.handleThemeToggle)
}

// board returns the caller's Controller.
func (s *Server) board(r *http.Request) *bingo.Controller {
	return s.sessions.board(r.Context(), ownerFrom(r))
}

func (s *Server) view(r *http.Request, st bingo.State) boardView {
	return newBoardView(st, s.saver.Theme(r.Context(), ownerFrom(r)))
}

// outcomeRes is returned by routes that can complete a win.
type outcomeRes struct {
	Board         boardView     `json:"board"`
	Outcome       bingo.Outcome `json:"outcome"`
	NotifyDelayMs int64         `json:"notifyDelayMs"`
}

func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, st bingo.State, out bingo.Outcome) {
	_ = json.NewEncoder(w).Encode(outcomeRes{
		Board:         s.view(r, st),
		Outcome:       out,
		NotifyDelayMs: s.cfg.WinNotifyDelay.Milliseconds(),
	})
}

// writeBingoError maps engine errors onto HTTP statuses.
func writeBingoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bingo.ErrIndexOutOfRange):
		writeError(w, http.StatusBadRequest, "index_out_of_range", err.Error())
	case errors.Is(err, bingo.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, "invalid_mode", err.Error())
	case errors.Is(err, bingo.ErrInvalidStrategy):
		writeError(w, http.StatusBadRequest, "invalid_strategy", err.Error())
	case errors.Is(err, bingo.ErrFreeCell):
		writeError(w, http.StatusConflict, "free_cell", err.Error())
	case errors.Is(err, bingo.ErrWrongMode):
		writeError(w, http.StatusConflict, "wrong_mode", err.Error())
	case errors.Is(err, bingo.ErrBoardSize):
		writeError(w, http.StatusBadRequest, "board_size_mismatch", err.Error())
	case errors.Is(err, bingo.ErrMalformed):
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
	default:
		log.Error().Err(err).Msg("board operation")
		writeError(w, http.StatusInternalServerError, "server_error", "")
	}
}

// indexParam parses {index}; it writes the error response itself.
func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_index", chi.URLParam(r, "index"))
		return 0, false
	}
	return i, true
}

// decodeBody decodes a small JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "")
		return false
	}
	return true
}

// -----------------------------------------------------------------------------
// state + settings

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(s.view(r, s.board(r).State()))
}

type titleReq struct {
	Title string `json:"title"`
}

func (s *Server) handleTitle(w http.ResponseWriter, r *http.Request) {
	var req titleReq
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := s.board(r).SetTitle(req.Title)
	if err != nil {
		writeBingoError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(s.view(r, st))
}

type modeReq struct {
	Mode string `json:"mode"`
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req modeReq
	if !decodeBody(w, r, &req) {
		return
	}
	m, err := bingo.ParseMode(req.Mode)
	if err != nil {
		writeBingoError(w, err)
		return
	}
	st, err := s.board(r).SwitchMode(m)
	if err != nil {
		writeBingoError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(s.view(r, st))
}

type strategyReq struct {
	Strategy string `json:"strategy"`
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	var req strategyReq
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := bingo.ParseStrategy(req.Strategy)
	if err != nil {
		writeBingoError(w, err)
		return
	}
	next, out, err := s.board(r).SwitchStrategy(st)
	if err != nil {
		writeBingoError(w, err)
		return
	}
	s.writeOutcome(w, r, next, out)
}

func (s *Server) handleRandomize(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(s.view(r, s.board(r).Randomize()))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(s.view(r, s.board(r).Reset()))
}

func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	theme := s.saver.Theme(r.Context(), owner).Toggle()
	if err := s.saver.SetTheme(r.Context(), owner, theme); err != nil {
		log.Warn().Err(err).Str("owner", owner).Msg("save theme")
	}
	s.events.BroadcastJSON(owner, newBoardView(s.board(r).State(), theme))
	_ = json.NewEncoder(w).Encode(map[string]persist.Theme{"theme": theme})
}

// -----------------------------------------------------------------------------
// squares

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	st, out, err := s.board(r).ToggleMark(i)
	if err != nil {
		writeBingoError(w, err)
		return
	}
	s.writeOutcome(w, r, st, out)
}

type textReq struct {
	Text string `json:"text"`
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req textReq
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := s.board(r).EditText(i, req.Text)
	if err != nil {
		writeBingoError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(s.view(r, st))
}

// readUpload returns the uploaded bytes and their content type. The file is
// taken from multipart field `field` when the request is multipart, or from
// the raw body otherwise.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		f, hdr, err := r.FormFile(field)
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", err
		}
		return data, hdr.Header.Get("Content-Type"), nil
	}
	data, err := io.ReadAll(r.Body)
	return data, ct, err
}

type imageRes struct {
	Index int    `json:"index"`
	Image string `json:"image"`
}

// handleImagePreview re-encodes an uploaded image as a data URI without
// touching the board; the client confirms it with PUT .../image.
func (s *Server) handleImagePreview(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	data, ct, err := s.readUpload(w, r, "image")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "")
			return
		}
		writeError(w, http.StatusBadRequest, "bad_upload", err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty_upload", "")
		return
	}
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	if !strings.HasPrefix(ct, "image/") {
		writeError(w, http.StatusUnsupportedMediaType, "not_an_image", ct)
		return
	}
	_ = json.NewEncoder(w).Encode(imageRes{Index: i, Image: bingo.EncodeDataURI(data, ct)})
}

type imageReq struct {
	Image string `json:"image"`
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req imageReq
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "")
		return
	}
	if req.Image != "" {
		mt, _, err := bingo.DecodeDataURI(req.Image)
		if err != nil || !strings.HasPrefix(mt, "image/") {
			writeError(w, http.StatusBadRequest, "bad_image", "expected a base64 image data URI")
			return
		}
	}
	st, err := s.board(r).EditImage(i, req.Image)
	if err != nil {
		writeBingoError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(s.view(r, st))
}

// -----------------------------------------------------------------------------
// export / import / render

// etag is a short blake2b digest of the exported document.
func etag(data []byte) string {
	sum := blake2b.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.board(r).Export()
	if err != nil {
		writeBingoError(w, err)
		return
	}
	tag := etag(data)
	w.Header().Set("ETag", tag)
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, _, err := s.readUpload(w, r, "file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "")
			return
		}
		writeError(w, http.StatusBadRequest, "bad_upload", err.Error())
		return
	}
	st, err := s.board(r).Import(data)
	if err != nil {
		log.Info().Err(err).Str("owner", ownerFrom(r)).Msg("import rejected")
		writeBingoError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(s.view(r, st))
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	palette := render.Light
	if s.saver.Theme(r.Context(), ownerFrom(r)) == persist.ThemeDark {
		palette = render.Dark
	}
	opts := render.Options{Palette: palette}
	if v := r.URL.Query().Get("cell"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > 512 {
			writeError(w, http.StatusBadRequest, "bad_cell_size", fmt.Sprintf("cell must be 32..512, got %q", v))
			return
		}
		opts.CellSize = n
	}
	w.Header().Set("Content-Type", "image/png")
	if err := render.PNG(w, s.board(r).State(), opts); err != nil {
		log.Error().Err(err).Msg("render png")
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	first, err := json.Marshal(s.view(r, s.board(r).State()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed", "")
		return
	}
	s.events.ServeSSE(w, r, owner, string(first))
}
