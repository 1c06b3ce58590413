package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/robalobadob/bingo/internal/bingo"
	"github.com/robalobadob/bingo/internal/config"
	"github.com/robalobadob/bingo/internal/persist"
	"github.com/robalobadob/bingo/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		StateTTL:       30 * 24 * time.Hour,
		SessionSecret:  "test-secret",
		CookieName:     "bingo_session",
		ClientOrigin:   "http://localhost:5173",
		WinNotifyDelay: 300 * time.Millisecond,
		MaxUploadBytes: 1 << 20,
	}
}

func newTestServer() (*Server, *persist.Saver) {
	saver := persist.New(store.NewMemory(nil), 30*24*time.Hour)
	return New(testConfig(), saver), saver
}

// browser replays the session cookie like a single browser tab.
type browser struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func (b *browser) do(method, path, contentType string, body []byte, hdr ...string) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "bingo_session" {
			b.cookie = c
		}
	}
	return rec
}

func (b *browser) json(method, path string, v any) *httptest.ResponseRecorder {
	b.t.Helper()
	var body []byte
	if v != nil {
		var err error
		if body, err = json.Marshal(v); err != nil {
			b.t.Fatalf("marshal: %v", err)
		}
	}
	return b.do(method, path, "application/json", body)
}

func (b *browser) board() boardView {
	b.t.Helper()
	rec := b.do(http.MethodGet, "/board", "", nil)
	if rec.Code != http.StatusOK {
		b.t.Fatalf("GET /board: %d %s", rec.Code, rec.Body.String())
	}
	var v boardView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		b.t.Fatalf("decode board: %v", err)
	}
	return v
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, status, rec.Body.String())
	}
	body := decode[map[string]string](t, rec)
	if body["error"] != code {
		t.Fatalf("error = %q, want %q", body["error"], code)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	srv, _ := newTestServer()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	wantError(t, rec, http.StatusNotFound, "not_found")
}

func TestSessionCookieKeepsBoard(t *testing.T) {
	srv, _ := newTestServer()
	b := &browser{t: t, h: srv}

	if rec := b.json(http.MethodPut, "/board/squares/0/text", map[string]string{"text": "coffee"}); rec.Code != http.StatusOK {
		t.Fatalf("edit: %d %s", rec.Code, rec.Body.String())
	}
	if b.cookie == nil {
		t.Fatalf("no session cookie issued")
	}
	first := b.cookie.Value

	if got := b.board().Cells[0].Text; got != "coffee" {
		t.Fatalf("cell 0 = %q, want coffee", got)
	}
	if b.cookie.Value != first {
		t.Fatalf("fresh session cookie was re-issued")
	}

	other := &browser{t: t, h: srv}
	if got := other.board().Cells[0].Text; got != "" {
		t.Fatalf("second browser sees %q", got)
	}
}

func TestTamperedCookieStartsFreshSession(t *testing.T) {
	srv, _ := newTestServer()
	b := &browser{t: t, h: srv}
	b.json(http.MethodPut, "/board/squares/0/text", map[string]string{"text": "coffee"})

	b.cookie = &http.Cookie{Name: "bingo_session", Value: b.cookie.Value + "x"}
	if got := b.board().Cells[0].Text; got != "" {
		t.Fatalf("tampered cookie reached board with %q", got)
	}
}

func TestBoardRestoredFromStore(t *testing.T) {
	saver := persist.New(store.NewMemory(nil), 0)
	b := &browser{t: t, h: New(testConfig(), saver)}
	b.json(http.MethodPut, "/board/title", map[string]string{"title": "Road Trip"})
	b.json(http.MethodPut, "/board/squares/3/text", map[string]string{"text": "cow"})
	b.json(http.MethodPost, "/board/mode", map[string]string{"mode": "play"})

	// A restarted process shares only the store and the signing secret.
	b.h = New(testConfig(), saver)
	v := b.board()
	if v.Title != "Road Trip" || v.Cells[3].Text != "cow" || v.Mode != bingo.ModePlay {
		t.Fatalf("restored view = %+v", v)
	}
	if !v.Cells[bingo.FreeIndex].Marked {
		t.Fatalf("free cell not marked after restore")
	}
}

func TestPlayFlowNotifiesOncePerStreak(t *testing.T) {
	srv, _ := newTestServer()
	b := &browser{t: t, h: srv}
	if rec := b.json(http.MethodPost, "/board/mode", map[string]string{"mode": "play"}); rec.Code != http.StatusOK {
		t.Fatalf("mode: %d %s", rec.Code, rec.Body.String())
	}

	var res outcomeRes
	for _, i := range []string{"10", "11", "13", "14"} {
		res = decode[outcomeRes](t, b.do(http.MethodPost, "/board/squares/"+i+"/toggle", "", nil))
	}
	if !res.Outcome.Won || !res.Outcome.Notify {
		t.Fatalf("completing the middle row: %+v", res.Outcome)
	}
	if res.NotifyDelayMs != 300 {
		t.Fatalf("notifyDelayMs = %d", res.NotifyDelayMs)
	}
	if !res.Board.Won || !res.Board.WinNotified {
		t.Fatalf("board view after win: won=%v notified=%v", res.Board.Won, res.Board.WinNotified)
	}

	res = decode[outcomeRes](t, b.do(http.MethodPost, "/board/squares/0/toggle", "", nil))
	if !res.Outcome.Won || res.Outcome.Notify {
		t.Fatalf("still winning should not notify again: %+v", res.Outcome)
	}

	res = decode[outcomeRes](t, b.do(http.MethodPost, "/board/squares/10/toggle", "", nil))
	if res.Outcome.Won {
		t.Fatalf("row broken but still won")
	}
	res = decode[outcomeRes](t, b.do(http.MethodPost, "/board/squares/10/toggle", "", nil))
	if !res.Outcome.Notify {
		t.Fatalf("new streak should notify: %+v", res.Outcome)
	}
}

func TestStrategySwitchReportsOutcome(t *testing.T) {
	srv, _ := newTestServer()
	b := &browser{t: t, h: srv}
	b.json(http.MethodPost, "/board/mode", map[string]string{"mode": "play"})
	b.json(http.MethodPost, "/board/strategy", map[string]string{"strategy": "cross"})
	for _, i := range []string{"10", "11", "13", "14"} {
		b.do(http.MethodPost, "/board/squares/"+i+"/toggle", "", nil)
	}
	if b.board().Won {
		t.Fatalf("middle row alone should not win cross")
	}
	rec := b.json(http.MethodPost, "/board/strategy", map[string]string{"strategy": "single"})
	res := decode[outcomeRes](t, rec)
	if !res.Outcome.Won || !res.Outcome.Notify {
		t.Fatalf("switching to single: %+v", res.Outcome)
	}
	if len(res.Board.Highlight) != 0 {
		t.Fatalf("single highlights %v", res.Board.Highlight)
	}

	wantError(t, b.json(http.MethodPost, "/board/strategy", map[string]string{"strategy": "diagonal"}),
		http.StatusBadRequest, "invalid_strategy")
	wantError(t, b.json(http.MethodPost, "/board/mode", map[string]string{"mode": "edit"}),
		http.StatusBadRequest, "invalid_mode")
}

func TestToggleRejections(t *testing.T) {
	srv, _ := newTestServer()
	b := &browser{t: t, h: srv}

	wantError(t, b.do(http.MethodPost, "/board/squares/3/toggle", "", nil), http.StatusConflict, "wrong_mode")
	b.json(http.MethodPost, "/board/mode", map[string]string{"mode": "play"})
	wantError(t, b.do(http.MethodPost, "/board/squares/12/toggle", "", nil), http.StatusConflict, "free_cell")
	wantError(t, b.do(http.MethodPost, "/board/squares/25/toggle", "", nil), http.StatusBadRequest, "index_out_of_range")
	wantError(t, b.do(http.MethodPost, "/board/squares/-1/toggle", "", nil), http.StatusBadRequest, "index_out_of_range")
	wantError(t, b.do(http.MethodPost, "/board/squares/abc/toggle", "", nil), http.StatusBadRequest, "bad_index")
	wantError(t, b.json(http.MethodPut, "/board/squares/0/text", map[string]string{"text": "late"}), http.StatusConflict, "wrong_mode")
	wantError(t, b.json(http.MethodPut, "/board/title", map[string]string{"title": "late"}), http.StatusConflict, "wrong_mode")
}

func TestResetAndRandomize(t *testing.T) {
	srv, _ := newTestServer()
	b := &browser{t: t, h: srv}
	b.json(http.MethodPut, "/board/squares/0/text", map[string]string{"text": "a"})
	b.json(http.MethodPut, "/board/squares/1/text", map[string]string{"text": "b"})

	v := decode[boardView](t, b.do(http.MethodPost, "/board/randomize", "", nil))
	texts := map[string]int{}
	for _, c := range v.Cells {
		texts[c.Text]++
	}
	if texts["a"] != 1 || texts["b"] != 1 || v.Cells[bingo.FreeIndex].Text != bingo.FreeText {
		t.Fatalf("randomize lost content: %v", texts)
	}

	v = decode[boardView](t, b.do(http.MethodPost, "/board/reset", "", nil))
	for i, c := range v.Cells {
		if i != bingo.FreeIndex && c.Text != "" {
			t.Fatalf("cell %d = %q after reset", i, c.Text)
		}
	}
}

func TestExportETagAndImport(t *testing.T) {
	srv, _ := newTestServer()
	b := &browser{t: t, h: srv}
	b.json(http.MethodPut, "/board/title", map[string]string{"title": "Office Party!"})
	b.json(http.MethodPut, "/board/squares/7/text", map[string]string{"text": "cake"})

	rec := b.do(http.MethodGet, "/board/export", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "bingo-board-office-party.json") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	tag := rec.Header().Get("ETag")
	if tag == "" {
		t.Fatalf("missing ETag")
	}
	exported := rec.Body.Bytes()

	if rec := b.do(http.MethodGet, "/board/export", "", nil, "If-None-Match", tag); rec.Code != http.StatusNotModified {
		t.Fatalf("conditional export: %d", rec.Code)
	}

	other := &browser{t: t, h: srv}
	rec = other.do(http.MethodPost, "/board/import", "application/json", exported)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: %d %s", rec.Code, rec.Body.String())
	}
	v := other.board()
	if v.Title != "Office Party!" || v.Cells[7].Text != "cake" {
		t.Fatalf("imported view: title=%q cell7=%q", v.Title, v.Cells[7].Text)
	}
}

func TestImportRejectsAndKeepsBoard(t *testing.T) {
	srv, _ := newTestServer()
	b := &browser{t: t, h: srv}
	b.json(http.MethodPut, "/board/squares/0/text", map[string]string{"text": "keep"})

	short, _ := json.Marshal(make([]bingo.Cell, 24))
	wantError(t, b.do(http.MethodPost, "/board/import", "application/json", short), http.StatusBadRequest, "board_size_mismatch")
	wantError(t, b.do(http.MethodPost, "/board/import", "application/json", []byte("not json")), http.StatusBadRequest, "invalid_json")

	if got := b.board().Cells[0].Text; got != "keep" {
		t.Fatalf("board changed by rejected import: %q", got)
	}
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestImagePreviewThenConfirm(t *testing.T) {
	srv, _ := newTestServer()
	b := &browser{t: t, h: srv}

	rec := b.do(http.MethodPost, "/board/squares/4/image/preview", "image/png", tinyPNG(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: %d %s", rec.Code, rec.Body.String())
	}
	preview := decode[imageRes](t, rec)
	if !strings.HasPrefix(preview.Image, "data:image/png;base64,") {
		t.Fatalf("preview image = %.40q", preview.Image)
	}
	if b.board().Cells[4].Image != nil {
		t.Fatalf("preview must not change the board")
	}

	rec = b.json(http.MethodPut, "/board/squares/4/image", map[string]string{"image": preview.Image})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: %d %s", rec.Code, rec.Body.String())
	}
	if img := b.board().Cells[4].Image; img == nil || *img != preview.Image {
		t.Fatalf("image not stored")
	}

	b.json(http.MethodPut, "/board/squares/4/image", map[string]string{"image": ""})
	if b.board().Cells[4].Image != nil {
		t.Fatalf("empty image should clear the cell")
	}

	wantError(t, b.do(http.MethodPost, "/board/squares/4/image/preview", "text/plain", []byte("hello")),
		http.StatusUnsupportedMediaType, "not_an_image")
	wantError(t, b.json(http.MethodPut, "/board/squares/4/image", map[string]string{"image": "http://x/y.png"}),
		http.StatusBadRequest, "bad_image")
	wantError(t, b.json(http.MethodPut, "/board/squares/12/image", map[string]string{"image": preview.Image}),
		http.StatusConflict, "free_cell")
}

func TestImagePreviewTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 16
	b := &browser{t: t, h: New(cfg, persist.New(store.NewMemory(nil), 0))}
	wantError(t, b.do(http.MethodPost, "/board/squares/0/image/preview", "image/png", tinyPNG(t)),
		http.StatusRequestEntityTooLarge, "too_large")
}

func TestBoardPNGAndTheme(t *testing.T) {
	srv, _ := newTestServer()
	b := &browser{t: t, h: srv}

	rec := b.do(http.MethodPost, "/theme/toggle", "", nil)
	if got := decode[map[string]persist.Theme](t, rec)["theme"]; got != persist.ThemeDark {
		t.Fatalf("theme after toggle = %q", got)
	}
	if got := b.board().Theme; got != persist.ThemeDark {
		t.Fatalf("board view theme = %q", got)
	}

	rec = b.do(http.MethodGet, "/board.png?cell=40", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("png: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() == 0 {
		t.Fatalf("empty image")
	}

	wantError(t, b.do(http.MethodGet, "/board.png?cell=5", "", nil), http.StatusBadRequest, "bad_cell_size")
}

func TestEventsStreamBoardViews(t *testing.T) {
	srv, _ := newTestServer()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}
	if resp, err := client.Get(ts.URL + "/board"); err != nil {
		t.Fatalf("GET /board: %v", err)
	} else {
		resp.Body.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/board/events", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	events := make(chan boardView, 4)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			data, ok := strings.CutPrefix(sc.Text(), "data: ")
			if !ok {
				continue
			}
			var v boardView
			if json.Unmarshal([]byte(data), &v) == nil {
				events <- v
			}
		}
		close(events)
	}()

	next := func() boardView {
		t.Helper()
		select {
		case v, ok := <-events:
			if !ok {
				t.Fatalf("stream closed")
			}
			return v
		case <-ctx.Done():
			t.Fatalf("timed out waiting for event")
		}
		return boardView{}
	}

	if first := next(); first.Mode != bingo.ModeCreation {
		t.Fatalf("initial view mode = %q", first.Mode)
	}

	body, _ := json.Marshal(map[string]string{"text": "streamed"})
	put, _ := http.NewRequest(http.MethodPut, ts.URL+"/board/squares/2/text", bytes.NewReader(body))
	put.Header.Set("Content-Type", "application/json")
	presp, err := client.Do(put)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	_, _ = io.Copy(io.Discard, presp.Body)
	presp.Body.Close()

	if got := next().Cells[2].Text; got != "streamed" {
		t.Fatalf("streamed cell 2 = %q", got)
	}
}

func TestIdleBoardsEvicted(t *testing.T) {
	srv, _ := newTestServer()
	for i := 0; i < 1000; i++ {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/board", nil))
	}
	if n := srv.sessions.count(); n != 1000 {
		t.Fatalf("boards in memory = %d, want 1000", n)
	}

	if n := srv.EvictIdle(30 * time.Minute); n != 0 {
		t.Fatalf("evicted %d fresh boards", n)
	}
	srv.sessions.now = func() time.Time { return time.Now().Add(time.Hour) }
	if n := srv.EvictIdle(30 * time.Minute); n != 1000 {
		t.Fatalf("evicted %d, want 1000", n)
	}
	if n := srv.sessions.count(); n != 0 {
		t.Fatalf("boards left after eviction = %d", n)
	}
}

func TestEvictedBoardReloadsFromStore(t *testing.T) {
	srv, _ := newTestServer()
	b := &browser{t: t, h: srv}
	b.json(http.MethodPut, "/board/squares/6/text", map[string]string{"text": "kept"})

	srv.sessions.now = func() time.Time { return time.Now().Add(time.Hour) }
	if n := srv.EvictIdle(time.Minute); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if got := b.board().Cells[6].Text; got != "kept" {
		t.Fatalf("reloaded cell 6 = %q", got)
	}
	if n := srv.sessions.count(); n != 1 {
		t.Fatalf("boards after reload = %d", n)
	}
}

func TestEvictKeepsStreamingBoards(t *testing.T) {
	srv, _ := newTestServer()
	b := &browser{t: t, h: srv}
	b.board()

	var owner string
	for k := range srv.sessions.boards {
		owner = k
	}
	st := srv.events.openStream(owner)
	defer srv.events.closeStream(owner, st)

	srv.sessions.now = func() time.Time { return time.Now().Add(time.Hour) }
	if n := srv.EvictIdle(time.Minute); n != 0 {
		t.Fatalf("evicted a board with an open stream")
	}
}

func TestShutdownStopsStart(t *testing.T) {
	srv, _ := newTestServer()
	errc := make(chan error, 1)
	go func() { errc <- srv.Start("127.0.0.1:0") }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	select {
	case err := <-errc:
		if err != http.ErrServerClosed {
			t.Fatalf("Start returned %v, want ErrServerClosed", err)
		}
	case <-ctx.Done():
		t.Fatal("Start did not return after Shutdown")
	}
}
