package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robalobadob/bingo/internal/bingo"
	"github.com/robalobadob/bingo/internal/store"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(nil), 0)

	st := bingo.NewState()
	st, _ = st.SetTitle("Conference Bingo")
	st, _ = st.EditText(0, "mic feedback")
	st, _ = st.EditImage(1, "data:image/png;base64,AAAA")
	st, _ = st.SwitchMode(bingo.ModePlay)
	st, _, _ = st.ToggleMark(0)
	st, _, _ = st.SwitchStrategy(bingo.StrategyBlackout)

	if err := s.Save(ctx, "owner-1", st); err != nil {
		t.Fatalf("save: %v", err)
	}
	got := s.Load(ctx, "owner-1")
	if got.Title != st.Title || got.Mode != st.Mode || got.Strategy != st.Strategy || got.WinNotified != st.WinNotified {
		t.Fatalf("restored %+v, want %+v", got, st)
	}
	if got.Squares[0] != st.Squares[0] || *got.Squares[1].Image != *st.Squares[1].Image {
		t.Fatal("restored squares differ")
	}

	if other := s.Load(ctx, "owner-2"); other != bingo.NewState() {
		t.Fatal("owners must not share state")
	}
}

func TestLoadCorruptStateFallsBack(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory(nil)
	s := New(kv, 0)

	cases := []string{
		`{not json`,
		`{"squares":[],"mode":"play","strategy":"single"}`,
		`{"squares":` + squares(25) + `,"mode":"spectate","strategy":"single"}`,
		`{"squares":` + squares(25) + `,"mode":"play","strategy":"zigzag"}`,
	}
	for _, raw := range cases {
		kv.Set(ctx, KeyTitle, "kept", 0)
		kv.Set(ctx, KeyState, raw, 0)
		got := s.Load(ctx, "")
		want := bingo.NewState()
		want.Title = "kept"
		if got != want {
			t.Fatalf("corrupt state %q should load the default board, got %+v", raw, got)
		}
	}
}

func squares(n int) string {
	out := "["
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += `{"text":"","image":null,"isMarked":false}`
	}
	return out + "]"
}

func TestLoadPlayModeMarksFreeCell(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory(nil)
	kv.Set(ctx, KeyState, `{"squares":`+squares(25)+`,"mode":"play","strategy":"plus"}`, 0)

	got := New(kv, 0).Load(ctx, "")
	if !got.Squares[bingo.FreeIndex].IsMarked || got.Strategy != bingo.StrategyPlus {
		t.Fatalf("unexpected restored state %+v", got)
	}
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}
func (failingKV) Set(context.Context, string, string, time.Duration) error {
	return errors.New("disk on fire")
}
func (failingKV) Clear(context.Context, string) error { return errors.New("disk on fire") }

func TestStoreErrors(t *testing.T) {
	s := New(failingKV{}, 0)
	if got := s.Load(context.Background(), "x"); got != bingo.NewState() {
		t.Fatal("read errors should yield the default board")
	}
	if err := s.Save(context.Background(), "x", bingo.NewState()); err == nil {
		t.Fatal("expected save error")
	}
	if s.Theme(context.Background(), "x") != ThemeLight {
		t.Fatal("read errors should yield the light theme")
	}
	// Autosave only logs.
	s.Autosave("x")(bingo.NewState())
}

func TestCookieLikeExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	kv := store.NewMemory(func() time.Time { return now })
	s := New(kv, 30*24*time.Hour)
	ctx := context.Background()

	st, _ := bingo.NewState().SetTitle("Expiring")
	s.Save(ctx, "", st)

	now = now.Add(29 * 24 * time.Hour)
	if got := s.Load(ctx, ""); got.Title != "Expiring" {
		t.Fatal("state expired too early")
	}
	now = now.Add(2 * 24 * time.Hour)
	if got := s.Load(ctx, ""); got != bingo.NewState() {
		t.Fatal("state should have expired after 30 days")
	}
}

func TestTheme(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(nil), 0)
	if s.Theme(ctx, "o") != ThemeLight {
		t.Fatal("default theme is light")
	}
	if err := s.SetTheme(ctx, "o", ThemeLight.Toggle()); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if s.Theme(ctx, "o") != ThemeDark {
		t.Fatal("expected dark theme")
	}
	if ThemeDark.Toggle() != ThemeLight {
		t.Fatal("dark toggles to light")
	}
}

func TestAutosaveAndClear(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(nil), 0)
	c := bingo.NewController(s.Load(ctx, "o"), nil)
	c.Subscribe(s.Autosave("o"))

	c.SetTitle("Autosaved")
	c.EditText(4, "typo in slides")
	got := s.Load(ctx, "o")
	if got.Title != "Autosaved" || got.Squares[4].Text != "typo in slides" {
		t.Fatalf("autosave missing changes: %+v", got)
	}

	if err := s.Clear(ctx, "o"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if s.Load(ctx, "o") != bingo.NewState() {
		t.Fatal("cleared owner should load the default board")
	}
}
