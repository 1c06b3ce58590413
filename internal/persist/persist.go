// internal/persist/persist.go
//
// Maps a board session onto KV keys.
//   - boardTitle:      the title, stored on its own.
//   - bingoBoardState: JSON blob of squares, mode, strategy and notified flag.
//   - theme:           "light" | "dark".
//
// Keys are namespaced by owner ("<owner>:<key>") so one KV can hold many
// browsers' boards. An empty owner uses the bare key (local player).
//
// Loading never fails: unreadable or corrupt state is logged and replaced
// by the default board.

package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bingo/internal/bingo"
	"github.com/robalobadob/bingo/internal/store"
)

const (
	KeyTitle = "boardTitle"
	KeyState = "bingoBoardState"
	KeyTheme = "theme"
)

// Theme is the colour scheme of the rendering surface.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// snapshot is the persisted board-state blob.
type snapshot struct {
	Squares     []bingo.Cell   `json:"squares"`
	Mode        bingo.Mode     `json:"mode"`
	Strategy    bingo.Strategy `json:"strategy"`
	WinNotified bool           `json:"winNotified"`
}

// Saver reads and writes board sessions through a KV store.
type Saver struct {
	kv  store.KV
	ttl time.Duration // 0 = unbounded
}

// New returns a Saver. ttl > 0 gives cookie-like expiry.
func New(kv store.KV, ttl time.Duration) *Saver {
	return &Saver{kv: kv, ttl: ttl}
}

func key(owner, k string) string {
	if owner == "" {
		return k
	}
	return owner + ":" + k
}

// Load restores the session for owner, or the default state.
func (s *Saver) Load(ctx context.Context, owner string) bingo.State {
	st := bingo.NewState()

	if title, ok, err := s.kv.Get(ctx, key(owner, KeyTitle)); err != nil {
		log.Warn().Err(err).Str("owner", owner).Msg("load board title")
	} else if ok {
		st.Title = title
	}

	raw, ok, err := s.kv.Get(ctx, key(owner, KeyState))
	if err != nil {
		log.Warn().Err(err).Str("owner", owner).Msg("load board state")
		return st
	}
	if !ok {
		return st
	}
	restored, err := decodeState(raw)
	if err != nil {
		log.Warn().Err(err).Str("owner", owner).Msg("discarding saved board state")
		return st
	}
	restored.Title = st.Title
	return restored
}

func decodeState(raw string) (bingo.State, error) {
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return bingo.State{}, fmt.Errorf("parse saved state: %w", err)
	}
	if len(snap.Squares) != bingo.CellCount {
		return bingo.State{}, fmt.Errorf("%w: saved %d squares", bingo.ErrBoardSize, len(snap.Squares))
	}
	mode, err := bingo.ParseMode(string(snap.Mode))
	if err != nil {
		return bingo.State{}, err
	}
	strategy, err := bingo.ParseStrategy(string(snap.Strategy))
	if err != nil {
		return bingo.State{}, err
	}
	st := bingo.State{Mode: mode, Strategy: strategy, WinNotified: snap.WinNotified}
	copy(st.Squares[:], snap.Squares)
	if mode == bingo.ModePlay {
		st.Squares[bingo.FreeIndex].IsMarked = true
	}
	return st, nil
}

// Save writes the title and board-state blob for owner.
func (s *Saver) Save(ctx context.Context, owner string, st bingo.State) error {
	if err := s.kv.Set(ctx, key(owner, KeyTitle), st.Title, s.ttl); err != nil {
		return fmt.Errorf("save title: %w", err)
	}
	b, err := json.Marshal(snapshot{
		Squares:     st.Squares[:],
		Mode:        st.Mode,
		Strategy:    st.Strategy,
		WinNotified: st.WinNotified,
	})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.kv.Set(ctx, key(owner, KeyState), string(b), s.ttl); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Clear forgets the saved board (title and state) for owner.
func (s *Saver) Clear(ctx context.Context, owner string) error {
	if err := s.kv.Clear(ctx, key(owner, KeyTitle)); err != nil {
		return err
	}
	return s.kv.Clear(ctx, key(owner, KeyState))
}

// Theme returns the saved theme, defaulting to light.
func (s *Saver) Theme(ctx context.Context, owner string) Theme {
	v, ok, err := s.kv.Get(ctx, key(owner, KeyTheme))
	if err != nil {
		log.Warn().Err(err).Str("owner", owner).Msg("load theme")
		return ThemeLight
	}
	if ok && Theme(v) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// SetTheme stores the theme for owner.
func (s *Saver) SetTheme(ctx context.Context, owner string, t Theme) error {
	return s.kv.Set(ctx, key(owner, KeyTheme), string(t), s.ttl)
}

// Autosave returns an observer that saves every change for owner.
// Failures are logged; the in-memory board stays authoritative.
func (s *Saver) Autosave(owner string) bingo.Observer {
	return func(st bingo.State) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Save(ctx, owner, st); err != nil {
			log.Warn().Err(err).Str("owner", owner).Msg("autosave")
		}
	}
}
