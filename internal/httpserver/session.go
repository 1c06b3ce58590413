// internal/httpserver/session.go
//
// Browser sessions.
//   - The session cookie holds an HS256 JWT whose subject is the owner ID
//     (a UUID). It expires with the saved board state (STATE_TTL_DAYS) and
//     is re-issued once half of its lifetime has passed.
//   - The owner ID namespaces the persisted keys and selects the in-memory
//     Controller for the board.

package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bingo/internal/bingo"
	"github.com/robalobadob/bingo/internal/persist"
)

// unboundedCookieLife is used when saved state never expires.
const unboundedCookieLife = 365 * 24 * time.Hour

// ctxOwnerKey is the context key type for the owner ID.
type ctxOwnerKey struct{}

// ownerFrom returns the owner ID placed on the request by withSession.
func ownerFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxOwnerKey{}).(string)
	return id
}

func (s *Server) cookieLife() time.Duration {
	if s.cfg.StateTTL > 0 {
		return s.cfg.StateTTL
	}
	return unboundedCookieLife
}

// withSession resolves (or creates) the owner ID from the session cookie.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, issued, ok := s.parseSession(r)
		if !ok {
			owner = uuid.NewString()
		}
		if !ok || time.Since(issued) > s.cookieLife()/2 {
			if err := s.setSessionCookie(w, owner); err != nil {
				log.Error().Err(err).Msg("sign session")
				writeError(w, http.StatusInternalServerError, "session_failed", "")
				return
			}
		}
		ctx := context.WithValue(r.Context(), ctxOwnerKey{}, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseSession validates the session cookie and returns its subject.
func (s *Server) parseSession(r *http.Request) (owner string, issued time.Time, ok bool) {
	c, err := r.Cookie(s.cfg.CookieName)
	if err != nil || c.Value == "" {
		return "", time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(c.Value, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SessionSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", time.Time{}, false
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", time.Time{}, false
	}
	if claims.IssuedAt != nil {
		issued = claims.IssuedAt.Time
	}
	return claims.Subject, issued, true
}

// signSession creates the session token for owner.
func (s *Server) signSession(owner string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.cookieLife())
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   owner,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	ss, err := t.SignedString([]byte(s.cfg.SessionSecret))
	return ss, exp, err
}

// setSessionCookie writes the session cookie with appropriate security attributes.
func (s *Server) setSessionCookie(w http.ResponseWriter, owner string) error {
	tok, exp, err := s.signSession(owner)
	if err != nil {
		return err
	}
	sameSite := http.SameSiteLaxMode
	if s.cfg.Production {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: sameSite,
		Expires:  exp,
	})
	return nil
}

// ------------------------------ boards -------------------------------------

// sessions holds one Controller per owner, loaded lazily from persistence.
// Idle entries are evicted; the next request reloads them from the KV.
type sessions struct {
	mu     sync.Mutex
	boards map[string]*session
	saver  *persist.Saver
	events *Broadcaster
	now    func() time.Time
}

type session struct {
	ctrl     *bingo.Controller
	lastSeen time.Time
}

func newSessions(saver *persist.Saver, events *Broadcaster) *sessions {
	return &sessions{
		boards: make(map[string]*session),
		saver:  saver,
		events: events,
		now:    time.Now,
	}
}

// board returns the Controller for owner, restoring saved state on first use.
// Every change is autosaved and pushed to the owner's event stream.
func (ss *sessions) board(ctx context.Context, owner string) *bingo.Controller {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if e, ok := ss.boards[owner]; ok {
		e.lastSeen = ss.now()
		return e.ctrl
	}
	c := bingo.NewController(ss.saver.Load(ctx, owner), nil)
	c.Subscribe(ss.saver.Autosave(owner))
	c.Subscribe(func(st bingo.State) {
		if ss.events.ClientCount(owner) == 0 {
			return
		}
		theme := ss.saver.Theme(context.Background(), owner)
		ss.events.BroadcastJSON(owner, newBoardView(st, theme))
	})
	ss.boards[owner] = &session{ctrl: c, lastSeen: ss.now()}
	return c
}

// evictIdle drops boards not used for maxIdle that have no open event
// stream, and returns how many were dropped.
func (ss *sessions) evictIdle(maxIdle time.Duration) int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	cutoff := ss.now().Add(-maxIdle)
	n := 0
	for owner, e := range ss.boards {
		if e.lastSeen.After(cutoff) || ss.events.ClientCount(owner) > 0 {
			continue
		}
		delete(ss.boards, owner)
		n++
	}
	return n
}

func (ss *sessions) count() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.boards)
}

// EvictIdle frees the in-memory boards of sessions idle for longer than
// maxIdle. Saved state is untouched.
func (s *Server) EvictIdle(maxIdle time.Duration) int {
	n := s.sessions.evictIdle(maxIdle)
	if n > 0 {
		log.Debug().Int("boards", n).Msg("evicted idle boards")
	}
	return n
}
