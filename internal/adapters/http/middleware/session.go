package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"noticeboard/internal/application/board"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "session"

// Session owns one visitor's board. All board access goes through Do.
type Session struct {
	Token string

	mu       sync.Mutex
	board    *board.Board
	lastSeen time.Time
}

// Do runs fn with exclusive access to the session's board.
// PRE: fn does not retain the board after returning
// POST: fn has run to completion before any other Do on this session starts
func (s *Session) Do(fn func(b *board.Board)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.board)
}

// SessionObserver is notified as boards are created and dropped.
type SessionObserver interface {
	SessionOpened()
	SessionClosed()
}

// SessionOptions configures a SessionStore.
type SessionOptions struct {
	CookieName    string
	IdleTTL       time.Duration
	SecureCookies bool
	NewBoard      func() *board.Board
	Observer      SessionObserver // optional
	Now           func() time.Time
}

// SessionStore is an in-memory registry of per-visitor boards.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     SessionOptions
}

// NewSessionStore creates an empty session store.
func NewSessionStore(opts SessionOptions) *SessionStore {
	if opts.CookieName == "" {
		opts.CookieName = "noticeboard_session"
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 24 * time.Hour
	}
	if opts.NewBoard == nil {
		opts.NewBoard = func() *board.Board { return board.New(board.Deps{}) }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

// Create stores a new session with a fresh board and returns it.
// PRE: none
// POST: Session is stored under a random token
func (ss *SessionStore) Create() (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	s := &Session{Token: token, board: ss.opts.NewBoard(), lastSeen: ss.opts.Now()}

	ss.mu.Lock()
	ss.sessions[token] = s
	ss.mu.Unlock()

	if ss.opts.Observer != nil {
		ss.opts.Observer.SessionOpened()
	}
	slog.Debug("session_event", "event", "session_created")
	return s, nil
}

// Get retrieves a live session by token and marks it as seen.
// PRE: none
// POST: Returns the session if present and not idle past the TTL
func (ss *SessionStore) Get(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}
	now := ss.opts.Now()

	ss.mu.Lock()
	s, ok := ss.sessions[token]
	if !ok {
		ss.mu.Unlock()
		return nil, false
	}
	if now.Sub(s.lastSeen) > ss.opts.IdleTTL {
		delete(ss.sessions, token)
		ss.mu.Unlock()
		ss.closed(1)
		return nil, false
	}
	s.lastSeen = now
	ss.mu.Unlock()
	return s, true
}

// Delete removes a session by token.
// PRE: none
// POST: Session with given token is removed
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	_, ok := ss.sessions[token]
	delete(ss.sessions, token)
	ss.mu.Unlock()
	if ok {
		ss.closed(1)
	}
}

// End drops the request's session and expires its cookie.
// PRE: Sessions middleware has run
// POST: the next board request starts a fresh session
func (ss *SessionStore) End(w http.ResponseWriter, r *http.Request) {
	if s, ok := GetSessionFromContext(r.Context()); ok {
		ss.Delete(s.Token)
		slog.Debug("session_event", "event", "session_ended")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     ss.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   ss.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// Len returns the number of stored sessions.
func (ss *SessionStore) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// Sweep drops every session idle past the TTL.
// PRE: none
// POST: returns the number of sessions removed
func (ss *SessionStore) Sweep() int {
	now := ss.opts.Now()
	removed := 0

	ss.mu.Lock()
	for token, s := range ss.sessions {
		if now.Sub(s.lastSeen) > ss.opts.IdleTTL {
			delete(ss.sessions, token)
			removed++
		}
	}
	ss.mu.Unlock()

	ss.closed(removed)
	if removed > 0 {
		slog.Info("session_event", "event", "sessions_swept", "count", removed)
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (ss *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ss.Sweep()
		}
	}
}

// Ensure returns the request's session, creating one and setting its cookie if needed.
// PRE: Sessions middleware has run, or the request carries no session
// POST: Returns a live session; a new session's cookie is written to w
func (ss *SessionStore) Ensure(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if s, ok := GetSessionFromContext(r.Context()); ok {
		return s, nil
	}
	s, err := ss.Create()
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     ss.opts.CookieName,
		Value:    s.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   ss.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

func (ss *SessionStore) closed(n int) {
	if ss.opts.Observer == nil {
		return
	}
	for i := 0; i < n; i++ {
		ss.opts.Observer.SessionClosed()
	}
}

// Sessions returns middleware that attaches an existing session from the cookie.
// It does NOT create sessions; board handlers call Ensure for that.
func Sessions(ss *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(ss.opts.CookieName)
			if err == nil && cookie.Value != "" {
				if s, ok := ss.Get(cookie.Value); ok {
					r = r.WithContext(context.WithValue(r.Context(), sessionContextKey, s))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSessionFromContext retrieves the session attached by Sessions.
func GetSessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(*Session)
	return s, ok
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
