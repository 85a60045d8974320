package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"noticeboard/internal/application/board"
	"noticeboard/internal/domain/notice"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingObserver implements SessionObserver for testing.
type countingObserver struct {
	mu     sync.Mutex
	opened int
	closed int
}

func (o *countingObserver) SessionOpened() { o.mu.Lock(); o.opened++; o.mu.Unlock() }
func (o *countingObserver) SessionClosed() { o.mu.Lock(); o.closed++; o.mu.Unlock() }

func newTestSessionStore(clock *fakeClock, obs SessionObserver) *SessionStore {
	return NewSessionStore(SessionOptions{
		CookieName: "nb",
		IdleTTL:    time.Hour,
		Now:        clock.Now,
		Observer:   obs,
	})
}

// TestSessionStore_CreateGet verifies a created session can be retrieved.
func TestSessionStore_CreateGet(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC)}
	obs := &countingObserver{}
	ss := newTestSessionStore(clock, obs)

	s, err := ss.Create()
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if len(s.Token) != 64 {
		t.Errorf("expected 64-char token, got %d", len(s.Token))
	}
	got, ok := ss.Get(s.Token)
	if !ok || got != s {
		t.Fatal("expected Get to return the created session")
	}
	if obs.opened != 1 {
		t.Errorf("opened = %d, want 1", obs.opened)
	}
	if _, ok := ss.Get("unknown"); ok {
		t.Error("expected unknown token to miss")
	}
}

// TestSessionStore_IsolatedBoards verifies each session owns its own board.
func TestSessionStore_IsolatedBoards(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ss := newTestSessionStore(clock, nil)

	a, _ := ss.Create()
	b, _ := ss.Create()
	a.Do(func(bd *board.Board) { bd.Add(notice.Draft{Title: "T", Text: "Y"}) })

	var lenA, lenB int
	a.Do(func(bd *board.Board) { lenA = bd.Len() })
	b.Do(func(bd *board.Board) { lenB = bd.Len() })
	if lenA != 1 || lenB != 0 {
		t.Errorf("expected lens 1/0, got %d/%d", lenA, lenB)
	}
}

// TestSessionStore_IdleExpiry verifies idle sessions expire on Get and Sweep.
func TestSessionStore_IdleExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC)}
	obs := &countingObserver{}
	ss := newTestSessionStore(clock, obs)

	stale, _ := ss.Create()
	fresh, _ := ss.Create()

	clock.Advance(45 * time.Minute)
	if _, ok := ss.Get(fresh.Token); !ok {
		t.Fatal("expected fresh session to be live")
	}
	clock.Advance(30 * time.Minute)

	if removed := ss.Sweep(); removed != 1 {
		t.Errorf("Sweep() removed %d, want 1", removed)
	}
	if _, ok := ss.Get(stale.Token); ok {
		t.Error("expected stale session to be gone")
	}
	if ss.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ss.Len())
	}

	clock.Advance(2 * time.Hour)
	if _, ok := ss.Get(fresh.Token); ok {
		t.Error("expected session idle past TTL to expire on Get")
	}
	if obs.closed != 2 {
		t.Errorf("closed = %d, want 2", obs.closed)
	}
}

// TestSessionStore_Delete verifies explicit removal.
func TestSessionStore_Delete(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	obs := &countingObserver{}
	ss := newTestSessionStore(clock, obs)

	s, _ := ss.Create()
	ss.Delete(s.Token)
	ss.Delete(s.Token)
	if ss.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ss.Len())
	}
	if obs.closed != 1 {
		t.Errorf("closed = %d, want 1", obs.closed)
	}
}

// TestSessions_AttachAndEnsure verifies cookie lookup and lazy creation.
func TestSessions_AttachAndEnsure(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ss := newTestSessionStore(clock, nil)

	var seen *Session
	handler := Sessions(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := ss.Ensure(w, r)
		if err != nil {
			t.Fatalf("Ensure() error: %v", err)
		}
		seen = s
	}))

	// First request has no cookie: a session is created and its cookie set.
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "nb" || !cookies[0].HttpOnly {
		t.Fatalf("expected one HttpOnly nb cookie, got %+v", cookies)
	}
	first := seen

	// Second request presents the cookie: same session, no new cookie.
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if seen != first {
		t.Error("expected the cookie to resolve to the same session")
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Error("expected no new cookie for an existing session")
	}
	if ss.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ss.Len())
	}
}

// TestSessions_NoCreationWithoutEnsure verifies passive routes never create boards.
func TestSessions_NoCreationWithoutEnsure(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ss := newTestSessionStore(clock, nil)
	handler := Sessions(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSessionFromContext(r.Context()); ok {
			t.Error("expected no session in context")
		}
	}))

	req := httptest.NewRequest("GET", "/metrics", nil)
	req.AddCookie(&http.Cookie{Name: "nb", Value: "forged"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if ss.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ss.Len())
	}
}

// TestSessionStore_End verifies the session is dropped and its cookie expired.
func TestSessionStore_End(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	obs := &countingObserver{}
	ss := newTestSessionStore(clock, obs)

	s, _ := ss.Create()
	handler := Sessions(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ss.End(w, r)
	}))
	req := httptest.NewRequest("POST", "/reset", nil)
	req.AddCookie(&http.Cookie{Name: "nb", Value: s.Token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if ss.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ss.Len())
	}
	if obs.closed != 1 {
		t.Errorf("closed = %d, want 1", obs.closed)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "nb" || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expired nb cookie, got %+v", cookies)
	}
}
