package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/sma-teacher-portal/internal/portal"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "portal_session"

// Session is one browser's copy of both pages plus a pending alert.
type Session struct {
	ID      string
	EBooks  *portal.EBookPage
	Reports *portal.ReportsPage

	mu       sync.Mutex
	notice   string
	settled  string
	lastSeen time.Time
}

// Flash queues an alert for the next render.
func (s *Session) Flash(msg string) {
	if msg == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = msg
}

// TakeNotice returns and clears the pending alert.
func (s *Session) TakeNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.notice
	s.notice = ""
	return msg
}

// PageFactory builds the pages of a new session.
type PageFactory func() (*portal.EBookPage, *portal.ReportsPage)

// SessionStore keeps sessions in memory and drops those idle longer than ttl.
type SessionStore struct {
	ttl      time.Duration
	newPages PageFactory
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore constructs a store.
func NewSessionStore(ttl time.Duration, newPages PageFactory) *SessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionStore{ttl: ttl, newPages: newPages, now: time.Now, sessions: map[string]*Session{}}
}

// Get returns the session of the request, starting a new one and setting the cookie when needed.
func (s *SessionStore) Get(c *gin.Context) *Session {
	now := s.now()
	id, _ := c.Cookie(SessionCookie)

	s.mu.Lock()
	s.sweep(now)
	sess, ok := s.sessions[id]
	if !ok {
		ebooks, reports := s.newPages()
		sess = &Session{ID: uuid.NewString(), EBooks: ebooks, Reports: reports}
		s.sessions[sess.ID] = sess
	}
	sess.lastSeen = now
	s.mu.Unlock()

	if !ok {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, sess.ID, int(s.ttl.Seconds()), "/", "", false, true)
	}
	return sess
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) sweep(now time.Time) {
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
		}
	}
}

// settle marks page as freshly listed by an action, so its next render skips the fetch.
func (s *Session) settle(page string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settled = page
}

func (s *Session) takeSettled(page string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.settled == page
	s.settled = ""
	return ok
}
