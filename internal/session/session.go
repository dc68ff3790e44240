package session

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"driverreview/internal/review"
)

const (
	DefaultTTL       = 12 * time.Hour
	CookieName       = "review_session"
	sessionKeyLength = 32
)

// Console is the review state of one operator's browser.
type Console struct {
	ID      string
	List    *review.ListView
	Dialog  *review.Dialog
	notices []review.Notice

	mu        sync.Mutex
	expiresAt time.Time
}

// Flash queues a notice for the next render.
func (c *Console) Flash(n review.Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
}

// TakeNotices returns pending notices and forgets them.
func (c *Console) TakeNotices() []review.Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notices
	c.notices = nil
	return out
}

// Factory builds fresh console state for a new session.
type Factory func() (*review.ListView, *review.Dialog)

// Store keeps consoles in memory. Nothing here authenticates anyone: the
// cookie only ties a browser to its own pagination and selection state.
type Store struct {
	mu       sync.Mutex
	consoles map[string]*Console
	ttl      time.Duration
	secure   bool
	factory  Factory
	now      func() time.Time
}

func NewStore(ttl time.Duration, secure bool, factory Factory) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		consoles: make(map[string]*Console),
		ttl:      ttl,
		secure:   secure,
		factory:  factory,
		now:      time.Now,
	}
}

func GenerateSessionID() (string, error) {
	bytes := make([]byte, sessionKeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// Get returns the console bound to the request cookie, creating one (and
// setting the cookie) when it is missing or expired. created reports the
// latter.
func (s *Store) Get(w http.ResponseWriter, r *http.Request) (c *Console, created bool, err error) {
	now := s.now()

	if id := GetSessionFromRequest(r); id != "" {
		s.mu.Lock()
		existing, ok := s.consoles[id]
		if ok && now.Before(existing.expiresAt) {
			existing.expiresAt = now.Add(s.ttl)
			s.mu.Unlock()
			s.setCookie(w, id)
			return existing, false, nil
		}
		delete(s.consoles, id)
		s.mu.Unlock()
	}

	id, err := GenerateSessionID()
	if err != nil {
		return nil, false, err
	}

	list, dialog := s.factory()
	c = &Console{
		ID:        id,
		List:      list,
		Dialog:    dialog,
		expiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.consoles[id] = c
	s.mu.Unlock()

	s.setCookie(w, id)
	return c, true, nil
}

// CleanExpired drops consoles past their TTL and returns how many went.
func (s *Store) CleanExpired() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.consoles {
		if !now.Before(c.expiresAt) {
			delete(s.consoles, id)
			removed++
		}
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.consoles)
}

func (s *Store) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.now().Add(s.ttl),
	})
}

func GetSessionFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
