// ABOUTME: Cookie-persisted container for the console's auth state
// ABOUTME: Token, user, and the derived authenticated flag with subscriptions

package session

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ai-one-tech/aione-monihub-sub001/internal/cookie"
)

// Cookie names for the persisted auth pair.
const (
	TokenCookie = "aione_auth_token"
	UserCookie  = "aione_user_info"
)

// cookieTTL is the rolling storage TTL for both cookies.
const cookieTTL = 7 * 24 * time.Hour

// User is the identity record cached client-side.
type User struct {
	AccountNo string   `json:"accountNo"`
	Email     string   `json:"email"`
	Role      []string `json:"role"`
	Exp       int64    `json:"exp"` // absolute expiry, epoch milliseconds
}

// Store holds the auth session and persists it through the cookie layer.
type Store struct {
	mu      sync.Mutex
	cookies *cookie.Store
	user    *User
	token   string
	authed  bool

	subs    map[int]func(bool)
	nextSub int

	now    func() time.Time
	logger *slog.Logger
}

// New builds a Store bound to the given cookie layer and restores any
// persisted session. A user cookie that fails to parse is dropped and
// removed. The restored authenticated flag additionally requires the
// session expiry to be in the future.
func New(cookies *cookie.Store) *Store {
	s := &Store{
		cookies: cookies,
		subs:    make(map[int]func(bool)),
		now:     time.Now,
		logger:  slog.Default().With("component", "session"),
	}

	token, _ := cookies.Get(TokenCookie)
	s.token = token

	if raw, ok := cookies.Get(UserCookie); ok {
		var u User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			s.logger.Warn("dropping unparseable user cookie", "error", err)
			cookies.Remove(UserCookie)
		} else {
			s.user = &u
		}
	}

	s.authed = token != "" && s.user != nil && s.now().UnixMilli() < s.user.Exp
	return s
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	u.Role = append([]string(nil), s.user.Role...)
	return &u
}

// AccessToken returns the current access token, or "".
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Authenticated returns the derived authenticated flag. The flag is
// recomputed on every mutation from token and user presence; it is not
// re-validated against the session expiry (see TokenExpired).
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

// TokenExpired reports whether the session is logically expired: no user,
// no expiry, or an expiry at or before now.
func (s *Store) TokenExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.Exp == 0 {
		return true
	}
	return s.now().UnixMilli() >= s.user.Exp
}

// SetUser replaces the current user. A non-nil user is persisted to the
// user cookie with a fresh TTL; nil removes the cookie.
func (s *Store) SetUser(u *User) {
	s.mu.Lock()
	if u != nil {
		s.persistUser(u)
	} else {
		s.cookies.Remove(UserCookie)
	}
	s.user = u
	notify := s.recomputeLocked()
	s.mu.Unlock()
	s.notify(notify)
}

// SetAccessToken replaces the access token. A non-empty token is persisted
// with a fresh TTL; "" removes the token cookie.
func (s *Store) SetAccessToken(token string) {
	s.mu.Lock()
	if token != "" {
		s.cookies.Set(TokenCookie, token, cookieTTL)
	} else {
		s.cookies.Remove(TokenCookie)
	}
	s.token = token
	notify := s.recomputeLocked()
	s.mu.Unlock()
	s.notify(notify)
}

// SetLoginData atomically installs a fresh login: both cookies are written
// before the in-memory state is swapped and the flag is forced true.
func (s *Store) SetLoginData(token string, u User) {
	s.mu.Lock()
	s.cookies.Set(TokenCookie, token, cookieTTL)
	s.persistUser(&u)
	s.token = token
	s.user = &u
	notify := s.setAuthedLocked(true)
	s.mu.Unlock()
	s.notify(notify)
}

// ResetAccessToken clears the token cookie and token, leaving the user in
// place. The authenticated flag goes false.
func (s *Store) ResetAccessToken() {
	s.mu.Lock()
	s.cookies.Remove(TokenCookie)
	s.token = ""
	notify := s.setAuthedLocked(false)
	s.mu.Unlock()
	s.notify(notify)
}

// Reset clears both cookies, the user, and the token. Idempotent.
func (s *Store) Reset() {
	s.mu.Lock()
	s.cookies.Remove(TokenCookie)
	s.cookies.Remove(UserCookie)
	s.token = ""
	s.user = nil
	notify := s.setAuthedLocked(false)
	s.mu.Unlock()
	s.notify(notify)
}

// Subscribe registers fn to be called with the new flag value whenever the
// authenticated flag changes. Returns an idempotent cancel func.
func (s *Store) Subscribe(fn func(authed bool)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// persistUser writes the user cookie. Must be called with mu held.
func (s *Store) persistUser(u *User) {
	raw, err := json.Marshal(u)
	if err != nil {
		s.logger.Error("marshaling user for cookie", "error", err)
		return
	}
	s.cookies.Set(UserCookie, string(raw), cookieTTL)
}

// recomputeLocked re-derives the flag from presence alone. Must be called
// with mu held. Returns the subscribers to notify, nil if unchanged.
func (s *Store) recomputeLocked() []func(bool) {
	return s.setAuthedLocked(s.token != "" && s.user != nil)
}

// setAuthedLocked updates the flag and snapshots subscribers on a change.
// Must be called with mu held.
func (s *Store) setAuthedLocked(authed bool) []func(bool) {
	if s.authed == authed {
		return nil
	}
	s.authed = authed
	fns := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return fns
}

// notify calls subscribers outside the lock so they may read the store.
func (s *Store) notify(fns []func(bool)) {
	if fns == nil {
		return
	}
	s.mu.Lock()
	authed := s.authed
	s.mu.Unlock()
	for _, fn := range fns {
		fn(authed)
	}
}
