// ABOUTME: Stateless auth operations over the session store and API client
// ABOUTME: Restore, validate, refresh, login, role checks, and expiry formatting

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/ai-one-tech/aione-monihub-sub001/internal/api"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/session"
)

// fallbackSessionTTL is assumed when a login token carries no readable
// expiry claim.
const fallbackSessionTTL = 24 * time.Hour

// API is the slice of the gateway client the service needs.
type API interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
	CurrentUser(ctx context.Context) (*api.CurrentUserResponse, error)
	ValidateToken(ctx context.Context) error
}

// Service provides authentication operations. All state lives in the
// injected session store; the service itself is stateless.
type Service struct {
	store  *session.Store
	api    API
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a Service over the given store and API client.
func NewService(store *session.Store, client API) *Service {
	return &Service{
		store:  store,
		api:    client,
		logger: slog.Default().With("component", "auth"),
		now:    time.Now,
	}
}

// Authenticated reports whether the session is live: the derived flag is
// set and the session expiry has not passed.
func (s *Service) Authenticated() bool {
	return s.store.Authenticated() && !s.store.TokenExpired()
}

// CheckAndRestore fails closed: if the token or user is missing, or the
// session is expired, it resets the store and returns false. Otherwise it
// re-applies the existing token and user through the setters, refreshing
// both cookie TTLs, and returns true.
func (s *Service) CheckAndRestore() bool {
	token := s.store.AccessToken()
	user := s.store.User()

	if token == "" || user == nil || s.store.TokenExpired() {
		s.store.Reset()
		return false
	}

	s.store.SetAccessToken(token)
	s.store.SetUser(user)
	return true
}

// ValidateToken asks the server whether the current token is still good.
// A 401 logs the session out. Any other failure, transport included, is
// reported as false without logging out.
func (s *Service) ValidateToken(ctx context.Context) bool {
	if !s.Authenticated() {
		return false
	}

	err := s.api.ValidateToken(ctx)
	if err == nil {
		return true
	}

	if api.IsKind(err, api.KindUnauthorized) {
		s.Logout()
		return false
	}

	s.logger.Warn("token validation inconclusive", "error", err)
	return false
}

// RefreshUserInfo re-fetches the current user from the server and writes
// it into the session. Returns (true, nil) on success. A 401 logs out and
// returns (false, nil). A server fault is returned to the caller with no
// change to the session. Any other failure is (false, nil) without logout.
func (s *Service) RefreshUserInfo(ctx context.Context) (bool, error) {
	if !s.Authenticated() {
		return false, nil
	}

	cur, err := s.api.CurrentUser(ctx)
	if err != nil {
		apiErr, ok := api.AsError(err)
		switch {
		case ok && apiErr.Kind == api.KindUnauthorized:
			// The client has already reset the store on 401; Logout keeps
			// this correct even for callers wired to a bare API.
			s.Logout()
			return false, nil
		case ok && apiErr.Kind == api.KindServerFault:
			return false, err
		default:
			s.logger.Warn("refreshing user info failed", "error", err)
			return false, nil
		}
	}

	s.store.SetUser(&session.User{
		AccountNo: cur.ID,
		Email:     cur.Email,
		Role:      cur.Roles,
		Exp:       cur.Exp * 1000, // server expiry is in seconds
	})
	return true, nil
}

// Login authenticates with the gateway and installs the session. The
// session expiry comes from the token's exp claim when the token is a
// JWT, else now plus 24 hours.
func (s *Service) Login(ctx context.Context, username, password string) (*session.User, error) {
	resp, err := s.api.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	exp := s.now().Add(fallbackSessionTTL)
	if claimExp, ok := TokenExpiry(resp.Token); ok {
		exp = claimExp
	}

	user := session.User{
		AccountNo: resp.User.ID,
		Email:     resp.User.Email,
		Role:      resp.User.Roles,
		Exp:       exp.UnixMilli(),
	}
	s.store.SetLoginData(resp.Token, user)

	s.logger.Info("logged in", "account", user.AccountNo, "trace_id", resp.TraceID)
	return &user, nil
}

// Logout clears the session.
func (s *Service) Logout() {
	s.store.Reset()
}

// CurrentUser returns the cached user, or nil.
func (s *Service) CurrentUser() *session.User {
	return s.store.User()
}

// HasRole reports whether the current user has the given role.
func (s *Service) HasRole(role string) bool {
	user := s.store.User()
	return user != nil && slices.Contains(user.Role, role)
}

// HasAnyRole reports whether the current user has at least one of the
// given roles.
func (s *Service) HasAnyRole(roles ...string) bool {
	user := s.store.User()
	if user == nil {
		return false
	}
	return slices.ContainsFunc(roles, func(r string) bool {
		return slices.Contains(user.Role, r)
	})
}

// HasAllRoles reports whether the current user has every given role.
func (s *Service) HasAllRoles(roles ...string) bool {
	user := s.store.User()
	if user == nil {
		return false
	}
	for _, r := range roles {
		if !slices.Contains(user.Role, r) {
			return false
		}
	}
	return true
}

// TokenTimeRemaining returns how long until the session expires, never
// negative.
func (s *Service) TokenTimeRemaining() time.Duration {
	user := s.store.User()
	if user == nil || user.Exp == 0 {
		return 0
	}
	remaining := time.UnixMilli(user.Exp).Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TokenTimeRemainingFormatted renders the remaining session time for the
// console UI: "<h>小时<m>分钟", "<m>分钟", or "已过期".
func (s *Service) TokenTimeRemainingFormatted() string {
	remaining := s.TokenTimeRemaining()
	if remaining <= 0 {
		return "已过期"
	}

	hours := int(remaining / time.Hour)
	minutes := int((remaining % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%d小时%d分钟", hours, minutes)
	}
	return fmt.Sprintf("%d分钟", minutes)
}
