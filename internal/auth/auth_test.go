// ABOUTME: Tests for the auth service layer
// ABOUTME: Covers restore, validation, refresh classification, login, and roles

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-one-tech/aione-monihub-sub001/internal/api"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/browser"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/cookie"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/session"
)

// fakeAPI scripts responses for the API interface.
type fakeAPI struct {
	loginResp   *api.LoginResponse
	loginErr    error
	currentResp *api.CurrentUserResponse
	currentErr  error
	validateErr error

	currentCalls  int
	validateCalls int
}

func (f *fakeAPI) Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginResp, nil
}

func (f *fakeAPI) CurrentUser(ctx context.Context) (*api.CurrentUserResponse, error) {
	f.currentCalls++
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	return f.currentResp, nil
}

func (f *fakeAPI) ValidateToken(ctx context.Context) error {
	f.validateCalls++
	return f.validateErr
}

func newTestService(t *testing.T, client API) (*Service, *session.Store) {
	t.Helper()
	cookies := cookie.New(browser.NewFakeDocument(), browser.Origin{Scheme: "http", Host: "localhost"})
	store := session.New(cookies)
	return NewService(store, client), store
}

func liveUser() session.User {
	return session.User{
		AccountNo: "u-1",
		Email:     "admin@example.com",
		Role:      []string{"admin", "operator"},
		Exp:       time.Now().Add(time.Hour).UnixMilli(),
	}
}

func TestAuthenticated_ExpiredUserIsNever(t *testing.T) {
	svc, store := newTestService(t, &fakeAPI{})

	u := liveUser()
	u.Exp = time.Now().Add(-time.Second).UnixMilli()
	store.SetLoginData("tok-1", u)

	// Flag says yes (presence-only setters), but the live check says no
	assert.True(t, store.Authenticated())
	assert.True(t, store.TokenExpired())
	assert.False(t, svc.Authenticated())
}

func TestCheckAndRestore_MissingTokenFailsClosed(t *testing.T) {
	svc, store := newTestService(t, &fakeAPI{})
	store.SetUser(ptr(liveUser()))

	assert.False(t, svc.CheckAndRestore())
	assert.Nil(t, store.User(), "fail-closed restore resets everything")
}

func TestCheckAndRestore_ExpiredFailsClosed(t *testing.T) {
	svc, store := newTestService(t, &fakeAPI{})
	u := liveUser()
	u.Exp = time.Now().Add(-time.Minute).UnixMilli()
	store.SetLoginData("tok-1", u)

	assert.False(t, svc.CheckAndRestore())
	assert.False(t, store.Authenticated())
	assert.Equal(t, "", store.AccessToken())
}

func TestCheckAndRestore_ReaffirmsSession(t *testing.T) {
	svc, store := newTestService(t, &fakeAPI{})
	store.SetLoginData("tok-1", liveUser())

	assert.True(t, svc.CheckAndRestore())
	assert.True(t, store.Authenticated())
	assert.Equal(t, "tok-1", store.AccessToken())
}

func TestValidateToken_Success(t *testing.T) {
	client := &fakeAPI{}
	svc, store := newTestService(t, client)
	store.SetLoginData("tok-1", liveUser())

	assert.True(t, svc.ValidateToken(context.Background()))
	assert.Equal(t, 1, client.validateCalls)
}

func TestValidateToken_SkipsCallWhenLoggedOut(t *testing.T) {
	client := &fakeAPI{}
	svc, _ := newTestService(t, client)

	assert.False(t, svc.ValidateToken(context.Background()))
	assert.Zero(t, client.validateCalls)
}

func TestValidateToken_401LogsOut(t *testing.T) {
	client := &fakeAPI{validateErr: &api.Error{Kind: api.KindUnauthorized, Status: 401, Message: "expired"}}
	svc, store := newTestService(t, client)
	store.SetLoginData("tok-1", liveUser())

	assert.False(t, svc.ValidateToken(context.Background()))
	assert.False(t, store.Authenticated())
	assert.Nil(t, store.User())
}

func TestValidateToken_TransportFailureDoesNotLogOut(t *testing.T) {
	client := &fakeAPI{validateErr: &api.Error{Kind: api.KindTransport, Message: "dial refused"}}
	svc, store := newTestService(t, client)
	store.SetLoginData("tok-1", liveUser())

	assert.False(t, svc.ValidateToken(context.Background()))
	assert.True(t, store.Authenticated(), "transient failures must not force re-login")
	assert.Equal(t, "tok-1", store.AccessToken())
}

func TestRefreshUserInfo_Success(t *testing.T) {
	client := &fakeAPI{currentResp: &api.CurrentUserResponse{
		ID:    "u-2",
		Email: "ops@example.com",
		Roles: []string{"operator"},
		Exp:   time.Now().Add(2 * time.Hour).Unix(),
	}}
	svc, store := newTestService(t, client)
	store.SetLoginData("tok-1", liveUser())

	ok, err := svc.RefreshUserInfo(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	user := store.User()
	require.NotNil(t, user)
	assert.Equal(t, "u-2", user.AccountNo)
	assert.Equal(t, client.currentResp.Exp*1000, user.Exp, "server exp seconds become milliseconds")
}

func TestRefreshUserInfo_401LogsOut(t *testing.T) {
	client := &fakeAPI{currentErr: &api.Error{Kind: api.KindUnauthorized, Status: 401, Message: "expired"}}
	svc, store := newTestService(t, client)
	store.SetLoginData("tok-1", liveUser())

	ok, err := svc.RefreshUserInfo(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, store.User())
	assert.Equal(t, "", store.AccessToken())
}

func TestRefreshUserInfo_ServerFaultPropagates(t *testing.T) {
	client := &fakeAPI{currentErr: &api.Error{Kind: api.KindServerFault, Status: 500, Message: "boom"}}
	svc, store := newTestService(t, client)
	u := liveUser()
	store.SetLoginData("tok-1", u)

	ok, err := svc.RefreshUserInfo(context.Background())
	assert.False(t, ok)
	require.True(t, api.IsKind(err, api.KindServerFault), "500 must reach the caller")

	// No implicit logout
	assert.Equal(t, "tok-1", store.AccessToken())
	require.NotNil(t, store.User())
	assert.Equal(t, u.AccountNo, store.User().AccountNo)
}

func TestRefreshUserInfo_OtherErrorNoLogout(t *testing.T) {
	client := &fakeAPI{currentErr: &api.Error{Kind: api.KindTransport, Message: "timeout"}}
	svc, store := newTestService(t, client)
	store.SetLoginData("tok-1", liveUser())

	ok, err := svc.RefreshUserInfo(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, store.Authenticated())
}

func TestLogin_OpaqueTokenFallbackExpiry(t *testing.T) {
	client := &fakeAPI{loginResp: &api.LoginResponse{
		Token: "opaque-token",
		User:  api.UserPayload{ID: "u-1", Username: "admin", Email: "a@b.c", Roles: []string{"admin"}},
	}}
	svc, store := newTestService(t, client)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	user, err := svc.Login(context.Background(), "admin", "pw")
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(24*time.Hour).UnixMilli(), user.Exp)
	assert.Equal(t, "opaque-token", store.AccessToken())
	assert.True(t, store.Authenticated())
}

func TestLogin_JWTExpiryWins(t *testing.T) {
	exp := time.Now().Add(45 * time.Minute).Truncate(time.Second)
	client := &fakeAPI{loginResp: &api.LoginResponse{
		Token: mintToken(t, exp),
		User:  api.UserPayload{ID: "u-1", Email: "a@b.c", Roles: []string{"admin"}},
	}}
	svc, store := newTestService(t, client)

	user, err := svc.Login(context.Background(), "admin", "pw")
	require.NoError(t, err)
	assert.Equal(t, exp.UnixMilli(), user.Exp)
	assert.True(t, store.Authenticated())
}

func TestLogin_FailurePropagatesClassified(t *testing.T) {
	client := &fakeAPI{loginErr: &api.Error{Kind: api.KindUnauthorized, Status: 401, Message: "bad credentials"}}
	svc, store := newTestService(t, client)

	_, err := svc.Login(context.Background(), "admin", "wrong")
	require.True(t, api.IsKind(err, api.KindUnauthorized))
	assert.False(t, store.Authenticated())
}

func TestRoleChecks(t *testing.T) {
	svc, store := newTestService(t, &fakeAPI{})

	assert.False(t, svc.HasRole("admin"), "no user, no roles")
	assert.False(t, svc.HasAnyRole("admin", "operator"))
	assert.False(t, svc.HasAllRoles("admin"))

	store.SetLoginData("tok-1", liveUser())

	assert.True(t, svc.HasRole("admin"))
	assert.False(t, svc.HasRole("auditor"))
	assert.True(t, svc.HasAnyRole("auditor", "operator"))
	assert.False(t, svc.HasAnyRole("auditor", "viewer"))
	assert.True(t, svc.HasAllRoles("admin", "operator"))
	assert.False(t, svc.HasAllRoles("admin", "auditor"))
}

func TestTokenTimeRemainingFormatted(t *testing.T) {
	svc, store := newTestService(t, &fakeAPI{})

	assert.Equal(t, "已过期", svc.TokenTimeRemainingFormatted())

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	u := liveUser()
	u.Exp = fixed.Add(2*time.Hour + 5*time.Minute).UnixMilli()
	store.SetLoginData("tok-1", u)
	assert.Equal(t, "2小时5分钟", svc.TokenTimeRemainingFormatted())

	u.Exp = fixed.Add(42 * time.Minute).UnixMilli()
	store.SetUser(&u)
	assert.Equal(t, "42分钟", svc.TokenTimeRemainingFormatted())

	u.Exp = fixed.Add(-time.Minute).UnixMilli()
	store.SetUser(&u)
	assert.Equal(t, "已过期", svc.TokenTimeRemainingFormatted())
	assert.Equal(t, time.Duration(0), svc.TokenTimeRemaining())
}

func ptr(u session.User) *session.User { return &u }
