// ABOUTME: Tests for the auth API client
// ABOUTME: Covers header injection, error classification, and 401 fan-out

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-one-tech/aione-monihub-sub001/internal/browser"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/cookie"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/session"
)

type fixture struct {
	client  *Client
	store   *session.Store
	cookies *cookie.Store
}

func newFixture(t *testing.T, handler http.Handler) *fixture {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cookies := cookie.New(browser.NewFakeDocument(), browser.Origin{Scheme: "http", Host: "localhost"})
	store := session.New(cookies)

	client, err := New(srv.URL, store, cookies)
	require.NoError(t, err)

	return &fixture{client: client, store: store, cookies: cookies}
}

func loggedInUser() session.User {
	return session.User{
		AccountNo: "u-1",
		Email:     "admin@example.com",
		Role:      []string{"admin"},
		Exp:       time.Now().Add(time.Hour).UnixMilli(),
	}
}

func TestClient_Login_DecodesResponse(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"tok-1","user":{"id":"u-1","username":"admin","email":"a@b.c","roles":["admin"]},"timestamp":1,"trace_id":"tr-1"}`))
	}))

	resp, err := f.client.Login(context.Background(), LoginRequest{Username: "admin", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", resp.Token)
	assert.Equal(t, "u-1", resp.User.ID)
	assert.Equal(t, []string{"admin"}, resp.User.Roles)
	assert.Equal(t, "tr-1", resp.TraceID)
}

func TestClient_InjectsBearerAndCSRF(t *testing.T) {
	var gotAuth, gotCSRF string
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCSRF = r.Header.Get("X-CSRF-Token")
		w.Write([]byte(`{}`))
	}))

	f.store.SetLoginData("tok-7", loggedInUser())
	f.cookies.Set("csrf_token", "csrf-9", time.Hour)

	require.NoError(t, f.client.ValidateToken(context.Background()))
	assert.Equal(t, "Bearer tok-7", gotAuth)
	assert.Equal(t, "csrf-9", gotCSRF)
}

func TestClient_NoBearerWhenLoggedOut(t *testing.T) {
	var gotAuth string
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))

	require.NoError(t, f.client.ValidateToken(context.Background()))
	assert.Empty(t, gotAuth)
}

func TestClient_Classifies401AndResetsSession(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"token expired"}`, http.StatusUnauthorized)
	}))

	f.store.SetLoginData("tok-1", loggedInUser())

	notified := 0
	cancel := f.client.OnUnauthorized(func() { notified++ })
	defer cancel()

	_, err := f.client.CurrentUser(context.Background())
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindUnauthorized, apiErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "token expired", apiErr.Message)

	assert.False(t, f.store.Authenticated())
	assert.Equal(t, "", f.store.AccessToken())
	assert.Equal(t, 1, notified)
}

func TestClient_Classifies500(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))

	f.store.SetLoginData("tok-1", loggedInUser())

	_, err := f.client.CurrentUser(context.Background())
	require.True(t, IsKind(err, KindServerFault))

	// A server fault must not log the session out
	assert.True(t, f.store.Authenticated())
	assert.Equal(t, "tok-1", f.store.AccessToken())
}

func TestClient_ClassifiesValidation(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"email required"}`, http.StatusBadRequest)
	}))

	err := f.client.ForgotPassword(context.Background(), ForgotPasswordRequest{})
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.Equal(t, "email required", apiErr.Message)
}

func TestClient_ClassifiesTransport(t *testing.T) {
	cookies := cookie.New(browser.NewFakeDocument(), browser.Origin{Scheme: "http", Host: "localhost"})
	store := session.New(cookies)

	// Nothing listens on this port
	client, err := New("http://127.0.0.1:1", store, cookies, WithTimeout(200*time.Millisecond))
	require.NoError(t, err)

	callErr := client.ValidateToken(context.Background())
	require.True(t, IsKind(callErr, KindTransport))

	apiErr, _ := AsError(callErr)
	assert.Equal(t, 0, apiErr.Status)
}

func TestClient_OnUnauthorized_CancelStopsDelivery(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusUnauthorized)
	}))

	notified := 0
	cancel := f.client.OnUnauthorized(func() { notified++ })
	cancel()
	cancel()

	_ = f.client.ValidateToken(context.Background())
	assert.Zero(t, notified)
}
