// ABOUTME: HTTP client for the gateway auth endpoints with bearer injection
// ABOUTME: Classifies failures once and resets the session on any 401

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ai-one-tech/aione-monihub-sub001/internal/cookie"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/session"
)

// csrfCookie is the cookie the gateway issues for double-submit CSRF.
const csrfCookie = "csrf_token"

// defaultTimeout matches the gateway's 10s request budget.
const defaultTimeout = 10 * time.Second

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserPayload is the user object embedded in a login response.
type UserPayload struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Token     string      `json:"token"`
	User      UserPayload `json:"user"`
	Timestamp int64       `json:"timestamp"`
	TraceID   string      `json:"trace_id"`
}

// CurrentUserResponse is the body of GET /api/auth/me. Exp is in epoch
// seconds, as issued by the server.
type CurrentUserResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	Exp      int64    `json:"exp"`
}

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// Client calls the gateway auth endpoints. It injects the bearer token
// from the session store and the CSRF header from the cookie layer on
// every request.
type Client struct {
	base    *url.URL
	http    *http.Client
	store   *session.Store
	cookies *cookie.Store
	logger  *slog.Logger

	mu           sync.Mutex
	unauthorized map[int]func()
	nextSub      int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a Client for the gateway at baseURL.
func New(baseURL string, store *session.Store, cookies *cookie.Store, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", baseURL, err)
	}

	c := &Client{
		base:         base,
		http:         &http.Client{Timeout: defaultTimeout},
		store:        store,
		cookies:      cookies,
		logger:       slog.Default().With("component", "api"),
		unauthorized: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// OnUnauthorized registers fn to run after any request fails with 401.
// The session store is already reset when fn runs. Returns an idempotent
// cancel func.
func (c *Client) OnUnauthorized(fn func()) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.unauthorized[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.unauthorized, id)
		c.mu.Unlock()
	}
}

// Login authenticates with username and password.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentUser fetches the authenticated user's identity.
func (c *Client) CurrentUser(ctx context.Context) (*CurrentUserResponse, error) {
	var resp CurrentUserResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateToken asks the server whether the current token is valid.
func (c *Client) ValidateToken(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/auth/validate", nil, nil)
}

// ForgotPassword starts a password reset for the given email.
func (c *Client) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	return c.do(ctx, http.MethodPost, "/api/auth/forgot-password", req, nil)
}

// ResetPassword completes a password reset.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	return c.do(ctx, http.MethodPost, "/api/auth/reset-password", req, nil)
}

// do executes one request and classifies any failure into an *Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindValidation, Message: fmt.Sprintf("encoding request: %v", err)}
		}
		reader = bytes.NewReader(raw)
	}

	target := c.base.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("building request: %v", err)}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.store.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf, ok := c.cookies.Get(csrfCookie); ok && csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return &Error{Kind: KindTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &Error{
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp),
		}
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			apiErr.Kind = KindUnauthorized
			c.handleUnauthorized()
		case resp.StatusCode >= 500:
			apiErr.Kind = KindServerFault
		default:
			apiErr.Kind = KindValidation
		}
		c.logger.Warn("request rejected",
			"method", method, "path", path,
			"status", resp.StatusCode, "kind", apiErr.Kind, "request_id", requestID)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindValidation, Status: resp.StatusCode, Message: fmt.Sprintf("decoding response: %v", err)}
	}
	return nil
}

// handleUnauthorized clears the session and fans out to subscribers.
func (c *Client) handleUnauthorized() {
	c.store.Reset()

	c.mu.Lock()
	fns := make([]func(), 0, len(c.unauthorized))
	for _, fn := range c.unauthorized {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// readErrorMessage pulls a human-readable message out of an error body,
// falling back to the status text.
func readErrorMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(raw) > 0 {
		var body struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &body) == nil {
			if body.Error != "" {
				return body.Error
			}
			if body.Message != "" {
				return body.Message
			}
		}
		if s := strings.TrimSpace(string(raw)); s != "" && len(s) < 200 {
			return s
		}
	}
	return http.StatusText(resp.StatusCode)
}
