// ABOUTME: Session verification state machine for the authenticated layout
// ABOUTME: Decides between redirect, in-place login dialog, and rendering

package authcheck

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/ai-one-tech/aione-monihub-sub001/internal/auth"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/browser"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/faults"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/session"
)

// State is the checker's current position in the verification machine.
type State string

const (
	StateInitializing  State = "initializing"
	StateAuthenticated State = "authenticated"
	StateRedirect      State = "unauthenticated_redirect"
	StateDialog        State = "unauthenticated_dialog"
	StateError         State = "error"
)

// DefaultSignInRoute is where hard failures navigate to.
const DefaultSignInRoute = "/sign-in"

// checkFailedMessage is surfaced for failures that are neither credential
// nor server faults.
const checkFailedMessage = "身份验证检查失败"

// UnauthorizedSource is the API client's 401 subscription surface.
type UnauthorizedSource interface {
	OnUnauthorized(fn func()) (cancel func())
}

// Checker drives session verification for one mounted layout.
type Checker struct {
	svc    *auth.Service
	store  *session.Store
	nav    browser.Navigator
	faults *faults.Controller
	logger *slog.Logger

	signInRoute string
	onChange    func(State)

	mu       sync.Mutex
	state    State
	message  string
	pageLoad bool
	cancels  []func()
}

// Option configures a Checker.
type Option func(*Checker)

// WithSignInRoute overrides the sign-in route used for redirects.
func WithSignInRoute(route string) Option {
	return func(c *Checker) { c.signInRoute = route }
}

// WithOnChange registers a callback invoked after every state change.
func WithOnChange(fn func(State)) Option {
	return func(c *Checker) { c.onChange = fn }
}

// New creates a Checker. The first check it runs is the page-load check;
// that one alone may navigate away.
func New(svc *auth.Service, store *session.Store, nav browser.Navigator, fc *faults.Controller, opts ...Option) *Checker {
	c := &Checker{
		svc:         svc,
		store:       store,
		nav:         nav,
		faults:      fc,
		logger:      slog.Default().With("component", "authcheck"),
		signInRoute: DefaultSignInRoute,
		state:       StateInitializing,
		pageLoad:    true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bind subscribes the checker to the API client's 401 notifications.
func (c *Checker) Bind(src UnauthorizedSource) {
	cancel := src.OnUnauthorized(c.HandleAuthError)
	c.mu.Lock()
	c.cancels = append(c.cancels, cancel)
	c.mu.Unlock()
}

// Run performs the initial check and starts watching the session store.
// Call once per mounted layout.
func (c *Checker) Run(ctx context.Context) {
	cancel := c.store.Subscribe(func(authed bool) {
		if !authed {
			c.mirrorLoggedOut()
		}
	})
	c.mu.Lock()
	c.cancels = append(c.cancels, cancel)
	c.mu.Unlock()

	c.check(ctx)
}

// Recheck re-runs verification on demand, e.g. after a login dialog
// completes. Never navigates; the page-load check has already happened.
func (c *Checker) Recheck(ctx context.Context) {
	c.check(ctx)
}

// HandleAuthError forces the dialog transition. Wired to the API client's
// 401 notification so a stale token discovered on any screen recovers
// in place.
func (c *Checker) HandleAuthError() {
	c.setState(StateDialog, "")
}

// HandleLoginSuccess is called by the login dialog once the popup
// handshake completes; it re-verifies the fresh session.
func (c *Checker) HandleLoginSuccess(ctx context.Context) {
	c.check(ctx)
}

// Close cancels all subscriptions. Idempotent.
func (c *Checker) Close() {
	c.mu.Lock()
	cancels := c.cancels
	c.cancels = nil
	c.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// State returns the current machine state.
func (c *Checker) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Message returns the surfaced error message, if any.
func (c *Checker) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// DialogOpen reports whether the in-place login dialog should be shown.
func (c *Checker) DialogOpen() bool {
	return c.State() == StateDialog
}

// Loading reports whether the first check is still in flight.
func (c *Checker) Loading() bool {
	return c.State() == StateInitializing
}

// check runs one full verification pass.
func (c *Checker) check(ctx context.Context) {
	pageLoad := c.takePageLoad()

	if !c.svc.CheckAndRestore() {
		c.toUnauthenticated(pageLoad)
		return
	}

	ok, err := c.svc.RefreshUserInfo(ctx)
	switch {
	case ok:
		c.setState(StateAuthenticated, "")
	case err != nil:
		// Server fault: hand it to the fault controller with a retry that
		// re-runs the whole check. State stays as it was; a broken server
		// is not a reason to sign anyone out.
		c.faults.ReportFailure(err, c.retryCheck)
	case !c.store.Authenticated():
		// The refresh hit a 401 and the session is already gone
		c.toUnauthenticated(pageLoad)
	default:
		c.setState(StateError, checkFailedMessage)
	}
}

// retryCheck is the fault controller's retry callback: re-run the check
// and report only a recurring server fault as failure.
func (c *Checker) retryCheck(ctx context.Context) error {
	if !c.svc.CheckAndRestore() {
		c.toUnauthenticated(false)
		return nil
	}

	ok, err := c.svc.RefreshUserInfo(ctx)
	switch {
	case ok:
		c.setState(StateAuthenticated, "")
		return nil
	case err != nil:
		return err
	case !c.store.Authenticated():
		c.toUnauthenticated(false)
		return nil
	default:
		c.setState(StateError, checkFailedMessage)
		return nil
	}
}

// toUnauthenticated picks between the navigating and in-place recovery
// paths.
func (c *Checker) toUnauthenticated(pageLoad bool) {
	if !pageLoad {
		c.setState(StateDialog, "")
		return
	}

	target := c.signInRoute + "?redirect=" + url.QueryEscape(c.nav.CurrentURL())
	c.setState(StateRedirect, "")
	c.logger.Info("redirecting to sign-in", "target", target)
	c.nav.Replace(target)
}

// mirrorLoggedOut reacts to the session store's flag dropping externally.
func (c *Checker) mirrorLoggedOut() {
	c.mu.Lock()
	if c.state != StateAuthenticated {
		c.mu.Unlock()
		return
	}
	c.state = StateDialog
	c.message = ""
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(StateDialog)
	}
}

// takePageLoad consumes the one-shot page-load flag.
func (c *Checker) takePageLoad() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	pageLoad := c.pageLoad
	c.pageLoad = false
	return pageLoad
}

// setState moves the machine and fires the change callback.
func (c *Checker) setState(state State, message string) {
	c.mu.Lock()
	changed := c.state != state || c.message != message
	c.state = state
	c.message = message
	onChange := c.onChange
	c.mu.Unlock()

	if changed && onChange != nil {
		onChange(state)
	}
}
