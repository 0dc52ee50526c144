// ABOUTME: Controller coalescing concurrent server faults into one retryable modal
// ABOUTME: Queued retries run concurrently; the modal closes only if all succeed

package faults

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ai-one-tech/aione-monihub-sub001/internal/api"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/browser"
)

// DefaultMaxRetries is the per-dialog cap on retry attempts.
const DefaultMaxRetries = 3

// ErrRetriesExhausted is returned by Retry once the attempt cap is hit.
var ErrRetriesExhausted = errors.New("faults: retry limit reached")

// RetryFunc re-runs a failed operation.
type RetryFunc func(ctx context.Context) error

// ToastSink receives non-blocking error notifications.
type ToastSink interface {
	Toast(message string)
}

// ToastFunc adapts a func to ToastSink.
type ToastFunc func(message string)

// Toast implements ToastSink.
func (f ToastFunc) Toast(message string) { f(message) }

// Snapshot is the modal state the UI renders from.
type Snapshot struct {
	Open       bool
	Message    string
	Pending    int
	Retries    int
	MaxRetries int
	Exhausted  bool
}

// Controller owns the server-fault modal state.
type Controller struct {
	mu         sync.Mutex
	open       bool
	retrying   bool
	pending    []RetryFunc
	message    string
	retries    int
	maxRetries int

	nav     browser.Navigator
	homeURL string
	toasts  ToastSink
	logger  *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxRetries overrides the retry cap.
func WithMaxRetries(n int) Option {
	return func(c *Controller) { c.maxRetries = n }
}

// WithHomeURL overrides the GoHome navigation target.
func WithHomeURL(url string) Option {
	return func(c *Controller) { c.homeURL = url }
}

// New creates a Controller. toasts may be nil, in which case fallthrough
// errors are only logged.
func New(nav browser.Navigator, toasts ToastSink, opts ...Option) *Controller {
	c := &Controller{
		nav:        nav,
		homeURL:    "/",
		toasts:     toasts,
		maxRetries: DefaultMaxRetries,
		logger:     slog.Default().With("component", "faults"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReportFailure routes one failed request. Server faults are queued behind
// the modal and true is returned: the modal owns the error now. Everything
// else goes to the toast sink (suppressed while the modal is open) and
// returns false.
func (c *Controller) ReportFailure(err error, retry RetryFunc) bool {
	apiErr, ok := api.AsError(err)
	if ok && apiErr.Kind == api.KindServerFault {
		c.mu.Lock()
		c.pending = append(c.pending, retry)
		if !c.open {
			c.open = true
			c.message = apiErr.Message
		}
		queued := len(c.pending)
		c.mu.Unlock()

		c.logger.Warn("server fault queued for retry", "message", apiErr.Message, "queued", queued)
		return true
	}

	c.mu.Lock()
	suppressed := c.open
	c.mu.Unlock()

	if !suppressed && c.toasts != nil && err != nil {
		c.toasts.Toast(err.Error())
	}
	return false
}

// Retry runs every queued callback concurrently. If all succeed the modal
// closes and nil is returned. If any fail, the attempt counter advances,
// the modal stays open, and the first failure is returned. Once the cap is
// reached, Retry refuses with ErrRetriesExhausted. Concurrent Retry calls
// beyond the first are no-ops.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if !c.open || c.retrying {
		c.mu.Unlock()
		return nil
	}
	if c.retries >= c.maxRetries {
		c.mu.Unlock()
		return ErrRetriesExhausted
	}
	c.retrying = true
	fns := append([]RetryFunc(nil), c.pending...)
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		g.Go(func() error { return fn(gctx) })
	}
	err := g.Wait()

	c.mu.Lock()
	c.retrying = false
	if err != nil {
		c.retries++
		retries := c.retries
		c.mu.Unlock()
		// Logged, not toasted: the modal already owns this failure
		c.logger.Warn("retry failed", "attempt", retries, "max", c.maxRetries, "error", err)
		return err
	}
	c.resetLocked()
	c.mu.Unlock()
	return nil
}

// ResetRetries clears the attempt counter so the user can try again after
// exhausting the cap.
func (c *Controller) ResetRetries() {
	c.mu.Lock()
	c.retries = 0
	c.mu.Unlock()
}

// Dismiss closes the modal and drops all queued retries atomically.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
}

// GoHome abandons the pending retries and navigates to the home URL.
func (c *Controller) GoHome() {
	c.Dismiss()
	c.nav.Replace(c.homeURL)
}

// Open reports whether the modal currently owns the error surface.
func (c *Controller) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// State returns the modal state for rendering.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Open:       c.open,
		Message:    c.message,
		Pending:    len(c.pending),
		Retries:    c.retries,
		MaxRetries: c.maxRetries,
		Exhausted:  c.retries >= c.maxRetries,
	}
}

// resetLocked clears all modal state. Must be called with mu held.
func (c *Controller) resetLocked() {
	c.open = false
	c.pending = nil
	c.message = ""
	c.retries = 0
}
