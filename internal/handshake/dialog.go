// ABOUTME: In-place login dialog with popup window handshake
// ABOUTME: Poll and message listener race; all teardown paths are idempotent

package handshake

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ai-one-tech/aione-monihub-sub001/internal/browser"
	"github.com/ai-one-tech/aione-monihub-sub001/internal/session"
)

// MessageTypeLoginSuccess is the handshake message type.
const MessageTypeLoginSuccess = "LOGIN_SUCCESS"

// Defaults for the popup flow.
const (
	DefaultPollInterval = time.Second
	DefaultListenerTTL  = 5 * time.Minute

	popupWidth  = 600
	popupHeight = 700
	popupName   = "login"
)

// SuccessPayload is the data carried by a LOGIN_SUCCESS message.
type SuccessPayload struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user,omitempty"`
}

// AnnounceSuccess publishes the LOGIN_SUCCESS message from the sign-in
// window back to its opener.
func AnnounceSuccess(bus browser.MessageBus, origin browser.Origin, token string, user any) error {
	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	data, err := json.Marshal(SuccessPayload{Token: token, User: rawUser})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	bus.Publish(browser.Message{
		ID:     uuid.NewString(),
		Origin: origin.String(),
		Type:   MessageTypeLoginSuccess,
		Data:   data,
	})
	return nil
}

// attempt holds the resources of one popup login. Teardown can come from
// the poll, the message listener, the failsafe, or the dialog closing;
// each resource stops exactly once.
type attempt struct {
	popup       browser.Window
	stopPoll    chan struct{}
	stopOnce    sync.Once
	unsubscribe func()
	unsubOnce   sync.Once
	failsafe    *time.Timer
	finished    bool
}

// haltPoll stops the closure poll. Idempotent.
func (a *attempt) haltPoll() {
	a.stopOnce.Do(func() { close(a.stopPoll) })
}

// dropListener cancels the message subscription. Idempotent.
func (a *attempt) dropListener() {
	a.unsubOnce.Do(func() {
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
	})
}

// Dialog is the in-place login dialog controller.
type Dialog struct {
	opener    browser.WindowOpener
	bus       browser.MessageBus
	origin    browser.Origin
	store     *session.Store
	signInURL string
	onSuccess func()
	logger    *slog.Logger

	pollInterval time.Duration
	listenerTTL  time.Duration

	mu      sync.Mutex
	open    bool
	logging bool
	current *attempt
}

// Option configures a Dialog.
type Option func(*Dialog)

// WithPollInterval overrides the popup closure poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(dlg *Dialog) { dlg.pollInterval = d }
}

// WithListenerTTL overrides the message listener failsafe.
func WithListenerTTL(d time.Duration) Option {
	return func(dlg *Dialog) { dlg.listenerTTL = d }
}

// NewDialog creates a login dialog. onSuccess runs exactly once per
// completed handshake and may be nil.
func NewDialog(opener browser.WindowOpener, bus browser.MessageBus, origin browser.Origin,
	store *session.Store, signInURL string, onSuccess func(), opts ...Option) *Dialog {

	d := &Dialog{
		opener:       opener,
		bus:          bus,
		origin:       origin,
		store:        store,
		signInURL:    signInURL,
		onSuccess:    onSuccess,
		logger:       slog.Default().With("component", "handshake"),
		pollInterval: DefaultPollInterval,
		listenerTTL:  DefaultListenerTTL,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Show makes the dialog visible.
func (d *Dialog) Show() {
	d.mu.Lock()
	d.open = true
	d.mu.Unlock()
}

// Visible reports whether the dialog is shown.
func (d *Dialog) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// LoggingIn reports whether a popup login is in flight.
func (d *Dialog) LoggingIn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logging
}

// Hide closes the dialog without a login. An open popup is force-closed
// as a cleanup side effect.
func (d *Dialog) Hide() {
	d.mu.Lock()
	a := d.current
	d.current = nil
	d.open = false
	d.logging = false
	d.mu.Unlock()

	d.teardown(a, true)
}

// Login opens the sign-in popup and starts the handshake: a closure poll,
// a same-origin message listener, and the listener failsafe. Calling it
// while a login is already in flight is a no-op.
func (d *Dialog) Login() error {
	d.mu.Lock()
	if d.logging {
		d.mu.Unlock()
		return nil
	}

	popup, err := d.opener.Open(d.signInURL, browser.WindowOptions{
		Name:   popupName,
		Width:  popupWidth,
		Height: popupHeight,
	})
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("opening login window: %w", err)
	}

	a := &attempt{
		popup:    popup,
		stopPoll: make(chan struct{}),
	}
	a.unsubscribe = d.bus.Subscribe(func(msg browser.Message) {
		d.handleMessage(a, msg)
	})
	a.failsafe = time.AfterFunc(d.listenerTTL, a.dropListener)

	d.current = a
	d.logging = true
	d.mu.Unlock()

	go d.poll(a)
	return nil
}

// poll watches for the user closing the popup by hand.
func (d *Dialog) poll(a *attempt) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopPoll:
			return
		case <-ticker.C:
			if a.popup.Closed() {
				d.popupClosed(a)
				return
			}
		}
	}
}

// popupClosed handles the user closing the popup. Login state is cleared
// and the session is re-read from the store: if a token landed (the
// sign-in window finished but its message was missed), that still counts
// as success.
func (d *Dialog) popupClosed(a *attempt) {
	d.mu.Lock()
	if a.finished || d.current != a {
		d.mu.Unlock()
		return
	}
	d.logging = false
	tokenPresent := d.store.AccessToken() != ""
	if !tokenPresent {
		a.haltPoll()
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	d.finish(a)
}

// handleMessage is the message listener: only same-origin LOGIN_SUCCESS
// messages complete the handshake.
func (d *Dialog) handleMessage(a *attempt, msg browser.Message) {
	if msg.Origin != d.origin.String() {
		return
	}
	if msg.Type != MessageTypeLoginSuccess {
		return
	}
	d.finish(a)
}

// finish completes the handshake exactly once: stops the poll and the
// listener, force-closes the popup, hides the dialog, and fires the
// success callback.
func (d *Dialog) finish(a *attempt) {
	d.mu.Lock()
	if a.finished {
		d.mu.Unlock()
		return
	}
	a.finished = true
	if d.current == a {
		d.current = nil
	}
	d.open = false
	d.logging = false
	onSuccess := d.onSuccess
	d.mu.Unlock()

	d.teardown(a, true)
	d.logger.Info("login handshake completed")

	if onSuccess != nil {
		onSuccess()
	}
}

// teardown releases an attempt's resources. Safe on nil and safe to
// repeat.
func (d *Dialog) teardown(a *attempt, closePopup bool) {
	if a == nil {
		return
	}
	a.haltPoll()
	a.dropListener()
	if a.failsafe != nil {
		a.failsafe.Stop()
	}
	if closePopup && a.popup != nil && !a.popup.Closed() {
		a.popup.Close()
	}
}
