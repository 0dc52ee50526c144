// ABOUTME: In-memory fake implementations of the host-shell interfaces
// ABOUTME: Behaves like a browser jar so cookie policy can be tested for real

package browser

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// fakeCookie is a single stored cookie with its eviction deadline.
type fakeCookie struct {
	value   string
	expires time.Time // zero means no max-age was given
}

// FakeDocument is a browser-like cookie jar. It parses Set-Cookie style
// attribute strings the same way a browser would: max-age=0 (or negative)
// deletes, a positive max-age sets an eviction deadline, and attribute
// casing is ignored.
type FakeDocument struct {
	mu      sync.Mutex
	cookies map[string]fakeCookie

	// Now is the clock used for max-age eviction. Tests may replace it.
	Now func() time.Time
}

// NewFakeDocument returns an empty jar.
func NewFakeDocument() *FakeDocument {
	return &FakeDocument{
		cookies: make(map[string]fakeCookie),
		Now:     time.Now,
	}
}

// Cookies returns the live cookies as a "name=value; name2=value2" string,
// sorted by name for deterministic output.
func (d *FakeDocument) Cookies() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.Now()
	names := make([]string, 0, len(d.cookies))
	for name, c := range d.cookies {
		if !c.expires.IsZero() && !now.Before(c.expires) {
			delete(d.cookies, name)
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+d.cookies[name].value)
	}
	return strings.Join(parts, "; ")
}

// SetCookie applies a Set-Cookie style attribute string.
func (d *FakeDocument) SetCookie(attrs string) {
	fields := strings.Split(attrs, ";")
	if len(fields) == 0 {
		return
	}

	name, value, ok := strings.Cut(strings.TrimSpace(fields[0]), "=")
	if !ok || name == "" {
		return
	}

	maxAge := 0
	hasMaxAge := false
	for _, f := range fields[1:] {
		k, v, _ := strings.Cut(strings.TrimSpace(f), "=")
		if strings.EqualFold(k, "max-age") {
			n, err := strconv.Atoi(v)
			if err != nil {
				continue
			}
			maxAge = n
			hasMaxAge = true
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if hasMaxAge && maxAge <= 0 {
		delete(d.cookies, name)
		return
	}

	c := fakeCookie{value: value}
	if hasMaxAge {
		c.expires = d.Now().Add(time.Duration(maxAge) * time.Second)
	}
	d.cookies[name] = c
}

// NewRecordingDocument wraps a FakeDocument and keeps the raw attribute
// strings passed to SetCookie, for tests that assert on cookie attributes
// rather than resulting jar state.
func NewRecordingDocument() *RecordingDocument {
	return &RecordingDocument{FakeDocument: NewFakeDocument()}
}

// RecordingDocument is a FakeDocument that also records raw SetCookie input.
type RecordingDocument struct {
	*FakeDocument
	mu      sync.Mutex
	history []string
}

// SetCookie records the attribute string and applies it to the jar.
func (d *RecordingDocument) SetCookie(attrs string) {
	d.mu.Lock()
	d.history = append(d.history, attrs)
	d.mu.Unlock()
	d.FakeDocument.SetCookie(attrs)
}

// SetHistory returns a copy of every attribute string seen so far.
func (d *RecordingDocument) SetHistory() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.history...)
}

// FakeWindow is a Window whose closed state can be flipped by tests.
type FakeWindow struct {
	mu     sync.Mutex
	closed bool
}

// NewFakeWindow returns an open window.
func NewFakeWindow() *FakeWindow {
	return &FakeWindow{}
}

// Closed reports the window's closed state.
func (w *FakeWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Close marks the window closed.
func (w *FakeWindow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// FakeOpener records opened windows and hands out FakeWindows.
type FakeOpener struct {
	mu     sync.Mutex
	opened []OpenedWindow

	// Err, when set, is returned by Open instead of a window.
	Err error
}

// OpenedWindow records a single Open call.
type OpenedWindow struct {
	URL    string
	Opts   WindowOptions
	Window *FakeWindow
}

// NewFakeOpener returns an opener with no opened windows.
func NewFakeOpener() *FakeOpener {
	return &FakeOpener{}
}

// Open records the call and returns a fresh open FakeWindow.
func (o *FakeOpener) Open(url string, opts WindowOptions) (Window, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	w := NewFakeWindow()
	o.opened = append(o.opened, OpenedWindow{URL: url, Opts: opts, Window: w})
	return w, nil
}

// Opened returns a copy of all Open calls so far.
func (o *FakeOpener) Opened() []OpenedWindow {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]OpenedWindow(nil), o.opened...)
}

// FakeNavigator records Replace calls and serves a fixed current URL.
type FakeNavigator struct {
	mu       sync.Mutex
	current  string
	replaced []string
}

// NewFakeNavigator returns a navigator positioned at current.
func NewFakeNavigator(current string) *FakeNavigator {
	return &FakeNavigator{current: current}
}

// Replace records the target and makes it the current URL.
func (n *FakeNavigator) Replace(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replaced = append(n.replaced, url)
	n.current = url
}

// CurrentURL returns the current URL.
func (n *FakeNavigator) CurrentURL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Replaced returns a copy of all Replace targets so far.
func (n *FakeNavigator) Replaced() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.replaced...)
}

// FakeBus delivers published messages synchronously to all subscribers.
type FakeBus struct {
	mu   sync.Mutex
	subs map[int]func(Message)
	next int
}

// NewFakeBus returns a bus with no subscribers.
func NewFakeBus() *FakeBus {
	return &FakeBus{subs: make(map[int]func(Message))}
}

// Publish invokes every current subscriber with msg, synchronously and in
// unspecified order.
func (b *FakeBus) Publish(msg Message) {
	b.mu.Lock()
	fns := make([]func(Message), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(msg)
	}
}

// Subscribe registers fn and returns an idempotent cancel func.
func (b *FakeBus) Subscribe(fn func(Message)) (cancel func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
