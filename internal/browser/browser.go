// ABOUTME: Host-shell interfaces for the console session core
// ABOUTME: Document cookies, child windows, navigation, and message delivery

package browser

import "encoding/json"

// Origin identifies the scheme and hostname the console is served from.
type Origin struct {
	Scheme string // "http" or "https"
	Host   string // hostname without port
}

// Secure reports whether the origin is served over HTTPS.
func (o Origin) Secure() bool {
	return o.Scheme == "https"
}

// Loopback reports whether the origin host is a bare loopback address.
// Browsers reject a Domain attribute on such hosts, so cookie writes must
// omit it.
func (o Origin) Loopback() bool {
	return o.Host == "localhost" || o.Host == "127.0.0.1"
}

// String returns the canonical "scheme://host" form used for message
// origin comparison.
func (o Origin) String() string {
	return o.Scheme + "://" + o.Host
}

// Document is the host's cookie surface. Cookies returns the current
// "name=value; name2=value2" string; SetCookie applies a Set-Cookie style
// attribute string. Implementations must tolerate concurrent use.
type Document interface {
	Cookies() string
	SetCookie(attrs string)
}

// Window is a child window opened by the shell.
type Window interface {
	// Closed reports whether the window has been closed, by the user or
	// programmatically.
	Closed() bool

	// Close closes the window. Closing an already-closed window is a no-op.
	Close()
}

// WindowOptions describes how a child window should be opened.
type WindowOptions struct {
	Name   string
	Width  int
	Height int
}

// WindowOpener opens child windows at a given URL.
type WindowOpener interface {
	Open(url string, opts WindowOptions) (Window, error)
}

// Navigator performs top-level navigation for the current view.
type Navigator interface {
	// Replace navigates to url, replacing the current history entry.
	Replace(url string)

	// CurrentURL returns the URL of the current view.
	CurrentURL() string
}

// Message is an origin-tagged message delivered between windows of the
// same shell.
type Message struct {
	ID     string          `json:"id,omitempty"`
	Origin string          `json:"origin"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// MessageBus delivers messages to all current subscribers. Subscribe
// returns a cancel func; cancelling twice is a no-op.
type MessageBus interface {
	Publish(msg Message)
	Subscribe(fn func(Message)) (cancel func())
}
