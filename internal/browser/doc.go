// Package browser defines the boundary between the session core and the
// shell that embeds it.
//
// # Overview
//
// The console core was designed to run inside a browser-like host: something
// that owns a cookie store, can open child windows, can navigate the current
// view, and can deliver origin-tagged messages between windows. This package
// expresses each of those capabilities as a small interface so that the rest
// of the session core never touches the host directly:
//
//   - Document: raw cookie string read/write
//   - WindowOpener / Window: child window lifecycle (the sign-in popup)
//   - Navigator: history-replacing navigation and the current URL
//   - MessageBus: same-process message delivery with sender origin attached
//
// # Origins
//
// Origin carries the scheme and hostname the console is served from. Cookie
// policy (Secure flag, Domain attribute) and message acceptance both derive
// from it.
//
// # Fakes
//
// In-memory fakes (FakeDocument, FakeWindow, FakeOpener, FakeNavigator,
// FakeBus) live here as regular code so any package can use them in tests
// without duplicating them.
package browser
