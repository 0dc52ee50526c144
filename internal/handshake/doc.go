// Package handshake implements the popup login flow used to recover an
// expired session in place.
//
// # Flow
//
// The dialog opens a child window at the sign-in route and then waits on
// two racing signals: a 1-second poll noticing the user closed the popup,
// and a LOGIN_SUCCESS message posted by the sign-in window once login
// completes. Only same-origin messages are accepted. A 5-minute failsafe
// drops the message subscription no matter what happened, so a forgotten
// popup can never leave a listener behind.
//
// Both signals resolve the same logical event, possibly in the same
// instant, so every teardown path is idempotent: timers stop once,
// subscriptions cancel once, the popup closes once, and the success
// callback fires exactly once.
//
// # The other side
//
// AnnounceSuccess is the sign-in window's half of the protocol: after a
// successful login it publishes the LOGIN_SUCCESS message back to the
// opening window.
package handshake
