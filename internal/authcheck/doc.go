// Package authcheck runs the session verification state machine behind
// the authenticated layout.
//
// # States
//
// A Checker is always in exactly one of:
//
//   - Initializing: the first check has not finished
//   - Authenticated: restore and server refresh both passed
//   - UnauthenticatedRedirect: hard failure on page load; the view has
//     been replaced with the sign-in route carrying a redirect parameter
//   - UnauthenticatedDialog: failure after the app is already rendered;
//     the in-place login dialog is shown and no navigation happens
//   - Error: a failure that is neither credential nor server fault
//
// # The page-load flag
//
// Only the very first check per Checker may force a navigation. Once it
// completes, every later failure prefers the dialog path, so in-progress
// work is never discarded because the gateway degraded mid-session.
//
// # Recovery sources
//
// Besides its own checks, the Checker reacts to two external signals: the
// API client's unauthorized notification (a 401 on any screen forces the
// dialog) and the session store's authenticated flag (an external reset,
// e.g. another component logging out, is mirrored immediately).
package authcheck
