// Package api is the console's client for the gateway auth endpoints.
//
// # Endpoints
//
// The client speaks the fixed REST contract:
//
//   - POST /api/auth/login
//   - GET  /api/auth/me
//   - GET  /api/auth/validate
//   - POST /api/auth/forgot-password
//   - POST /api/auth/reset-password
//
// # Error classification
//
// Every failure is classified exactly once, at the network boundary, into
// a tagged *Error:
//
//   - KindUnauthorized: HTTP 401
//   - KindServerFault:  HTTP 5xx
//   - KindTransport:    no response (dial, timeout, context cancellation)
//   - KindValidation:   any other HTTP error status
//
// Downstream code switches on Kind instead of sniffing status codes or
// error strings.
//
// # Unauthorized notifications
//
// Any 401, from any endpoint, resets the injected session store and then
// fires every callback registered with OnUnauthorized. This is the
// explicit subscription that lets the auth checker recover a stale token
// discovered mid-session, on whatever screen it happens.
package api
