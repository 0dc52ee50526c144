// Package session holds the console's authentication state.
//
// # Overview
//
// A Store owns the current user, the access token, and the derived
// authenticated flag. Every mutation persists through the cookie layer
// before the in-memory state is swapped, so a reader that observes the
// flag can trust the cookies are already durable.
//
// Stores are constructed explicitly and injected; there is no package
// global. Construction restores state from the token and user cookies,
// dropping (and removing) a user cookie that fails to parse.
//
// # Expiry semantics
//
// Two clocks are in play. The cookie max-age (7 days) is a storage TTL
// only. The user's Exp field is the session expiry, checked by
// TokenExpired. The authenticated flag is expiry-aware at construction
// but the post-construction setters derive it from presence alone; callers
// that need a live answer combine the flag with TokenExpired, as the auth
// utilities do.
package session
