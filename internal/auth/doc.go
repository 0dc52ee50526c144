// Package auth provides the stateless authentication operations layered
// on the session store and the API client.
//
// # Overview
//
// A Service combines local state checks with the two remote calls that
// keep a session honest:
//
//	svc := auth.NewService(store, apiClient)
//	if svc.CheckAndRestore() {
//	    ok, err := svc.RefreshUserInfo(ctx)
//	    ...
//	}
//
// # Failure policy
//
// The two remote calls classify failures differently on purpose:
//
//   - ValidateToken: a 401 logs the session out; every other failure,
//     including transport errors, is reported as false without touching
//     the session, so a flaky network never forces a re-login.
//   - RefreshUserInfo: a 401 logs out and returns false; a 5xx is
//     returned to the caller so it can be routed to the fault controller
//     instead of being mistaken for an auth failure; anything else is
//     false without logout.
//
// # Token expiry
//
// Session expiry is carried in the cached user record in epoch
// milliseconds. For login responses whose token is a JWT, the expiry is
// read from the token's exp claim; otherwise a 24 hour window is assumed.
package auth
