// ABOUTME: Client-side JWT introspection for session expiry
// ABOUTME: Reads the exp claim without verifying the signature

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry extracts the expiry instant from a JWT's exp claim. The
// signature is deliberately not verified; the console has no signing
// secret, and the server re-checks the token on every request anyway.
// Returns false for opaque tokens or tokens without an exp claim.
func TokenExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
