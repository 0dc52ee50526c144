// ABOUTME: Cookie persistence layer for the console session core
// ABOUTME: Applies origin-derived Secure and Domain policy on every write

package cookie

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ai-one-tech/aione-monihub-sub001/internal/browser"
)

// DefaultMaxAge is the storage TTL applied when callers pass a zero max
// age. It is a storage TTL only; session expiry is tracked separately.
const DefaultMaxAge = 7 * 24 * time.Hour

// Store reads and writes named values through the host document's cookie
// surface. All operations are silent no-ops when the document is nil, so
// the session core can run in contexts that have no cookie storage at all.
type Store struct {
	doc    browser.Document
	origin browser.Origin
}

// New creates a Store bound to the given document and origin. doc may be
// nil.
func New(doc browser.Document, origin browser.Origin) *Store {
	return &Store{doc: doc, origin: origin}
}

// Get returns the decoded value of the named cookie, or "" and false if it
// is absent.
func (s *Store) Get(name string) (string, bool) {
	if s.doc == nil {
		return "", false
	}

	for _, part := range strings.Split(s.doc.Cookies(), ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || k != name {
			continue
		}
		decoded, err := url.QueryUnescape(v)
		if err != nil {
			return v, true
		}
		return decoded, true
	}
	return "", false
}

// Set writes the named cookie with the store's origin policy: path=/, the
// given max-age, SameSite=Lax, Secure only on HTTPS origins, and a Domain
// attribute only when the host is not a bare loopback address. A zero
// maxAge falls back to DefaultMaxAge.
func (s *Store) Set(name, value string, maxAge time.Duration) {
	if s.doc == nil {
		return
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	s.doc.SetCookie(s.attrs(name, url.QueryEscape(value), int(maxAge/time.Second)))
}

// Remove deletes the named cookie by re-issuing it with max-age=0 under
// the same attribute policy it was written with.
func (s *Store) Remove(name string) {
	if s.doc == nil {
		return
	}
	s.doc.SetCookie(s.attrs(name, "", 0))
}

// attrs builds the Set-Cookie attribute string for the store's origin.
func (s *Store) attrs(name, value string, maxAgeSeconds int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s; path=/; max-age=%d; SameSite=Lax", name, value, maxAgeSeconds)
	if s.origin.Secure() {
		b.WriteString("; Secure")
	}
	if !s.origin.Loopback() && s.origin.Host != "" {
		b.WriteString("; Domain=" + s.origin.Host)
	}
	return b.String()
}
