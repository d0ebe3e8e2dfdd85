// Package apikey authenticates requests against a static set of API keys.
// Keys are kept only as SHA-256 hashes and compared in constant time.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/NikolayKlyatishev/vector-view/pkg/auth"
)

// HeaderName is the alternative header carrying a raw API key.
const HeaderName = "X-API-Key"

// Key is one configured API key and the identity it grants.
type Key struct {
	Key         string
	Subject     string
	ServiceTier string
	Scopes      []string
}

type entry struct {
	hash     [32]byte
	identity auth.Identity
}

// Authenticator validates API keys sent as a bearer token or in the
// X-API-Key header.
type Authenticator struct {
	entries []entry
}

var _ auth.Authenticator = (*Authenticator)(nil)

// New hashes keys immediately; plaintext keys are not retained. Entries
// with an empty key are skipped.
func New(keys []Key) *Authenticator {
	a := &Authenticator{}
	for _, k := range keys {
		if k.Key == "" {
			continue
		}
		a.entries = append(a.entries, entry{
			hash: sha256.Sum256([]byte(k.Key)),
			identity: auth.Identity{
				Subject:     k.Subject,
				ServiceTier: k.ServiceTier,
				Scopes:      append([]string(nil), k.Scopes...),
			},
		})
	}
	return a
}

// Len returns the number of usable keys.
func (a *Authenticator) Len() int {
	return len(a.entries)
}

// Authenticate abstains when the request carries no key, votes No for an
// unknown key and Yes for a known one.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	token, ok := auth.BearerToken(r)
	if !ok {
		token = strings.TrimSpace(r.Header.Get(HeaderName))
		if token == "" {
			return auth.Result{Decision: auth.Abstain}
		}
	}
	if token == "" {
		return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	sum := sha256.Sum256([]byte(token))
	matched := -1
	// Every entry is compared so timing does not reveal the match position.
	for i := range a.entries {
		if subtle.ConstantTimeCompare(sum[:], a.entries[i].hash[:]) == 1 && matched < 0 {
			matched = i
		}
	}
	if matched < 0 {
		return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	id := a.entries[matched].identity
	id.Scopes = append([]string(nil), id.Scopes...)
	return auth.Result{Decision: auth.Yes, Identity: &id}
}
