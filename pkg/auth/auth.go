package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
)

// Decision is the vote of one authenticator.
type Decision int

const (
	// Yes means the credentials are valid. The chain stops and the identity is used.
	Yes Decision = iota

	// No means credentials are present but invalid. The chain stops and the
	// request is rejected.
	No

	// Abstain passes the request to the next authenticator.
	Abstain
)

func (d Decision) String() string {
	switch d {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "abstain"
	}
}

// Result carries the outcome of an authentication attempt.
type Result struct {
	Decision Decision
	Identity *Identity // set when Decision == Yes
	Err      error     // set when Decision == No
}

// Scopes understood by the middleware.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"
)

// Identity is an authenticated caller.
type Identity struct {
	Subject     string
	ServiceTier string
	Scopes      []string
	Metadata    map[string]string
}

// HasScope reports whether the identity was granted scope.
func (id *Identity) HasScope(scope string) bool {
	return id != nil && slices.Contains(id.Scopes, scope)
}

// CanWrite reports whether the identity may change state. Identities
// without any scopes are unrestricted.
func (id *Identity) CanWrite() bool {
	if id == nil {
		return false
	}
	return len(id.Scopes) == 0 || id.HasScope(ScopeWrite) || id.HasScope(ScopeAdmin)
}

// Anonymous is the identity used when the chain lets unauthenticated
// requests through.
func Anonymous() *Identity {
	return &Identity{Subject: "anonymous", ServiceTier: "default"}
}

// Authenticator examines request credentials and votes.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, r *http.Request) Result

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, r *http.Request) Result {
	return f(ctx, r)
}

// Sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("write access denied")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// Chain evaluates authenticators in order.
type Chain struct {
	Authenticators []Authenticator

	// DefaultDecision applies when every authenticator abstains. Yes admits
	// the request as Anonymous.
	DefaultDecision Decision
}

// Authenticate stops on the first Yes or No vote.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, authn := range c.Authenticators {
		if res := authn.Authenticate(ctx, r); res.Decision != Abstain {
			return res
		}
	}
	if c.DefaultDecision == Yes {
		return Result{Decision: Yes, Identity: Anonymous()}
	}
	return Result{Decision: No, Err: ErrUnauthenticated}
}

// BearerToken returns the token of a "Bearer" Authorization header. ok is
// false when the header is absent or uses another scheme.
func BearerToken(r *http.Request) (token string, ok bool) {
	header := r.Header.Get("Authorization")
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
