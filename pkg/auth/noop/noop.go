// Package noop provides an authenticator that admits every request as the
// anonymous identity. It backs auth.type "none".
package noop

import (
	"context"
	"net/http"

	"github.com/NikolayKlyatishev/vector-view/pkg/auth"
)

// Authenticator always votes Yes.
type Authenticator struct{}

var _ auth.Authenticator = Authenticator{}

func (Authenticator) Authenticate(context.Context, *http.Request) auth.Result {
	return auth.Result{Decision: auth.Yes, Identity: auth.Anonymous()}
}
