// Package auth provides optional authentication for the vector-view HTTP
// boundary.
//
// Authenticators vote on each request: Yes (identity found), No
// (credentials present but invalid) or Abstain (credentials of a kind the
// authenticator does not handle). A Chain asks them in order and falls back
// to a default decision when all abstain.
//
// Identities may carry scopes. An identity without scopes has full access;
// one with scopes needs the "write" scope for requests that change state
// (connections, settings, collection creation).
package auth
