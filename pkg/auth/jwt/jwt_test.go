package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/NikolayKlyatishev/vector-view/pkg/auth"
)

const (
	testKID      = "vv-key-1"
	testIssuer   = "https://auth.example.com"
	testAudience = "vector-view"
)

var signingKey = mustKey()

func mustKey() *rsa.PrivateKey {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return k
}

// jwksServer publishes the public half of signingKey and counts fetches.
func jwksServer(t *testing.T, fetches *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		pub := signingKey.PublicKey
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{
				{"kty": "EC", "kid": "ignored"},
				{
					"kty": "RSA",
					"kid": testKID,
					"use": "sig",
					"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sign(t *testing.T, kid string, claims jwtlib.MapClaims) string {
	t.Helper()
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(signingKey)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func validClaims() jwtlib.MapClaims {
	return jwtlib.MapClaims{
		"sub": "user-123",
		"iss": testIssuer,
		"aud": testAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
}

func bearer(token string) *http.Request {
	r := httptest.NewRequest("GET", "/api/collections", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestAuthenticate(t *testing.T) {
	var fetches atomic.Int32
	srv := jwksServer(t, &fetches)
	a := New(Config{Issuer: testIssuer, Audience: testAudience, JWKSURL: srv.URL})

	with := func(mutate func(jwtlib.MapClaims)) jwtlib.MapClaims {
		c := validClaims()
		mutate(c)
		return c
	}

	tests := []struct {
		name    string
		req     *http.Request
		wantDec auth.Decision
	}{
		{"valid", bearer(sign(t, testKID, validClaims())), auth.Yes},
		{"no header", httptest.NewRequest("GET", "/", nil), auth.Abstain},
		{"not a jwt", bearer("vv-plain-api-key"), auth.Abstain},
		{"empty bearer", bearer(""), auth.No},
		{"expired", bearer(sign(t, testKID, with(func(c jwtlib.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() }))), auth.No},
		{"no exp", bearer(sign(t, testKID, with(func(c jwtlib.MapClaims) { delete(c, "exp") }))), auth.No},
		{"wrong issuer", bearer(sign(t, testKID, with(func(c jwtlib.MapClaims) { c["iss"] = "https://evil.example.com" }))), auth.No},
		{"wrong audience", bearer(sign(t, testKID, with(func(c jwtlib.MapClaims) { c["aud"] = "other" }))), auth.No},
		{"missing subject", bearer(sign(t, testKID, with(func(c jwtlib.MapClaims) { delete(c, "sub") }))), auth.No},
		{"missing kid", bearer(sign(t, "", validClaims())), auth.No},
		{"unknown kid", bearer(sign(t, "rotated-away", validClaims())), auth.No},
		{"garbage", bearer("a.b.c"), auth.No},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Authenticate(context.Background(), tt.req)
			if res.Decision != tt.wantDec {
				t.Fatalf("decision = %v, want %v (err: %v)", res.Decision, tt.wantDec, res.Err)
			}
			if res.Decision == auth.Yes && res.Identity.Subject != "user-123" {
				t.Errorf("subject = %q", res.Identity.Subject)
			}
		})
	}
}

func TestScopesAndTier(t *testing.T) {
	var fetches atomic.Int32
	srv := jwksServer(t, &fetches)
	a := New(Config{JWKSURL: srv.URL, UserClaim: "email", ScopesClaim: "permissions"})

	tests := []struct {
		name      string
		scopes    any
		want      string
		wantWrite bool
	}{
		{"space separated", "read write", "read,write", true},
		{"array", []string{"read"}, "read", false},
		{"absent", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := jwtlib.MapClaims{
				"email": "ann@example.com",
				"tier":  "premium",
				"exp":   time.Now().Add(time.Hour).Unix(),
			}
			if tt.scopes != nil {
				claims["permissions"] = tt.scopes
			}
			res := a.Authenticate(context.Background(), bearer(sign(t, testKID, claims)))
			if res.Decision != auth.Yes {
				t.Fatalf("decision = %v (err: %v)", res.Decision, res.Err)
			}
			id := res.Identity
			if id.Subject != "ann@example.com" || id.ServiceTier != "premium" {
				t.Errorf("identity = %+v", id)
			}
			if got := strings.Join(id.Scopes, ","); got != tt.want {
				t.Errorf("scopes = %q, want %q", got, tt.want)
			}
			if id.CanWrite() != tt.wantWrite {
				t.Errorf("CanWrite() = %v, want %v", id.CanWrite(), tt.wantWrite)
			}
		})
	}
}

func TestKeysAreCached(t *testing.T) {
	var fetches atomic.Int32
	srv := jwksServer(t, &fetches)
	a := New(Config{JWKSURL: srv.URL})
	token := sign(t, testKID, validClaims())

	for i := 0; i < 5; i++ {
		if res := a.Authenticate(context.Background(), bearer(token)); res.Decision != auth.Yes {
			t.Fatalf("request %d: %v", i, res.Err)
		}
	}
	// Unknown key IDs right after a fetch do not trigger another one.
	a.Authenticate(context.Background(), bearer(sign(t, "unknown", validClaims())))

	if n := fetches.Load(); n != 1 {
		t.Errorf("JWKS fetched %d times, want 1", n)
	}
}

func TestJWKSUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	a := New(Config{JWKSURL: srv.URL})

	res := a.Authenticate(context.Background(), bearer(sign(t, testKID, validClaims())))
	if res.Decision != auth.No {
		t.Fatalf("decision = %v, want No", res.Decision)
	}
	if !strings.Contains(res.Err.Error(), "status 503") {
		t.Errorf("err = %v", res.Err)
	}
}
