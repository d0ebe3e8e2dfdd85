package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func vote(res Result) Authenticator {
	return AuthenticatorFunc(func(context.Context, *http.Request) Result { return res })
}

func TestChain(t *testing.T) {
	alice := &Identity{Subject: "alice"}
	bad := errors.New("bad key")

	tests := []struct {
		name        string
		authns      []Authenticator
		def         Decision
		wantDec     Decision
		wantSubject string
	}{
		{
			name:        "first yes wins",
			authns:      []Authenticator{vote(Result{Decision: Yes, Identity: alice}), vote(Result{Decision: No, Err: bad})},
			def:         No,
			wantDec:     Yes,
			wantSubject: "alice",
		},
		{
			name:    "no stops the chain",
			authns:  []Authenticator{vote(Result{Decision: No, Err: bad}), vote(Result{Decision: Yes, Identity: alice})},
			def:     Yes,
			wantDec: No,
		},
		{
			name:        "abstain falls through",
			authns:      []Authenticator{vote(Result{Decision: Abstain}), vote(Result{Decision: Yes, Identity: alice})},
			def:         No,
			wantDec:     Yes,
			wantSubject: "alice",
		},
		{
			name:    "all abstain default no",
			authns:  []Authenticator{vote(Result{Decision: Abstain})},
			def:     No,
			wantDec: No,
		},
		{
			name:        "all abstain default yes",
			authns:      []Authenticator{vote(Result{Decision: Abstain})},
			def:         Yes,
			wantDec:     Yes,
			wantSubject: "anonymous",
		},
		{
			name:    "empty chain",
			def:     No,
			wantDec: No,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &Chain{Authenticators: tt.authns, DefaultDecision: tt.def}
			res := chain.Authenticate(context.Background(), httptest.NewRequest("GET", "/", nil))
			if res.Decision != tt.wantDec {
				t.Fatalf("decision = %v, want %v", res.Decision, tt.wantDec)
			}
			if tt.wantSubject != "" && (res.Identity == nil || res.Identity.Subject != tt.wantSubject) {
				t.Errorf("identity = %+v, want subject %q", res.Identity, tt.wantSubject)
			}
			if res.Decision == No && res.Err == nil {
				t.Error("No decision without an error")
			}
		})
	}
}

func TestIdentityCanWrite(t *testing.T) {
	tests := []struct {
		name string
		id   *Identity
		want bool
	}{
		{"nil", nil, false},
		{"no scopes", &Identity{Subject: "a"}, true},
		{"read only", &Identity{Subject: "a", Scopes: []string{ScopeRead}}, false},
		{"write", &Identity{Subject: "a", Scopes: []string{ScopeRead, ScopeWrite}}, true},
		{"admin", &Identity{Subject: "a", Scopes: []string{ScopeAdmin}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.CanWrite(); got != tt.want {
				t.Errorf("CanWrite() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header    string
		wantToken string
		wantOK    bool
	}{
		{"", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", true},
		{"Bearer  spaced ", "spaced", true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		token, ok := BearerToken(req)
		if token != tt.wantToken || ok != tt.wantOK {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, token, ok, tt.wantToken, tt.wantOK)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil || SubjectFromContext(ctx) != "" {
		t.Fatal("empty context should carry no identity")
	}
	ctx = WithIdentity(ctx, &Identity{Subject: "bob"})
	if SubjectFromContext(ctx) != "bob" {
		t.Errorf("subject = %q, want bob", SubjectFromContext(ctx))
	}
}

func TestInProcessLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewInProcessLimiter(2, map[string]int{"premium": 3, "unlimited": 0})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	alice := &Identity{Subject: "alice"}
	for i := 0; i < 2; i++ {
		if err := l.Allow(ctx, alice); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	if err := l.Allow(ctx, alice); !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("third request: err = %v, want ErrTooManyRequests", err)
	}

	// Other subjects have their own window.
	if err := l.Allow(ctx, &Identity{Subject: "bob"}); err != nil {
		t.Errorf("bob: %v", err)
	}

	premium := &Identity{Subject: "carol", ServiceTier: "premium"}
	for i := 0; i < 3; i++ {
		if err := l.Allow(ctx, premium); err != nil {
			t.Fatalf("premium request %d: %v", i+1, err)
		}
	}
	if err := l.Allow(ctx, premium); err == nil {
		t.Error("premium tier should be limited after 3 requests")
	}

	unlimited := &Identity{Subject: "dave", ServiceTier: "unlimited"}
	for i := 0; i < 10; i++ {
		if err := l.Allow(ctx, unlimited); err != nil {
			t.Fatalf("unlimited tier limited: %v", err)
		}
	}

	// A new window resets the count and expired windows are swept.
	now = now.Add(time.Minute)
	if err := l.Allow(ctx, alice); err != nil {
		t.Errorf("after window: %v", err)
	}
	if _, ok := l.counters["bob:default"]; ok {
		t.Error("expired window for bob was not swept")
	}
}
