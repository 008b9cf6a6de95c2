package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestVerifierActorID(t *testing.T) {
	v := NewVerifier("s3cret")
	tok := sign(t, "s3cret", jwt.MapClaims{
		ClaimNameIdentifier: "user-42",
		"exp":               time.Now().Add(time.Hour).Unix(),
	})
	id, err := v.ActorID(tok)
	if err != nil || id != "user-42" {
		t.Fatalf("ActorID = %q, %v", id, err)
	}

	if _, err := v.ActorID(sign(t, "other", jwt.MapClaims{"sub": "x"})); err == nil {
		t.Fatalf("expected signature error")
	}
	if _, err := v.ActorID(sign(t, "s3cret", jwt.MapClaims{"role": "Admin"})); err == nil {
		t.Fatalf("expected missing claim error")
	}
	if _, err := NewVerifier("").ActorID(tok); err == nil {
		t.Fatalf("expected error without secret")
	}
}

func TestMiddlewareAndRequire(t *testing.T) {
	v := NewVerifier("s3cret")
	var gotActor, gotToken string
	h := Middleware(v)(Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor, gotToken = Actor(r.Context()), Token(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	tok := sign(t, "s3cret", jwt.MapClaims{"sub": "u-1"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || gotActor != "u-1" || gotToken != tok {
		t.Fatalf("code=%d actor=%q token=%q", rec.Code, gotActor, gotToken)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code=%d, want 401", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	if got := BearerToken("bearer abc"); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := BearerToken("Basic abc"); got != "" {
		t.Fatalf("got %q", got)
	}
}
