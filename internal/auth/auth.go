// Package auth resolves the calling actor from a bearer credential and carries
// the raw credential through the request context so it can be forwarded to
// downstream services unchanged.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
)

// ClaimNameIdentifier is the claim the user service puts the user id in.
const ClaimNameIdentifier = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"

type ctxKey int

const (
	keyToken ctxKey = iota
	keyActor
)

// WithToken stores the raw bearer token (without the "Bearer " prefix).
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyToken, token)
}

func Token(ctx context.Context) string {
	s, _ := ctx.Value(keyToken).(string)
	return s
}

func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, keyActor, actorID)
}

func Actor(ctx context.Context) string {
	s, _ := ctx.Value(keyActor).(string)
	return s
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// ActorID validates an HS256 token and returns the user id it names.
func (v *Verifier) ActorID(token string) (string, error) {
	if len(v.secret) == 0 {
		return "", fmt.Errorf("token verification not configured")
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", err
	}
	for _, k := range []string{ClaimNameIdentifier, "nameid", "sub"} {
		if s, ok := claims[k].(string); ok && s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("token has no user id claim")
}

// Middleware stores the bearer token and, when it verifies, the actor id.
// It never rejects; handlers decide whether an actor is required.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := BearerToken(r.Header.Get("Authorization"))
			if tok == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithToken(r.Context(), tok)
			if id, err := v.ActorID(tok); err == nil {
				ctx = WithActor(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require rejects requests without a resolved actor.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Actor(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
