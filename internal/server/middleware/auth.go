// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// callerKey is the context key under which the authenticated caller's
// participant ID is stored.
type callerKey struct{}

// CallerID returns the authenticated participant ID from the request context,
// or "" when the request carried no valid token.
func CallerID(ctx context.Context) string {
	id, _ := ctx.Value(callerKey{}).(string)
	return id
}

// WithCallerID returns a context carrying the given participant ID. Exposed
// for handler tests.
func WithCallerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callerKey{}, id)
}

// Auth returns middleware that validates a Bearer JWT (HS256) and stores its
// subject, the caller's participant ID, in the request context. Requests
// without a token pass through unauthenticated; the services reject them
// where identity is required. A present but invalid token is rejected
// outright with 401.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			subject, err := parseSubject(token, secret)
			if err != nil || subject == "" {
				writeUnauthorized(w, "invalid authentication token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCallerID(r.Context(), subject)))
		})
	}
}

// parseSubject verifies the token signature and returns its subject claim.
func parseSubject(tokenStr, secret string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	return token.Claims.GetSubject()
}

// extractBearer looks for a token in the Authorization header (Bearer scheme).
func extractBearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
