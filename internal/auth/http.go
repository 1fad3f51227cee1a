// ABOUTME: HTTP middleware for JWT authentication on admin API endpoints
// ABOUTME: Extracts JWT from Authorization header and adds the subject to context

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// ExtractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func ExtractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// HTTPAuthMiddleware creates an HTTP middleware that extracts and validates JWT tokens
// and attaches the token subject to the request context.
func HTTPAuthMiddleware(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := ExtractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				writeAuthError(w, http.StatusUnauthorized, errMsg)
				return
			}

			subject, err := verifier.Verify(token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, ErrExpiredToken) {
					msg = "token expired"
				}
				logger.Debug("rejected admin token", "path", r.URL.Path, "error", err)
				writeAuthError(w, http.StatusUnauthorized, msg)
				return
			}

			ctx := WithAuth(r.Context(), &AuthContext{Subject: subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
