package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
)

func newJWTAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// NewAdminToken issues an HS256 admin token for subject, valid for ttl
func NewAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is not configured")
	}
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}

	claims := map[string]interface{}{
		"sub":  subject,
		"role": model.ActorAdmin,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, ttl)

	_, token, err := newJWTAuth(secret).Encode(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// requireAdmin rejects requests without a valid admin token. It is a no-op when auth is disabled.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.jwt == nil {
			next.ServeHTTP(w, r)
			return
		}

		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			s.respondMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if claims["role"] != model.ActorAdmin {
			s.respondMessage(w, http.StatusForbidden, "Admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isAdmin reports whether the request carries a valid admin token, or auth is disabled
func (s *Server) isAdmin(r *http.Request) bool {
	if s.jwt == nil {
		return true
	}
	token, claims, err := jwtauth.FromContext(r.Context())
	return err == nil && token != nil && claims["role"] == model.ActorAdmin
}

// subject returns the verified token subject, or "" without one
func subject(r *http.Request) string {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
