// Package api implements the Waypoint REST API using chi.
package api

import (
	"net/http"
	"strings"

	"github.com/starford/waypoint/internal/apperr"
	"github.com/starford/waypoint/internal/identity"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
	AuthModeJWT      = "jwt"
)

// PrincipalHeader names the caller in disabled mode.
const PrincipalHeader = "X-Principal"

// Auth selects how requests are mapped to a caller principal.
type Auth struct {
	Mode string
	// Tokens maps static bearer tokens to principals (token mode).
	Tokens map[string]string
	// Secret is the HS256 signing key (jwt mode).
	Secret string
}

// AuthMiddleware resolves the caller and stores it in the request context.
//
//   - disabled: the X-Principal header names the caller, else anonymous.
//   - token: the bearer token must be one of Tokens.
//   - jwt: the bearer token must be a valid HS256 JWT; its subject is the caller.
func AuthMiddleware(a Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := a.principal(r)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errResponse{Error: "unauthorized", Kind: apperr.Tag(apperr.ErrUnauthorized)})
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), p)))
		})
	}
}

func (a Auth) principal(r *http.Request) (identity.Principal, bool) {
	switch a.Mode {
	case AuthModeToken:
		raw, ok := bearer(r)
		if !ok {
			return identity.Principal{}, false
		}
		name, ok := a.Tokens[raw]
		if !ok || name == "" {
			return identity.Principal{}, false
		}
		return identity.New(name), true
	case AuthModeJWT:
		raw, ok := bearer(r)
		if !ok {
			return identity.Principal{}, false
		}
		sub, err := ParseToken(a.Secret, raw)
		if err != nil {
			return identity.Principal{}, false
		}
		return identity.New(sub), true
	default:
		if h := r.Header.Get(PrincipalHeader); h != "" {
			return identity.New(h), true
		}
		return identity.Anonymous, true
	}
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}
