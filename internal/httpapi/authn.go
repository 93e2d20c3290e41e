package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"edunexus.org/internal/identity"
)

const (
	// SessionCookie is the cookie the session token travels in. The page
	// gate reads the same cookie.
	SessionCookie = "token"

	authHeader = "Authorization"
	bearer     = "Bearer "
)

// sessionToken pulls the token from the session cookie first, falling back
// to an Authorization bearer header for non-browser clients.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return ""
	}
	return strings.TrimSpace(header[len(bearer):])
}

// withAuth authenticates the request and attaches the identity to the
// context. Missing or invalid sessions end here with a 401; role checks
// come later so an unauthenticated caller never sees a 403.
func (a *API) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		user, err := a.svc.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidToken) {
				writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}
		next(w, r.WithContext(identity.ContextWithUser(r.Context(), user)))
	}
}

// requireRoles wraps an authenticated handler with an allow-list check.
// super_admin passes every list via identity.Authorize.
func (a *API) requireRoles(next http.HandlerFunc, allowed ...identity.Role) http.HandlerFunc {
	return a.withAuth(func(w http.ResponseWriter, r *http.Request) {
		user, ok := identity.UserFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		if err := identity.Authorize(user.Role, allowed...); err != nil {
			writeError(w, r, http.StatusForbidden, "access denied")
			return
		}
		next(w, r)
	})
}
