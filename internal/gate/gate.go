// Package gate guards page routes at the edge. It inspects the session
// cookie on every navigation, redirects anonymous visitors to the login
// page and keeps authenticated visitors inside their role's area. It only
// ever reads the token; issuing and clearing sessions is the API's job,
// except that a cookie that fails verification is dropped here so the
// browser stops presenting it.
package gate

import (
	"net/http"
	"strings"

	"edunexus.org/internal/identity"
)

// LoginPath is where anonymous visitors are sent.
const LoginPath = "/login"

// SessionCookie mirrors the cookie name the API issues.
const SessionCookie = "token"

// areaPrefixes maps each role to the path prefix it is confined to.
var areaPrefixes = map[identity.Role]string{
	identity.RoleSuperAdmin: "/super-admin",
	identity.RoleAdmin:      "/admin",
	identity.RoleTeacher:    "/teacher",
	identity.RoleStudent:    "/student",
	identity.RoleHR:         "/hr",
	identity.RoleEmployee:   "/employee",
}

// Landing returns the home page for a role.
func Landing(role identity.Role) string {
	prefix, ok := areaPrefixes[role]
	if !ok {
		return LoginPath
	}
	return prefix + "/home"
}

// protectedArea returns the role prefix the path belongs to, if any.
func protectedArea(path string) (string, bool) {
	for _, prefix := range areaPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return prefix, true
		}
	}
	return "", false
}

// Gate is the page middleware.
type Gate struct {
	tokens *identity.TokenService
}

func New(tokens *identity.TokenService) *Gate {
	return &Gate{tokens: tokens}
}

// Middleware applies the session rules before handing the request on:
//
//	no session + protected path  -> redirect to /login
//	no session + /login          -> pass
//	bad session                  -> drop cookie, redirect to /login
//	session + /login             -> redirect to the role's landing page
//	session + foreign role area  -> redirect to the role's landing page
//	session + own area or public -> pass
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		claims, hasSession := g.verifyCookie(r)
		if !hasSession {
			if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
				// Present but unverifiable: make the browser forget it.
				clearCookie(w)
			}
			if _, protected := protectedArea(path); protected {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		role := identity.Role(claims.Role)
		if path == LoginPath {
			http.Redirect(w, r, Landing(role), http.StatusSeeOther)
			return
		}
		if area, protected := protectedArea(path); protected && area != areaPrefixes[role] {
			http.Redirect(w, r, Landing(role), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) verifyCookie(r *http.Request) (*identity.Claims, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || strings.TrimSpace(c.Value) == "" {
		return nil, false
	}
	claims, err := g.tokens.Verify(c.Value)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
