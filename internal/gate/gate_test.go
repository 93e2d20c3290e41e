package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"edunexus.org/internal/identity"
)

func newGate(t *testing.T) (*Gate, *identity.TokenService) {
	t.Helper()
	tokens, err := identity.NewTokenService("gate-test-secret", "edunexus", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return New(tokens), tokens
}

func issue(t *testing.T, tokens *identity.TokenService, role identity.Role) string {
	t.Helper()
	token, _, err := tokens.Issue(&identity.User{ID: "u-" + string(role), Role: role})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func request(g *Gate, path, cookie string) *httptest.ResponseRecorder {
	passed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("page"))
	})
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: cookie})
	}
	rr := httptest.NewRecorder()
	g.Middleware(passed).ServeHTTP(rr, req)
	return rr
}

func TestAnonymousRedirectedToLogin(t *testing.T) {
	g, _ := newGate(t)
	for _, path := range []string{"/admin/home", "/teacher/classes", "/student", "/hr/reports", "/employee/home", "/super-admin/home"} {
		rr := request(g, path, "")
		if rr.Code != http.StatusSeeOther {
			t.Errorf("%s anonymous = %d, want 303", path, rr.Code)
			continue
		}
		if loc := rr.Header().Get("Location"); loc != LoginPath {
			t.Errorf("%s redirected to %q, want %q", path, loc, LoginPath)
		}
	}
}

func TestAnonymousPassesOnPublicPaths(t *testing.T) {
	g, _ := newGate(t)
	for _, path := range []string{LoginPath, "/", "/about"} {
		if rr := request(g, path, ""); rr.Code != http.StatusOK {
			t.Errorf("%s anonymous = %d, want 200", path, rr.Code)
		}
	}
}

func TestInvalidCookieClearedAndRedirected(t *testing.T) {
	g, _ := newGate(t)
	rr := request(g, "/admin/home", "not-a-real-token")
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != LoginPath {
		t.Fatalf("location = %q, want %q", loc, LoginPath)
	}
	var cleared bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == SessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("stale cookie not cleared")
	}
}

func TestAuthenticatedOnLoginRedirectsToLanding(t *testing.T) {
	g, tokens := newGate(t)
	cases := map[identity.Role]string{
		identity.RoleSuperAdmin: "/super-admin/home",
		identity.RoleAdmin:      "/admin/home",
		identity.RoleTeacher:    "/teacher/home",
		identity.RoleStudent:    "/student/home",
		identity.RoleHR:         "/hr/home",
		identity.RoleEmployee:   "/employee/home",
	}
	for role, landing := range cases {
		rr := request(g, LoginPath, issue(t, tokens, role))
		if rr.Code != http.StatusSeeOther {
			t.Errorf("%s on /login = %d, want 303", role, rr.Code)
			continue
		}
		if loc := rr.Header().Get("Location"); loc != landing {
			t.Errorf("%s landing = %q, want %q", role, loc, landing)
		}
	}
}

func TestForeignAreaRedirectsToOwnLanding(t *testing.T) {
	g, tokens := newGate(t)
	student := issue(t, tokens, identity.RoleStudent)

	for _, path := range []string{"/teacher/home", "/admin/settings", "/hr"} {
		rr := request(g, path, student)
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("student on %s = %d, want 303", path, rr.Code)
		}
		if loc := rr.Header().Get("Location"); loc != "/student/home" {
			t.Fatalf("student on %s redirected to %q, want /student/home", path, loc)
		}
	}
}

func TestOwnAreaAndPublicPass(t *testing.T) {
	g, tokens := newGate(t)
	teacher := issue(t, tokens, identity.RoleTeacher)

	for _, path := range []string{"/teacher/home", "/teacher/classes/42", "/about"} {
		if rr := request(g, path, teacher); rr.Code != http.StatusOK {
			t.Errorf("teacher on %s = %d, want 200", path, rr.Code)
		}
	}
}

func TestPrefixMatchingIsSegmentAware(t *testing.T) {
	g, tokens := newGate(t)
	// "/hrx" must not be treated as the /hr area.
	if rr := request(g, "/hrx/page", ""); rr.Code != http.StatusOK {
		t.Fatalf("/hrx anonymous = %d, want 200 (not a protected area)", rr.Code)
	}
	// But a teacher inside "/hr" proper is bounced.
	if rr := request(g, "/hr", issue(t, tokens, identity.RoleTeacher)); rr.Code != http.StatusSeeOther {
		t.Fatalf("teacher on /hr = %d, want 303", rr.Code)
	}
}
