package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"edunexus.org/internal/identity"
	"edunexus.org/internal/obs"
)

// ReadyProbe checks the service's dependencies (for now: the database).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the deployment knobs the HTTP layer needs.
type Options struct {
	Version      string
	CORSOrigin   string
	SecureCookie bool
	RateBurst    int
	RatePerSec   int
	MaxBodyBytes int64
}

// API is the HTTP layer over the identity service.
type API struct {
	mux        *http.ServeMux
	svc        *identity.Service
	readyProbe ReadyProbe
	opts       Options
	started    time.Time
}

func New(svc *identity.Service, rp ReadyProbe, opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		svc:        svc,
		readyProbe: rp,
		opts:       opts,
		started:    time.Now(),
	}

	a.mux.HandleFunc("GET /health", a.Health)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.HandleFunc("POST /api/auth/register", a.handleRegister)
	a.mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	a.mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	a.mux.HandleFunc("GET /api/auth/me", a.withAuth(a.handleMe))
	a.mux.HandleFunc("PUT /api/auth/profile", a.withAuth(a.handleUpdateProfile))

	// User collection: get-by-id is open to any authenticated caller, the
	// rest is admin work, and deletion is reserved for super_admin (an
	// empty allow-list admits nobody but the bypass role).
	a.mux.HandleFunc("GET /api/users", a.requireRoles(a.handleListUsers, identity.RoleAdmin))
	a.mux.HandleFunc("POST /api/users", a.requireRoles(a.handleCreateUser, identity.RoleAdmin))
	a.mux.HandleFunc("GET /api/users/{id}", a.withAuth(a.handleGetUser))
	a.mux.HandleFunc("PUT /api/users/{id}", a.requireRoles(a.handleUpdateUser, identity.RoleAdmin))
	a.mux.HandleFunc("DELETE /api/users/{id}", a.requireRoles(a.handleDeleteUser))

	// Institutes: readable by any authenticated caller; provisioning and
	// teardown belong to the platform operator.
	a.mux.HandleFunc("GET /api/institutes", a.withAuth(a.handleListInstitutes))
	a.mux.HandleFunc("POST /api/institutes", a.requireRoles(a.handleCreateInstitute))
	a.mux.HandleFunc("GET /api/institutes/{id}", a.withAuth(a.handleGetInstitute))
	a.mux.HandleFunc("PUT /api/institutes/{id}", a.requireRoles(a.handleUpdateInstitute, identity.RoleAdmin))
	a.mux.HandleFunc("DELETE /api/institutes/{id}", a.requireRoles(a.handleDeleteInstitute))

	// Role-scoped resources. Each is the user collection narrowed to one
	// role, with separate read and mutate allow-lists: teachers may list
	// students but never create, update or delete them.
	admins := []identity.Role{identity.RoleAdmin}
	adminAndHR := []identity.Role{identity.RoleAdmin, identity.RoleHR}
	a.registerRoleResource("teachers", identity.RoleTeacher, admins, admins)
	a.registerRoleResource("students", identity.RoleStudent,
		[]identity.Role{identity.RoleAdmin, identity.RoleTeacher}, admins)
	a.registerRoleResource("employees", identity.RoleEmployee, adminAndHR, adminAndHR)
	a.registerRoleResource("hr", identity.RoleHR, adminAndHR, adminAndHR)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	if a.opts.RateBurst > 0 && a.opts.RatePerSec > 0 {
		h = RateLimit(h, a.opts.RateBurst, a.opts.RatePerSec)
	}
	h = CORS(h, a.opts.CORSOrigin)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(a.started).Round(time.Second).String(),
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
