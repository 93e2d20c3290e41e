package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"edunexus.org/internal/identity"
)

// memStore is a minimal in-memory identity.Store for handler tests.
type memStore struct {
	mu         sync.Mutex
	users      map[string]*identity.User
	institutes map[string]*identity.Institute
	members    map[string]map[string][]string
	sequences  map[string]int64
}

func newMemStore() *memStore {
	return &memStore{
		users:      make(map[string]*identity.User),
		institutes: make(map[string]*identity.Institute),
		members:    make(map[string]map[string][]string),
		sequences:  make(map[string]int64),
	}
}

func (m *memStore) Users() identity.UserStore           { return (*memUsers)(m) }
func (m *memStore) Institutes() identity.InstituteStore { return (*memInstitutes)(m) }
func (m *memStore) Sequences() identity.SequenceStore   { return (*memSequences)(m) }

type memUsers memStore

func (m *memUsers) Create(_ context.Context, u *identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return identity.ErrConflict
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) Find(_ context.Context, id string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (m *memUsers) List(_ context.Context, filter identity.UserFilter) ([]*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*identity.User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.InstituteID != "" && u.InstituteID != filter.InstituteID {
			continue
		}
		cp := *u
		cp.PasswordHash = ""
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memUsers) Update(_ context.Context, id string, upd identity.UserUpdate) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.Status != nil {
		u.Status = *upd.Status
	}
	if upd.InstituteID != nil {
		u.InstituteID = *upd.InstituteID
	}
	if upd.Profile != nil {
		u.Profile = *upd.Profile
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp, nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return identity.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) RecordLoginSuccess(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return identity.ErrNotFound
	}
	now := time.Now().UTC()
	u.FailedAttempts = 0
	u.LastLogin = &now
	return nil
}

func (m *memUsers) RecordLoginFailure(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, identity.ErrNotFound
	}
	u.FailedAttempts++
	return u.FailedAttempts, nil
}

type memInstitutes memStore

func (m *memInstitutes) Create(_ context.Context, inst *identity.Institute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inst
	m.institutes[inst.ID] = &cp
	return nil
}

func (m *memInstitutes) Find(_ context.Context, id string) (*identity.Institute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.institutes[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *inst
	cp.Teachers = append([]string(nil), m.members[id]["teachers"]...)
	cp.Students = append([]string(nil), m.members[id]["students"]...)
	cp.Employees = append([]string(nil), m.members[id]["employees"]...)
	cp.HRManagers = append([]string(nil), m.members[id]["hr_managers"]...)
	return &cp, nil
}

func (m *memInstitutes) List(_ context.Context) ([]*identity.Institute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*identity.Institute
	for _, inst := range m.institutes {
		cp := *inst
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memInstitutes) Update(_ context.Context, id string, upd identity.InstituteUpdate) (*identity.Institute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.institutes[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	if upd.Name != nil {
		inst.Name = *upd.Name
	}
	if upd.Address != nil {
		inst.Address = *upd.Address
	}
	if upd.ContactEmail != nil {
		inst.ContactEmail = *upd.ContactEmail
	}
	if upd.ContactPhone != nil {
		inst.ContactPhone = *upd.ContactPhone
	}
	if upd.Status != nil {
		inst.Status = *upd.Status
	}
	cp := *inst
	return &cp, nil
}

func (m *memInstitutes) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.institutes[id]; !ok {
		return identity.ErrNotFound
	}
	delete(m.institutes, id)
	return nil
}

func (m *memInstitutes) AddMember(_ context.Context, instituteID, bucket, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.institutes[instituteID]; !ok {
		return identity.ErrNotFound
	}
	if m.members[instituteID] == nil {
		m.members[instituteID] = make(map[string][]string)
	}
	m.members[instituteID][bucket] = append(m.members[instituteID][bucket], userID)
	return nil
}

type memSequences memStore

func (m *memSequences) Next(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[key]++
	return m.sequences[key], nil
}

type testEnv struct {
	api   *API
	svc   *identity.Service
	store *memStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	tokens, err := identity.NewTokenService("handler-test-secret", "edunexus", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	svc, err := identity.NewService(store, tokens)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	api := New(svc, ReadyProbe{}, Options{Version: "test", CORSOrigin: "http://localhost:3000", MaxBodyBytes: 1 << 20})
	return &testEnv{api: api, svc: svc, store: store}
}

func (e *testEnv) seedInstitute(t *testing.T, id string, typ identity.InstituteType) {
	t.Helper()
	err := e.store.Institutes().Create(context.Background(), &identity.Institute{
		ID: id, Code: "INST-0001", Name: "Seeded", Type: typ, Status: identity.StatusActive,
	})
	if err != nil {
		t.Fatalf("seed institute: %v", err)
	}
}

func (e *testEnv) register(t *testing.T, role identity.Role, email, instituteID string) *identity.User {
	t.Helper()
	u, err := e.svc.Register(context.Background(), identity.RegisterInput{
		Name: "Test " + string(role), Email: email, Password: "secret123",
		Role: role, InstituteID: instituteID,
	})
	if err != nil {
		t.Fatalf("register %s: %v", role, err)
	}
	return u
}

func (e *testEnv) token(t *testing.T, email string) string {
	t.Helper()
	res, err := e.svc.Login(context.Background(), email, "secret123")
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return res.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}
	rr := httptest.NewRecorder()
	e.api.mux.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) (bool, string, json.RawMessage) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, rr.Body.String())
	}
	return env.Success, env.Message, env.Data
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "OK" {
		t.Errorf("status field = %v, want OK", body["status"])
	}
	for _, key := range []string{"timestamp", "uptime"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing %q in health body", key)
		}
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstitute(t, "inst-1", identity.TypeSchool)
	env.register(t, identity.RoleTeacher, "t@school.test", "inst-1")

	rr := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "t@school.test", "password": "secret123",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	success, _, _ := decodeEnvelope(t, rr)
	if !success {
		t.Fatal("envelope success = false")
	}

	var session *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == SessionCookie {
			session = c
		}
	}
	if session == nil {
		t.Fatal("session cookie not set")
	}
	if !session.HttpOnly {
		t.Error("cookie not HttpOnly")
	}
	if session.SameSite != http.SameSiteStrictMode {
		t.Errorf("SameSite = %v, want Strict", session.SameSite)
	}
	if session.MaxAge < 6*24*3600 {
		t.Errorf("MaxAge = %d, want ~7 days", session.MaxAge)
	}
}

func TestLoginFailureReturnsEnvelope(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstitute(t, "inst-1", identity.TypeSchool)
	env.register(t, identity.RoleTeacher, "t@school.test", "inst-1")

	rr := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "t@school.test", "password": "wrong-pass",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	success, msg, _ := decodeEnvelope(t, rr)
	if success {
		t.Fatal("envelope success = true on failure")
	}
	if !strings.Contains(msg, "invalid credentials") {
		t.Errorf("message = %q", msg)
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == SessionCookie && c.Value != "" {
			t.Error("cookie set on failed login")
		}
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var cleared bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == SessionCookie && c.MaxAge < 0 && c.Value == "" {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("session cookie not cleared")
	}
}

func TestMeRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstitute(t, "inst-1", identity.TypeSchool)
	reg := env.register(t, identity.RoleStudent, "s@school.test", "inst-1")

	if rr := env.do(t, http.MethodGet, "/api/auth/me", "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("no cookie = %d, want 401", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/api/auth/me", "garbage-token", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad cookie = %d, want 401", rr.Code)
	}

	rr := env.do(t, http.MethodGet, "/api/auth/me", env.token(t, "s@school.test"), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	_, _, data := decodeEnvelope(t, rr)
	var me struct {
		User      identity.User `json:"user"`
		Institute struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"institute"`
	}
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.User.ID != reg.ID {
		t.Errorf("me.user.id = %q, want %q", me.User.ID, reg.ID)
	}
	if me.Institute.Name != "Seeded" || me.Institute.Type != "school" {
		t.Errorf("institute join = %+v, want name Seeded type school", me.Institute)
	}
	if strings.Contains(string(data), "password") {
		t.Error("password material in response")
	}
}

func TestMeWithoutInstitute(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, identity.RoleSuperAdmin, "root@edunexus.test", "")

	rr := env.do(t, http.MethodGet, "/api/auth/me", env.token(t, "root@edunexus.test"), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (body: %s)", rr.Code, rr.Body.String())
	}
	_, _, data := decodeEnvelope(t, rr)
	var me map[string]json.RawMessage
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if _, ok := me["institute"]; ok {
		t.Error("unaffiliated caller got an institute join")
	}
}

func TestBearerFallback(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstitute(t, "inst-1", identity.TypeSchool)
	env.register(t, identity.RoleStudent, "s@school.test", "inst-1")
	token := env.token(t, "s@school.test")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	env.api.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("bearer auth = %d, want 200", rr.Code)
	}
}

func TestRoleEnforcementOrdering(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstitute(t, "inst-1", identity.TypeSchool)
	env.register(t, identity.RoleStudent, "s@school.test", "inst-1")

	// Unauthenticated first: 401, never 403.
	if rr := env.do(t, http.MethodGet, "/api/users", "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d, want 401", rr.Code)
	}
	// Authenticated but not allowed: 403.
	if rr := env.do(t, http.MethodGet, "/api/users", env.token(t, "s@school.test"), nil); rr.Code != http.StatusForbidden {
		t.Fatalf("student = %d, want 403", rr.Code)
	}
}

func TestSuperAdminBypassesRoleChecks(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, identity.RoleSuperAdmin, "root@edunexus.test", "")
	token := env.token(t, "root@edunexus.test")

	for _, path := range []string{"/api/users", "/api/institutes", "/api/teachers", "/api/students", "/api/employees", "/api/hr"} {
		if rr := env.do(t, http.MethodGet, path, token, nil); rr.Code != http.StatusOK {
			t.Errorf("GET %s as super_admin = %d, want 200", path, rr.Code)
		}
	}
}

func TestStaffResourcePinsRole(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstitute(t, "inst-1", identity.TypeSchool)
	env.register(t, identity.RoleAdmin, "a@school.test", "inst-1")
	token := env.token(t, "a@school.test")

	rr := env.do(t, http.MethodPost, "/api/teachers", token, map[string]any{
		"name": "New Teacher", "email": "nt@school.test",
		"password": "secret123", "institute_id": "inst-1",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create teacher = %d (body: %s)", rr.Code, rr.Body.String())
	}
	_, _, data := decodeEnvelope(t, rr)
	var created identity.User
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.Role != identity.RoleTeacher {
		t.Errorf("role = %s, want teacher", created.Role)
	}
	if !strings.HasPrefix(created.Code, "TEA-") {
		t.Errorf("code = %q, want TEA- prefix", created.Code)
	}

	// The teacher id is invisible through the students resource.
	if rr := env.do(t, http.MethodGet, "/api/students/"+created.ID, token, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("teacher via /api/students = %d, want 404", rr.Code)
	}
}

func TestCreateInstituteIsSuperAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstitute(t, "inst-1", identity.TypeSchool)
	admin := env.register(t, identity.RoleAdmin, "a@school.test", "inst-1")
	env.register(t, identity.RoleSuperAdmin, "root@edunexus.test", "")

	body := map[string]any{
		"name": "Green Valley", "type": "school", "owner_id": admin.ID,
	}
	if rr := env.do(t, http.MethodPost, "/api/institutes", env.token(t, "a@school.test"), body); rr.Code != http.StatusForbidden {
		t.Fatalf("admin create institute = %d, want 403", rr.Code)
	}

	rr := env.do(t, http.MethodPost, "/api/institutes", env.token(t, "root@edunexus.test"), body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("super_admin create institute = %d (body: %s)", rr.Code, rr.Body.String())
	}
	_, _, data := decodeEnvelope(t, rr)
	var inst identity.Institute
	if err := json.Unmarshal(data, &inst); err != nil {
		t.Fatalf("decode institute: %v", err)
	}
	if !strings.HasPrefix(inst.Code, "INST-") {
		t.Errorf("code = %q, want INST- prefix", inst.Code)
	}
}

func TestRegisterRejectsIllegalRoleForInstituteType(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstitute(t, "corp-1", identity.TypeCompany)

	rr := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Misplaced", "email": "m@corp.test", "password": "secret123",
		"role": "student", "institute_id": "corp-1",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body: %s)", rr.Code, rr.Body.String())
	}
	success, msg, _ := decodeEnvelope(t, rr)
	if success {
		t.Fatal("envelope success = true")
	}
	if !strings.Contains(msg, "does not accept role") {
		t.Errorf("message = %q", msg)
	}
}

func TestValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing email", map[string]any{"name": "A", "password": "secret123", "role": "student"}},
		{"bad email", map[string]any{"name": "A", "email": "nope", "password": "secret123", "role": "student"}},
		{"short password", map[string]any{"name": "A", "email": "a@b.test", "password": "abc", "role": "student"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/auth/register", "", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body: %s)", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestUnknownPathEnvelope(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/nope", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	success, _, _ := decodeEnvelope(t, rr)
	if success {
		t.Fatal("envelope success = true on 404")
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstitute(t, "inst-1", identity.TypeSchool)
	env.register(t, identity.RoleTeacher, "t@school.test", "inst-1")
	token := env.token(t, "t@school.test")

	rr := env.do(t, http.MethodPut, "/api/auth/profile", token, map[string]any{
		"name":    "Renamed Teacher",
		"profile": map[string]any{"subject": "physics", "experience": 5},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (body: %s)", rr.Code, rr.Body.String())
	}
	_, _, data := decodeEnvelope(t, rr)
	var updated identity.User
	if err := json.Unmarshal(data, &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Name != "Renamed Teacher" {
		t.Errorf("name = %q", updated.Name)
	}
	if updated.Profile.Subject != "physics" {
		t.Errorf("subject = %q", updated.Profile.Subject)
	}
}

func TestDeleteUserIsSuperAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstitute(t, "inst-1", identity.TypeSchool)
	env.register(t, identity.RoleAdmin, "a@school.test", "inst-1")
	env.register(t, identity.RoleSuperAdmin, "root@edunexus.test", "")
	victim := env.register(t, identity.RoleStudent, "s@school.test", "inst-1")

	adminToken := env.token(t, "a@school.test")
	if rr := env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%s", victim.ID), adminToken, nil); rr.Code != http.StatusForbidden {
		t.Fatalf("admin delete user = %d, want 403", rr.Code)
	}

	rootToken := env.token(t, "root@edunexus.test")
	rr := env.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%s", victim.ID), rootToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("super_admin delete user = %d (body: %s)", rr.Code, rr.Body.String())
	}
	if rr := env.do(t, http.MethodGet, fmt.Sprintf("/api/users/%s", victim.ID), rootToken, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("get deleted = %d, want 404", rr.Code)
	}
}

func TestStudentsMutationsDeniedToTeachers(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstitute(t, "inst-1", identity.TypeSchool)
	env.register(t, identity.RoleTeacher, "t@school.test", "inst-1")
	student := env.register(t, identity.RoleStudent, "s@school.test", "inst-1")
	token := env.token(t, "t@school.test")

	if rr := env.do(t, http.MethodGet, "/api/students", token, nil); rr.Code != http.StatusOK {
		t.Fatalf("teacher list students = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	if rr := env.do(t, http.MethodDelete, "/api/students/"+student.ID, token, nil); rr.Code != http.StatusForbidden {
		t.Fatalf("teacher delete student = %d, want 403", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/students", token, map[string]any{
		"name": "New Student", "email": "ns@school.test",
		"password": "secret123", "institute_id": "inst-1",
	}); rr.Code != http.StatusForbidden {
		t.Fatalf("teacher create student = %d, want 403", rr.Code)
	}
	if rr := env.do(t, http.MethodPut, "/api/students/"+student.ID, token, map[string]any{
		"name": "Renamed",
	}); rr.Code != http.StatusForbidden {
		t.Fatalf("teacher update student = %d, want 403", rr.Code)
	}
}

func TestHRManagesEmployeesAndHR(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstitute(t, "corp-1", identity.TypeCompany)
	env.register(t, identity.RoleHR, "hr@corp.test", "corp-1")
	token := env.token(t, "hr@corp.test")

	for _, path := range []string{"/api/employees", "/api/hr"} {
		if rr := env.do(t, http.MethodGet, path, token, nil); rr.Code != http.StatusOK {
			t.Errorf("hr GET %s = %d, want 200", path, rr.Code)
		}
	}
	rr := env.do(t, http.MethodPost, "/api/employees", token, map[string]any{
		"name": "New Employee", "email": "e@corp.test",
		"password": "secret123", "institute_id": "corp-1",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("hr create employee = %d (body: %s)", rr.Code, rr.Body.String())
	}
}

func TestReadsOpenToAnyAuthenticated(t *testing.T) {
	env := newTestEnv(t)
	env.seedInstitute(t, "inst-1", identity.TypeSchool)
	other := env.register(t, identity.RoleTeacher, "t@school.test", "inst-1")
	env.register(t, identity.RoleStudent, "s@school.test", "inst-1")
	token := env.token(t, "s@school.test")

	if rr := env.do(t, http.MethodGet, "/api/users/"+other.ID, token, nil); rr.Code != http.StatusOK {
		t.Errorf("student GET user by id = %d, want 200", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/api/institutes", token, nil); rr.Code != http.StatusOK {
		t.Errorf("student GET institutes = %d, want 200", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/api/institutes/inst-1", token, nil); rr.Code != http.StatusOK {
		t.Errorf("student GET institute by id = %d, want 200", rr.Code)
	}
	// Anonymous reads stay shut.
	if rr := env.do(t, http.MethodGet, "/api/users/"+other.ID, "", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous GET user by id = %d, want 401", rr.Code)
	}
}
