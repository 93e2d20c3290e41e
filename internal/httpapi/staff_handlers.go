package httpapi

import (
	"fmt"
	"net/http"

	"edunexus.org/internal/audit"
	"edunexus.org/internal/identity"
)

// roleResource serves one role-scoped slice of the user collection:
// /api/teachers is the user set pinned to role teacher, and so on. Create
// requests cannot smuggle a different role in; the handler pins it.
type roleResource struct {
	api  *API
	name string
	role identity.Role
}

// registerRoleResource mounts the five verbs with distinct allow-lists:
// read covers list and get-by-id, mutate covers create/update/delete.
func (a *API) registerRoleResource(name string, role identity.Role, read, mutate []identity.Role) {
	res := &roleResource{api: a, name: name, role: role}
	base := "/api/" + name
	a.mux.HandleFunc("GET "+base, a.requireRoles(res.list, read...))
	a.mux.HandleFunc("GET "+base+"/{id}", a.requireRoles(res.get, read...))
	a.mux.HandleFunc("POST "+base, a.requireRoles(res.create, mutate...))
	a.mux.HandleFunc("PUT "+base+"/{id}", a.requireRoles(res.update, mutate...))
	a.mux.HandleFunc("DELETE "+base+"/{id}", a.requireRoles(res.remove, mutate...))
}

type createStaffRequest struct {
	Name        string           `json:"name" validate:"required"`
	Email       string           `json:"email" validate:"required,email"`
	Password    string           `json:"password" validate:"required,min=6"`
	InstituteID string           `json:"institute_id" validate:"required"`
	Profile     identity.Profile `json:"profile"`
}

type updateStaffRequest struct {
	Name     *string           `json:"name"`
	Email    *string           `json:"email"`
	Password string            `json:"password"`
	Status   *string           `json:"status"`
	Profile  *identity.Profile `json:"profile"`
}

func (res *roleResource) list(w http.ResponseWriter, r *http.Request) {
	users, err := res.api.svc.ListUsers(r.Context(), identity.UserFilter{
		Role:        res.role,
		InstituteID: r.URL.Query().Get("institute_id"),
	})
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", users)
}

func (res *roleResource) create(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := res.api.svc.Register(r.Context(), identity.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Role:        res.role,
		InstituteID: req.InstituteID,
		Profile:     req.Profile,
	})
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), fmt.Sprintf("identity.%s.create", res.name), map[string]any{
		"user_id": user.ID, "code": user.Code,
	})
	writeSuccess(w, http.StatusCreated, "user created", user)
}

// get loads the record only when it actually carries this resource's role;
// a teacher id requested via /api/students is a 404, not a leak.
func (res *roleResource) get(w http.ResponseWriter, r *http.Request) {
	user, err := res.api.svc.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	if user.Role != res.role {
		writeError(w, r, http.StatusNotFound, "identity: not found")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", user)
}

func (res *roleResource) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	current, err := res.api.svc.GetUser(r.Context(), id)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	if current.Role != res.role {
		writeError(w, r, http.StatusNotFound, "identity: not found")
		return
	}
	var req updateStaffRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := res.api.svc.UpdateUser(r.Context(), id, identity.UserUpdate{
		Name:    req.Name,
		Email:   req.Email,
		Status:  req.Status,
		Profile: req.Profile,
	}, req.Password)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), fmt.Sprintf("identity.%s.update", res.name), map[string]any{"user_id": user.ID})
	writeSuccess(w, http.StatusOK, "user updated", user)
}

func (res *roleResource) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	current, err := res.api.svc.GetUser(r.Context(), id)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	if current.Role != res.role {
		writeError(w, r, http.StatusNotFound, "identity: not found")
		return
	}
	if err := res.api.svc.DeleteUser(r.Context(), id); err != nil {
		handleIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), fmt.Sprintf("identity.%s.delete", res.name), map[string]any{"user_id": id})
	writeSuccess(w, http.StatusOK, "user deleted", nil)
}
