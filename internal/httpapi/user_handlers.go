package httpapi

import (
	"net/http"

	"edunexus.org/internal/audit"
	"edunexus.org/internal/identity"
)

type createUserRequest struct {
	Name        string           `json:"name" validate:"required"`
	Email       string           `json:"email" validate:"required,email"`
	Password    string           `json:"password" validate:"required,min=6"`
	Role        string           `json:"role" validate:"required"`
	InstituteID string           `json:"institute_id"`
	Profile     identity.Profile `json:"profile"`
}

type updateUserRequest struct {
	Name        *string           `json:"name"`
	Email       *string           `json:"email"`
	Password    string            `json:"password"`
	Role        *string           `json:"role"`
	Status      *string           `json:"status"`
	InstituteID *string           `json:"institute_id"`
	Profile     *identity.Profile `json:"profile"`
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	filter := identity.UserFilter{InstituteID: r.URL.Query().Get("institute_id")}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := identity.ParseRole(raw)
		if err != nil {
			handleIdentityError(w, r, err)
			return
		}
		filter.Role = role
	}
	users, err := a.svc.ListUsers(r.Context(), filter)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", users)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := identity.ParseRole(req.Role)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	user, err := a.svc.Register(r.Context(), identity.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Role:        role,
		InstituteID: req.InstituteID,
		Profile:     req.Profile,
	})
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "identity.user.create", map[string]any{
		"user_id": user.ID, "code": user.Code, "role": string(user.Role),
	})
	writeSuccess(w, http.StatusCreated, "user created", user)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.svc.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", user)
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	upd := identity.UserUpdate{
		Name:        req.Name,
		Email:       req.Email,
		Status:      req.Status,
		InstituteID: req.InstituteID,
		Profile:     req.Profile,
	}
	if req.Role != nil {
		role, err := identity.ParseRole(*req.Role)
		if err != nil {
			handleIdentityError(w, r, err)
			return
		}
		upd.Role = &role
	}
	user, err := a.svc.UpdateUser(r.Context(), r.PathValue("id"), upd, req.Password)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "identity.user.update", map[string]any{"user_id": user.ID})
	writeSuccess(w, http.StatusOK, "user updated", user)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.svc.DeleteUser(r.Context(), id); err != nil {
		handleIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "identity.user.delete", map[string]any{"user_id": id})
	writeSuccess(w, http.StatusOK, "user deleted", nil)
}
