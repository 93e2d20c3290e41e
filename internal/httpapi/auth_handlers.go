package httpapi

import (
	"net/http"
	"time"

	"edunexus.org/internal/audit"
	"edunexus.org/internal/identity"
	"edunexus.org/internal/obs"
)

type registerRequest struct {
	Name        string           `json:"name" validate:"required"`
	Email       string           `json:"email" validate:"required,email"`
	Password    string           `json:"password" validate:"required,min=6"`
	Role        string           `json:"role" validate:"required"`
	InstituteID string           `json:"institute_id"`
	Profile     identity.Profile `json:"profile"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name    *string           `json:"name"`
	Profile *identity.Profile `json:"profile"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
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
	_ = audit.LogEvent(r.Context(), "identity.register", map[string]any{
		"user_id": user.ID, "code": user.Code, "role": string(user.Role),
	})
	writeSuccess(w, http.StatusCreated, "registration successful", user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.CountLogin("failure")
		_ = audit.LogEvent(r.Context(), "identity.login.failure", map[string]any{"email": req.Email})
		handleIdentityError(w, r, err)
		return
	}
	obs.CountLogin("success")
	_ = audit.LogEvent(r.Context(), "identity.login.success", map[string]any{
		"user_id": res.User.ID, "role": string(res.User.Role),
	})

	a.setSessionCookie(w, res.Token, res.ExpiresAt)
	writeSuccess(w, http.StatusOK, "login successful", map[string]any{
		"user":  res.User,
		"token": res.Token,
	})
}

// handleLogout clears the session cookie. Issued tokens stay valid until
// they expire; logout is purely a client-side session drop.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.clearSessionCookie(w)
	writeSuccess(w, http.StatusOK, "logout successful", nil)
}

// handleMe returns the caller joined with its institute's name and type.
// A dangling affiliation (institute since deleted) degrades to the bare
// user, not an error.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	resp := map[string]any{"user": user}
	if user.InstituteID != "" {
		if inst, err := a.svc.GetInstitute(r.Context(), user.InstituteID); err == nil {
			resp["institute"] = map[string]any{
				"id":   inst.ID,
				"name": inst.Name,
				"type": inst.Type,
			}
		}
	}
	writeSuccess(w, http.StatusOK, "ok", resp)
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.svc.UpdateProfile(r.Context(), user.ID, req.Name, req.Profile)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "profile updated", updated)
}

func (a *API) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   a.opts.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (a *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.opts.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}
