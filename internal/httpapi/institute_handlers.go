package httpapi

import (
	"net/http"

	"edunexus.org/internal/audit"
	"edunexus.org/internal/identity"
)

type createInstituteRequest struct {
	Name         string `json:"name" validate:"required"`
	Type         string `json:"type" validate:"required"`
	Address      string `json:"address"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone"`
	OwnerID      string `json:"owner_id" validate:"required"`
}

type updateInstituteRequest struct {
	Name         *string `json:"name"`
	Address      *string `json:"address"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone *string `json:"contact_phone"`
	Status       *string `json:"status"`
}

func (a *API) handleListInstitutes(w http.ResponseWriter, r *http.Request) {
	institutes, err := a.svc.ListInstitutes(r.Context())
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", institutes)
}

func (a *API) handleCreateInstitute(w http.ResponseWriter, r *http.Request) {
	var req createInstituteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	typ, err := identity.ParseInstituteType(req.Type)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	inst, err := a.svc.CreateInstitute(r.Context(), identity.InstituteInput{
		Name:         req.Name,
		Type:         typ,
		Address:      req.Address,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		OwnerID:      req.OwnerID,
	})
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "identity.institute.create", map[string]any{
		"institute_id": inst.ID, "code": inst.Code, "type": string(inst.Type),
	})
	writeSuccess(w, http.StatusCreated, "institute created", inst)
}

func (a *API) handleGetInstitute(w http.ResponseWriter, r *http.Request) {
	inst, err := a.svc.GetInstitute(r.Context(), r.PathValue("id"))
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", inst)
}

func (a *API) handleUpdateInstitute(w http.ResponseWriter, r *http.Request) {
	var req updateInstituteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	inst, err := a.svc.UpdateInstitute(r.Context(), r.PathValue("id"), identity.InstituteUpdate{
		Name:         req.Name,
		Address:      req.Address,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Status:       req.Status,
	})
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "identity.institute.update", map[string]any{"institute_id": inst.ID})
	writeSuccess(w, http.StatusOK, "institute updated", inst)
}

func (a *API) handleDeleteInstitute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.svc.DeleteInstitute(r.Context(), id); err != nil {
		handleIdentityError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "identity.institute.delete", map[string]any{"institute_id": id})
	writeSuccess(w, http.StatusOK, "institute deleted", nil)
}
