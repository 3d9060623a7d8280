package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rmorales/supplysync-backend/api/responses"
	"github.com/rmorales/supplysync-backend/api/validators"
	"github.com/rmorales/supplysync-backend/internal/suppliers"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
	"github.com/rmorales/supplysync-backend/pkg/logger"
)

type supplierCreateRequest struct {
	TenantID      *uuid.UUID `json:"tenant_id,omitempty"`
	Name          string     `json:"name" validate:"required,min=1"`
	ClientType    string     `json:"client_type" validate:"required"`
	EndpointURL   string     `json:"endpoint_url" validate:"required,url"`
	CredentialRef string     `json:"credential_ref" validate:"required,min=1"`
	Capabilities  []string   `json:"capabilities,omitempty"`
}

func (r supplierCreateRequest) toInput() suppliers.CreateInput {
	return suppliers.CreateInput{
		TenantID:      r.TenantID,
		Name:          r.Name,
		ClientType:    strings.ToLower(strings.TrimSpace(r.ClientType)),
		EndpointURL:   r.EndpointURL,
		CredentialRef: r.CredentialRef,
		Capabilities:  r.Capabilities,
	}
}

// SupplierCreate registers a supplier in pending_validation state.
func SupplierCreate(svc suppliers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload supplierCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), scope, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// SupplierList returns the scope's suppliers. Super admins name a tenant
// with the tenant_id query parameter.
func SupplierList(svc suppliers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenantID, err := tenantQueryParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dtos, err := svc.List(r.Context(), scope, tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dtos)
	}
}

func SupplierDetail(svc suppliers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), scope, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

type supplierUpdateRequest struct {
	Name          *string   `json:"name,omitempty" validate:"omitempty,min=1"`
	EndpointURL   *string   `json:"endpoint_url,omitempty" validate:"omitempty,url"`
	CredentialRef *string   `json:"credential_ref,omitempty" validate:"omitempty,min=1"`
	Capabilities  *[]string `json:"capabilities,omitempty"`
	Status        *string   `json:"status,omitempty"`
}

func (r supplierUpdateRequest) toInput() suppliers.UpdateInput {
	return suppliers.UpdateInput{
		Name:          r.Name,
		EndpointURL:   r.EndpointURL,
		CredentialRef: r.CredentialRef,
		Capabilities:  r.Capabilities,
		Status:        r.Status,
	}
}

func SupplierUpdate(svc suppliers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload supplierUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Update(r.Context(), scope, id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func SupplierDelete(svc suppliers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), scope, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// SupplierTestConnection probes the supplier endpoint and activates it on success.
func SupplierTestConnection(svc suppliers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.TestConnection(r.Context(), scope, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
