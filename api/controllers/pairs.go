package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rmorales/supplysync-backend/api/responses"
	"github.com/rmorales/supplysync-backend/api/validators"
	"github.com/rmorales/supplysync-backend/internal/pairs"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
	"github.com/rmorales/supplysync-backend/pkg/logger"
)

type pairCreateRequest struct {
	TenantID    *uuid.UUID `json:"tenant_id,omitempty"`
	SupplierID  uuid.UUID  `json:"supplier_id" validate:"required"`
	Destination string     `json:"destination" validate:"required,min=1"`
	Name        string     `json:"name" validate:"required,min=1"`
	Description *string    `json:"description,omitempty"`
	Currency    string     `json:"currency,omitempty"`
	TrackedSKUs []string   `json:"tracked_skus,omitempty"`
}

func (r pairCreateRequest) toInput() pairs.CreateInput {
	return pairs.CreateInput{
		TenantID:    r.TenantID,
		SupplierID:  r.SupplierID,
		Destination: r.Destination,
		Name:        r.Name,
		Description: r.Description,
		Currency:    r.Currency,
		TrackedSKUs: r.TrackedSKUs,
	}
}

// PairCreate registers a supplier-to-destination connection pair.
func PairCreate(svc pairs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pair service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload pairCreateRequest
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

func PairList(svc pairs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pair service unavailable"))
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

func PairDetail(svc pairs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pair service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "pairId")
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

type pairUpdateRequest struct {
	Name        *string   `json:"name,omitempty" validate:"omitempty,min=1"`
	Description *string   `json:"description,omitempty"`
	Enabled     *bool     `json:"enabled,omitempty"`
	Currency    *string   `json:"currency,omitempty"`
	TrackedSKUs *[]string `json:"tracked_skus,omitempty"`
}

func (r pairUpdateRequest) toInput() pairs.UpdateInput {
	return pairs.UpdateInput{
		Name:        r.Name,
		Description: r.Description,
		Enabled:     r.Enabled,
		Currency:    r.Currency,
		TrackedSKUs: r.TrackedSKUs,
	}
}

func PairUpdate(svc pairs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pair service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "pairId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload pairUpdateRequest
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

func PairDelete(svc pairs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pair service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "pairId")
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
