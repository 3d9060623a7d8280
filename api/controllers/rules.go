package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmorales/supplysync-backend/api/responses"
	"github.com/rmorales/supplysync-backend/api/validators"
	"github.com/rmorales/supplysync-backend/internal/pricing"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
	"github.com/rmorales/supplysync-backend/pkg/logger"
)

type ruleCreateRequest struct {
	TenantID         *uuid.UUID      `json:"tenant_id,omitempty"`
	ConnectionPairID *uuid.UUID      `json:"connection_pair_id,omitempty"`
	RuleType         string          `json:"rule_type" validate:"required"`
	Priority         int             `json:"priority"`
	Amount           decimal.Decimal `json:"amount"`
	RoundPlaces      *int32          `json:"round_places,omitempty"`
	Active           bool            `json:"active"`
}

func (r ruleCreateRequest) toInput() pricing.RuleInput {
	return pricing.RuleInput{
		TenantID:         r.TenantID,
		ConnectionPairID: r.ConnectionPairID,
		RuleType:         r.RuleType,
		Priority:         r.Priority,
		Amount:           r.Amount,
		RoundPlaces:      r.RoundPlaces,
		Active:           r.Active,
	}
}

// RuleCreate registers a pricing rule, tenant-wide or pair-scoped.
func RuleCreate(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ruleCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateRule(r.Context(), scope, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func RuleList(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
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

		dtos, err := svc.ListRules(r.Context(), scope, tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dtos)
	}
}

func RuleDetail(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetRule(r.Context(), scope, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

type ruleUpdateRequest struct {
	Priority    *int             `json:"priority,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	RoundPlaces *int32           `json:"round_places,omitempty"`
	Active      *bool            `json:"active,omitempty"`
}

func (r ruleUpdateRequest) toInput() pricing.RuleUpdateInput {
	return pricing.RuleUpdateInput{
		Priority:    r.Priority,
		Amount:      r.Amount,
		RoundPlaces: r.RoundPlaces,
		Active:      r.Active,
	}
}

func RuleUpdate(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ruleUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateRule(r.Context(), scope, id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func RuleDelete(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteRule(r.Context(), scope, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
