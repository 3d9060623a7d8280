package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rmorales/supplysync-backend/api/responses"
	"github.com/rmorales/supplysync-backend/api/validators"
	"github.com/rmorales/supplysync-backend/internal/snapshots"
	"github.com/rmorales/supplysync-backend/internal/syncer"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
	"github.com/rmorales/supplysync-backend/pkg/logger"
	"github.com/rmorales/supplysync-backend/pkg/pagination"
)

type syncTriggerRequest struct {
	PairID uuid.UUID `json:"pair_id" validate:"required"`
	SKU    string    `json:"sku" validate:"required,min=1"`
}

// SyncTrigger runs one sync cycle for a single SKU on demand.
func SyncTrigger(svc syncer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload syncTriggerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ApplyAndDispatch(r.Context(), scope, payload.PairID, payload.SKU)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SnapshotList returns a cursor-paginated page of a pair's price snapshots.
func SnapshotList(svc snapshots.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "snapshot service unavailable"))
			return
		}
		scope, err := requireScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pairID, err := parseUUIDParam(r, "pairId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenantID, err := tenantQueryParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}
		page, err := svc.ListByPair(r.Context(), scope, tenantID, pairID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
