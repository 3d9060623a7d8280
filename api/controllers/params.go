package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rmorales/supplysync-backend/internal/tenantctx"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
)

func requireScope(r *http.Request) (tenantctx.Scope, error) {
	return tenantctx.Require(r.Context())
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

// tenantQueryParam reads the optional tenant_id query parameter used by
// super admins to name the tenant they are acting on.
func tenantQueryParam(r *http.Request) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("tenant_id"))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant_id")
	}
	return &id, nil
}
