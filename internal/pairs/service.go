package pairs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/rmorales/supplysync-backend/internal/tenantctx"
	"github.com/rmorales/supplysync-backend/pkg/db"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
	"github.com/rmorales/supplysync-backend/pkg/outbox"
	"github.com/rmorales/supplysync-backend/pkg/outbox/payloads"
)

// Service exposes connection pair registry operations.
type Service interface {
	Create(ctx context.Context, scope tenantctx.Scope, input CreateInput) (*PairDTO, error)
	Get(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) (*PairDTO, error)
	List(ctx context.Context, scope tenantctx.Scope, tenantID *uuid.UUID) ([]PairDTO, error)
	Update(ctx context.Context, scope tenantctx.Scope, id uuid.UUID, input UpdateInput) (*PairDTO, error)
	Delete(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) error
	ResolveForSync(ctx context.Context, scope tenantctx.Scope, tenantID *uuid.UUID) ([]PairDTO, error)
}

// CreateInput holds the validated payload to register a pair.
type CreateInput struct {
	TenantID    *uuid.UUID
	SupplierID  uuid.UUID
	Destination string
	Name        string
	Description *string
	Currency    string
	TrackedSKUs []string
}

// UpdateInput holds optional mutation values for a pair.
type UpdateInput struct {
	Name        *string
	Description *string
	Enabled     *bool
	Currency    *string
	TrackedSKUs *[]string
}

// PairDTO is the external representation of a connection pair.
type PairDTO struct {
	ID          uuid.UUID      `json:"id"`
	TenantID    uuid.UUID      `json:"tenant_id"`
	SupplierID  uuid.UUID      `json:"supplier_id"`
	Destination string         `json:"destination"`
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	Enabled     bool           `json:"enabled"`
	Currency    enums.Currency `json:"currency"`
	TrackedSKUs []string       `json:"tracked_skus"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type supplierLoader interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Supplier, error)
}

type eventEmitter interface {
	EmitCoalesced(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo      *Repository
	dbClient  *db.Client
	suppliers supplierLoader
	emitter   eventEmitter
}

// NewService constructs a connection pair service instance.
func NewService(repo *Repository, dbClient *db.Client, suppliers supplierLoader, emitter eventEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pair repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if suppliers == nil {
		return nil, fmt.Errorf("supplier loader required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{repo: repo, dbClient: dbClient, suppliers: suppliers, emitter: emitter}, nil
}

func (s *service) Create(ctx context.Context, scope tenantctx.Scope, input CreateInput) (*PairDTO, error) {
	tenantID, err := scope.ResolveTenant(input.TenantID)
	if err != nil {
		return nil, err
	}

	destination := strings.TrimSpace(input.Destination)
	if destination == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pair name is required")
	}
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}

	currency := enums.CurrencyUSD
	if strings.TrimSpace(input.Currency) != "" {
		parsed, err := enums.ParseCurrency(input.Currency)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		currency = parsed
	}

	supplier, err := s.suppliers.FindByID(ctx, tenantID, input.SupplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading supplier")
	}
	if supplier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}

	existing, err := s.repo.FindByScopeKey(ctx, tenantID, input.SupplierID, destination)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking pair uniqueness")
	}
	if existing != nil {
		return nil, duplicatePairError(tenantID, input.SupplierID, destination)
	}

	pair := models.ConnectionPair{
		TenantID:    tenantID,
		SupplierID:  input.SupplierID,
		Destination: destination,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Enabled:     true,
		Currency:    currency,
		TrackedSKUs: pq.StringArray(input.TrackedSKUs),
	}
	if err := s.repo.Create(ctx, &pair); err != nil {
		if db.IsUniqueViolation(err, "ux_connection_pairs_scope") {
			return nil, duplicatePairError(tenantID, input.SupplierID, destination)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating pair")
	}
	dto := toDTO(pair)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) (*PairDTO, error) {
	pair, err := s.load(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*pair)
	return &dto, nil
}

func (s *service) List(ctx context.Context, scope tenantctx.Scope, tenantID *uuid.UUID) ([]PairDTO, error) {
	resolved, err := scope.ResolveTenant(tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByTenant(ctx, resolved)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing pairs")
	}
	return toDTOs(rows), nil
}

func (s *service) Update(ctx context.Context, scope tenantctx.Scope, id uuid.UUID, input UpdateInput) (*PairDTO, error) {
	pair, err := s.load(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	disabling := false
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "pair name cannot be empty")
		}
		pair.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		pair.Description = input.Description
	}
	if input.Currency != nil {
		currency, err := enums.ParseCurrency(*input.Currency)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		pair.Currency = currency
	}
	if input.TrackedSKUs != nil {
		pair.TrackedSKUs = pq.StringArray(*input.TrackedSKUs)
	}
	if input.Enabled != nil {
		disabling = pair.Enabled && !*input.Enabled
		pair.Enabled = *input.Enabled
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, pair); err != nil {
			return err
		}
		if !disabling {
			return nil
		}
		disabledAt := time.Now().UTC()
		actorID := scope.ActorID()
		tenantID := pair.TenantID
		return s.emitter.EmitCoalesced(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventConnectionDisabled,
			AggregateType: enums.AggregateConnectionPair,
			AggregateID:   pair.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, TenantID: &tenantID, Role: scope.Role().String()},
			Version:       1,
			OccurredAt:    disabledAt,
			Data: payloads.ConnectionPairDisabledEvent{
				TenantID:         pair.TenantID,
				ConnectionPairID: pair.ID,
				SupplierID:       pair.SupplierID,
				Destination:      pair.Destination,
				DisabledAt:       disabledAt,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating pair")
	}
	dto := toDTO(*pair)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) error {
	pair, err := s.load(ctx, scope, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, pair.TenantID, pair.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting pair")
	}
	return nil
}

// ResolveForSync returns the enabled pairs the sync loop should process.
func (s *service) ResolveForSync(ctx context.Context, scope tenantctx.Scope, tenantID *uuid.UUID) ([]PairDTO, error) {
	resolved, err := scope.ResolveTenant(tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListEnabledByTenant(ctx, resolved)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving pairs for sync")
	}
	return toDTOs(rows), nil
}

func (s *service) load(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) (*models.ConnectionPair, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pair id is required")
	}
	if scope.IsSuperAdmin() {
		var pair models.ConnectionPair
		err := s.repo.DB(ctx).Where("id = ?", id).First(&pair).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "connection pair not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading pair")
		}
		return &pair, nil
	}
	tenantID, err := scope.ResolveTenant(nil)
	if err != nil {
		return nil, err
	}
	pair, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading pair")
	}
	if pair == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "connection pair not found")
	}
	return pair, nil
}

func duplicatePairError(tenantID, supplierID uuid.UUID, destination string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "connection pair already exists for this supplier and destination").
		WithDetails(map[string]any{
			"tenant_id":   tenantID.String(),
			"supplier_id": supplierID.String(),
			"destination": destination,
		})
}

func toDTO(pair models.ConnectionPair) PairDTO {
	return PairDTO{
		ID:          pair.ID,
		TenantID:    pair.TenantID,
		SupplierID:  pair.SupplierID,
		Destination: pair.Destination,
		Name:        pair.Name,
		Description: pair.Description,
		Enabled:     pair.Enabled,
		Currency:    pair.Currency,
		TrackedSKUs: []string(pair.TrackedSKUs),
		CreatedAt:   pair.CreatedAt,
		UpdatedAt:   pair.UpdatedAt,
	}
}

func toDTOs(rows []models.ConnectionPair) []PairDTO {
	dtos := make([]PairDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toDTO(row))
	}
	return dtos
}
