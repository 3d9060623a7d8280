package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/rmorales/supplysync-backend/internal/gateway"
	"github.com/rmorales/supplysync-backend/internal/tenantctx"
	"github.com/rmorales/supplysync-backend/pkg/config"
	"github.com/rmorales/supplysync-backend/pkg/db"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
	"github.com/rmorales/supplysync-backend/pkg/logger"
	"github.com/rmorales/supplysync-backend/pkg/outbox"
	"github.com/rmorales/supplysync-backend/pkg/outbox/payloads"
)

// Service exposes supplier management operations.
type Service interface {
	Create(ctx context.Context, scope tenantctx.Scope, input CreateInput) (*SupplierDTO, error)
	Get(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) (*SupplierDTO, error)
	List(ctx context.Context, scope tenantctx.Scope, tenantID *uuid.UUID) ([]SupplierDTO, error)
	Update(ctx context.Context, scope tenantctx.Scope, id uuid.UUID, input UpdateInput) (*SupplierDTO, error)
	Delete(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) error
	TestConnection(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) (*TestConnectionResult, error)
}

// CreateInput holds the validated payload to register a supplier.
type CreateInput struct {
	TenantID      *uuid.UUID
	Name          string
	ClientType    string
	EndpointURL   string
	CredentialRef string
	Capabilities  []string
}

// UpdateInput holds optional mutation values for a supplier.
type UpdateInput struct {
	Name          *string
	EndpointURL   *string
	CredentialRef *string
	Capabilities  *[]string
	Status        *string
}

// SupplierDTO is the external representation of a supplier.
type SupplierDTO struct {
	ID            uuid.UUID                `json:"id"`
	TenantID      uuid.UUID                `json:"tenant_id"`
	Name          string                   `json:"name"`
	ClientType    enums.SupplierClientType `json:"client_type"`
	EndpointURL   string                   `json:"endpoint_url"`
	CredentialRef string                   `json:"credential_ref"`
	Capabilities  []string                 `json:"capabilities"`
	Status        enums.SupplierStatus     `json:"status"`
	LastProbeAt   *time.Time               `json:"last_probe_at,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// TestConnectionResult reports the outcome of a connection probe.
type TestConnectionResult struct {
	SupplierID uuid.UUID            `json:"supplier_id"`
	Status     enums.SupplierStatus `json:"status"`
	ProbedAt   time.Time            `json:"probed_at"`
}

type pairCounter interface {
	CountEnabledBySupplier(ctx context.Context, tenantID, supplierID uuid.UUID) (int64, error)
}

type eventEmitter interface {
	EmitCoalesced(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	pairs    pairCounter
	registry *gateway.Registry
	emitter  eventEmitter
	gwCfg    config.GatewayConfig
	logg     *logger.Logger
}

// NewService constructs a supplier service instance.
func NewService(repo *Repository, dbClient *db.Client, pairs pairCounter, registry *gateway.Registry, emitter eventEmitter, gwCfg config.GatewayConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if pairs == nil {
		return nil, fmt.Errorf("pair counter required")
	}
	if registry == nil {
		return nil, fmt.Errorf("gateway registry required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		pairs:    pairs,
		registry: registry,
		emitter:  emitter,
		gwCfg:    gwCfg,
		logg:     logg,
	}, nil
}

func (s *service) Create(ctx context.Context, scope tenantctx.Scope, input CreateInput) (*SupplierDTO, error) {
	tenantID, err := scope.ResolveTenant(input.TenantID)
	if err != nil {
		return nil, err
	}

	clientType, err := enums.ParseSupplierClientType(input.ClientType)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name is required")
	}
	if strings.TrimSpace(input.EndpointURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "endpoint url is required")
	}
	if strings.TrimSpace(input.CredentialRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credential reference is required")
	}

	supplier := models.Supplier{
		TenantID:      tenantID,
		Name:          strings.TrimSpace(input.Name),
		ClientType:    clientType,
		EndpointURL:   strings.TrimSpace(input.EndpointURL),
		CredentialRef: strings.TrimSpace(input.CredentialRef),
		Capabilities:  pq.StringArray(input.Capabilities),
		Status:        enums.SupplierStatusPendingValidation,
	}
	if err := s.repo.Create(ctx, &supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating supplier")
	}
	dto := toDTO(supplier)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) (*SupplierDTO, error) {
	supplier, err := s.load(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*supplier)
	return &dto, nil
}

func (s *service) List(ctx context.Context, scope tenantctx.Scope, tenantID *uuid.UUID) ([]SupplierDTO, error) {
	resolved, err := scope.ResolveTenant(tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByTenant(ctx, resolved)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing suppliers")
	}
	dtos := make([]SupplierDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toDTO(row))
	}
	return dtos, nil
}

func (s *service) Update(ctx context.Context, scope tenantctx.Scope, id uuid.UUID, input UpdateInput) (*SupplierDTO, error) {
	supplier, err := s.load(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name cannot be empty")
		}
		supplier.Name = strings.TrimSpace(*input.Name)
	}
	if input.EndpointURL != nil {
		if strings.TrimSpace(*input.EndpointURL) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "endpoint url cannot be empty")
		}
		supplier.EndpointURL = strings.TrimSpace(*input.EndpointURL)
		// A new endpoint has not been validated yet.
		supplier.Status = enums.SupplierStatusPendingValidation
	}
	if input.CredentialRef != nil {
		if strings.TrimSpace(*input.CredentialRef) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "credential reference cannot be empty")
		}
		supplier.CredentialRef = strings.TrimSpace(*input.CredentialRef)
		supplier.Status = enums.SupplierStatusPendingValidation
	}
	if input.Capabilities != nil {
		supplier.Capabilities = pq.StringArray(*input.Capabilities)
	}
	if input.Status != nil {
		status, err := enums.ParseSupplierStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		supplier.Status = status
	}

	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating supplier")
	}
	dto := toDTO(*supplier)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) error {
	supplier, err := s.load(ctx, scope, id)
	if err != nil {
		return err
	}

	enabled, err := s.pairs.CountEnabledBySupplier(ctx, supplier.TenantID, supplier.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking connection pairs")
	}
	if enabled > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "supplier is referenced by enabled connection pairs").
			WithDetails(map[string]any{"enabled_pairs": enabled})
	}

	if err := s.repo.Delete(ctx, supplier.TenantID, supplier.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting supplier")
	}
	return nil
}

// TestConnection initializes the supplier's client and probes it. A passing
// probe moves the supplier to active and emits supplier.validated once.
func (s *service) TestConnection(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) (*TestConnectionResult, error) {
	supplier, err := s.load(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	client, err := s.registry.New(supplier.ClientType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving supplier client")
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.gwCfg.ProbeTimeout)
	defer cancel()

	gwConfig := gateway.Config{
		EndpointURL: supplier.EndpointURL,
		Token:       config.ResolveSecret(supplier.CredentialRef),
		Timeout:     s.gwCfg.ProbeTimeout,
		UserAgent:   s.gwCfg.UserAgent,
	}
	if err := client.Initialize(probeCtx, gwConfig); err != nil {
		return nil, gateway.ToError(err)
	}
	if err := client.Probe(probeCtx); err != nil {
		return nil, gateway.ToError(err)
	}

	probedAt := time.Now().UTC()
	wasActive := supplier.Status == enums.SupplierStatusActive
	supplier.Status = enums.SupplierStatusActive
	supplier.LastProbeAt = &probedAt

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, supplier); err != nil {
			return err
		}
		if wasActive {
			return nil
		}
		actorID := scope.ActorID()
		tenantID := supplier.TenantID
		return s.emitter.EmitCoalesced(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSupplierValidated,
			AggregateType: enums.AggregateSupplier,
			AggregateID:   supplier.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, TenantID: &tenantID, Role: scope.Role().String()},
			Version:       1,
			OccurredAt:    probedAt,
			Data: payloads.SupplierValidatedEvent{
				TenantID:   supplier.TenantID,
				SupplierID: supplier.ID,
				ClientType: supplier.ClientType.String(),
				Status:     enums.SupplierStatusActive,
				ProbedAt:   probedAt,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording probe result")
	}

	if s.logg != nil {
		fields := map[string]any{"supplier_id": supplier.ID.String(), "tenant_id": supplier.TenantID.String()}
		s.logg.Info(s.logg.WithFields(ctx, fields), "supplier connection validated")
	}

	return &TestConnectionResult{
		SupplierID: supplier.ID,
		Status:     supplier.Status,
		ProbedAt:   probedAt,
	}, nil
}

func (s *service) load(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) (*models.Supplier, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	if scope.IsSuperAdmin() {
		return s.loadAnyTenant(ctx, scope, id)
	}
	tenantID, err := scope.ResolveTenant(nil)
	if err != nil {
		return nil, err
	}
	supplier, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading supplier")
	}
	if supplier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	return supplier, nil
}

func (s *service) loadAnyTenant(ctx context.Context, scope tenantctx.Scope, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	err := s.repo.DB(ctx).Where("id = ?", id).First(&supplier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading supplier")
	}
	if err := scope.Authorize(supplier.TenantID); err != nil {
		return nil, err
	}
	return &supplier, nil
}

func toDTO(supplier models.Supplier) SupplierDTO {
	return SupplierDTO{
		ID:            supplier.ID,
		TenantID:      supplier.TenantID,
		Name:          supplier.Name,
		ClientType:    supplier.ClientType,
		EndpointURL:   supplier.EndpointURL,
		CredentialRef: supplier.CredentialRef,
		Capabilities:  []string(supplier.Capabilities),
		Status:        supplier.Status,
		LastProbeAt:   supplier.LastProbeAt,
		CreatedAt:     supplier.CreatedAt,
		UpdatedAt:     supplier.UpdatedAt,
	}
}
