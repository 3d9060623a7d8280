package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rmorales/supplysync-backend/internal/gateway"
	"github.com/rmorales/supplysync-backend/internal/snapshots"
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

// Service runs one sync cycle for a single (pair, SKU): fetch the supplier
// product, compute the destination price, persist the snapshot, and queue
// the price.updated event in the same transaction.
type Service interface {
	ApplyAndDispatch(ctx context.Context, scope tenantctx.Scope, pairID uuid.UUID, sku string) (*SyncResult, error)
}

// SyncResult reports what a completed sync wrote.
type SyncResult struct {
	TenantID         uuid.UUID       `json:"tenant_id"`
	ConnectionPairID uuid.UUID       `json:"connection_pair_id"`
	SKU              string          `json:"sku"`
	SupplierPrice    decimal.Decimal `json:"supplier_price"`
	Price            decimal.Decimal `json:"price"`
	Quantity         int             `json:"quantity"`
	Currency         enums.Currency  `json:"currency"`
	SyncVersion      int64           `json:"sync_version"`
	SyncedAt         time.Time       `json:"synced_at"`
}

type pairLoader interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ConnectionPair, error)
}

type supplierLoader interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Supplier, error)
}

type priceComputer interface {
	ComputePrice(ctx context.Context, tenantID, pairID uuid.UUID, base decimal.Decimal, currency enums.Currency) (decimal.Decimal, error)
}

type eventEmitter interface {
	EmitCoalesced(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// syncLocker serializes snapshot writes per (tenant, SKU).
type syncLocker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	SyncLockKey(tenantID, sku string) string
}

type service struct {
	dbClient  *db.Client
	pairs     pairLoader
	suppliers supplierLoader
	pricing   priceComputer
	registry  *gateway.Registry
	snapshots *snapshots.Repository
	emitter   eventEmitter
	locker    syncLocker
	gwCfg     config.GatewayConfig
	syncCfg   config.SyncConfig
	logg      *logger.Logger
}

// NewService constructs the sync dispatcher.
func NewService(
	dbClient *db.Client,
	pairs pairLoader,
	suppliers supplierLoader,
	pricing priceComputer,
	registry *gateway.Registry,
	snapshotRepo *snapshots.Repository,
	emitter eventEmitter,
	locker syncLocker,
	gwCfg config.GatewayConfig,
	syncCfg config.SyncConfig,
	logg *logger.Logger,
) (Service, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if pairs == nil {
		return nil, fmt.Errorf("pair loader required")
	}
	if suppliers == nil {
		return nil, fmt.Errorf("supplier loader required")
	}
	if pricing == nil {
		return nil, fmt.Errorf("price computer required")
	}
	if registry == nil {
		return nil, fmt.Errorf("gateway registry required")
	}
	if snapshotRepo == nil {
		return nil, fmt.Errorf("snapshot repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if locker == nil {
		return nil, fmt.Errorf("sync locker required")
	}
	return &service{
		dbClient:  dbClient,
		pairs:     pairs,
		suppliers: suppliers,
		pricing:   pricing,
		registry:  registry,
		snapshots: snapshotRepo,
		emitter:   emitter,
		locker:    locker,
		gwCfg:     gwCfg,
		syncCfg:   syncCfg,
		logg:      logg,
	}, nil
}

// ApplyAndDispatch performs the full sync cycle for one SKU. The supplier
// fetch happens before any lock or write: a gateway failure leaves neither
// a snapshot nor an outbox event behind.
func (s *service) ApplyAndDispatch(ctx context.Context, scope tenantctx.Scope, pairID uuid.UUID, sku string) (*SyncResult, error) {
	tenantID, err := scope.ResolveTenant(nil)
	if err != nil {
		return nil, err
	}
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if pairID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pair id is required")
	}

	pair, err := s.pairs.FindByID(ctx, tenantID, pairID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading connection pair")
	}
	if pair == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "connection pair not found")
	}
	if !pair.Enabled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "connection pair is disabled")
	}
	if len(pair.TrackedSKUs) > 0 && !trackedSKU(pair.TrackedSKUs, sku) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is not tracked by this pair").
			WithDetails(map[string]any{"sku": sku})
	}

	supplier, err := s.suppliers.FindByID(ctx, tenantID, pair.SupplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading supplier")
	}
	if supplier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	if supplier.Status != enums.SupplierStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "supplier is not active").
			WithDetails(map[string]any{"status": supplier.Status})
	}

	product, err := s.fetchProduct(ctx, supplier, sku)
	if err != nil {
		return nil, err
	}

	price, err := s.pricing.ComputePrice(ctx, tenantID, pair.ID, product.Price, pair.Currency)
	if err != nil {
		return nil, err
	}

	syncedAt := time.Now().UTC()

	lockKey := s.locker.SyncLockKey(tenantID.String(), sku)
	acquired, err := s.locker.SetNX(ctx, lockKey, scope.ActorID().String(), s.syncCfg.LockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring sync lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "sync already in progress for sku").
			WithDetails(map[string]any{"sku": sku})
	}
	defer func() {
		_ = s.locker.Del(context.WithoutCancel(ctx), lockKey)
	}()

	var result SyncResult
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		snapshot, err := s.snapshots.FindByKeyTx(tx, tenantID, pair.ID, sku)
		if err != nil {
			return err
		}
		if snapshot == nil {
			snapshot = &models.PriceSnapshot{
				ID:               uuid.New(),
				TenantID:         tenantID,
				ConnectionPairID: pair.ID,
				SKU:              sku,
				SupplierPrice:    product.Price,
				Price:            price,
				Quantity:         product.Quantity,
				Currency:         pair.Currency,
				SyncVersion:      1,
				SyncedAt:         syncedAt,
			}
			if err := s.snapshots.CreateTx(tx, snapshot); err != nil {
				return err
			}
		} else {
			expected := snapshot.SyncVersion
			snapshot.SupplierPrice = product.Price
			snapshot.Price = price
			snapshot.Quantity = product.Quantity
			snapshot.Currency = pair.Currency
			snapshot.SyncedAt = syncedAt
			updated, err := s.snapshots.UpdateGuardedTx(tx, snapshot, expected)
			if err != nil {
				return err
			}
			if !updated {
				return pkgerrors.New(pkgerrors.CodeConflict, "snapshot changed during sync").
					WithDetails(map[string]any{"sku": sku})
			}
			snapshot.SyncVersion = expected + 1
		}

		actorID := scope.ActorID()
		if err := s.emitter.EmitCoalesced(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPriceUpdated,
			AggregateType: enums.AggregatePriceSnapshot,
			AggregateID:   snapshot.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, TenantID: &tenantID, Role: scope.Role().String()},
			Version:       1,
			OccurredAt:    syncedAt,
			Data: payloads.PriceUpdatedEvent{
				TenantID:         tenantID,
				ConnectionPairID: pair.ID,
				SKU:              sku,
				SupplierPrice:    product.Price,
				Price:            price,
				Quantity:         product.Quantity,
				Currency:         pair.Currency,
				SyncedAt:         syncedAt,
			},
		}); err != nil {
			return err
		}

		result = SyncResult{
			TenantID:         tenantID,
			ConnectionPairID: pair.ID,
			SKU:              sku,
			SupplierPrice:    product.Price,
			Price:            price,
			Quantity:         product.Quantity,
			Currency:         pair.Currency,
			SyncVersion:      snapshot.SyncVersion,
			SyncedAt:         syncedAt,
		}
		return nil
	})
	if err != nil {
		if coded := pkgerrors.As(err); coded != nil {
			return nil, coded
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting snapshot")
	}

	if s.logg != nil {
		fields := map[string]any{
			"tenant_id": tenantID.String(),
			"pair_id":   pair.ID.String(),
			"sku":       sku,
			"price":     price.String(),
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "sku synced")
	}

	return &result, nil
}

func (s *service) fetchProduct(ctx context.Context, supplier *models.Supplier, sku string) (*gateway.Product, error) {
	client, err := s.registry.New(supplier.ClientType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving supplier client")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.gwCfg.CallTimeout)
	defer cancel()

	gwConfig := gateway.Config{
		EndpointURL: supplier.EndpointURL,
		Token:       config.ResolveSecret(supplier.CredentialRef),
		Timeout:     s.gwCfg.CallTimeout,
		UserAgent:   s.gwCfg.UserAgent,
	}
	if err := client.Initialize(callCtx, gwConfig); err != nil {
		return nil, gateway.ToError(err)
	}
	product, err := client.GetProduct(callCtx, sku)
	if err != nil {
		return nil, gateway.ToError(err)
	}
	return product, nil
}

func trackedSKU(tracked []string, sku string) bool {
	for _, candidate := range tracked {
		if candidate == sku {
			return true
		}
	}
	return false
}
