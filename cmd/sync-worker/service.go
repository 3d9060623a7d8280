package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rmorales/supplysync-backend/internal/pricefeed"
	"github.com/rmorales/supplysync-backend/internal/syncer"
	"github.com/rmorales/supplysync-backend/internal/tenantctx"
	"github.com/rmorales/supplysync-backend/pkg/config"
	"github.com/rmorales/supplysync-backend/pkg/db/models"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	pkgerrors "github.com/rmorales/supplysync-backend/pkg/errors"
	"github.com/rmorales/supplysync-backend/pkg/logger"
	"github.com/rmorales/supplysync-backend/pkg/metrics"
)

const (
	jobName             = "supplier_sync"
	defaultPollInterval = time.Minute
	defaultConcurrency  = 4
)

type tenantLister interface {
	ListActive(ctx context.Context) ([]models.Tenant, error)
}

type pairLister interface {
	ListEnabledByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.ConnectionPair, error)
}

type dispatcher interface {
	ApplyAndDispatch(ctx context.Context, scope tenantctx.Scope, pairID uuid.UUID, sku string) (*syncer.SyncResult, error)
}

type pinger interface {
	Ping(context.Context) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         pinger
	Redis      pinger
	Tenants    tenantLister
	Pairs      pairLister
	Dispatcher dispatcher
	Metrics    *metrics.SyncJobMetrics

	// PriceFeed is optional; when set the worker also tails the price event
	// subscription alongside the sync loop.
	PriceFeed *pricefeed.Consumer
}

// Service walks every active tenant's enabled connection pairs on a fixed
// interval and syncs each tracked SKU. Runs are bounded by a worker pool;
// a SKU already being synced elsewhere is skipped, not failed.
type Service struct {
	cfg         *config.Config
	logg        *logger.Logger
	db          pinger
	redis       pinger
	tenants     tenantLister
	pairs       pairLister
	dispatcher  dispatcher
	metrics     *metrics.SyncJobMetrics
	priceFeed   *pricefeed.Consumer
	actorID     uuid.UUID
	interval    time.Duration
	concurrency int
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.Tenants == nil {
		return nil, errors.New("tenant repository is required")
	}
	if params.Pairs == nil {
		return nil, errors.New("pair repository is required")
	}
	if params.Dispatcher == nil {
		return nil, errors.New("sync dispatcher is required")
	}

	interval := params.Config.Sync.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	concurrency := params.Config.Sync.MaxConcurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Service{
		cfg:         params.Config,
		logg:        params.Logger,
		db:          params.DB,
		redis:       params.Redis,
		tenants:     params.Tenants,
		pairs:       params.Pairs,
		dispatcher:  params.Dispatcher,
		metrics:     params.Metrics,
		priceFeed:   params.PriceFeed,
		actorID:     uuid.New(),
		interval:    interval,
		concurrency: concurrency,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	errCh := make(chan error, 1)
	if s.priceFeed != nil {
		go func() {
			errCh <- s.priceFeed.Run(ctx)
		}()
	}

	// First cycle runs immediately so a fresh deploy does not idle a full
	// interval.
	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "sync worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "price feed consumer stopped unexpectedly", err)
				return err
			}
			return err
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	start := time.Now()

	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		s.logg.Error(ctx, "listing active tenants", err)
		s.metrics.IncFailure(jobName)
		return
	}

	jobs := make(chan syncJob)
	var wg sync.WaitGroup
	var processed, failed atomicCounter

	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if s.syncOne(ctx, job) {
					processed.inc()
				} else {
					failed.inc()
				}
			}
		}()
	}

	for _, tenant := range tenants {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		default:
		}

		pairs, err := s.pairs.ListEnabledByTenant(ctx, tenant.ID)
		if err != nil {
			tenantCtx := s.logg.WithTenantID(ctx, tenant.ID.String())
			s.logg.Error(tenantCtx, "listing enabled pairs", err)
			failed.inc()
			continue
		}
		for _, pair := range pairs {
			for _, sku := range pair.TrackedSKUs {
				jobs <- syncJob{tenantID: tenant.ID, pairID: pair.ID, sku: sku}
			}
		}
	}
	close(jobs)
	wg.Wait()

	s.metrics.ObserveDuration(jobName, time.Since(start))
	s.metrics.AddSKUsProcessed(jobName, processed.value())
	if failed.value() > 0 {
		s.metrics.IncFailure(jobName)
	} else {
		s.metrics.IncSuccess(jobName)
	}

	fields := map[string]any{
		"tenants":     len(tenants),
		"synced":      processed.value(),
		"failed":      failed.value(),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "sync cycle complete")
}

type syncJob struct {
	tenantID uuid.UUID
	pairID   uuid.UUID
	sku      string
}

func (s *Service) syncOne(ctx context.Context, job syncJob) bool {
	scope := tenantctx.NewTenantScope(s.actorID, enums.ActorRoleOperator, job.tenantID)
	_, err := s.dispatcher.ApplyAndDispatch(ctx, scope, job.pairID, job.sku)
	if err == nil {
		return true
	}

	fields := map[string]any{
		"tenant_id": job.tenantID.String(),
		"pair_id":   job.pairID.String(),
	}
	logCtx := s.logg.WithFields(ctx, fields)
	logCtx = s.logg.WithSKU(logCtx, job.sku)

	if coded := pkgerrors.As(err); coded != nil && coded.Code() == pkgerrors.CodeConflict {
		s.logg.Warn(logCtx, "sku sync skipped, already in progress")
		return true
	}
	s.logg.Error(logCtx, "sku sync failed", err)
	return false
}

type atomicCounter struct {
	mtx sync.Mutex
	n   int
}

func (c *atomicCounter) inc() {
	c.mtx.Lock()
	c.n++
	c.mtx.Unlock()
}

func (c *atomicCounter) value() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.n
}
