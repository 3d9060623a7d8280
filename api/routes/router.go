package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rmorales/supplysync-backend/api/controllers"
	"github.com/rmorales/supplysync-backend/api/middleware"
	"github.com/rmorales/supplysync-backend/internal/pairs"
	"github.com/rmorales/supplysync-backend/internal/pricing"
	"github.com/rmorales/supplysync-backend/internal/snapshots"
	"github.com/rmorales/supplysync-backend/internal/suppliers"
	"github.com/rmorales/supplysync-backend/internal/syncer"
	"github.com/rmorales/supplysync-backend/internal/tenants"
	"github.com/rmorales/supplysync-backend/pkg/config"
	"github.com/rmorales/supplysync-backend/pkg/db"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	"github.com/rmorales/supplysync-backend/pkg/logger"
	pkgredis "github.com/rmorales/supplysync-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	tenantService tenants.Service,
	supplierService suppliers.Service,
	pairService pairs.Service,
	pricingService pricing.Service,
	snapshotService snapshots.Service,
	syncService syncer.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/suppliers", func(r chi.Router) {
			r.Post("/", controllers.SupplierCreate(supplierService, logg))
			r.Get("/", controllers.SupplierList(supplierService, logg))
			r.Get("/{supplierId}", controllers.SupplierDetail(supplierService, logg))
			r.Patch("/{supplierId}", controllers.SupplierUpdate(supplierService, logg))
			r.Delete("/{supplierId}", controllers.SupplierDelete(supplierService, logg))
			r.Post("/{supplierId}/test-connection", controllers.SupplierTestConnection(supplierService, logg))
		})

		r.Route("/pairs", func(r chi.Router) {
			r.Post("/", controllers.PairCreate(pairService, logg))
			r.Get("/", controllers.PairList(pairService, logg))
			r.Get("/{pairId}", controllers.PairDetail(pairService, logg))
			r.Patch("/{pairId}", controllers.PairUpdate(pairService, logg))
			r.Delete("/{pairId}", controllers.PairDelete(pairService, logg))
			r.Get("/{pairId}/snapshots", controllers.SnapshotList(snapshotService, logg))
		})

		r.Route("/rules", func(r chi.Router) {
			r.Post("/", controllers.RuleCreate(pricingService, logg))
			r.Get("/", controllers.RuleList(pricingService, logg))
			r.Get("/{ruleId}", controllers.RuleDetail(pricingService, logg))
			r.Patch("/{ruleId}", controllers.RuleUpdate(pricingService, logg))
			r.Delete("/{ruleId}", controllers.RuleDelete(pricingService, logg))
		})

		r.Post("/sync/trigger", controllers.SyncTrigger(syncService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleSuperAdmin, logg))

		r.Get("/ping", controllers.AdminPing())
		r.Route("/tenants", func(r chi.Router) {
			r.Post("/", controllers.TenantCreate(tenantService, logg))
			r.Get("/", controllers.TenantList(tenantService, logg))
			r.Get("/{tenantId}", controllers.TenantDetail(tenantService, logg))
		})
	})

	return r
}
