package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/iamabdullah-dev/EdTech/internal/features/auth"
	"github.com/iamabdullah-dev/EdTech/internal/features/catalog"
	"github.com/iamabdullah-dev/EdTech/internal/features/checkout"
	"github.com/iamabdullah-dev/EdTech/internal/features/course"
	"github.com/iamabdullah-dev/EdTech/internal/features/dashboard"
	"github.com/iamabdullah-dev/EdTech/internal/features/enrollment"
	"github.com/iamabdullah-dev/EdTech/internal/features/payment"
	"github.com/iamabdullah-dev/EdTech/internal/features/progress"
	"github.com/iamabdullah-dev/EdTech/internal/features/user"
	"github.com/iamabdullah-dev/EdTech/internal/features/video"
	"github.com/iamabdullah-dev/EdTech/internal/middleware"
	"github.com/iamabdullah-dev/EdTech/internal/utils/jwt"
	"github.com/iamabdullah-dev/EdTech/pkg/cache"
	"github.com/iamabdullah-dev/EdTech/pkg/config"
	"github.com/iamabdullah-dev/EdTech/pkg/health"
)

// Dependencies are the shared services the routes are built from.
type Dependencies struct {
	Config    *config.Config
	DB        *gorm.DB
	Cache     cache.Client
	Facts     *course.FactsStore
	Processor payment.Processor
	Logger    *slog.Logger
}

// Register wires all feature routes onto the engine.
func Register(engine *gin.Engine, deps Dependencies) {
	cfg, db, logger := deps.Config, deps.DB, deps.Logger

	// Health check endpoints (no /api prefix for Kubernetes probes)
	healthHandler := health.NewHandler(db, deps.Cache, cfg.Version, logger)
	engine.GET("/health", healthHandler.Health)
	engine.GET("/health/ready", healthHandler.Ready)
	engine.GET("/ready", healthHandler.Ready)
	engine.GET("/version", healthHandler.Version)

	// Metrics endpoint for Prometheus
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if !cfg.IsProduction() {
		engine.GET("/debug/db-stats", healthHandler.DBStats)
	}

	api := engine.Group("/api")

	issuer := jwt.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTRefreshSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	authMiddleware := middleware.NewAuth(issuer, user.NewResolver(db), logger)

	guard := catalog.NewGuard(deps.Facts)
	ledger := enrollment.NewLedger(guard)

	auth.RegisterRoutes(api, auth.NewHandler(auth.NewService(db, issuer, cfg.Auth.GoogleClientID), logger))
	user.RegisterRoutes(api, user.NewHandler(db, logger), authMiddleware.Authenticate())

	course.RegisterRoutes(api, course.NewHandler(db, deps.Facts, logger), authMiddleware)
	video.RegisterRoutes(api, video.NewHandler(db, deps.Facts, logger), authMiddleware)

	enrollment.RegisterRoutes(api, enrollment.NewHandler(db, ledger, logger), authMiddleware)
	progress.RegisterRoutes(api, progress.NewHandler(db, progress.NewTracker(), logger), authMiddleware)

	checkoutService := checkout.NewService(db, guard, ledger, deps.Processor, cfg.Stripe.Currency, logger)
	checkout.RegisterRoutes(api, checkout.NewHandler(checkoutService, logger), authMiddleware)
	payment.RegisterRoutes(api, payment.NewHandler(db, logger), authMiddleware)

	dashboard.RegisterRoutes(api, dashboard.NewHandler(db, logger), authMiddleware)
}
