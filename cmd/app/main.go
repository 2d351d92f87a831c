package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/iamabdullah-dev/EdTech/internal/bootstrap"
	"github.com/iamabdullah-dev/EdTech/internal/features/checkout"
	"github.com/iamabdullah-dev/EdTech/internal/features/course"
	"github.com/iamabdullah-dev/EdTech/internal/features/payment"
	"github.com/iamabdullah-dev/EdTech/internal/http/routes"
	"github.com/iamabdullah-dev/EdTech/pkg/cache"
	"github.com/iamabdullah-dev/EdTech/pkg/config"
	"github.com/iamabdullah-dev/EdTech/pkg/database"
	"github.com/iamabdullah-dev/EdTech/pkg/jobs"
	"github.com/iamabdullah-dev/EdTech/pkg/logger"
	"github.com/iamabdullah-dev/EdTech/pkg/metrics"
	"github.com/iamabdullah-dev/EdTech/pkg/middleware"
	"github.com/iamabdullah-dev/EdTech/pkg/request"
	"github.com/iamabdullah-dev/EdTech/pkg/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := validation.Register(); err != nil {
		appLogger.Error("validator setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := database.ConnectWithRetry(ctx, cfg.Database, appLogger, 5, time.Second)
	if err != nil {
		appLogger.Error("database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if err := database.Close(db, appLogger); err != nil {
			appLogger.Error("database close failed", slog.String("error", err.Error()))
		}
	}()

	if err := bootstrap.ApplyDatabaseMigrations(db, cfg, appLogger); err != nil {
		appLogger.Error("migrations failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		appLogger.Error("cache connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	facts := course.NewFactsStore(store, cfg.Redis.FactsTTL, appLogger)

	processor := payment.NewProcessor(cfg.Stripe.SecretKey, cfg.Stripe.BaseURL)
	if _, disabled := processor.(payment.DisabledProcessor); disabled {
		appLogger.Warn("STRIPE_SECRET_KEY not set, paid checkout is disabled")
	}

	scheduler := jobs.NewScheduler(appLogger, time.Minute)
	if err := scheduler.AddJob(cfg.Jobs.StalePaymentSchedule, checkout.NewStalePaymentJob(db, cfg.Jobs.StalePaymentAge, appLogger)); err != nil {
		appLogger.Error("job registration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := gin.New()

	router.Use(middleware.Recovery(appLogger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.RequestID())                       // Add request IDs for tracing
	router.Use(middleware.Compression("/metrics"))           // Compress responses (gzip)
	router.Use(middleware.RequestLogger(appLogger))          // Log all requests
	router.Use(middleware.SecurityHeaders())                 // Add security headers
	router.Use(middleware.CacheControl())                    // Set cache headers
	router.Use(middleware.RequestSizeLimit(1 * 1024 * 1024)) // 1MB limit
	router.Use(metrics.Middleware())                         // Collect Prometheus metrics
	router.Use(request.Handler(appLogger))                   // Request context handler

	rateLimiter := middleware.NewRateLimiter(store, cfg.Auth.RateLimitPerMinute, time.Minute, appLogger)
	router.Use(rateLimiter.Middleware())

	routes.Register(router, routes.Dependencies{
		Config:    cfg,
		DB:        db,
		Cache:     store,
		Facts:     facts,
		Processor: processor,
		Logger:    appLogger,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		appLogger.Info("server starting",
			slog.String("addr", cfg.ServerAddress()),
			slog.String("env", cfg.Env),
			slog.String("log_level", cfg.LogLevel),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server listen failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	appLogger.Info("server started successfully")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server shutdown failed", slog.String("error", err.Error()))
	} else {
		appLogger.Info("server stopped gracefully")
	}
}
