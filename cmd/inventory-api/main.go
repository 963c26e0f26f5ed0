package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/inventory-loan-api/api/swagger"
	"github.com/noah-isme/inventory-loan-api/internal/handler"
	"github.com/noah-isme/inventory-loan-api/internal/middleware"
	"github.com/noah-isme/inventory-loan-api/internal/repository"
	"github.com/noah-isme/inventory-loan-api/internal/router"
	"github.com/noah-isme/inventory-loan-api/internal/service"
	"github.com/noah-isme/inventory-loan-api/pkg/cache"
	"github.com/noah-isme/inventory-loan-api/pkg/config"
	"github.com/noah-isme/inventory-loan-api/pkg/database"
	"github.com/noah-isme/inventory-loan-api/pkg/identifier"
	"github.com/noah-isme/inventory-loan-api/pkg/logger"
)

// @title Inventory Loan API
// @version 1.0.0
// @description Item registry, QR labels and loan tracking for community organisations
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis, logr)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, "inventory"),
		metrics,
		cfg.Dashboard.CacheTTL,
		logr,
		redisClient != nil,
	)
	validate := service.NewValidator()
	opts := []service.Option{service.WithCacheInvalidator(cacheSvc), service.WithMetrics(metrics)}

	itemRepo := repository.NewItemRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	qrRepo := repository.NewQRCodeRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	userRepo := repository.NewUserRepository(db)

	items := service.NewItemService(itemRepo, identifier.NewGenerator(cfg.Inventory.ItemIDPrefix), validate, logr, opts...)
	loans := service.NewLoanService(loanRepo, itemRepo, validate, logr, cfg.Loans.DefaultDuration, opts...)
	qrcodes := service.NewQRCodeService(qrRepo, itemRepo, identifier.NewGenerator(cfg.Inventory.QRCodePrefix), validate, logr, opts...)
	activities := service.NewActivityService(activityRepo, itemRepo, validate, logr, opts...)
	dashboard := service.NewDashboardService(service.DashboardServiceParams{
		Items:      itemRepo,
		Loans:      loanRepo,
		QRCodes:    qrRepo,
		Activities: activityRepo,
		Cache:      cacheSvc,
		CacheTTL:   cfg.Dashboard.CacheTTL,
		Logger:     logr,
	}, opts...)
	exports := service.NewExportService(loans, logr, opts...)
	auth := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, opts...)

	created, err := auth.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminName)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logr.Info("bootstrap administrator created", zap.String("email", cfg.Bootstrap.AdminEmail))
	}

	sweeper := service.NewOverdueSweeper(loans, cfg.Loans.OverdueSweepInterval, logr)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = cache.Probe{Client: redisClient}
	}

	engine := router.New(router.Params{
		Config:       cfg,
		Logger:       logr,
		Metrics:      metrics,
		Tokens:       auth,
		LoginLimiter: middleware.NewRateLimiter(cfg.RateLimit.LoginPerMinute),
		Handlers: router.Handlers{
			Auth:       handler.NewAuthHandler(auth),
			Items:      handler.NewItemHandler(items, activities, loans),
			Loans:      handler.NewLoanHandler(loans, exports),
			QRCodes:    handler.NewQRCodeHandler(qrcodes),
			Activities: handler.NewActivityHandler(activities),
			Dashboard:  handler.NewDashboardHandler(dashboard),
			Health:     handler.NewHealthHandler(metrics, checks),
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
