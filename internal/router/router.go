package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/inventory-loan-api/internal/handler"
	"github.com/noah-isme/inventory-loan-api/internal/middleware"
	"github.com/noah-isme/inventory-loan-api/internal/models"
	"github.com/noah-isme/inventory-loan-api/internal/service"
	"github.com/noah-isme/inventory-loan-api/pkg/config"
	"github.com/noah-isme/inventory-loan-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/inventory-loan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/inventory-loan-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth       *handler.AuthHandler
	Items      *handler.ItemHandler
	Loans      *handler.LoanHandler
	QRCodes    *handler.QRCodeHandler
	Activities *handler.ActivityHandler
	Dashboard  *handler.DashboardHandler
	Health     *handler.HealthHandler
}

// Params carries router dependencies.
type Params struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *service.MetricsService
	Tokens       middleware.TokenValidator
	LoginLimiter *middleware.RateLimiter
	Handlers     Handlers
}

// New builds the gin engine with every route mounted.
func New(p Params) *gin.Engine {
	cfg := p.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	logr := p.Logger
	if logr == nil {
		logr = zap.NewNop()
	}
	h := p.Handlers

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if p.Metrics != nil {
		r.Use(middleware.Metrics(p.Metrics, middleware.MetricsOptions{APIPrefix: cfg.APIPrefix, Skip: []string{"/metrics"}}))
	}
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", h.Health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", middleware.RateLimit(p.LoginLimiter), h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(p.Tokens))
	admin := middleware.RequireRoles(models.RoleAdmin)

	secured.GET("/auth/me", h.Auth.Me)
	secured.POST("/users", admin, h.Auth.CreateUser)

	items := secured.Group("/items")
	items.GET("", h.Items.List)
	items.GET("/lookup", h.Items.Lookup)
	items.GET("/:id", h.Items.Get)
	items.GET("/:id/activities", h.Items.Activities)
	items.GET("/:id/loans", h.Items.Loans)
	items.POST("", h.Items.Create)
	items.PUT("/:id", h.Items.Update)
	items.DELETE("/:id", admin, h.Items.Delete)

	loans := secured.Group("/loans")
	loans.GET("", h.Loans.List)
	loans.GET("/active", h.Loans.Active)
	loans.GET("/overdue", h.Loans.Overdue)
	loans.GET("/export", h.Loans.Export)
	loans.GET("/:id", h.Loans.Get)
	loans.POST("", h.Loans.Create)
	loans.POST("/batch", h.Loans.BatchCreate)
	loans.POST("/return/batch", h.Loans.BatchReturn)
	loans.POST("/overdue/sync", admin, h.Loans.SyncOverdue)
	loans.PUT("/:id/return", h.Loans.Return)

	qrcodes := secured.Group("/qrcodes")
	qrcodes.GET("", h.QRCodes.List)
	qrcodes.GET("/unassigned", h.QRCodes.Unassigned)
	qrcodes.GET("/:code", h.QRCodes.Get)
	qrcodes.POST("/batch", admin, h.QRCodes.GenerateBatch)
	qrcodes.POST("/associate", h.QRCodes.Associate)

	secured.GET("/activities", h.Activities.List)
	secured.GET("/dashboard", h.Dashboard.Summary)

	return r
}
