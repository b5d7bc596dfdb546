// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	appctx "github.com/tihomirborovcak/radni-nalozi/internal/core/context"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/invoicing"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/reminder"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/workorder"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/http/v1/handlers"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/http/v1/middleware"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/metrics"
	"github.com/tihomirborovcak/radni-nalozi/pkg/logger"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Materials *material.Service
	Stock     *stock.Service
	Orders    *workorder.Service
	Reminders *reminder.Service
	// Invoicing is nil when no invoicing system is configured.
	Invoicing *invoicing.Service
}

// RouterConfig holds router configuration.
type RouterConfig struct {
	Services Services

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator verifies bearer tokens. When nil the actor is taken
	// from the trusted gateway headers.
	JWTValidator middleware.JWTValidator

	// Metrics is optional; when set /metrics is served.
	Metrics *metrics.Metrics

	// DB is pinged by the readiness probe; nil in memory mode.
	DB handlers.Pinger

	// Storage names the configured storage driver.
	Storage string

	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
	}
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Storage)
	router.GET("/health", healthHandler.Live)
	router.GET("/health/ready", healthHandler.Ready)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))

	base := handlers.NewBaseHandler()
	registerMaterialRoutes(v1, base, cfg.Services)
	registerWorkOrderRoutes(v1, base, cfg.Services)
	registerReminderRoutes(v1, base, cfg.Services)

	return router
}

func registerMaterialRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc Services) {
	h := handlers.NewMaterialHandler(base, svc.Materials, svc.Stock)

	materials := rg.Group("/materials")
	{
		materials.GET("", h.List)
		materials.POST("", h.Create)
		materials.GET("/:id", h.Get)
		materials.PUT("/:id", h.Update)
		materials.DELETE("/:id", h.Deactivate)
		materials.GET("/:id/ledger", h.Ledger)
		materials.POST("/:id/ledger", h.Adjust)
		materials.GET("/:id/ledger/export", h.ExportLedger)
		materials.GET("/:id/consumptions", h.Consumptions)
	}

	articles := rg.Group("/articles")
	{
		articles.GET("/:id/materials", h.ArticleNorm)
		articles.PUT("/:id/materials", h.ReplaceArticleNorm)
	}
}

func registerWorkOrderRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc Services) {
	h := handlers.NewWorkOrderHandler(base, svc.Orders, svc.Invoicing)
	ch := handlers.NewConsumptionHandler(base, svc.Stock, svc.Orders)

	orders := rg.Group("/work-orders")
	{
		orders.GET("", h.List)
		orders.POST("", h.Create)
		orders.GET("/:id", h.Get)
		orders.PUT("/:id", h.Update)
		orders.DELETE("/:id", h.Delete)
		orders.POST("/:id/restore", middleware.RequireRole(appctx.RoleAdmin), h.Restore)
		orders.POST("/:id/delivery", h.IssueDelivery)
		orders.DELETE("/:id/delivery", h.RevokeDelivery)
		orders.POST("/:id/invoice", h.SendInvoice)
		orders.GET("/:id/history", h.History)
		orders.GET("/:id/consumptions", ch.ListForOrder)
		orders.POST("/:id/consumptions", ch.Book)
		orders.DELETE("/:id/consumptions", ch.Unbook)
	}

	rg.DELETE("/consumptions/:id", ch.Reverse)
	rg.PUT("/order-procedures/:id", h.ToggleProcedure)
}

func registerReminderRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc Services) {
	h := handlers.NewReminderHandler(base, svc.Reminders)

	reminders := rg.Group("/reminders")
	{
		reminders.GET("", h.List)
		reminders.POST("", h.Create)
		reminders.PUT("/:id", h.Update)
		reminders.DELETE("/:id", h.Delete)
	}
}
