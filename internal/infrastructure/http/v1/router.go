// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/app"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/http/v1/middleware"
	"stockledger/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// App is the wired service graph
	App *app.App

	// HealthChecks are pinged by GET /health
	HealthChecks map[string]handlers.Pinger

	// Version is reported by the health endpoint
	Version string

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// IdempotencyEnabled enables idempotency middleware
	IdempotencyEnabled bool

	// Development switches gin to debug mode
	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()

	// Recovery must run inside ErrorHandler so a recovered panic is rendered.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	base := handlers.NewBaseHandler()
	health := handlers.NewHealthHandler(cfg.Version, cfg.HealthChecks)
	schemas := handlers.NewSchemaHandler(base)

	router.GET("/health/live", health.Live)
	router.GET("/health", health.Ready)

	api := router.Group("/api/v1")
	api.GET("/health", health.Ready)
	api.GET("/schemas", schemas.List)
	api.GET("/schemas/:name", schemas.Get)

	protected := api.Group("")
	protected.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.IdempotencyEnabled && cfg.App.Idempotency != nil {
		protected.Use(middleware.Idempotency(cfg.App.Idempotency))
	}

	registerRoutes(protected, base, cfg.App)

	return router, nil
}

func registerRoutes(api *gin.RouterGroup, base *handlers.BaseHandler, a *app.App) {
	stockHandler := handlers.NewStockHandler(base, a.Stock, a.Reports)
	stock := api.Group("/stock")
	{
		stock.GET("/balances", stockHandler.ListBalances)
		stock.GET("/balances/:location/:item", stockHandler.GetBalance)
		stock.GET("/movements", stockHandler.ListMovements)
		stock.GET("/valuation", stockHandler.Valuation)
	}

	RegisterDocumentRoutes(api.Group("/deliveries"), handlers.NewDeliveryHandler(base, a.Deliveries))
	RegisterDocumentRoutes(api.Group("/issues"), handlers.NewIssueHandler(base, a.Issues))
	RegisterDocumentRoutes(api.Group("/transfers"), handlers.NewTransferHandler(base, a.Transfers))

	prfHandler := handlers.NewRequisitionHandler(base, a.Requisitions, a.Orders)
	prfs := api.Group("/prfs")
	RegisterDocumentRoutes(prfs, prfHandler)
	prfs.POST("/:id/purchase-order", prfHandler.CreatePurchaseOrder)

	RegisterDocumentRoutes(api.Group("/pos"), handlers.NewOrderHandler(base, a.Orders))

	approvalHandler := handlers.NewApprovalHandler(base, a.Approvals)
	approvals := api.Group("/approvals")
	{
		approvals.GET("", approvalHandler.List)
		approvals.GET("/:id", approvalHandler.Get)
		approvals.POST("/:id/approve", approvalHandler.Approve)
		approvals.POST("/:id/reject", approvalHandler.Reject)
	}

	periodHandler := handlers.NewPeriodHandler(base, a.Periods)
	periods := api.Group("/periods")
	{
		periods.POST("", periodHandler.Create)
		periods.GET("", periodHandler.List)
		periods.GET("/:id", periodHandler.Get)
		periods.POST("/:id/open", periodHandler.Open)
		periods.POST("/:id/request-close", periodHandler.RequestClose)
		periods.POST("/:id/close", periodHandler.Close)
		periods.PUT("/:id/prices", periodHandler.SetPrices)
		periods.POST("/:id/prices/copy", periodHandler.CopyPrices)
		periods.GET("/:id/prices", periodHandler.ListPrices)
		periods.GET("/:id/locations", periodHandler.ListLocations)
		periods.POST("/:id/locations/:location/ready", periodHandler.MarkLocationReady)
		periods.POST("/:id/locations/:location/reopen", periodHandler.ReopenLocation)
		periods.GET("/:id/snapshots", periodHandler.ListSnapshots)
	}

	ncrHandler := handlers.NewNCRHandler(base, a.NCRs)
	ncrs := api.Group("/ncrs")
	RegisterDocumentRoutes(ncrs, ncrHandler)
	ncrs.POST("/:id/transition", ncrHandler.Transition)

	recHandler := handlers.NewReconciliationHandler(base, a.StockTakes, a.Reports)
	recs := api.Group("/reconciliations")
	{
		// Static segment before /:id.
		recs.GET("/report", recHandler.Report)
		recs.GET("", recHandler.List)
		recs.POST("", recHandler.Create)
		recs.GET("/:id", recHandler.Get)
		recs.POST("/:id/start", recHandler.Start)
		recs.POST("/:id/items", recHandler.AddItem)
		recs.PUT("/:id/lines/:line", recHandler.SetCounted)
		recs.POST("/:id/complete", recHandler.Complete)
		recs.POST("/:id/cancel", recHandler.Cancel)
	}

	pobHandler := handlers.NewPOBHandler(base, a.POB)
	pob := api.Group("/pob")
	{
		pob.PUT("", pobHandler.Record)
		pob.GET("", pobHandler.List)
		pob.GET("/manday-cost", pobHandler.MandayCost)
	}

	auditHandler := handlers.NewAuditHandler(base, a.Audit)
	api.GET("/audit/:entity_type/:entity_id", auditHandler.History)
}
