package routes

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/folio-service/folio_service/internal/api/handlers"
	"github.com/folio-service/folio_service/internal/api/middleware"
	"github.com/folio-service/folio_service/internal/infrastructure/di"
	"github.com/folio-service/folio_service/pkg/tracing"
	"github.com/folio-service/folio_service/pkg/version"
)

// tickerRule accepts exchange symbols: 1-12 uppercase letters, digits,
// dots or dashes, after normalization. CASH is a valid ticker here; the
// ledger service decides where it is allowed.
func tickerRule(fl validator.FieldLevel) bool {
	ticker := strings.ToUpper(strings.TrimSpace(fl.Field().String()))
	if len(ticker) == 0 || len(ticker) > 12 {
		return false
	}
	for _, r := range ticker {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-':
		default:
			return false
		}
	}
	return true
}

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	router := gin.New()

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("ticker", tickerRule)
	}

	router.Use(tracing.HTTPMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.Logger(container.Logger))
	router.Use(middleware.Recovery(container.Logger))
	router.Use(middleware.CORS(container.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(container.Config.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	healthHandler := handlers.NewHealthHandler(container.DB, container.Redis, container.Logger)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/live", healthHandler.Live)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, version.Get())
	})

	if container.Config.Environment != "production" {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	portfolioHandler := handlers.NewPortfolioHandler(container.PortfolioService, container.Logger)
	transactionHandler := handlers.NewTransactionHandler(container.LedgerService, container.PortfolioService, container.Logger)
	positionHandler := handlers.NewPositionHandler(container.PositionService, container.PortfolioService, container.Logger)
	performanceHandler := handlers.NewPerformanceHandler(container.PerformanceService, container.PortfolioService, container.RecalculationWorker, container.Logger)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Authentication(container.Config))
	{
		portfolios := v1.Group("/portfolios")
		{
			portfolios.POST("", portfolioHandler.Create)
			portfolios.GET("", portfolioHandler.List)
			portfolios.GET("/:id", portfolioHandler.Get)
			portfolios.DELETE("/:id", portfolioHandler.Delete)

			portfolios.POST("/:id/transactions", transactionHandler.Create)
			portfolios.GET("/:id/transactions", transactionHandler.List)
			portfolios.DELETE("/:id/transactions/:txnId", transactionHandler.Delete)

			portfolios.GET("/:id/positions", positionHandler.List)

			portfolios.GET("/:id/performance/daily", performanceHandler.Daily)
			portfolios.GET("/:id/performance/cumulative", performanceHandler.Cumulative)
			portfolios.POST("/:id/performance/snapshot", performanceHandler.Snapshot)
			portfolios.POST("/:id/performance/recalculate", performanceHandler.Recalculate)
		}
	}

	return router
}
