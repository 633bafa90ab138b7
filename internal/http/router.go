package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/fincrest/expensehub/internal/config"
	"github.com/fincrest/expensehub/internal/domain/user"
	"github.com/fincrest/expensehub/internal/http/handlers"
	"github.com/fincrest/expensehub/internal/http/middlewares"
	"github.com/fincrest/expensehub/internal/observability"
)

// RateLimiter is satisfied by both the in-memory and the redis-backed
// limiter.
type RateLimiter interface {
	RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc
}

type Deps struct {
	Cfg  config.Config
	Log  *slog.Logger
	Prom *observability.Prom

	Auth       *handlers.AuthHandler
	Categories *handlers.CategoriesHandler
	Expenses   *handlers.ExpensesHandler
	Reports    *handlers.ReportsHandler
	Health     *handlers.HealthHandler

	AuthMW      *middlewares.AuthMiddleware
	AuthLimiter RateLimiter

	PromRegistry *prometheus.Registry
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(deps.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.Cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(otelgin.Middleware("expensehub"))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	r.GET("/health", deps.Health.Liveness)
	r.GET("/health/ready", deps.Health.Readiness)

	if deps.PromRegistry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.PromRegistry, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	v1.Use(middlewares.RequireJSON())

	authGroup := v1.Group("/auth")
	{
		if deps.AuthLimiter != nil {
			authGroup.Use(deps.AuthLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
		}
		authGroup.POST("/register", deps.Auth.Register)
		authGroup.POST("/login", deps.Auth.Login)
		authGroup.GET("/me", deps.AuthMW.RequireAuth(), deps.Auth.Me)
	}

	categories := v1.Group("/categories", deps.AuthMW.RequireAuth())
	{
		categories.GET("", deps.Categories.List)
		categories.POST("", deps.AuthMW.RequireRole(user.RoleManager), deps.Categories.Create)
		categories.DELETE("/:id", deps.AuthMW.RequireRole(user.RoleManager), deps.Categories.Delete)
	}

	expenses := v1.Group("/expenses", deps.AuthMW.RequireAuth())
	{
		expenses.POST("", deps.Expenses.Create)
		expenses.GET("", deps.Expenses.List)
		expenses.GET("/pending", deps.AuthMW.RequireRole(user.RoleManager), deps.Expenses.ListPending)
		expenses.GET("/:id", deps.Expenses.Get)
		expenses.PUT("/:id", deps.Expenses.Update)
		expenses.DELETE("/:id", deps.Expenses.Delete)
		expenses.POST("/:id/approve", deps.AuthMW.RequireRole(user.RoleManager), deps.Expenses.Approve)
		expenses.POST("/:id/reject", deps.AuthMW.RequireRole(user.RoleManager), deps.Expenses.Reject)
	}

	reports := v1.Group("/reports", deps.AuthMW.RequireAuth())
	{
		reports.GET("/summary", deps.Reports.ByCategory)
		reports.GET("/by-user", deps.AuthMW.RequireRole(user.RoleManager), deps.Reports.ByUser)
		reports.GET("/by-status", deps.Reports.ByStatus)
	}

	return r
}
