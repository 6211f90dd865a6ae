package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ebulter/quote-service/internal/adapters/http/handlers"
	"github.com/ebulter/quote-service/internal/adapters/http/middleware"
	"github.com/ebulter/quote-service/internal/platform/telemetry"
)

// RouterConfig contains the dependencies needed to wire all routes.
type RouterConfig struct {
	QuoteHandler  *handlers.QuoteHandler
	AdminHandler  *handlers.AdminHandler
	HealthHandler *handlers.HealthHandler

	// ServiceName is used for tracing spans.
	ServiceName string

	// RequestTimeout bounds request processing; exceeding it yields 504.
	RequestTimeout time.Duration

	Logger *slog.Logger
}

// RegisterRoutes wires the middleware chain and all routes onto the engine.
//
// Middleware order matters: recovery first so it catches everything,
// identifiers before logging so log lines carry them, auth last so
// denials are already logged and traced.
func RegisterRoutes(engine *gin.Engine, cfg *RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
		middleware.CORS(),
		telemetry.Middleware(cfg.ServiceName),
		middleware.Logging(cfg.Logger),
		middleware.Timeout(cfg.RequestTimeout),
	)

	cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)

	api := engine.Group("/api/v1")

	quote := api.Group("/quote")
	{
		quote.GET("", middleware.OptionalAuth(), cfg.QuoteHandler.GetRandomQuote)
		quote.POST("", middleware.OptionalAuth(), cfg.QuoteHandler.GetRandomQuoteExcluding)
		quote.GET("/liked", middleware.OptionalAuth(), cfg.QuoteHandler.GetLikedQuotes)

		authed := quote.Group("", middleware.RequireGroup(middleware.GroupUser, middleware.GroupAdmin))
		{
			authed.GET("/history", cfg.QuoteHandler.GetViewHistory)
			authed.DELETE("/history", cfg.QuoteHandler.ClearViewHistory)
			authed.GET("/progress", cfg.QuoteHandler.GetProgress)
		}

		quote.GET("/:id", middleware.OptionalAuth(), cfg.QuoteHandler.GetQuoteByID)

		perQuote := quote.Group("/:id", middleware.RequireGroup(middleware.GroupUser, middleware.GroupAdmin))
		{
			perQuote.GET("/previous", cfg.QuoteHandler.GetPreviousQuote)
			perQuote.GET("/next", cfg.QuoteHandler.GetNextQuote)
			perQuote.POST("/like", cfg.QuoteHandler.LikeQuote)
			perQuote.POST("/unlike", cfg.QuoteHandler.UnlikeQuote)
			perQuote.DELETE("/unlike", cfg.QuoteHandler.UnlikeQuote)
			perQuote.PUT("/reorder", cfg.QuoteHandler.ReorderLikedQuote)
		}
	}

	admin := api.Group("/admin", middleware.RequireGroup(middleware.GroupAdmin))
	{
		admin.GET("/quotes", cfg.AdminHandler.ListQuotes)
		admin.POST("/quotes/fetch", cfg.AdminHandler.ImportQuotes)
		admin.GET("/likes/total", cfg.AdminHandler.TotalLikes)
	}
}
