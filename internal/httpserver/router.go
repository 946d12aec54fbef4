package httpserver

import (
	"context"
	"errors"
	"time"

	"grocery-storefront/internal/backend"
	"grocery-storefront/internal/domain"
	"grocery-storefront/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// SessionManager owns the per-user cart stores and search controllers.
type SessionManager interface {
	Start(ctx context.Context, tokens backend.Tokens) (*session.Session, error)
	Get(id string) (*session.Session, error)
	End(id string) error
}

type SuggestionService interface {
	Suggest(ctx context.Context, prefix string, limit int) ([]domain.SearchTerm, error)
}

// Deps bundles the services the handlers call. Suggestions is optional.
type Deps struct {
	Sessions    SessionManager
	Suggestions SuggestionService
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps, corsOrigins []string) (*gin.Engine, error) {
	if deps.Sessions == nil {
		return nil, errors.New("httpserver: session manager is required")
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(zap.NewStdLog(logger.Named("access")).Writer()), gin.Recovery())
	if len(corsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     corsOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", sessionHeader},
			ExposeHeaders:    []string{sessionHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{logger: logger, deps: deps}

	api := router.Group("/api")
	api.POST("/sessions", h.startSession)

	authed := api.Group("")
	authed.Use(sessionMiddleware(deps.Sessions))
	authed.DELETE("/sessions/current", h.endSession)

	authed.GET("/cart", h.getCart)
	authed.POST("/cart/refresh", h.refreshCart)
	authed.GET("/cart/summary", h.cartSummary)
	authed.POST("/cart/lines", h.addLine)
	authed.DELETE("/cart/lines", h.clearCart)
	authed.PATCH("/cart/lines/:id", h.updateLine)
	authed.DELETE("/cart/lines/:id", h.removeLine)
	authed.POST("/cart/lines/:id/increment", h.incrementLine)
	authed.POST("/cart/lines/:id/decrement", h.decrementLine)
	authed.POST("/cart/open", h.openCart)
	authed.POST("/cart/close", h.closeCart)
	authed.DELETE("/cart/error", h.dismissCartError)

	authed.GET("/search", h.getSearch)
	authed.PUT("/search/term", h.setSearchTerm)
	authed.POST("/search/suggestions/accept", h.acceptSuggestion)
	authed.GET("/search/suggestions", h.listSuggestions)
	authed.PATCH("/search/filters", h.updateFilters)
	authed.DELETE("/search/filters", h.clearFilters)

	authed.GET("/categories", h.listCategories)

	return router, nil
}

type handlers struct {
	logger *zap.Logger
	deps   Deps
}
