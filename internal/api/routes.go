package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/card-catalog/internal/api/handlers"
	"github.com/codyseavey/card-catalog/internal/config"
	"github.com/codyseavey/card-catalog/internal/services"
)

// Services bundles what the router needs from the service layer.
type Services struct {
	Cache       *services.CatalogCache
	Store       handlers.CardLookup
	BanList     *services.BanListService
	DeckChecker *services.DeckChecker
	Authorizer  Authorizer
	RateLimiter *ClientRateLimiter
}

func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	router := gin.Default()
	router.Use(MetricsMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	catalogHandler := handlers.NewCatalogHandler(svc.Cache, svc.Store)
	adminHandler := handlers.NewAdminHandler(svc.BanList)
	deckHandler := handlers.NewDeckHandler(svc.DeckChecker)

	api := router.Group("/api")
	{
		catalog := api.Group("/catalog")
		{
			catalog.GET("", catalogHandler.GetCatalog)
			catalog.GET("/cards/:id", catalogHandler.GetCard)
			catalog.GET("/version", catalogHandler.GetVersion)
			catalog.GET("/status", catalogHandler.GetStatus)
		}

		admin := api.Group("/admin")
		if svc.RateLimiter != nil {
			admin.Use(svc.RateLimiter.Middleware())
		}
		admin.Use(RequireAdmin(svc.Authorizer))
		{
			admin.PUT("/ban-list/batch", adminHandler.ApplyBanListBatch)
			admin.PATCH("/cards/:id", adminHandler.UpdateCard)
		}

		decks := api.Group("/decks")
		{
			decks.POST("/validate", deckHandler.ValidateDeck)
		}
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if svc.Cache.Degraded() {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{"status": status, "version": svc.Cache.Version()})
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
