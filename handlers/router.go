package handlers

import (
	"junctionflow/config"
	"junctionflow/middleware"
	"junctionflow/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store is everything the router needs from the database.
type Store interface {
	JunctionStore
	Pinger
}

// SetupRouter builds the read-only API.
func SetupRouter(cfg *config.Config, store Store, cache *services.CacheService, auth *services.AuthService) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.SetupCORS(cfg.CORS))

	router.GET("/health", Health(store))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	junctions := NewJunctionHandler(store, cache)
	api := router.Group("/api/junctions")
	{
		api.GET("", junctions.List)
		api.GET("/summary", junctions.Summary)
		api.GET("/export.csv", middleware.RequireToken(auth), junctions.ExportCSV)
	}

	router.GET("/ws/live", middleware.RequireToken(auth), LiveWebSocket(cache, cfg.Redis.Channel, cfg.Server.WSPingPeriod))

	return router
}
