package feed

import (
	"busline/internal/shared/config"
	"busline/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupFeedRoutes configures the websocket change feed
func SetupFeedRoutes(rg *gin.RouterGroup, cfg *config.Config, controller *Controller) {
	feed := rg.Group("/feed")
	feed.Use(middleware.JWTAuthWithConfig(cfg))
	{
		feed.GET("/trips/:id", middleware.RequireRoles("SUPERVISOR", "OWNER"), controller.TripFeed) // GET /api/v1/feed/trips/:id
		feed.GET("/riders/me", middleware.RequireRoles("RIDER"), controller.RiderFeed)              // GET /api/v1/feed/riders/me
	}
}
