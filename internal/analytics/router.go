package analytics

import (
	"busline/internal/shared/config"
	"busline/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupAnalyticsRoutes(rg *gin.RouterGroup, cfg *config.Config, controller Controller) {
	owner := rg.Group("/owner")
	owner.Use(middleware.JWTAuthWithConfig(cfg))
	owner.Use(middleware.RequireRoles("OWNER"))

	reports := owner.Group("/reports")
	{
		reports.GET("/sales", controller.GetOwnerSales) // ?from=YYYY-MM-DD&to=YYYY-MM-DD
	}
}
