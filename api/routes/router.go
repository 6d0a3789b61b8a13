// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	_ "busline/docs"
	"busline/internal/analytics"
	"busline/internal/bookings"
	"busline/internal/feed"
	"busline/internal/ledger"
	"busline/internal/shared/config"
	"busline/internal/shared/database"
	"busline/internal/trips"
	"busline/internal/users"
	"busline/pkg/cache"
	"busline/pkg/logger"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies are the wired components the routes are built from
type Dependencies struct {
	DB        *database.DB // nil with the memory store
	Cache     cache.Service
	Store     bookings.Store
	Catalog   trips.Catalog
	Directory users.Directory
	Sales     analytics.Repository
	Hub       *feed.Hub
	Notifier  bookings.Notifier
	Publisher feed.Publisher
	Audit     *ledger.AuditJob
	Log       *logger.Logger
}

// Router holds all route dependencies
type Router struct {
	config *config.Config
	deps   Dependencies
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, deps Dependencies) *Router {
	if deps.Log == nil {
		deps.Log = logger.GetDefault()
	}
	return &Router{
		config: cfg,
		deps:   deps,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupReservationRoutes(api)
		r.setupFeedRoutes(api)
		r.setupAnalyticsRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"timestamp":    time.Now(),
			"service":      "busline",
			"store_driver": r.config.StoreDriver,
		}
		if r.deps.Audit != nil {
			body["ledger_audit"] = r.deps.Audit.Status()
		}
		if r.deps.Hub != nil {
			body["feed_dropped"] = r.deps.Hub.Dropped()
		}

		if r.deps.DB != nil {
			if err := r.deps.DB.HealthCheck(c.Request.Context()); err != nil {
				body["status"] = "unhealthy"
				body["error"] = err.Error()
				c.JSON(http.StatusServiceUnavailable, body)
				return
			}
		}

		body["status"] = "healthy"
		c.JSON(http.StatusOK, body)
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupReservationRoutes configures reservation and ticket routes
func (r *Router) setupReservationRoutes(rg *gin.RouterGroup) {
	opts := []bookings.Option{}
	if r.deps.Publisher != nil {
		opts = append(opts, bookings.WithPublisher(r.deps.Publisher))
	}
	if r.deps.Notifier != nil {
		opts = append(opts, bookings.WithNotifier(r.deps.Notifier))
	}

	service := bookings.NewService(r.deps.Store, r.deps.Catalog, r.deps.Directory, r.deps.Log, opts...)
	controller := bookings.NewController(service, r.deps.Log)

	bookings.SetupReservationRoutes(rg, r.config, controller)
}

// setupFeedRoutes configures the websocket change feed
func (r *Router) setupFeedRoutes(rg *gin.RouterGroup) {
	if r.deps.Hub == nil {
		return
	}
	controller := feed.NewController(r.deps.Hub, r.deps.Catalog, feed.StreamConfig{
		PingPeriod: r.config.Feed.PingPeriod,
		PongWait:   r.config.Feed.PongWait,
		WriteWait:  r.config.Feed.WriteWait,
	}, r.deps.Log)

	feed.SetupFeedRoutes(rg, r.config, controller)
}

// setupAnalyticsRoutes configures owner reports
func (r *Router) setupAnalyticsRoutes(rg *gin.RouterGroup) {
	service := analytics.NewService(r.deps.Sales, r.deps.Catalog, r.deps.Cache, r.deps.Log)
	controller := analytics.NewController(service)

	analytics.SetupAnalyticsRoutes(rg, r.config, controller)
}
