package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"busline/api/routes"
	"busline/internal/analytics"
	"busline/internal/bookings"
	"busline/internal/feed"
	"busline/internal/ledger"
	"busline/internal/notifications"
	"busline/internal/shared/config"
	"busline/internal/shared/database"
	"busline/internal/shared/middleware"
	"busline/internal/trips"
	"busline/internal/users"
	"busline/pkg/cache"
	"busline/pkg/logger"
	"busline/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// @title           Busline Reservations API
// @version         1.0
// @description     Reservation state machine and seat ledger for bus trips.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	appLogger := logger.NewWithOptions(logger.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
		JSON:  !cfg.IsDevelopment(),
	})
	logger.SetDefault(appLogger)

	if envErr != nil {
		if cfg.IsProduction() || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	gin.SetMode(cfg.GinMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, cleanup, err := buildDependencies(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && deps.DB != nil && deps.DB.Redis != nil {
		rateLimiter = ratelimit.NewRateLimiter(deps.DB.Redis, &ratelimit.Config{
			Enabled:                 cfg.RateLimit.Enabled,
			WindowDuration:          cfg.RateLimit.WindowDuration,
			DefaultRequests:         cfg.RateLimit.DefaultRequests,
			PublicRequests:          cfg.RateLimit.PublicRequests,
			BookingRequests:         cfg.RateLimit.BookingRequests,
			BookingCriticalRequests: cfg.RateLimit.BookingCriticalRequests,
			OwnerRequests:           cfg.RateLimit.OwnerRequests,
			UserRequests:            cfg.RateLimit.UserRequests,
			HealthRequests:          cfg.RateLimit.HealthRequests,
			WhitelistedIPs:          cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	router := setupRouter(cfg, deps, rateLimiter, appLogger)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("swagger", fmt.Sprintf("http://localhost:%s/swagger/index.html", cfg.Port)),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("built", BuildTime),
			slog.String("store_driver", cfg.StoreDriver),
			slog.Bool("kafka", cfg.Kafka.Enabled),
			slog.Bool("rate_limiting", rateLimiter != nil),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

// buildDependencies wires the store driver, cache, change feed, notifications
// and the ledger audit. cleanup stops them in reverse order.
func buildDependencies(ctx context.Context, cfg *config.Config, log *logger.Logger) (routes.Dependencies, func(), error) {
	deps := routes.Dependencies{
		Hub: feed.NewHub(cfg.Feed.SubscriberBuffer, log),
		Log: log,
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var positions ledger.PositionSource
	if cfg.UsesMemoryStore() {
		catalog := trips.NewMemoryCatalog()
		directory := users.NewMemoryDirectory()
		store := bookings.NewMemoryStore(catalog, ledger.NewMemoryLedger())
		if err := loadDemo(store, directory); err != nil {
			return deps, cleanup, err
		}

		deps.Store = store
		deps.Catalog = catalog
		deps.Directory = directory
		deps.Sales = analytics.NewStoreRepository(store)
		positions = store
		log.Info("Using in-memory store with demo data")
	} else {
		db, err := database.InitDB(ctx, cfg, log)
		if err != nil {
			return deps, cleanup, err
		}
		closers = append(closers, func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing databases", slog.Any("error", err))
			}
		})

		var catalog trips.Catalog = trips.NewRepository(db.PostgreSQL)
		var cacheService cache.Service
		if db.Redis != nil {
			cacheService = cache.NewService(db.Redis, log)
			catalog = trips.NewCachedCatalog(catalog, cacheService, cfg.Redis.CatalogTTL)
			deps.Cache = cacheService
		}

		deps.DB = db
		deps.Store = bookings.NewGormStore(db.PostgreSQL)
		deps.Catalog = catalog
		deps.Directory = users.NewDirectory(db.PostgreSQL, cacheService, cfg.Redis.ProfileTTL)
		deps.Sales = analytics.NewRepository(db.PostgreSQL)
		positions = ledger.NewGormPositions(db.PostgreSQL)
	}

	notifier, err := buildNotifications(cfg, deps.Hub, log)
	if err != nil {
		return deps, cleanup, err
	}
	notifier.Start(ctx)
	closers = append(closers, func() {
		log.Info("Stopping notification service...")
		if err := notifier.Stop(); err != nil {
			log.Error("Error stopping notification service", slog.Any("error", err))
		}
	})
	deps.Notifier = notifier
	deps.Publisher = notifier

	if cfg.Audit.Enabled {
		job := ledger.NewAuditJob(ledger.NewAuditor(positions, log), cfg.Audit.Interval, log)
		job.Start(ctx)
		closers = append(closers, job.Stop)
		deps.Audit = job
	}

	return deps, cleanup, nil
}

func buildNotifications(cfg *config.Config, hub *feed.Hub, log *logger.Logger) (notifications.Service, error) {
	notices := notifications.LogNotices(log)
	if !cfg.Kafka.Enabled {
		log.Info("Kafka disabled, events go straight to the local feed")
		return notifications.NewLocalService(hub, notices), nil
	}

	instanceID := uuid.NewString()
	svc, err := notifications.NewKafkaService(cfg.Kafka, instanceID, hub, notices, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Kafka notifications: %w", err)
	}
	log.Info("Kafka notifications initialized",
		slog.Any("brokers", cfg.Kafka.Brokers),
		slog.String("instance_id", instanceID),
	)
	return svc, nil
}

func loadDemo(store *bookings.MemoryStore, directory *users.MemoryDirectory) error {
	demo := database.DemoData(time.Now())
	for _, u := range demo.Users {
		directory.Put(u)
	}
	for _, f := range demo.Trips {
		if _, err := store.AddTrip(f.Trip, f.Points...); err != nil {
			return fmt.Errorf("failed to load trip %s: %w", f.Trip.BusNumber, err)
		}
	}
	return nil
}

func setupRouter(cfg *config.Config, deps routes.Dependencies, rateLimiter *ratelimit.RateLimiter, log *logger.Logger) *gin.Engine {
	engine := gin.New()

	engine.Use(middleware.RequestID(), middleware.RequestLogger(log), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter, log))
	}

	routes.NewRouter(cfg, deps).SetupRoutes(engine)

	return engine
}
