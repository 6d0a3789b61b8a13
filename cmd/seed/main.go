package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"busline/internal/shared/config"
	"busline/internal/shared/constants"
	"busline/internal/shared/database"
	"busline/pkg/cache"
	"busline/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("🌱 Starting Busline Database Seeder...")

	_ = godotenv.Load()
	cfg := config.Load()
	appLogger := logger.NewWithOptions(logger.Options{Level: "warn"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.InitDB(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	fmt.Println("\n🧹 Cleaning database...")
	if err := database.Clean(ctx, db.PostgreSQL); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	demo := database.DemoData(time.Now())
	if err := database.Seed(ctx, db.PostgreSQL, demo); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	for _, u := range demo.Users {
		fmt.Printf("    ✅ Created user: %s (%s) %s\n", u.Name, u.Role, u.ID)
	}
	for _, f := range demo.Trips {
		fmt.Printf("    ✅ Created trip: %s %s at %s, %d seats, %d boarding points\n",
			f.Trip.BusNumber, f.Trip.Route(), f.Trip.DepartureTime.Format(time.RFC3339), f.Trip.Capacity, len(f.Points))
	}

	// Clear cached catalog reads so the new trips are served fresh
	if db.Redis != nil {
		cacheService := cache.NewService(db.Redis, appLogger)
		if err := cacheService.DeletePattern(ctx, constants.CACHE_PREFIX+":*"); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}
