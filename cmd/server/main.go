package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/odin-book/backend/internal/media"
	"github.com/odin-book/backend/internal/router"
	"github.com/odin-book/backend/pkg/cache"
	"github.com/odin-book/backend/pkg/config"
	"github.com/odin-book/backend/pkg/firebase"
)

func main() {
	// Initialize database connection
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB() // Ensure database connection is closed when main exits

	// Load configuration
	cfg := config.Load()

	// Initialize Firebase auth (optional, disabled when no credentials configured)
	ctx := context.Background()
	firebaseAuthClient, err := firebase.NewAuthClient(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}
	if firebaseAuthClient == nil {
		log.Println("Firebase credentials not configured, Firebase login disabled.")
	}

	// Initialize Cloudinary uploader
	uploads, err := media.NewCloudinaryUploader(cfg.CloudinaryURL)
	if err != nil {
		log.Fatalf("Failed to initialize Cloudinary: %v", err)
	}

	// Initialize Redis-backed suggestions cache (optional, no-op when unset)
	suggestionCache := cache.New(cfg.RedisAddr)
	defer suggestionCache.Close()

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	router.SetupRoutes(e, db.Mongo.Database(cfg.MongoDatabase), uploads, suggestionCache, firebaseAuthClient)

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
