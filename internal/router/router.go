package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/odin-book/backend/internal/handlers"
	"github.com/odin-book/backend/internal/media"
	"github.com/odin-book/backend/internal/middleware"
	"github.com/odin-book/backend/internal/repositories"
	"github.com/odin-book/backend/internal/service"
	"github.com/odin-book/backend/pkg/cache"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, db *mongo.Database, uploads media.Uploader, suggestionCache *cache.Cache, firebaseAuthClient *auth.Client) {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewMongoUserRepository(db)
	postRepo := repositories.NewMongoPostRepository(db)
	commentRepo := repositories.NewMongoCommentRepository(db)

	// --- Initialize Services ---
	friendService := service.NewFriendService(userRepo, suggestionCache)
	postService := service.NewPostService(postRepo, uploads)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, firebaseAuthClient)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// User and profile routes
	userHandler := handlers.NewUserHandler(userRepo, friendService, uploads)
	userHandler.RegisterUserRoutes(api)
	log.Println("User routes configured.")

	// Friendship routes
	friendshipHandler := handlers.NewFriendshipHandler(friendService)
	friendshipHandler.RegisterFriendshipRoutes(api)
	log.Println("Friendship routes configured.")

	// Post routes
	postHandler := handlers.NewPostHandler(postRepo, postService)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	// Comment routes
	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo)
	commentHandler.RegisterCommentRoutes(api)
	log.Println("Comment routes configured.")

	log.Println("All routes configured.")
}
