package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/pulse-social/backend/internal/handlers"
	"github.com/pulse-social/backend/internal/middleware"
	"github.com/pulse-social/backend/internal/models"
	"github.com/pulse-social/backend/internal/notifications"
	"github.com/pulse-social/backend/internal/presence"
	"github.com/pulse-social/backend/internal/push"
	"github.com/pulse-social/backend/internal/realtime"
	"github.com/pulse-social/backend/internal/repositories"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, pgdb *gorm.DB, mgClient *mongo.Client, redisClient *redis.Client, firebaseAuthClient *auth.Client, messagingClient *messaging.Client) {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.DeviceToken{},
		&models.Follow{},
		&models.Block{},
		&models.Mute{},
		&models.Like{},
		&models.Repost{},
		&models.Bookmark{},
		&models.Chat{},
		&models.ChatMember{},
		&models.Message{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	mongoDB := mgClient.Database("pulse")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	followRepo := repositories.NewPostgresFollowRepository(pgdb)
	tweetRepo := repositories.NewTweetRepository(mongoDB, pgdb)
	interactionRepo := repositories.NewPostgresInteractionRepository(pgdb)
	chatRepo := repositories.NewPostgresChatRepository(pgdb)
	notificationRepo := repositories.NewMongoNotificationRepository(mongoDB)
	cleanupQueue := repositories.NewRedisCleanupQueue(redisClient)

	// --- Realtime and delivery infrastructure ---
	hub := realtime.NewHub()
	registry := presence.NewRegistry()
	pushSender := push.NewFCMSender(messagingClient, userRepo)

	pipeline := notifications.NewPipeline(userRepo, tweetRepo, cleanupQueue)
	deliveryRouter := notifications.NewRouter(registry, hub, pushSender)
	notifier := notifications.NewService(notificationRepo, pipeline, deliveryRouter)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, firebaseAuthClient)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo)
	userHandler.RegisterProfileRoutes(api)
	log.Println("User profile routes configured.")

	// Follow / block / mute routes
	followHandler := handlers.NewFollowHandler(followRepo, notifier)
	followHandler.RegisterFollowRoutes(api)
	log.Println("Follow routes configured.")

	// Tweet and interaction routes
	tweetHandler := handlers.NewTweetHandler(tweetRepo, interactionRepo, notifier)
	tweetHandler.RegisterTweetRoutes(api)
	log.Println("Tweet routes configured.")

	// Chat routes
	chatHandler := handlers.NewChatHandler(chatRepo, notifier, hub)
	chatHandler.RegisterChatRoutes(api)
	log.Println("Chat routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notifier)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	// Realtime upgrade
	wsHandler := handlers.NewWSHandler(hub, registry, chatRepo)
	wsHandler.RegisterWSRoutes(api)
	log.Println("Realtime routes configured.")

	log.Println("All routes configured.")
}
