package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rims-platform/rims-api/internal/config"
	"github.com/rims-platform/rims-api/internal/database"
	"github.com/rims-platform/rims-api/internal/events"
	"github.com/rims-platform/rims-api/internal/handler"
	"github.com/rims-platform/rims-api/internal/middleware"
	"github.com/rims-platform/rims-api/internal/models"
	"github.com/rims-platform/rims-api/internal/repository"
	"github.com/rims-platform/rims-api/internal/router"
	"github.com/rims-platform/rims-api/internal/service"
	cloud "github.com/rims-platform/rims-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Record{}, &models.RecordFile{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	blobs, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	hub := events.NewHub(logger)

	recordRepo := repository.NewRecordRepository(db)
	userRepo := repository.NewUserRepository(db)

	authService := service.NewAuthService(userRepo, redisClient, service.AuthConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		ResetLinkBase: cfg.ResetLinkBase,
		ResetTokenTTL: cfg.ResetTokenTTL,
	}, validate, logger)

	recordService := service.NewRecordService(recordRepo, blobs, hub, validate, logger)
	adminRecordService := service.NewAdminRecordService(recordRepo, userRepo, blobs, hub, logger)
	adminUserService := service.NewAdminUserService(userRepo, blobs, authService, validate, logger)
	statsService := service.NewStatsService(recordRepo, userRepo, redisClient, cfg.StatsCacheTTL, logger)

	authHandler := handler.NewAuthHandler(authService, logger)
	recordHandler := handler.NewRecordHandler(recordService, statsService, hub, cfg.MaxUploadBytes(), logger)
	adminRecordHandler := handler.NewAdminRecordHandler(adminRecordService, statsService, logger)
	adminUserHandler := handler.NewAdminUserHandler(adminUserService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.MaxUploadBytes()) * 2,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:        authHandler,
		RecordHandler:      recordHandler,
		AdminRecordHandler: adminRecordHandler,
		AdminUserHandler:   adminUserHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret, authService),
		AuthRateLimit:      middleware.RateLimit("auth", 10, time.Minute),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
