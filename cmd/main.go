package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arzan03/urbanscope/internal/config"
	"github.com/arzan03/urbanscope/internal/db"
	"github.com/arzan03/urbanscope/internal/handlers"
	"github.com/arzan03/urbanscope/internal/mailer"
	"github.com/arzan03/urbanscope/internal/middleware"
	"github.com/arzan03/urbanscope/internal/repository"
	"github.com/arzan03/urbanscope/internal/server"
	"github.com/arzan03/urbanscope/internal/services"
	"github.com/arzan03/urbanscope/internal/storage"
	"github.com/arzan03/urbanscope/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(logger.Options{
		Development: !cfg.IsProduction(),
		Level:       cfg.LogLevel,
		Command:     "api",
	})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	// Connect to MongoDB
	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	database := client.Database(cfg.MongoDatabase)

	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Fatal("Failed to create indexes", zap.Error(err))
	}
	if err := db.MigrateRoles(ctx, database, log); err != nil {
		log.Fatal("Failed to migrate roles", zap.Error(err))
	}

	// Initialize MinIO
	minioClient, err := storage.NewMinioClient(storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize MinIO", zap.Error(err))
	}
	media := storage.NewMediaRelay(minioClient, cfg.MinioBucket, cfg.MinioPublicURL, log)

	mail := mailer.NewSMTPMailer(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
	}, log)

	users := repository.NewUserRepository(database)
	properties := repository.NewPropertyRepository(database)
	tokens := services.NewTokenIssuer(cfg.JWTSecret, nil)

	authService := services.NewAuthService(users, tokens, mail, log)
	propertyService := services.NewPropertyService(properties, users, media, log)
	favoriteService := services.NewFavoriteService(users, properties, log)
	adminService := services.NewAdminService(users, log)

	app := server.NewApp(server.Options{
		CORSOrigins:    cfg.CORSOrigins,
		ResetRateLimit: cfg.ResetRateLimit,
		AccessLog:      true,
	}, server.Handlers{
		Gate:     middleware.NewGate(tokens, users, log),
		Auth:     handlers.NewAuthHandler(authService, cfg.IsProduction(), log),
		Property: handlers.NewPropertyHandler(propertyService, log),
		Favorite: handlers.NewFavoriteHandler(favoriteService, log),
		Admin:    handlers.NewAdminHandler(adminService, log),
	}, log)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("Server stopped", zap.Error(err))
	}
}
