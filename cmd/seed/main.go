// Command seed creates the first admin account when the database has none.
package main

import (
	"context"
	"errors"
	"time"

	"github.com/arzan03/urbanscope/internal/config"
	"github.com/arzan03/urbanscope/internal/db"
	"github.com/arzan03/urbanscope/internal/models"
	"github.com/arzan03/urbanscope/internal/repository"
	"github.com/arzan03/urbanscope/internal/services"
	"github.com/arzan03/urbanscope/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func main() {
	log, err := logger.New(logger.Options{Development: true, Command: "seed"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.LoadSeed()
	if err != nil {
		log.Fatal("Invalid seed configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	database := client.Database(cfg.MongoDatabase)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Fatal("Failed to create indexes", zap.Error(err))
	}

	users := repository.NewUserRepository(database)
	if err := seedAdmin(ctx, users, cfg, log); err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}
}

type adminStore interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
	Create(ctx context.Context, user *models.User) error
}

func seedAdmin(ctx context.Context, users adminStore, cfg *config.SeedConfig, log *zap.Logger) error {
	existing, _, err := users.List(ctx, models.UserFilter{Role: models.RoleAdmin, Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info("Admin user already exists", zap.String("email", existing[0].Email))
		return nil
	}

	hash, err := services.HashPassword(cfg.Password)
	if err != nil {
		return err
	}

	now := time.Now()
	admin := &models.User{
		ID:        primitive.NewObjectID(),
		Username:  cfg.Username,
		Email:     cfg.Email,
		Password:  hash,
		Role:      models.RoleAdmin,
		IsActive:  true,
		Favorites: []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return errors.New("an account with the seed username or email already exists")
		}
		return err
	}

	log.Info("Admin user created", zap.String("email", admin.Email))
	return nil
}
