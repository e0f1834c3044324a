package services

import (
	"context"
	"errors"

	"github.com/arzan03/urbanscope/internal/models"
	"github.com/arzan03/urbanscope/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// FavoriteService maintains the user-to-listing favorites set stored on each user.
type FavoriteService struct {
	users      UserRepository
	properties PropertyRepository
	log        *zap.Logger
}

func NewFavoriteService(users UserRepository, properties PropertyRepository, log *zap.Logger) *FavoriteService {
	return &FavoriteService{users: users, properties: properties, log: log}
}

// Add puts an existing listing into the user's favorites and returns the populated set.
func (s *FavoriteService) Add(ctx context.Context, userID, propertyID primitive.ObjectID) ([]models.Property, error) {
	if _, err := s.properties.FindByID(ctx, propertyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "Property not found")
		}
		return nil, err
	}

	user, err := s.users.AddFavorite(ctx, userID, propertyID)
	if err != nil {
		return nil, s.userError(err)
	}
	return s.populate(ctx, user.Favorites, "")
}

func (s *FavoriteService) Remove(ctx context.Context, userID, propertyID primitive.ObjectID) ([]models.Property, error) {
	user, err := s.users.RemoveFavorite(ctx, userID, propertyID)
	if err != nil {
		return nil, s.userError(err)
	}
	return s.populate(ctx, user.Favorites, "")
}

// List returns the user's favorite listings that are still active.
func (s *FavoriteService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Property, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, s.userError(err)
	}
	return s.populate(ctx, user.Favorites, models.StatusActive)
}

func (s *FavoriteService) IsFavorite(ctx context.Context, userID, propertyID primitive.ObjectID) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return false, s.userError(err)
	}
	return user.HasFavorite(propertyID), nil
}

// populate resolves favorite ids to listings, keeping the order of ids and
// skipping listings that no longer exist or do not match status.
func (s *FavoriteService) populate(ctx context.Context, ids []primitive.ObjectID, status models.ListingStatus) ([]models.Property, error) {
	found, err := s.properties.FindByIDs(ctx, ids, status)
	if err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]models.Property, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	out := make([]models.Property, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *FavoriteService) userError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(ErrNotFound, "User not found")
	}
	return err
}
