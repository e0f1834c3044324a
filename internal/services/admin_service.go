package services

import (
	"context"
	"errors"
	"strings"

	"github.com/arzan03/urbanscope/internal/models"
	"github.com/arzan03/urbanscope/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type AdminService struct {
	users UserRepository
	log   *zap.Logger
}

func NewAdminService(users UserRepository, log *zap.Logger) *AdminService {
	return &AdminService{users: users, log: log}
}

type UserPage struct {
	Users       []models.User `json:"users"`
	TotalPages  int64         `json:"totalPages"`
	CurrentPage int64         `json:"currentPage"`
	Total       int64         `json:"total"`
}

type UpdateUserInput struct {
	Username *string `json:"username"`
	IsActive *bool   `json:"isActive"`
	Role     *string `json:"role"`
}

// ListUsers returns one page of accounts, newest first, optionally filtered by role.
func (s *AdminService) ListUsers(ctx context.Context, role string, page, limit int64) (*UserPage, error) {
	filter := models.UserFilter{Page: page, Limit: limit}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if role != "" {
		r := models.Role(strings.ToLower(role))
		if !r.Valid() {
			return nil, newError(ErrValidation, "Unknown role "+role)
		}
		filter.Role = r
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &UserPage{
		Users:       users,
		TotalPages:  (total + filter.Limit - 1) / filter.Limit,
		CurrentPage: filter.Page,
		Total:       total,
	}, nil
}

// ListAgents returns every active agent account.
func (s *AdminService) ListAgents(ctx context.Context) ([]models.User, error) {
	users, _, err := s.users.List(ctx, models.UserFilter{Role: models.RoleAgent, ActiveOnly: true})
	return users, err
}

func (s *AdminService) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundUser(err)
	}
	return user, nil
}

// UpdateUser edits username, active flag and role. Actors cannot change their
// own role or active flag.
func (s *AdminService) UpdateUser(ctx context.Context, actorID, id primitive.ObjectID, in UpdateUserInput) (*models.User, error) {
	var upd models.UserUpdate

	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if len(name) < 3 || len(name) > 30 {
			return nil, newError(ErrValidation, "username must be between 3 and 30 characters")
		}
		upd.Username = &name
	}
	if in.Role != nil {
		role := models.Role(strings.ToLower(strings.TrimSpace(*in.Role)))
		if !role.Valid() {
			return nil, newError(ErrValidation, "Unknown role "+*in.Role)
		}
		upd.Role = &role
	}
	upd.IsActive = in.IsActive

	if actorID == id && (upd.Role != nil || upd.IsActive != nil) {
		return nil, newError(ErrValidation, "Cannot change your own role or status")
	}

	user, err := s.users.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "Username already taken")
		}
		return nil, notFoundUser(err)
	}

	s.log.Info("User updated by admin",
		zap.String("admin_id", actorID.Hex()),
		zap.String("user_id", id.Hex()),
	)
	return user, nil
}

// DeleteUser removes an account. An actor can never delete their own account here.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, id primitive.ObjectID) error {
	if actorID == id {
		return newError(ErrValidation, "Cannot delete your own account")
	}

	if _, err := s.users.FindByID(ctx, id); err != nil {
		return notFoundUser(err)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return notFoundUser(err)
	}

	s.log.Info("User deleted by admin",
		zap.String("admin_id", actorID.Hex()),
		zap.String("user_id", id.Hex()),
	)
	return nil
}

func notFoundUser(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(ErrNotFound, "User not found")
	}
	return err
}
