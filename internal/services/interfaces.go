package services

import (
	"context"
	"time"

	"github.com/arzan03/urbanscope/internal/models"
	"github.com/arzan03/urbanscope/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepository is the credential store. Lookups return repository.ErrNotFound
// for missing documents and writes return repository.ErrDuplicate on unique clashes.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
	SetLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	SetResetCode(ctx context.Context, id primitive.ObjectID, codeHash string, expires time.Time) error
	ClearResetCode(ctx context.Context, id primitive.ObjectID) error
	// ConsumeResetCode clears the reset code only if it still equals codeHash.
	ConsumeResetCode(ctx context.Context, id primitive.ObjectID, codeHash string) error
	// UpdatePassword writes the new hash only if password_changed_at still equals
	// prevChangedAt (nil meaning never changed).
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string, changedAt time.Time, prevChangedAt *time.Time) error
	Update(ctx context.Context, id primitive.ObjectID, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddFavorite(ctx context.Context, userID, propertyID primitive.ObjectID) (*models.User, error)
	RemoveFavorite(ctx context.Context, userID, propertyID primitive.ObjectID) (*models.User, error)
	RemoveFavoriteFromAll(ctx context.Context, propertyID primitive.ObjectID) error
}

type PropertyRepository interface {
	Create(ctx context.Context, p *models.Property) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error)
	Find(ctx context.Context, filter models.PropertyFilter) ([]models.Property, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID, status models.ListingStatus) ([]models.Property, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.PropertyPatch) (*models.Property, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// MediaStore is the image host. Delete is best-effort and reports the failure count.
type MediaStore interface {
	Upload(ctx context.Context, images []storage.Image) ([]string, error)
	Delete(ctx context.Context, urls []string) int
}

type Mailer interface {
	SendPasswordReset(ctx context.Context, to, username, code string, validFor time.Duration) error
	SendWelcome(ctx context.Context, to, username string) error
}
