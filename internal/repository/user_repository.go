package repository

import (
	"context"
	"time"

	"github.com/arzan03/urbanscope/internal/db"
	"github.com/arzan03/urbanscope/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(database *mongo.Database) *UserRepository {
	return &UserRepository{coll: database.Collection(db.UsersCollection)}
}

var withoutPassword = bson.M{"password": 0}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Favorites == nil {
		user.Favorites = []primitive.ObjectID{}
	}
	_, err := r.coll.InsertOne(ctx, user)
	return translate(err)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// List returns one page of users, newest first, together with the total match count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	query := bson.M{}
	if filter.Role != "" {
		query["role"] = filter.Role
	}
	if filter.ActiveOnly {
		query["is_active"] = true
	}

	opts := options.Find().
		SetProjection(withoutPassword).
		SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		opts.SetLimit(filter.Limit).SetSkip((page - 1) * filter.Limit)
	}

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, err
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	return r.updateWhere(ctx, bson.M{"_id": id}, update)
}

// updateWhere applies update to the document matching filter. No match is ErrNotFound.
func (r *UserRepository) updateWhere(ctx context.Context, filter, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"last_login": at}})
}

// SetResetCode stores the hashed reset code and its expiry together.
func (r *UserRepository) SetResetCode(ctx context.Context, id primitive.ObjectID, codeHash string, expires time.Time) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{
		"reset_password_token":  codeHash,
		"reset_password_expire": expires,
	}})
}

// ClearResetCode removes the reset code hash and expiry together.
func (r *UserRepository) ClearResetCode(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{"$unset": unsetResetCode})
}

var unsetResetCode = bson.M{
	"reset_password_token":  "",
	"reset_password_expire": "",
}

// ConsumeResetCode clears the reset code if it still matches codeHash. Of several
// concurrent consumers of one code, exactly one sees a nil error.
func (r *UserRepository) ConsumeResetCode(ctx context.Context, id primitive.ObjectID, codeHash string) error {
	filter := bson.M{"_id": id, "reset_password_token": codeHash}
	return r.updateWhere(ctx, filter, bson.M{"$unset": unsetResetCode})
}

// UpdatePassword replaces the password hash and clears any reset code in a single
// write, guarded on the password_changed_at value the caller read.
func (r *UserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string, changedAt time.Time, prevChangedAt *time.Time) error {
	filter := bson.M{"_id": id, "password_changed_at": nil}
	if prevChangedAt != nil {
		filter["password_changed_at"] = *prevChangedAt
	}
	return r.updateWhere(ctx, filter, bson.M{
		"$set": bson.M{
			"password":            passwordHash,
			"password_changed_at": changedAt,
			"updated_at":          changedAt,
		},
		"$unset": unsetResetCode,
	})
}

func (r *UserRepository) Update(ctx context.Context, id primitive.ObjectID, upd models.UserUpdate) (*models.User, error) {
	set := bson.M{"updated_at": time.Now()}
	if upd.Username != nil {
		set["username"] = *upd.Username
	}
	if upd.IsActive != nil {
		set["is_active"] = *upd.IsActive
	}
	if upd.Role != nil {
		set["role"] = *upd.Role
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)

	var user models.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) modifyFavorites(ctx context.Context, userID primitive.ObjectID, update bson.M) (*models.User, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)

	var user models.User
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// AddFavorite adds the listing to the user's favorites; $addToSet keeps the set deduplicated.
func (r *UserRepository) AddFavorite(ctx context.Context, userID, propertyID primitive.ObjectID) (*models.User, error) {
	return r.modifyFavorites(ctx, userID, bson.M{"$addToSet": bson.M{"favorites": propertyID}})
}

func (r *UserRepository) RemoveFavorite(ctx context.Context, userID, propertyID primitive.ObjectID) (*models.User, error) {
	return r.modifyFavorites(ctx, userID, bson.M{"$pull": bson.M{"favorites": propertyID}})
}

// RemoveFavoriteFromAll drops a deleted listing from every user's favorites.
func (r *UserRepository) RemoveFavoriteFromAll(ctx context.Context, propertyID primitive.ObjectID) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"favorites": propertyID},
		bson.M{"$pull": bson.M{"favorites": propertyID}},
	)
	return err
}
