package db

import (
	"context"
	"fmt"
	"time"

	"github.com/arzan03/urbanscope/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	UsersCollection      = "users"
	PropertiesCollection = "properties"
)

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, nil
}

// EnsureIndexes creates the uniqueness and secondary indexes both collections rely on.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	users := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	}
	if _, err := database.Collection(UsersCollection).Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}

	properties := []mongo.IndexModel{
		{Keys: bson.D{{Key: "property_type", Value: 1}, {Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "featured", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	if _, err := database.Collection(PropertiesCollection).Indexes().CreateMany(ctx, properties); err != nil {
		return fmt.Errorf("property indexes: %w", err)
	}
	return nil
}

// MigrateRoles rewrites every stored role that is not one of models.Roles onto
// its normalized value, including documents with no role at all.
func MigrateRoles(ctx context.Context, database *mongo.Database, log *zap.Logger) error {
	coll := database.Collection(UsersCollection)

	raw, err := coll.Distinct(ctx, "role", bson.M{})
	if err != nil {
		return fmt.Errorf("distinct roles: %w", err)
	}

	for _, v := range raw {
		stored, ok := v.(string)
		if !ok {
			continue
		}
		if models.Role(stored).Valid() {
			continue
		}
		target := models.NormalizeRole(stored)
		res, err := coll.UpdateMany(ctx,
			bson.M{"role": stored},
			bson.M{"$set": bson.M{"role": target}},
		)
		if err != nil {
			return fmt.Errorf("normalize role %q: %w", stored, err)
		}
		log.Info("Normalized stored role",
			zap.String("from", stored),
			zap.String("to", string(target)),
			zap.Int64("modified", res.ModifiedCount),
		)
	}

	res, err := coll.UpdateMany(ctx,
		bson.M{"$or": bson.A{
			bson.M{"role": bson.M{"$exists": false}},
			bson.M{"role": bson.M{"$type": "null"}},
		}},
		bson.M{"$set": bson.M{"role": models.RoleUser}},
	)
	if err != nil {
		return fmt.Errorf("default missing roles: %w", err)
	}
	if res.ModifiedCount > 0 {
		log.Info("Assigned default role", zap.Int64("modified", res.ModifiedCount))
	}
	return nil
}
