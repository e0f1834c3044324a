package repository

import (
	"context"
	"regexp"
	"time"

	"github.com/arzan03/urbanscope/internal/db"
	"github.com/arzan03/urbanscope/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PropertyRepository struct {
	coll *mongo.Collection
}

func NewPropertyRepository(database *mongo.Database) *PropertyRepository {
	return &PropertyRepository{coll: database.Collection(db.PropertiesCollection)}
}

func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, p)
	return translate(err)
}

func (r *PropertyRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	var p models.Property
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// Find returns listings matching the filter, newest first.
func (r *PropertyRepository) Find(ctx context.Context, filter models.PropertyFilter) ([]models.Property, error) {
	query := bson.M{}
	if filter.PropertyType != "" {
		query["property_type"] = filter.PropertyType
	}
	if filter.PropertyTransaction != "" {
		query["property_transaction"] = filter.PropertyTransaction
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Location != "" {
		query["location"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Location), Options: "i"}
	}
	if filter.FeaturedOnly {
		query["featured"] = true
	}
	price := bson.M{}
	if filter.MinPrice != nil {
		price["$gte"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		price["$lte"] = *filter.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	if filter.Offset > 0 {
		opts.SetSkip(filter.Offset)
	}

	return r.find(ctx, query, opts)
}

// FindByIDs loads the given listings, optionally restricted to one status.
func (r *PropertyRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID, status models.ListingStatus) ([]models.Property, error) {
	if len(ids) == 0 {
		return []models.Property{}, nil
	}
	query := bson.M{"_id": bson.M{"$in": ids}}
	if status != "" {
		query["status"] = status
	}
	return r.find(ctx, query, options.Find())
}

func (r *PropertyRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]models.Property, error) {
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	properties := []models.Property{}
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, err
	}
	return properties, nil
}

// Update applies only the fields set in the patch and returns the updated listing.
func (r *PropertyRepository) Update(ctx context.Context, id primitive.ObjectID, patch models.PropertyPatch) (*models.Property, error) {
	set := patchToSet(patch)
	set["updated_at"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Property
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PropertyRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func patchToSet(p models.PropertyPatch) bson.M {
	set := bson.M{}
	if p.PropertyType != nil {
		set["property_type"] = *p.PropertyType
	}
	if p.PropertyTransaction != nil {
		set["property_transaction"] = *p.PropertyTransaction
	}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Location != nil {
		set["location"] = *p.Location
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.Size != nil {
		set["size"] = *p.Size
	}
	if p.Bedrooms != nil {
		set["bedrooms"] = *p.Bedrooms
	}
	if p.Bathrooms != nil {
		set["bathrooms"] = *p.Bathrooms
	}
	if p.Floor != nil {
		set["floor"] = *p.Floor
	}
	if p.AgentName != nil {
		set["agent_name"] = *p.AgentName
	}
	if p.AgentNumber != nil {
		set["agent_number"] = *p.AgentNumber
	}
	if p.Amenities != nil {
		set["amenities"] = *p.Amenities
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Images != nil {
		set["images"] = *p.Images
	}
	if p.VideoURL != nil {
		set["video_url"] = *p.VideoURL
	}
	if p.Featured != nil {
		set["featured"] = *p.Featured
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	return set
}
