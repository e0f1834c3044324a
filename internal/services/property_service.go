package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arzan03/urbanscope/internal/models"
	"github.com/arzan03/urbanscope/internal/repository"
	"github.com/arzan03/urbanscope/internal/storage"
	"github.com/arzan03/urbanscope/internal/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type PropertyService struct {
	properties PropertyRepository
	users      UserRepository
	media      MediaStore
	log        *zap.Logger
}

func NewPropertyService(properties PropertyRepository, users UserRepository, media MediaStore, log *zap.Logger) *PropertyService {
	return &PropertyService{
		properties: properties,
		users:      users,
		media:      media,
		log:        log,
	}
}

var timeNow = time.Now

var requiredPropertyFields = []string{"propertyType", "propertyTransaction", "title", "location", "price"}

var optionalIntFields = []string{"size", "bedrooms", "bathrooms", "floor"}

// Create validates the input, uploads the images in order and stores the listing.
func (s *PropertyService) Create(ctx context.Context, fields Fields, images []storage.Image) (*models.Property, error) {
	for _, name := range requiredPropertyFields {
		if !fields.present(name) {
			return nil, newError(ErrValidation, name+" is required")
		}
	}
	if len(images) == 0 {
		return nil, newError(ErrValidation, "At least one image is required")
	}

	price, ok := parseFloat(fields["price"])
	if !ok {
		return nil, newError(ErrValidation, "price must be a number")
	}

	ints := map[string]*int{}
	for _, name := range optionalIntFields {
		if !fields.present(name) {
			continue
		}
		v, ok := parseInt(fields[name])
		if !ok {
			return nil, newError(ErrValidation, name+" must be a number")
		}
		ints[name] = &v
	}

	amenities := []models.Amenity{}
	if fields.present("amenities") {
		parsed, err := parseAmenities(fields["amenities"])
		if err != nil {
			s.log.Debug("Ignoring malformed amenities", zap.Error(err))
		} else {
			amenities = parsed
		}
	}

	status := models.StatusActive
	if fields.present("status") {
		status = models.ListingStatus(fields.str("status"))
	}

	p := &models.Property{
		ID:                  primitive.NewObjectID(),
		PropertyType:        models.PropertyType(fields.str("propertyType")),
		PropertyTransaction: models.Transaction(fields.str("propertyTransaction")),
		Title:               fields.str("title"),
		Location:            fields.str("location"),
		Price:               price,
		Size:                ints["size"],
		Bedrooms:            ints["bedrooms"],
		Bathrooms:           ints["bathrooms"],
		Floor:               ints["floor"],
		AgentName:           fields.str("agentName"),
		AgentNumber:         fields.str("agentNumber"),
		Amenities:           amenities,
		Description:         fields.str("description"),
		Images:              []string{},
		VideoURL:            fields.str("videoUrl"),
		Featured:            fields.supplied("featured") && parseBool(fields["featured"]),
		Status:              status,
	}

	if err := utils.Validate.Struct(p); err != nil {
		return nil, newError(ErrValidation, utils.ValidationMessage(err))
	}

	urls, err := s.media.Upload(ctx, images)
	if err != nil {
		return nil, wrapError(ErrUpstream, "Failed to upload images", err)
	}
	p.Images = urls

	now := timeNow()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.properties.Create(ctx, p); err != nil {
		s.discardImages(ctx, urls)
		return nil, fmt.Errorf("create property: %w", err)
	}

	s.log.Info("Property created",
		zap.String("property_id", p.ID.Hex()),
		zap.Int("images", len(urls)),
	)
	return p, nil
}

func subsetOf(urls, allowed []string) bool {
	known := make(map[string]struct{}, len(allowed))
	for _, u := range allowed {
		known[u] = struct{}{}
	}
	for _, u := range urls {
		if _, ok := known[u]; !ok {
			return false
		}
	}
	return true
}

// Update merges the supplied fields into the stored listing. Omitted, null and
// empty fields keep their stored value. New images are appended unless
// currentImages is supplied, in which case the stored sequence becomes
// currentImages followed by the new uploads.
func (s *PropertyService) Update(ctx context.Context, id primitive.ObjectID, fields Fields, images []storage.Image) (*models.Property, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := buildPatch(fields, existing, s.log)

	replaceImages := fields.present("currentImages")
	baseImages := existing.Images
	if replaceImages {
		current, err := parseStringList(fields["currentImages"])
		if err != nil {
			return nil, newError(ErrValidation, "currentImages must be a list of image URLs")
		}
		if !subsetOf(current, existing.Images) {
			return nil, newError(ErrValidation, "currentImages may only contain the listing's existing images")
		}
		baseImages = current
	}
	if len(baseImages)+len(images) == 0 {
		return nil, newError(ErrValidation, "A property must keep at least one image")
	}

	candidate := *existing
	patch.Apply(&candidate)
	candidate.Images = baseImages
	if err := utils.Validate.Struct(&candidate); err != nil {
		return nil, newError(ErrValidation, utils.ValidationMessage(err))
	}

	var uploaded []string
	if len(images) > 0 {
		uploaded, err = s.media.Upload(ctx, images)
		if err != nil {
			return nil, wrapError(ErrUpstream, "Failed to upload images", err)
		}
	}
	if replaceImages || len(uploaded) > 0 {
		final := make([]string, 0, len(baseImages)+len(uploaded))
		final = append(final, baseImages...)
		final = append(final, uploaded...)
		patch.Images = &final
	}

	updated, err := s.properties.Update(ctx, id, patch)
	if err != nil {
		s.discardImages(ctx, uploaded)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "Property not found")
		}
		return nil, fmt.Errorf("update property: %w", err)
	}

	if replaceImages {
		s.discardImages(ctx, dropped(existing.Images, updated.Images))
	}

	return updated, nil
}

func buildPatch(fields Fields, existing *models.Property, log *zap.Logger) models.PropertyPatch {
	var patch models.PropertyPatch

	str := func(name string) *string {
		if !fields.present(name) {
			return nil
		}
		v := fields.str(name)
		return &v
	}

	if v := str("propertyType"); v != nil {
		t := models.PropertyType(*v)
		patch.PropertyType = &t
	}
	if v := str("propertyTransaction"); v != nil {
		t := models.Transaction(*v)
		patch.PropertyTransaction = &t
	}
	if v := str("status"); v != nil {
		st := models.ListingStatus(*v)
		patch.Status = &st
	}
	patch.Title = str("title")
	patch.Location = str("location")
	patch.AgentName = str("agentName")
	patch.AgentNumber = str("agentNumber")
	patch.Description = str("description")
	patch.VideoURL = str("videoUrl")

	// Unparseable numbers are coerced to 0 rather than rejected.
	if fields.present("price") {
		price, _ := parseFloat(fields["price"])
		patch.Price = &price
	}
	intField := func(name string) *int {
		if !fields.present(name) {
			return nil
		}
		v, _ := parseInt(fields[name])
		return &v
	}
	patch.Size = intField("size")
	patch.Bedrooms = intField("bedrooms")
	patch.Bathrooms = intField("bathrooms")
	patch.Floor = intField("floor")

	if fields.supplied("featured") {
		featured := parseBool(fields["featured"])
		patch.Featured = &featured
	}

	if fields.present("amenities") {
		amenities, err := parseAmenities(fields["amenities"])
		if err != nil {
			log.Debug("Keeping stored amenities, update value is malformed",
				zap.String("property_id", existing.ID.Hex()),
				zap.Error(err),
			)
		} else {
			patch.Amenities = &amenities
		}
	}

	return patch
}

// Delete removes the listing after a best-effort removal of its hosted images.
func (s *PropertyService) Delete(ctx context.Context, id primitive.ObjectID) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	s.discardImages(ctx, p.Images)

	if err := s.properties.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "Property not found")
		}
		return fmt.Errorf("delete property: %w", err)
	}

	if err := s.users.RemoveFavoriteFromAll(ctx, id); err != nil {
		s.log.Warn("Failed to remove deleted property from favorites",
			zap.String("property_id", id.Hex()),
			zap.Error(err),
		)
	}

	s.log.Info("Property deleted", zap.String("property_id", id.Hex()))
	return nil
}

func (s *PropertyService) Get(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	p, err := s.properties.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "Property not found")
		}
		return nil, err
	}
	return p, nil
}

func (s *PropertyService) List(ctx context.Context, filter models.PropertyFilter) ([]models.Property, error) {
	return s.properties.Find(ctx, filter)
}

func (s *PropertyService) Featured(ctx context.Context) ([]models.Property, error) {
	return s.properties.Find(ctx, models.PropertyFilter{FeaturedOnly: true})
}

func (s *PropertyService) discardImages(ctx context.Context, urls []string) {
	if len(urls) == 0 {
		return
	}
	if failed := s.media.Delete(ctx, urls); failed > 0 {
		s.log.Warn("Some images could not be deleted",
			zap.Int("attempted", len(urls)),
			zap.Int("failed", failed),
		)
	}
}

// dropped returns the entries of before that are absent from after.
func dropped(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, u := range after {
		keep[u] = struct{}{}
	}
	var out []string
	for _, u := range before {
		if _, ok := keep[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}
