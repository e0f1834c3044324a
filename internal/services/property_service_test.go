package services

import (
	"context"
	"testing"
	"time"

	"github.com/arzan03/urbanscope/internal/models"
	"github.com/arzan03/urbanscope/internal/storage"
	"github.com/arzan03/urbanscope/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type propertyFixture struct {
	props *testutil.PropertyStore
	users *testutil.UserStore
	media *testutil.MediaStore
	svc   *PropertyService
}

func newPropertyFixture() *propertyFixture {
	f := &propertyFixture{
		props: testutil.NewPropertyStore(),
		users: testutil.NewUserStore(),
		media: &testutil.MediaStore{},
	}
	f.svc = NewPropertyService(f.props, f.users, f.media, zap.NewNop())
	return f
}

func listingFields() Fields {
	return Fields{
		"propertyType":        "Apartment",
		"propertyTransaction": "Rent",
		"title":               "Flat by the lake",
		"location":            "Kisumu",
		"price":               "45000",
		"bedrooms":            "2",
		"amenities":           `["Wi-Fi","Lake view"]`,
		"featured":            "true",
	}
}

func images(names ...string) []storage.Image {
	out := make([]storage.Image, 0, len(names))
	for _, n := range names {
		out = append(out, storage.Image{Filename: n, ContentType: "image/jpeg", Data: []byte(n)})
	}
	return out
}

func TestPropertyCreate(t *testing.T) {
	f := newPropertyFixture()

	p, err := f.svc.Create(context.Background(), listingFields(), images("a.jpg", "b.jpg"))
	require.NoError(t, err)

	assert.Equal(t, models.PropertyApartment, p.PropertyType)
	assert.Equal(t, 45000.0, p.Price)
	require.NotNil(t, p.Bedrooms)
	assert.Equal(t, 2, *p.Bedrooms)
	assert.Nil(t, p.Size)
	assert.Equal(t, []models.Amenity{"Wi-Fi", "Lake view"}, p.Amenities)
	assert.True(t, p.Featured)
	assert.Equal(t, models.StatusActive, p.Status)
	assert.Equal(t, f.media.Uploaded, p.Images)
	assert.Equal(t, 1, f.props.Len())
}

func TestPropertyCreate_RequiresFieldsAndImages(t *testing.T) {
	f := newPropertyFixture()

	fields := listingFields()
	delete(fields, "title")
	_, err := f.svc.Create(context.Background(), fields, images("a.jpg"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Create(context.Background(), listingFields(), nil)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, f.media.Uploaded)
	assert.Equal(t, 0, f.props.Len())
}

func TestPropertyCreate_ValidatesBeforeUpload(t *testing.T) {
	cases := map[string]func(Fields){
		"bad type":        func(fl Fields) { fl["propertyType"] = "Castle" },
		"negative price":  func(fl Fields) { fl["price"] = "-1" },
		"price not a num": func(fl Fields) { fl["price"] = "cheap" },
		"unknown amenity": func(fl Fields) { fl["amenities"] = `["Helipad"]` },
		"bad bedrooms":    func(fl Fields) { fl["bedrooms"] = "many" },
		"bad status":      func(fl Fields) { fl["status"] = "archived" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newPropertyFixture()
			fields := listingFields()
			mutate(fields)

			_, err := f.svc.Create(context.Background(), fields, images("a.jpg"))
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, f.media.Uploaded)
		})
	}
}

func TestPropertyCreate_MalformedAmenitiesDefaultToEmpty(t *testing.T) {
	f := newPropertyFixture()
	fields := listingFields()
	fields["amenities"] = "{not json"

	p, err := f.svc.Create(context.Background(), fields, images("a.jpg"))
	require.NoError(t, err)
	assert.Empty(t, p.Amenities)
}

func TestPropertyCreate_StoreFailureRemovesUploads(t *testing.T) {
	f := newPropertyFixture()
	f.props.Fail = true

	_, err := f.svc.Create(context.Background(), listingFields(), images("a.jpg", "b.jpg"))
	require.Error(t, err)
	assert.ElementsMatch(t, f.media.Uploaded, f.media.Deleted)
}

func TestPropertyCreate_UploadFailure(t *testing.T) {
	f := newPropertyFixture()
	f.media.FailUpload = true

	_, err := f.svc.Create(context.Background(), listingFields(), images("a.jpg"))
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, 0, f.props.Len())
}

func seedListing(t *testing.T, f *propertyFixture) *models.Property {
	t.Helper()
	p, err := f.svc.Create(context.Background(), listingFields(), images("a.jpg", "b.jpg"))
	require.NoError(t, err)
	return p
}

func TestPropertyUpdate_OnlyPriceChanges(t *testing.T) {
	f := newPropertyFixture()
	before := seedListing(t, f)

	after, err := f.svc.Update(context.Background(), before.ID, Fields{"price": "50000", "title": "", "location": nil}, nil)
	require.NoError(t, err)

	assert.Equal(t, 50000.0, after.Price)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.Location, after.Location)
	assert.Equal(t, before.Images, after.Images)
	assert.Equal(t, before.Amenities, after.Amenities)
	assert.Equal(t, before.Bedrooms, after.Bedrooms)
	assert.Equal(t, before.Featured, after.Featured)
}

func TestPropertyUpdate_AppendsNewImages(t *testing.T) {
	f := newPropertyFixture()
	before := seedListing(t, f)

	after, err := f.svc.Update(context.Background(), before.ID, Fields{}, images("c.jpg"))
	require.NoError(t, err)
	require.Len(t, after.Images, 3)
	assert.Equal(t, before.Images, after.Images[:2])
	assert.Empty(t, f.media.Deleted)
}

func TestPropertyUpdate_CurrentImagesReplaceAndDeleteDropped(t *testing.T) {
	f := newPropertyFixture()
	before := seedListing(t, f)
	keep := before.Images[1]

	after, err := f.svc.Update(context.Background(), before.ID,
		Fields{"currentImages": []string{keep}}, images("c.jpg"))
	require.NoError(t, err)

	require.Len(t, after.Images, 2)
	assert.Equal(t, keep, after.Images[0])
	assert.Equal(t, []string{before.Images[0]}, f.media.Deleted)
}

func TestPropertyUpdate_CannotRemoveEveryImage(t *testing.T) {
	f := newPropertyFixture()
	before := seedListing(t, f)

	_, err := f.svc.Update(context.Background(), before.ID, Fields{"currentImages": "[]"}, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPropertyUpdate_CurrentImagesMustBeStoredImages(t *testing.T) {
	f := newPropertyFixture()
	before := seedListing(t, f)
	other := seedListing(t, f)

	for _, foreign := range []string{"https://elsewhere.example/cat.jpg", other.Images[0]} {
		_, err := f.svc.Update(context.Background(), before.ID,
			Fields{"currentImages": []string{before.Images[0], foreign}}, images("c.jpg"))
		assert.ErrorIs(t, err, ErrValidation, foreign)
	}

	assert.Len(t, f.media.Uploaded, 4)
	assert.Empty(t, f.media.Deleted)
	stored, err := f.svc.Get(context.Background(), before.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Images, stored.Images)
}

func TestPropertyUpdate_MalformedAmenitiesKeepStored(t *testing.T) {
	f := newPropertyFixture()
	before := seedListing(t, f)

	after, err := f.svc.Update(context.Background(), before.ID, Fields{"amenities": "oops"}, nil)
	require.NoError(t, err)
	assert.Equal(t, before.Amenities, after.Amenities)
}

func TestPropertyUpdate_NotFound(t *testing.T) {
	f := newPropertyFixture()
	_, err := f.svc.Update(context.Background(), primitive.NewObjectID(), Fields{"price": "1"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPropertyDelete_AttemptsAllImagesDespiteFailures(t *testing.T) {
	f := newPropertyFixture()
	p, err := f.svc.Create(context.Background(), listingFields(), images("a.jpg", "b.jpg", "c.jpg"))
	require.NoError(t, err)
	f.media.FailDelete = map[string]bool{p.Images[0]: true, p.Images[2]: true}

	fan := f.users.Put(&models.User{Username: "fan", Email: "fan@example.com", IsActive: true, Favorites: []primitive.ObjectID{p.ID}})

	require.NoError(t, f.svc.Delete(context.Background(), p.ID))

	assert.ElementsMatch(t, p.Images, f.media.Deleted)
	assert.Equal(t, 0, f.props.Len())
	assert.Empty(t, f.users.Get(fan.ID).Favorites)

	_, err = f.svc.Get(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPropertyListAndFeatured(t *testing.T) {
	f := newPropertyFixture()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, featured := range []bool{true, false, true} {
		f.props.Put(&models.Property{
			Title:     "listing",
			Featured:  featured,
			Price:     float64(100 * (i + 1)),
			Status:    models.StatusActive,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	all, err := f.svc.List(context.Background(), models.PropertyFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))

	featured, err := f.svc.Featured(context.Background())
	require.NoError(t, err)
	assert.Len(t, featured, 2)
}
