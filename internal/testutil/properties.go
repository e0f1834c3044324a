package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/arzan03/urbanscope/internal/models"
	"github.com/arzan03/urbanscope/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrStoreDown is returned by a PropertyStore with Fail set.
var ErrStoreDown = errors.New("store unavailable")

type PropertyStore struct {
	mu    sync.Mutex
	props map[primitive.ObjectID]*models.Property

	// Fail makes Create and Update return ErrStoreDown.
	Fail bool
}

func NewPropertyStore() *PropertyStore {
	return &PropertyStore{props: map[primitive.ObjectID]*models.Property{}}
}

func cloneProperty(p *models.Property) *models.Property {
	c := *p
	c.Images = append([]string{}, p.Images...)
	c.Amenities = append([]models.Amenity{}, p.Amenities...)
	return &c
}

func (s *PropertyStore) Put(p *models.Property) *models.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	s.props[p.ID] = cloneProperty(p)
	return p
}

func (s *PropertyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.props)
}

func (s *PropertyStore) Create(_ context.Context, p *models.Property) error {
	if s.Fail {
		return ErrStoreDown
	}
	s.Put(p)
	return nil
}

func (s *PropertyStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.props[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneProperty(p), nil
}

func (s *PropertyStore) Find(_ context.Context, f models.PropertyFilter) ([]models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Property{}
	for _, p := range s.props {
		switch {
		case f.PropertyType != "" && p.PropertyType != f.PropertyType,
			f.PropertyTransaction != "" && p.PropertyTransaction != f.PropertyTransaction,
			f.Status != "" && p.Status != f.Status,
			f.FeaturedOnly && !p.Featured,
			f.Location != "" && !strings.Contains(strings.ToLower(p.Location), strings.ToLower(f.Location)),
			f.MinPrice != nil && p.Price < *f.MinPrice,
			f.MaxPrice != nil && p.Price > *f.MaxPrice:
			continue
		}
		out = append(out, *cloneProperty(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if f.Offset > 0 {
		if f.Offset >= int64(len(out)) {
			return []models.Property{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < int64(len(out)) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *PropertyStore) FindByIDs(_ context.Context, ids []primitive.ObjectID, status models.ListingStatus) ([]models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Property{}
	for _, id := range ids {
		p, ok := s.props[id]
		if !ok || (status != "" && p.Status != status) {
			continue
		}
		out = append(out, *cloneProperty(p))
	}
	return out, nil
}

func (s *PropertyStore) Update(_ context.Context, id primitive.ObjectID, patch models.PropertyPatch) (*models.Property, error) {
	if s.Fail {
		return nil, ErrStoreDown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.props[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	patch.Apply(p)
	return cloneProperty(p), nil
}

func (s *PropertyStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.props[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.props, id)
	return nil
}
