// Package testutil holds in-memory stand-ins for the Mongo repositories, the
// image host and the mailer.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arzan03/urbanscope/internal/models"
	"github.com/arzan03/urbanscope/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User

	// RemoveFromAllErr is returned by RemoveFavoriteFromAll when set.
	RemoveFromAllErr error
}

func NewUserStore() *UserStore {
	return &UserStore{users: map[primitive.ObjectID]*models.User{}}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Favorites = append([]primitive.ObjectID{}, u.Favorites...)
	return &c
}

// Put stores a copy of u, assigning an id when it has none.
func (s *UserStore) Put(u *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Favorites == nil {
		u.Favorites = []primitive.ObjectID{}
	}
	s.users[u.ID] = cloneUser(u)
	return u
}

// Get returns a copy of the stored user, or nil.
func (s *UserStore) Get(id primitive.ObjectID) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u)
	}
	return nil
}

func (s *UserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Favorites == nil {
		user.Favorites = []primitive.ObjectID{}
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *UserStore) findBy(match func(*models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *UserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findBy(func(u *models.User) bool { return u.ID == id })
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findBy(func(u *models.User) bool { return u.Email == email })
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return s.findBy(func(u *models.User) bool { return u.Username == username })
}

func (s *UserStore) List(_ context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.User
	for _, u := range s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.ActiveOnly && !u.IsActive {
			continue
		}
		c := cloneUser(u)
		c.Password = ""
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.Limit
		if start > total {
			start = total
		}
		end := start + filter.Limit
		if end > total {
			end = total
		}
		all = all[start:end]
	}
	if all == nil {
		all = []models.User{}
	}
	return all, total, nil
}

func (s *UserStore) mutate(id primitive.ObjectID, fn func(*models.User)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	fn(u)
	return cloneUser(u), nil
}

func (s *UserStore) SetLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.mutate(id, func(u *models.User) { u.LastLogin = &at })
	return err
}

func (s *UserStore) SetResetCode(_ context.Context, id primitive.ObjectID, codeHash string, expires time.Time) error {
	_, err := s.mutate(id, func(u *models.User) {
		u.ResetCodeHash = codeHash
		u.ResetCodeExpires = &expires
	})
	return err
}

func (s *UserStore) ClearResetCode(_ context.Context, id primitive.ObjectID) error {
	_, err := s.mutate(id, func(u *models.User) {
		u.ResetCodeHash = ""
		u.ResetCodeExpires = nil
	})
	return err
}

func (s *UserStore) ConsumeResetCode(_ context.Context, id primitive.ObjectID, codeHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.ResetCodeHash == "" || u.ResetCodeHash != codeHash {
		return repository.ErrNotFound
	}
	u.ResetCodeHash = ""
	u.ResetCodeExpires = nil
	return nil
}

func (s *UserStore) UpdatePassword(_ context.Context, id primitive.ObjectID, passwordHash string, changedAt time.Time, prevChangedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || !sameTime(u.PasswordChangedAt, prevChangedAt) {
		return repository.ErrNotFound
	}
	u.Password = passwordHash
	u.PasswordChangedAt = &changedAt
	u.ResetCodeHash = ""
	u.ResetCodeExpires = nil
	u.UpdatedAt = changedAt
	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (s *UserStore) Update(_ context.Context, id primitive.ObjectID, upd models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	if upd.Username != nil {
		for _, u := range s.users {
			if u.ID != id && u.Username == *upd.Username {
				s.mu.Unlock()
				return nil, repository.ErrDuplicate
			}
		}
	}
	s.mu.Unlock()

	return s.mutate(id, func(u *models.User) {
		if upd.Username != nil {
			u.Username = *upd.Username
		}
		if upd.IsActive != nil {
			u.IsActive = *upd.IsActive
		}
		if upd.Role != nil {
			u.Role = *upd.Role
		}
	})
}

func (s *UserStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *UserStore) AddFavorite(_ context.Context, userID, propertyID primitive.ObjectID) (*models.User, error) {
	return s.mutate(userID, func(u *models.User) {
		if !u.HasFavorite(propertyID) {
			u.Favorites = append(u.Favorites, propertyID)
		}
	})
}

func (s *UserStore) RemoveFavorite(_ context.Context, userID, propertyID primitive.ObjectID) (*models.User, error) {
	return s.mutate(userID, func(u *models.User) {
		u.Favorites = without(u.Favorites, propertyID)
	})
}

func (s *UserStore) RemoveFavoriteFromAll(_ context.Context, propertyID primitive.ObjectID) error {
	if s.RemoveFromAllErr != nil {
		return s.RemoveFromAllErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		u.Favorites = without(u.Favorites, propertyID)
	}
	return nil
}

func without(ids []primitive.ObjectID, drop primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
