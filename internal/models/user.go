package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Roles lists every role accepted by the data model.
var Roles = []Role{RoleUser, RoleAgent, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// NormalizeRole maps a stored role string from any historical variant onto the
// closed Role set. Unknown or empty values fall back to RoleUser.
func NormalizeRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin", "administrator", "superadmin":
		return RoleAdmin
	case "agent", "realtor":
		return RoleAgent
	default:
		return RoleUser
	}
}

type User struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Username          string               `bson:"username" json:"username"`
	Email             string               `bson:"email" json:"email"`
	Password          string               `bson:"password,omitempty" json:"-"`
	Role              Role                 `bson:"role" json:"role"`
	IsActive          bool                 `bson:"is_active" json:"isActive"`
	LastLogin         *time.Time           `bson:"last_login,omitempty" json:"lastLogin,omitempty"`
	Favorites         []primitive.ObjectID `bson:"favorites" json:"favorites"`
	ResetCodeHash     string               `bson:"reset_password_token,omitempty" json:"-"`
	ResetCodeExpires  *time.Time           `bson:"reset_password_expire,omitempty" json:"-"`
	PasswordChangedAt *time.Time           `bson:"password_changed_at,omitempty" json:"-"`
	CreatedAt         time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time            `bson:"updated_at" json:"updatedAt"`
}

// HasFavorite reports whether the listing is in the user's favorites.
func (u *User) HasFavorite(propertyID primitive.ObjectID) bool {
	for _, id := range u.Favorites {
		if id == propertyID {
			return true
		}
	}
	return false
}

// UserUpdate carries the admin-editable account fields. Nil fields are left alone.
type UserUpdate struct {
	Username *string
	IsActive *bool
	Role     *Role
}

type UserFilter struct {
	Role       Role
	ActiveOnly bool
	Page       int64
	Limit      int64
}
