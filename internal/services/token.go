package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SessionTTL    = time.Hour
	ResetTokenTTL = 15 * time.Minute
	ResetCodeTTL  = 10 * time.Minute

	resetPurpose = "password_reset"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims binds a token to a user id. Reset tokens also carry the reset purpose
// and the password stamp of the account at issue time.
type Claims struct {
	UserID        string `json:"id"`
	Purpose       string `json:"purpose,omitempty"`
	PasswordStamp int64  `json:"pws,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 bearer tokens. It keeps no state.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer returns an issuer signing with secret. A nil clock means time.Now.
func NewTokenIssuer(secret string, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), now: now}
}

func (t *TokenIssuer) Now() time.Time { return t.now() }

func (t *TokenIssuer) IssueSession(userID primitive.ObjectID) (string, error) {
	return t.issue(userID, "", 0, SessionTTL)
}

// IssueReset mints a reset token bound to the account's current password stamp.
// Any password change moves the stamp and so retires the token.
func (t *TokenIssuer) IssueReset(userID primitive.ObjectID, passwordStamp int64) (string, error) {
	return t.issue(userID, resetPurpose, passwordStamp, ResetTokenTTL)
}

func (t *TokenIssuer) issue(userID primitive.ObjectID, purpose string, stamp int64, ttl time.Duration) (string, error) {
	now := t.now()
	claims := &Claims{
		UserID:        userID.Hex(),
		Purpose:       purpose,
		PasswordStamp: stamp,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// VerifySession resolves a session token to its user id. Reset tokens are refused.
func (t *TokenIssuer) VerifySession(token string) (primitive.ObjectID, error) {
	claims, err := t.parse(token)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if claims.Purpose != "" {
		return primitive.NilObjectID, ErrInvalidToken
	}
	return userIDFrom(claims)
}

// VerifyReset checks a reset token and returns its user id and password stamp.
func (t *TokenIssuer) VerifyReset(token string) (primitive.ObjectID, int64, error) {
	claims, err := t.parse(token)
	if err != nil {
		return primitive.NilObjectID, 0, err
	}
	if claims.Purpose != resetPurpose {
		return primitive.NilObjectID, 0, ErrInvalidToken
	}
	id, err := userIDFrom(claims)
	if err != nil {
		return primitive.NilObjectID, 0, err
	}
	return id, claims.PasswordStamp, nil
}

func (t *TokenIssuer) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func userIDFrom(claims *Claims) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidToken
	}
	return id, nil
}
