package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/arzan03/urbanscope/internal/models"
	"github.com/arzan03/urbanscope/internal/repository"
	"github.com/arzan03/urbanscope/internal/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type AuthService struct {
	users  UserRepository
	tokens *TokenIssuer
	mailer Mailer
	log    *zap.Logger
}

func NewAuthService(users UserRepository, tokens *TokenIssuer, mailer Mailer, log *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		log:    log,
	}
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a plain user account and returns it with a session token.
// The role is always RoleUser regardless of what the caller sent.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)

	if err := utils.Validate.Struct(in); err != nil {
		return nil, "", newError(ErrValidation, utils.ValidationMessage(err))
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, "", newError(ErrConflict, "User already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}
	if _, err := s.users.FindByUsername(ctx, in.Username); err == nil {
		return nil, "", newError(ErrConflict, "Username already taken")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}

	now := s.tokens.Now()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Username:  in.Username,
		Email:     in.Email,
		Password:  hash,
		Role:      models.RoleUser,
		IsActive:  true,
		Favorites: []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", newError(ErrConflict, "User already exists")
		}
		return nil, "", err
	}

	token, err := s.tokens.IssueSession(user.ID)
	if err != nil {
		return nil, "", err
	}

	if err := s.mailer.SendWelcome(ctx, user.Email, user.Username); err != nil {
		s.log.Warn("Welcome email not delivered", zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}

	s.log.Info("User registered", zap.String("user_id", user.ID.Hex()))
	return user, token, nil
}

// Login checks the credentials and returns the user with a fresh session token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.User, string, error) {
	if in.Password == "" || (strings.TrimSpace(in.Email) == "" && strings.TrimSpace(in.Username) == "") {
		return nil, "", newError(ErrValidation, "email and password are required")
	}

	var (
		user *models.User
		err  error
	)
	if in.Email != "" {
		user, err = s.users.FindByEmail(ctx, normalizeEmail(in.Email))
	} else {
		user, err = s.users.FindByUsername(ctx, strings.TrimSpace(in.Username))
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", newError(ErrUnauthenticated, "Invalid credentials")
		}
		return nil, "", err
	}

	if !VerifyPassword(in.Password, user.Password) {
		return nil, "", newError(ErrUnauthenticated, "Invalid credentials")
	}
	if !user.IsActive {
		return nil, "", newError(ErrUnauthenticated, "Account is deactivated")
	}

	token, err := s.tokens.IssueSession(user.ID)
	if err != nil {
		return nil, "", err
	}

	now := s.tokens.Now()
	if err := s.users.SetLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("Failed to record last login", zap.String("user_id", user.ID.Hex()), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	return user, token, nil
}

func (s *AuthService) Profile(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "User not found")
		}
		return nil, err
	}
	return user, nil
}

// ForgotPassword starts a reset: it stores the hash of a fresh 6-digit code and
// mails the code. Unknown or inactive accounts and mail failures all get the same
// silent success. A new request replaces any earlier unverified code.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return newError(ErrValidation, "email is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Debug("Password reset requested for unknown email")
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}

	code, err := generateResetCode()
	if err != nil {
		return err
	}

	expires := s.tokens.Now().Add(ResetCodeTTL)
	if err := s.users.SetResetCode(ctx, user.ID, hashResetCode(code), expires); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Username, code, ResetCodeTTL); err != nil {
		// The caller sees the same answer as for an unknown address.
		s.log.Error("Failed to send reset email", zap.String("user_id", user.ID.Hex()), zap.Error(err))
		if clearErr := s.users.ClearResetCode(ctx, user.ID); clearErr != nil {
			s.log.Error("Failed to clear reset code after mail failure",
				zap.String("user_id", user.ID.Hex()),
				zap.Error(clearErr),
			)
		}
		return nil
	}

	s.log.Info("Password reset code issued", zap.String("user_id", user.ID.Hex()))
	return nil
}

var errInvalidResetCode = newError(ErrValidation, "Invalid or expired reset code")

// VerifyResetCode exchanges a valid code for a short-lived reset token. The code
// is consumed with a compare-and-clear, so each code verifies at most once even
// under concurrent requests.
func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) (string, error) {
	code = strings.TrimSpace(code)
	if normalizeEmail(email) == "" || code == "" {
		return "", newError(ErrValidation, "email and code are required")
	}
	if !isResetCodeFormat(code) {
		return "", errInvalidResetCode
	}

	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", errInvalidResetCode
		}
		return "", err
	}

	if !user.IsActive || user.ResetCodeHash == "" || user.ResetCodeExpires == nil {
		return "", errInvalidResetCode
	}
	expired := !user.ResetCodeExpires.After(s.tokens.Now())
	matches := resetCodeMatches(code, user.ResetCodeHash)
	if expired || !matches {
		return "", errInvalidResetCode
	}

	if err := s.users.ConsumeResetCode(ctx, user.ID, user.ResetCodeHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", errInvalidResetCode
		}
		return "", err
	}

	return s.tokens.IssueReset(user.ID, passwordStamp(user.PasswordChangedAt))
}

var errInvalidResetToken = newError(ErrUnauthenticated, "Invalid or expired reset token")

// ResetPassword consumes a reset token and sets the new password. Nothing is
// written unless the token verifies and its password stamp is still current.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return newError(ErrValidation, "reset token is required")
	}
	if len(newPassword) < 6 {
		return newError(ErrValidation, "password must be at least 6 characters")
	}

	userID, stamp, err := s.tokens.VerifyReset(token)
	if err != nil {
		return errInvalidResetToken
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errInvalidResetToken
		}
		return err
	}
	if !user.IsActive {
		return errInvalidResetToken
	}
	// A password change after issuance means this token was already consumed.
	if stamp != passwordStamp(user.PasswordChangedAt) {
		return errInvalidResetToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	// Mongo keeps milliseconds, so the stamp is cut to match what is read back.
	changedAt := s.tokens.Now().Truncate(time.Millisecond)
	if err := s.users.UpdatePassword(ctx, user.ID, hash, changedAt, user.PasswordChangedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errInvalidResetToken
		}
		return err
	}

	s.log.Info("Password reset completed", zap.String("user_id", user.ID.Hex()))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
