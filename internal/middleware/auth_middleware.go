package middleware

import (
	"context"
	"strings"

	"github.com/arzan03/urbanscope/internal/models"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	// TokenCookie is the cookie carrying the session token for browser clients.
	TokenCookie = "token"

	localUser   = "user"
	localUserID = "user_id"
)

type SessionVerifier interface {
	VerifySession(token string) (primitive.ObjectID, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Gate resolves the caller's session token to a live account.
type Gate struct {
	tokens SessionVerifier
	users  UserFinder
	log    *zap.Logger
}

func NewGate(tokens SessionVerifier, users UserFinder, log *zap.Logger) *Gate {
	return &Gate{tokens: tokens, users: users, log: log}
}

// Protect rejects the request unless it carries a valid session for an active
// account. The Authorization header wins over the cookie when both are sent.
func (g *Gate) Protect(c *fiber.Ctx) error {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		token = c.Cookies(TokenCookie)
	}
	if token == "" {
		return unauthorized(c, "Not authorized, no token")
	}

	userID, err := g.tokens.VerifySession(token)
	if err != nil {
		return unauthorized(c, "Not authorized, token failed")
	}

	user, err := g.users.FindByID(c.UserContext(), userID)
	if err != nil {
		g.log.Debug("Session user lookup failed", zap.String("user_id", userID.Hex()), zap.Error(err))
		return unauthorized(c, "Not authorized, user not found")
	}
	if !user.IsActive {
		return unauthorized(c, "Account is deactivated")
	}

	c.Locals(localUser, user)
	c.Locals(localUserID, user.ID)
	return c.Next()
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
}

// CurrentUser returns the account attached by Protect.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(localUser).(*models.User)
	return user, ok && user != nil
}
