package handlers

import (
	"time"

	"github.com/arzan03/urbanscope/internal/middleware"
	"github.com/arzan03/urbanscope/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth         *services.AuthService
	secureCookie bool
	log          *zap.Logger
}

// NewAuthHandler builds the auth controller. secureCookie marks the session
// cookie Secure and should be set in production.
func NewAuthHandler(auth *services.AuthService, secureCookie bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookie: secureCookie, log: log}
}

func (h *AuthHandler) setSession(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		MaxAge:   int(services.SessionTTL.Seconds()),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, token, err := h.auth.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}

	h.setSession(c, token)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"token":   token,
		"user":    user,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, token, err := h.auth.Login(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}

	h.setSession(c, token)
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authorized"})
	}
	return c.JSON(user)
}

const resetRequestedMessage = "If an account with that email exists, a reset code has been sent"

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.auth.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": resetRequestedMessage})
}

func (h *AuthHandler) VerifyResetCode(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	token, err := h.auth.VerifyResetCode(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message":    "Reset code verified",
		"resetToken": token,
	})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req struct {
		ResetToken string `json:"resetToken"`
		Password   string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.auth.ResetPassword(c.UserContext(), req.ResetToken, req.Password); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Password has been reset successfully"})
}
