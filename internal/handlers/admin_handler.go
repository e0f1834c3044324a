package handlers

import (
	"github.com/arzan03/urbanscope/internal/middleware"
	"github.com/arzan03/urbanscope/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AdminHandler struct {
	admin *services.AdminService
	log   *zap.Logger
}

func NewAdminHandler(admin *services.AdminService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, log: log}
}

// ListUsers returns a page of accounts. Query: role, page (default 1), limit (default 10).
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page := int64(c.QueryInt("page", 1))
	limit := int64(c.QueryInt("limit", 10))

	result, err := h.admin.ListUsers(c.UserContext(), c.Query("role"), page, limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(result)
}

func (h *AdminHandler) ListAgents(c *fiber.Ctx) error {
	agents, err := h.admin.ListAgents(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(agents)
}

func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	id, err := services.ParseID(c.Params("id"), "user")
	if err != nil {
		return respondError(c, h.log, err)
	}

	user, err := h.admin.GetUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}

func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)
	id, err := services.ParseID(c.Params("id"), "user")
	if err != nil {
		return respondError(c, h.log, err)
	}

	var req services.UpdateUserInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.admin.UpdateUser(c.UserContext(), actor.ID, id, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}

func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)
	id, err := services.ParseID(c.Params("id"), "user")
	if err != nil {
		return respondError(c, h.log, err)
	}

	if err := h.admin.DeleteUser(c.UserContext(), actor.ID, id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}
