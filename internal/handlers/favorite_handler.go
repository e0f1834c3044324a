package handlers

import (
	"github.com/arzan03/urbanscope/internal/middleware"
	"github.com/arzan03/urbanscope/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type FavoriteHandler struct {
	favorites *services.FavoriteService
	log       *zap.Logger
}

func NewFavoriteHandler(favorites *services.FavoriteService, log *zap.Logger) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites, log: log}
}

func (h *FavoriteHandler) List(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)

	list, err := h.favorites.List(c.UserContext(), user.ID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(list)
}

func (h *FavoriteHandler) Add(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	propertyID, err := services.ParseID(c.Params("propertyId"), "property")
	if err != nil {
		return respondError(c, h.log, err)
	}

	favs, err := h.favorites.Add(c.UserContext(), user.ID, propertyID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message":   "Property added to favorites",
		"favorites": favs,
	})
}

func (h *FavoriteHandler) Remove(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	propertyID, err := services.ParseID(c.Params("propertyId"), "property")
	if err != nil {
		return respondError(c, h.log, err)
	}

	favs, err := h.favorites.Remove(c.UserContext(), user.ID, propertyID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message":   "Property removed from favorites",
		"favorites": favs,
	})
}

func (h *FavoriteHandler) Status(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)
	propertyID, err := services.ParseID(c.Params("propertyId"), "property")
	if err != nil {
		return respondError(c, h.log, err)
	}

	ok, err := h.favorites.IsFavorite(c.UserContext(), user.ID, propertyID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"isFavorite": ok})
}
