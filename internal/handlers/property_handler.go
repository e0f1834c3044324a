package handlers

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arzan03/urbanscope/internal/models"
	"github.com/arzan03/urbanscope/internal/services"
	"github.com/arzan03/urbanscope/internal/storage"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// imagesField is the multipart field carrying listing photos.
const imagesField = "images"

type PropertyHandler struct {
	properties *services.PropertyService
	log        *zap.Logger
}

func NewPropertyHandler(properties *services.PropertyService, log *zap.Logger) *PropertyHandler {
	return &PropertyHandler{properties: properties, log: log}
}

// readListing collects listing fields and images from either a multipart form
// or a JSON body.
func readListing(c *fiber.Ctx) (services.Fields, []storage.Image, error) {
	fields := services.Fields{}

	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		if len(c.Body()) == 0 {
			return fields, nil, nil
		}
		if err := c.BodyParser(&fields); err != nil {
			return nil, nil, err
		}
		return fields, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, err
	}
	for key, values := range form.Value {
		switch len(values) {
		case 0:
		case 1:
			fields[key] = values[0]
		default:
			fields[key] = values
		}
	}

	images := make([]storage.Image, 0, len(form.File[imagesField]))
	for _, fh := range form.File[imagesField] {
		f, err := fh.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		images = append(images, storage.Image{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Data:        data,
		})
	}
	return fields, images, nil
}

func (h *PropertyHandler) Create(c *fiber.Ctx) error {
	fields, images, err := readListing(c)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}

	p, err := h.properties.Create(c.UserContext(), fields, images)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *PropertyHandler) Update(c *fiber.Ctx) error {
	id, err := services.ParseID(c.Params("id"), "property")
	if err != nil {
		return respondError(c, h.log, err)
	}

	fields, images, err := readListing(c)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}

	p, err := h.properties.Update(c.UserContext(), id, fields, images)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(p)
}

func (h *PropertyHandler) Delete(c *fiber.Ctx) error {
	id, err := services.ParseID(c.Params("id"), "property")
	if err != nil {
		return respondError(c, h.log, err)
	}

	if err := h.properties.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Property deleted successfully"})
}

func (h *PropertyHandler) Get(c *fiber.Ctx) error {
	id, err := services.ParseID(c.Params("id"), "property")
	if err != nil {
		return respondError(c, h.log, err)
	}

	p, err := h.properties.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(p)
}

func (h *PropertyHandler) List(c *fiber.Ctx) error {
	filter, err := listingFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	list, err := h.properties.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(list)
}

func (h *PropertyHandler) Featured(c *fiber.Ctx) error {
	list, err := h.properties.Featured(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(list)
}

func listingFilter(c *fiber.Ctx) (models.PropertyFilter, error) {
	f := models.PropertyFilter{
		PropertyType:        models.PropertyType(c.Query("propertyType")),
		PropertyTransaction: models.Transaction(c.Query("propertyTransaction")),
		Status:              models.ListingStatus(c.Query("status")),
		Location:            strings.TrimSpace(c.Query("location")),
	}

	price := func(name string) (*float64, error) {
		raw := c.Query(name)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%s must be a non-negative number", name)
		}
		return &v, nil
	}
	count := func(name string) (int64, error) {
		raw := c.Query(name)
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%s must be a non-negative integer", name)
		}
		return v, nil
	}

	var err error
	if f.MinPrice, err = price("minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = price("maxPrice"); err != nil {
		return f, err
	}
	if f.Limit, err = count("limit"); err != nil {
		return f, err
	}
	if f.Offset, err = count("offset"); err != nil {
		return f, err
	}
	return f, nil
}
