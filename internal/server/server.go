package server

import (
	"errors"
	"runtime/debug"
	"time"

	"github.com/arzan03/urbanscope/internal/handlers"
	"github.com/arzan03/urbanscope/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// bodyLimit caps request bodies, multipart image batches included.
const bodyLimit = 25 * 1024 * 1024

type Options struct {
	CORSOrigins string
	// ResetRateLimit is the per-IP allowance per minute on the reset-code endpoints.
	ResetRateLimit int
	AccessLog      bool
}

type Handlers struct {
	Gate     *middleware.Gate
	Auth     *handlers.AuthHandler
	Property *handlers.PropertyHandler
	Favorite *handlers.FavoriteHandler
	Admin    *handlers.AdminHandler
}

// NewApp builds the Fiber application with the full /api route table.
func NewApp(opts Options, h Handlers, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "urbanscope",
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler(log),
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			log.Error("Panic recovered",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Any("panic", e),
				zap.ByteString("stack", debug.Stack()),
			)
		},
	}))
	if opts.AccessLog {
		app.Use(logger.New())
	}
	app.Use(cors.New(corsConfig(opts.CORSOrigins)))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	registerRoutes(api, opts, h)

	return app
}

func registerRoutes(api fiber.Router, opts Options, h Handlers) {
	resetLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		MaxRequests: opts.ResetRateLimit,
		Window:      time.Minute,
	})

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/logout", h.Auth.Logout)
	auth.Get("/profile", h.Gate.Protect, h.Auth.Profile)
	auth.Post("/forgot-password", resetLimiter.Handler(), h.Auth.ForgotPassword)
	auth.Post("/verify-reset-code", resetLimiter.Handler(), h.Auth.VerifyResetCode)
	auth.Post("/reset-password", h.Auth.ResetPassword)

	// Property Routes, reads are public
	properties := api.Group("/properties")
	properties.Get("/", h.Property.List)
	properties.Get("/featured", h.Property.Featured)
	properties.Get("/:id", h.Property.Get)
	properties.Post("/", h.Gate.Protect, middleware.RequireAdmin(), h.Property.Create)
	properties.Put("/:id", h.Gate.Protect, middleware.RequireAdmin(), h.Property.Update)
	properties.Delete("/:id", h.Gate.Protect, middleware.RequireAdmin(), h.Property.Delete)

	// Favorite Routes
	favorites := api.Group("/favorites", h.Gate.Protect)
	favorites.Get("/", h.Favorite.List)
	favorites.Get("/:propertyId/status", h.Favorite.Status)
	favorites.Post("/:propertyId", h.Favorite.Add)
	favorites.Delete("/:propertyId", h.Favorite.Remove)

	// Admin Routes
	admin := api.Group("/admin", h.Gate.Protect)
	admin.Get("/users", middleware.RequireAdmin(), h.Admin.ListUsers)
	admin.Get("/agents", middleware.RequireAgentOrAdmin(), h.Admin.ListAgents)
	admin.Get("/:id", middleware.RequireAdmin(), h.Admin.GetUser)
	admin.Put("/:id", middleware.RequireAdmin(), h.Admin.UpdateUser)
	admin.Delete("/:id", middleware.RequireAdmin(), h.Admin.DeleteUser)
}

func corsConfig(origins string) cors.Config {
	if origins == "" || origins == "*" {
		return cors.Config{AllowOrigins: "*"}
	}
	return cors.Config{AllowOrigins: origins, AllowCredentials: true}
}

// errorHandler handles errors that escape the controllers: routing misses,
// oversized bodies and recovered panics. Only fiber errors keep their message.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		log.Error("Unhandled error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
