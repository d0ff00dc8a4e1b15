package server

import (
	"log"

	"ai-voicebot-be/internal/bootstrap"
	"ai-voicebot-be/internal/config"
	"ai-voicebot-be/internal/pkg/serverutils"
	"ai-voicebot-be/pkg/speech"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		// Audio queries arrive base64-encoded inline, so the limit is generous.
		BodyLimit: 25 * 1024 * 1024,
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: false,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	// Synthesized audio files
	app.Static(speech.URLPrefix, container.AudioStore.Dir())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"sessions": container.Registry.Len(),
		})
	})

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.IngestController.RegisterRoutes(api)

	app.Get("/ws/:tenant_id", func(ctx *fiber.Ctx) error {
		tenantID := ctx.Params("tenant_id")
		if tenantID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "tenant_id is required")
		}
		if websocket.IsWebSocketUpgrade(ctx) {
			return websocket.New(func(conn *websocket.Conn) {
				c.ChatHandler.ServeChat(conn, tenantID)
			})(ctx)
		}
		return fiber.ErrUpgradeRequired
	})
}
