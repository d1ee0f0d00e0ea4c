package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/gemfoundation/exposure/api"
	"github.com/gemfoundation/exposure/internal/pkg/metrics"
)

// isExportStream matches the endpoints whose body is streamed.
func isExportStream(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/exposure/export_")
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Exports are flushed incrementally; gzip would hold them back.
	app.Use(compress.New(compress.Config{
		Next:  isExportStream,
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	app.Get("/health", HealthHandler(deps))
	app.Get("/ready", ReadyHandler(deps))

	// Exposure. Method is checked before credentials so a POST is a 405
	// even for anonymous callers. validate_export is public.
	signIn := SignInRequired(deps.Auth)
	app.All("/exposure/validate_export", getOnly(ValidateExportHandler(deps))...)
	app.All("/exposure/building_form", getOnly(signIn, timeout.NewWithContext(BuildingFormHandler(deps), 15*time.Second))...)
	app.All("/exposure/population_form", getOnly(signIn, PopulationFormHandler(deps))...)
	app.All("/exposure/export_building", getOnly(signIn, ExportBuildingHandler(deps))...)
	app.All("/exposure/export_population", getOnly(signIn, ExportPopulationHandler(deps))...)

	// Icebox
	icebox := app.Group("/icebox", signIn)
	icebox.Get("/calculations", timeout.NewWithContext(ListCalculationsHandler(deps), 15*time.Second))
	icebox.Post("/calculations", CreateCalculationHandler(deps))
	icebox.Get("/calculations/:id", GetCalculationHandler(deps))
	icebox.Post("/calculations/:id", UpdateCalculationHandler(deps))
	icebox.Get("/calculations/:id/artifacts", CalculationArtifactsHandler(deps))

	app.Post("/graphql", signIn, GraphQLHandler(deps))

	SetupDocs(app, api.OpenAPI)

	app.Use("/ws", signIn, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
