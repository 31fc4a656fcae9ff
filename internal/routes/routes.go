// Package routes defines the API routing configuration.
// It builds the Fiber application, wires middleware and maps every
// endpoint onto its handler.
package routes

import (
	"time"

	"arbitra/internal/handlers"
	"arbitra/internal/middleware"
	"arbitra/internal/models"
	"arbitra/internal/services/apikey"
	"arbitra/internal/services/dispute"
	"arbitra/internal/services/stats"
	"arbitra/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Disputes *dispute.Service
	Stats    *stats.Service
	Keys     *apikey.Service
	Auth     *middleware.AuthMiddleware
	Health   map[string]handlers.Check
}

// AppConfig controls the global middleware stack.
type AppConfig struct {
	CORSOrigins  string
	RateLimitMax int
	AccessLog    bool
	// TrustedProxies lists the peers whose X-Forwarded-For is honored.
	// Empty means the peer address is the client address.
	TrustedProxies []string
}

// NewApp creates the Fiber app with the shared error handler and the
// global middleware.
func NewApp(cfg AppConfig) *fiber.App {
	fiberCfg := fiber.Config{
		AppName:      "arbitra",
		ErrorHandler: response.ErrorHandler,
		BodyLimit:    1 * 1024 * 1024,
	}
	if len(cfg.TrustedProxies) > 0 {
		fiberCfg.ProxyHeader = fiber.HeaderXForwardedFor
		fiberCfg.EnableTrustedProxyCheck = true
		fiberCfg.TrustedProxies = cfg.TrustedProxies
		fiberCfg.EnableIPValidation = true
	}
	app := fiber.New(fiberCfg)

	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + middleware.APIKeyHeader,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE",
	}))

	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	if cfg.RateLimitMax > 0 {
		app.Use("/api", limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return response.Error(c, fiber.StatusTooManyRequests, "Too many requests. Please try again later.")
			},
		}))
	}

	return app
}

// SetupRoutes registers every endpoint.
func SetupRoutes(app *fiber.App, deps Deps) {
	healthHandler := handlers.NewHealthHandler(deps.Health)
	disputeHandler := handlers.NewDisputeHandler(deps.Disputes, deps.Stats)
	arbitrationHandler := handlers.NewArbitrationHandler(deps.Disputes, deps.Stats)
	apiKeyHandler := handlers.NewAPIKeyHandler(deps.Keys)

	app.Get("/health", healthHandler.HealthCheck)

	api := app.Group("/api/v1", deps.Auth.Handler)

	// Dispute routes. Static segments are registered before /:id.
	disputes := api.Group("/disputes")
	disputes.Post("/", disputeHandler.CreateDispute)
	disputes.Get("/", disputeHandler.ListDisputes)
	disputes.Get("/stats", disputeHandler.GetStats)
	disputes.Get("/profile/:profileId", disputeHandler.ListByProfile)
	disputes.Get("/:id", disputeHandler.GetDispute)
	disputes.Patch("/:id", disputeHandler.UpdateDispute)
	disputes.Post("/:id/evidence", disputeHandler.AddEvidence)
	disputes.Post("/:id/comments", disputeHandler.AddComment)
	disputes.Get("/:id/history", disputeHandler.GetHistory)
	disputes.Post("/:id/cancel", disputeHandler.CancelDispute)

	// Arbitration routes
	arbitration := api.Group("/arbitration", middleware.RequireRole(models.RoleAdmin, models.RoleArbitrator))
	arbitration.Get("/cases", arbitrationHandler.ListCases)
	arbitration.Get("/stats", arbitrationHandler.GetStats)
	arbitration.Post("/cases/:id/assign", arbitrationHandler.AssignArbitrator)
	arbitration.Post("/cases/:id/review", arbitrationHandler.ReviewCase)
	arbitration.Post("/cases/:id/resolve", arbitrationHandler.ResolveCase)
	arbitration.Post("/cases/:id/reject", arbitrationHandler.RejectCase)

	// API key management
	apiKeys := api.Group("/api-keys", middleware.RequireRole(models.RoleAdmin))
	apiKeys.Post("/", apiKeyHandler.CreateAPIKey)
	apiKeys.Get("/", apiKeyHandler.ListAPIKeys)
	apiKeys.Post("/:id/deactivate", apiKeyHandler.DeactivateAPIKey)
	apiKeys.Put("/:id/ips", apiKeyHandler.UpdateWhitelistedIPs)
}
