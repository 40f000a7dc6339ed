package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Abraxas-365/manifesto/pkg/config"
	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

func main() {
	// 1. Initialize Logger
	logLevel := getEnv("LOG_LEVEL", "info")
	switch logLevel {
	case "debug":
		logx.SetLevel(logx.LevelDebug)
	case "warn":
		logx.SetLevel(logx.LevelWarn)
	case "error":
		logx.SetLevel(logx.LevelError)
	default:
		logx.SetLevel(logx.LevelInfo)
	}

	logx.Info("🚀 Starting Manifesto AI Gateway...")

	// 2. Initialize Dependency Container
	cfg := config.Load()
	container := NewContainer(cfg)
	defer container.Cleanup()
	container.StartBackgroundServices(context.Background())

	// 3. Create Fiber App with Config
	app := fiber.New(fiber.Config{
		AppName:               "Manifesto AI Gateway",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler,
		BodyLimit:             10 * 1024 * 1024, // 10MB for file uploads
		IdleTimeout:           120,
		EnablePrintRoutes:     false,
	})

	// 4. Global Middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return "req-" + uuid.NewString()
		},
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: getCORSOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key, X-Request-ID",
		AllowMethods: "GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
		ExposeHeaders: "X-Request-ID",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${reqHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	// 5. Health Check & Info Endpoints
	app.Get("/health", healthCheckHandler(container))
	app.Get("/", infoHandler)
	app.Get("/api/v1/docs", apiDocsHandler)

	// 6. Register Routes
	registerAuthRoutes(app, container)
	registerInvitationRoutes(app, container)
	registerAPIKeyRoutes(app, container)
	registerChannelRoutes(app, container)
	registerProxyRoutes(app, container)

	// 7. 404 Handler
	app.Use(notFoundHandler)

	// 8. Print Route Summary
	printRouteSummary()

	// 9. Start Server with Graceful Shutdown
	startServer(app)
}

// ============================================================================
// Handler Functions
// ============================================================================

// healthCheckHandler returns a health check handler
func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":  "healthy",
			"service": "manifesto-ai-gateway",
			"version": getEnv("APP_VERSION", "1.0.0"),
		}

		// Check database
		if err := container.DB.Ping(); err != nil {
			health["db"] = "unhealthy"
			health["db_error"] = err.Error()
			health["status"] = "degraded"
		} else {
			health["db"] = "healthy"
		}

		// Check Redis (optional - can be slow)
		checkRedis := c.QueryBool("check_redis", false)
		if checkRedis {
			if _, err := container.Redis.Ping(c.Context()).Result(); err != nil {
				health["redis"] = "unhealthy"
				health["redis_error"] = err.Error()
			} else {
				health["redis"] = "healthy"
			}
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}

		return c.Status(status).JSON(health)
	}
}

// infoHandler returns basic API information
func infoHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":     "Manifesto AI Gateway",
		"version":     getEnv("APP_VERSION", "1.0.0"),
		"description": "Multi-tenant authentication and provider-channel routing for AI workloads",
		"features": []string{
			"Multi-tenant architecture",
			"JWT authentication with MFA",
			"API key management",
			"Provider-channel routing and failover",
		},
		"endpoints": fiber.Map{
			"docs":   "/api/v1/docs",
			"health": "/health",
		},
	})
}

// apiDocsHandler returns API documentation
func apiDocsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"api_version": "v1",
		"base_url":    getEnv("API_BASE_URL", "http://localhost:8080"),
		"endpoints": fiber.Map{
			"authentication": fiber.Map{
				"login":            "POST /auth/login",
				"mfa_complete":     "POST /auth/mfa/complete",
				"refresh":          "POST /auth/refresh",
				"logout":           "POST /auth/logout",
				"me":               "GET /auth/me",
				"reset_request":    "POST /auth/password-reset/request",
				"reset_confirm":    "POST /auth/password-reset/confirm",
			},
			"iam": fiber.Map{
				"api_keys": fiber.Map{
					"list":   "GET /api/v1/api-keys",
					"create": "POST /api/v1/api-keys",
					"get":    "GET /api/v1/api-keys/:id",
					"update": "PATCH /api/v1/api-keys/:id",
					"revoke": "POST /api/v1/api-keys/:id/revoke",
					"delete": "DELETE /api/v1/api-keys/:id",
				},
				"invitations": fiber.Map{
					"list":   "GET /api/v1/invitations",
					"create": "POST /api/v1/invitations",
					"accept": "POST /api/v1/invitations/:token/accept",
					"revoke": "DELETE /api/v1/invitations/:id",
				},
			},
			"channels": fiber.Map{
				"list":   "GET /api/v1/channels",
				"create": "POST /api/v1/channels",
				"update": "PUT /api/v1/channels/:id",
				"delete": "DELETE /api/v1/channels/:id",
			},
			"proxy": fiber.Map{
				"chat_completions": "POST /v1/chat/completions",
			},
		},
		"authentication": fiber.Map{
			"types": []string{"JWT", "API Key"},
			"headers": fiber.Map{
				"jwt":     "Authorization: Bearer <token>",
				"api_key": "X-API-Key: <key> OR Authorization: Bearer <key>",
			},
		},
	})
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"message":    "The requested endpoint does not exist",
		"request_id": c.Get("X-Request-ID"),
	})
}

// ============================================================================
// Error Handler
// ============================================================================

// globalErrorHandler converts internal errors to standard HTTP responses
func globalErrorHandler(c *fiber.Ctx, err error) error {
	// Log the error with context
	logx.WithFields(logx.Fields{
		"path":       c.Path(),
		"method":     c.Method(),
		"ip":         c.IP(),
		"request_id": c.Get("X-Request-ID"),
		"user_agent": c.Get("User-Agent"),
	}).Errorf("Request error: %v", err)

	// If it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{
			"error":      e.Message,
			"code":       "FIBER_ERROR",
			"status":     e.Code,
			"request_id": c.Get("X-Request-ID"),
		})
	}

	// If it's our custom errx.Error
	if e, ok := err.(*errx.Error); ok {
		response := fiber.Map{
			"error":      e.Message,
			"code":       e.Code,
			"type":       string(e.Type),
			"status":     e.HTTPStatus,
			"request_id": c.Get("X-Request-ID"),
		}

		// Include details if present
		if len(e.Details) > 0 {
			response["details"] = e.Details
		}

		// Include underlying error in debug mode
		if getEnv("DEBUG", "false") == "true" && e.Err != nil {
			response["underlying_error"] = e.Err.Error()
		}

		return c.Status(e.HTTPStatus).JSON(response)
	}

	// Default unknown error
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":      "Internal Server Error",
		"type":       "INTERNAL",
		"code":       "INTERNAL_ERROR",
		"message":    "An unexpected error occurred",
		"request_id": c.Get("X-Request-ID"),
	})
}

// ============================================================================
// Utility Functions
// ============================================================================

// getPort returns the port to listen on
func getPort() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return port
}

// getCORSOrigins returns allowed CORS origins
func getCORSOrigins() string {
	origins := os.Getenv("CORS_ORIGINS")
	if origins == "" {
		return "*" // Default for development
	}
	return origins
}

// printRouteSummary prints a summary of registered routes
func printRouteSummary() {
	logx.Info("📋 Route Summary:")
	logx.Info("   ├─ Auth: /auth/*")
	logx.Info("   ├─ IAM: /api/v1/api-keys/*, /api/v1/invitations/*")
	logx.Info("   ├─ Channels: /api/v1/channels/*")
	logx.Info("   ├─ Proxy: /v1/chat/completions")
	logx.Info("   ├─ Health: /health")
	logx.Info("   └─ Docs: /api/v1/docs")
}

// startServer starts the server with graceful shutdown
func startServer(app *fiber.App) {
	port := getPort()

	// Run server in a goroutine
	go func() {
		logx.Info("============================================================")
		logx.Infof("🚀 Server listening on port %s", port)
		logx.Infof("📚 API Docs: http://localhost:%s/api/v1/docs", port)
		logx.Infof("💚 Health Check: http://localhost:%s/health", port)
		logx.Info("============================================================")

		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	gracefulShutdown(app)
}

// gracefulShutdown handles graceful server shutdown
func gracefulShutdown(app *fiber.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Wait for interrupt signal
	sig := <-sigChan
	logx.Infof("🛑 Received signal: %v", sig)
	logx.Info("Shutting down gracefully...")

	// Shutdown the server with timeout
	if err := app.ShutdownWithTimeout(30); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}

	logx.Info("✅ Server exited successfully")
}
