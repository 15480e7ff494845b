package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meetpoint/config"
	"meetpoint/database"
	"meetpoint/handlers"
	"meetpoint/pkg/logging"
	"meetpoint/services"
)

func main() {
	logging.Setup()

	// Load configuration
	cfg := config.GetConfig()

	// Connect to database
	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Core services: one keyed lock serializes every mutation of a group
	// no matter which surface it arrives on.
	locks := services.NewGroupLocks()
	activity := services.NewActivityLog(db)
	registry := services.NewRegistry(db, locks, activity)
	presences := services.NewPresenceStore(db)
	hub := services.NewHub()
	destinations := services.NewDestinations(db, registry, hub, locks, activity)
	sessions := services.NewSessionManager(registry, presences, destinations, hub, activity, locks)
	geo := services.NewGeoClient(cfg.GeoapifyBaseURL, cfg.GeoapifyAPIKey)

	groupHandler := handlers.NewGroupHandler(registry, destinations, presences, activity)
	geoHandler := handlers.NewGeoHandler(geo)
	wsHandler := handlers.NewWSHandler(sessions)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Meetpoint",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	// Event channel (must be before other routes to avoid middleware conflicts)
	app.Use("/ws", wsHandler.Upgrade)
	app.Get("/ws", websocket.New(wsHandler.Handle))

	// API routes
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	groups := api.Group("/groups")
	groups.Get("/", groupHandler.ListGroups)
	groups.Post("/", groupHandler.CreateGroup)
	groups.Post("/:groupId/join", groupHandler.JoinGroup)
	groups.Post("/:groupId/destination", groupHandler.SetDestination)
	groups.Delete("/:groupId/destination", groupHandler.ClearDestination)
	groups.Get("/:groupId/activity", groupHandler.ListActivity)

	api.Get("/users/:groupId", groupHandler.ListOnlineUsers)

	geoAPI := api.Group("/geo")
	geoAPI.Get("/search", geoHandler.Search)
	geoAPI.Get("/reverse", geoHandler.Reverse)
	geoAPI.Get("/route", geoHandler.Route)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Staleness sweeper for presences whose transport died silently
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := services.NewSweeper(presences, sessions,
		time.Duration(cfg.PresenceTTLMinutes)*time.Minute,
		time.Duration(cfg.SweepIntervalSeconds)*time.Second)
	go sweeper.Run(ctx)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		slog.Info("shutting down server")
		cancel()
		if err := app.Shutdown(); err != nil {
			slog.Error("error shutting down", "error", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	slog.Info("starting meetpoint", "addr", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
