package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"messenger-backend/internal/config"
	"messenger-backend/internal/db"
	"messenger-backend/internal/handlers"
	"messenger-backend/internal/relay"
	"messenger-backend/internal/services"
	"messenger-backend/internal/store"
)

// Run wires the whole server together and blocks until shutdown.
func Run() {
	cfg := config.Load()

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}

	pgStore := store.NewPostgresStore(pool)
	defer pgStore.Close()
	if err := pgStore.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("schema migration failed")
	}
	logger.Info().Msg("connected to PostgreSQL")

	var cache *store.MessageCache
	if cfg.RedisURL != "" {
		cache, err = store.NewMessageCache(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer cache.Close()
		logger.Info().Msg("connected to Redis")
	}

	// Relay core
	registry := relay.NewRegistry(cfg.SendQueueSize, logger)
	mux := relay.NewMultiplexer(registry, logger)
	signals := relay.NewSignalRelay(registry, pgStore, logger)

	// Services
	chatService := services.NewChatService(pgStore, cache, mux, logger)
	userService := services.NewUserService(pgStore)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(handlers.Metrics)
	app.Use(handlers.RequestLogger(logger))
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pgStore.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	secret := []byte(cfg.JWTSecret)

	api := app.Group("/api", handlers.AuthMiddleware(secret))

	api.Post("/messages", handlers.SendMessageHandler(chatService))
	api.Get("/messages/:conversationId", handlers.ListMessagesHandler(chatService))
	api.Post("/conversations", handlers.CreateConversationHandler(chatService))
	api.Get("/conversations", handlers.ListConversationsHandler(chatService))
	api.Get("/users/contacts", handlers.ListContactsHandler(userService))
	api.Post("/users/contacts", handlers.AddContactHandler(userService))
	api.Get("/users/search", handlers.SearchUsersHandler(userService))

	// WebSocket route. Middleware order matters: the upgrade check runs
	// first, then token validation, then the relay takes over.
	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Use("/ws", handlers.AuthMiddleware(secret))
	app.Get("/ws", handlers.WebSocketHandler(registry, mux, signals, logger))

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down...")
	_ = app.Shutdown()
	logger.Info().Msg("server shutdown complete")
}
