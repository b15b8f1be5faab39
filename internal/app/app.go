package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"teamchat-backend/internal/db"
	"teamchat-backend/internal/handlers"
	"teamchat-backend/internal/logger"
	"teamchat-backend/internal/models"
	"teamchat-backend/internal/services"
	"teamchat-backend/internal/store"
	"teamchat-backend/internal/utils"
)

func Run() {
	// Load Env
	if err := utils.LoadEnv(); err != nil {
		logger.L().Warn().Msg(".env file not found")
	}
	logger.Init(utils.GetEnv("APP_ENV", "dev"), utils.GetEnv("LOG_LEVEL", "info"))

	// Init DB
	connString := utils.GetEnv("DATABASE_URL", "")
	if connString == "" {
		// Fallback to individual vars
		connString = "postgres://" + utils.GetEnv("POSTGRES_USER", "postgres") + ":" +
			utils.GetEnv("POSTGRES_PASSWORD", "postgres") + "@" +
			utils.GetEnv("POSTGRES_HOST", "localhost") + ":" +
			utils.GetEnv("POSTGRES_PORT", "5432") + "/" +
			utils.GetEnv("POSTGRES_DB", "teamchat") + "?sslmode=disable"
	}

	pool, err := db.Connect(context.Background(), connString)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	// Services
	st := store.NewPostgres(pool)
	userService := services.NewUserService(st)
	chatService := services.NewChatService(st)
	messageService := services.NewMessageService(st,
		utils.GetEnvInt("CHAT_HISTORY_LIMIT", 100),
		utils.GetEnvBool("CHAT_EDIT_UPDATES_PREVIEW", false),
	)

	rooms := handlers.NewRoomManager()
	gateway := handlers.NewGateway(rooms, chatService, messageService)

	// Fiber App
	app := fiber.New()

	// Middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	cookieName := utils.GetEnv("SESSION_COOKIE", "session_token")

	// Routes
	api := app.Group("/api")

	// Public Routes
	api.Post("/register", func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		user, err := userService.Register(c.Context(), req)
		if err != nil {
			if errors.Is(err, services.ErrUserExists) {
				return c.Status(400).JSON(fiber.Map{"error": "name already taken"})
			}
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(201).JSON(user)
	})

	api.Post("/login", func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
		res, err := userService.Login(c.Context(), req)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": err.Error()})
		}

		// The same cookie authenticates the websocket handshake later.
		c.Cookie(&fiber.Cookie{
			Name:     cookieName,
			Value:    res.Token,
			Expires:  time.Now().Add(72 * time.Hour),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.JSON(res)
	})

	// Protected Routes
	protected := api.Group("/")
	protected.Use(handlers.SessionMiddleware())

	protected.Get("/users", handlers.ListUsersHandler(userService))
	protected.Get("/chats", handlers.ListChatsHandler(chatService))
	protected.Post("/chats/group", handlers.CreateGroupChatHandler(chatService))
	protected.Post("/chats/direct", handlers.CreateDirectChatHandler(chatService))
	protected.Delete("/chats/:id", handlers.DeleteChatHandler(chatService))
	protected.Get("/chats/:id/messages", handlers.ChatMessagesHandler(messageService))

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// WebSocket Route
	// Note: Middleware order matters. The session bridge must resolve the
	// identity before the upgrade.
	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Use("/ws", handlers.SessionMiddleware())
	app.Get("/ws", handlers.WebSocketHandler(gateway, userService))

	// Start Server
	port := utils.GetEnv("PORT", "3001")
	go func() {
		if err := app.Listen(":" + port); err != nil {
			logger.L().Fatal().Err(err).Msg("server stopped")
		}
	}()

	// Graceful Shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c // Block until signal
	logger.L().Info().Msg("gracefully shutting down...")
	_ = app.Shutdown()
	logger.L().Info().Msg("server shutdown complete")
}
