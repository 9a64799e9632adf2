package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/farrukhll0/pigeon-management-system/internal/config"
	"github.com/farrukhll0/pigeon-management-system/internal/database"
	"github.com/farrukhll0/pigeon-management-system/internal/handlers"
	"github.com/farrukhll0/pigeon-management-system/internal/middleware"
	"github.com/farrukhll0/pigeon-management-system/internal/repositories"
	"github.com/farrukhll0/pigeon-management-system/internal/services"
	"github.com/farrukhll0/pigeon-management-system/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

const healthTimeout = 2 * time.Second

// App bundles the HTTP server with the resources it owns.
type App struct {
	Fiber *fiber.App

	cfg *config.Config
	db  *gorm.DB
	mq  *rabbitmq.Client
}

// New wires repositories, services and handlers according to cfg.
func New(cfg *config.Config) (*App, error) {
	tokens, err := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg}

	// --- Initialize Repositories ---
	var (
		userRepo   repositories.UserRepository
		pigeonRepo repositories.PigeonRepository
	)
	if cfg.DatabaseDriver == config.DriverMemory {
		log.Println("Using in-memory repositories; data is lost on restart")
		userRepo = repositories.NewMemoryUserRepository()
		pigeonRepo = repositories.NewMemoryPigeonRepository()
	} else {
		db, err := database.Open(cfg)
		if err != nil {
			return nil, err
		}
		a.db = db
		userRepo = repositories.NewGORMUserRepository(db)
		pigeonRepo = repositories.NewGORMPigeonRepository(db)
	}

	// --- Initialize RabbitMQ Client ---
	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue})
		if err != nil {
			log.Printf("Warning: activity events disabled: %v", err)
		} else {
			a.mq = mq
			events = mq
			if err := mq.ConsumeEvents(rabbitmq.HandleActivityMessage); err != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", err)
			}
		}
	}

	// --- Initialize Services and Handlers ---
	authService := services.NewAuthService(userRepo, tokens, events, cfg.MaxImageBytes)
	pigeonService := services.NewPigeonService(pigeonRepo, events, cfg.MaxImageBytes)
	authHandler := handlers.NewAuthHandler(authService)
	pigeonHandler := handlers.NewPigeonHandler(pigeonService)

	// --- Initialize Fiber App ---
	app := fiber.New(fiber.Config{
		AppName:      "pigeon-management-system",
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	app.Get("/health", a.handleHealth)

	api := app.Group("/api")
	protect := middleware.AuthRequired(tokens)
	authHandler.RegisterRoutes(api, protect)
	pigeonHandler.RegisterRoutes(api, protect)

	a.Fiber = app
	return a, nil
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	status := fiber.StatusOK
	dbState := "memory"
	if a.db != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		dbState = "connected"
		if err := database.Ping(ctx, a.db); err != nil {
			log.Printf("Health check: database ping failed: %v", err)
			dbState = "disconnected"
			status = fiber.StatusServiceUnavailable
		}
	}

	eventsState := "disabled"
	if a.mq != nil {
		eventsState = "disconnected"
		if a.mq.Healthy() {
			eventsState = "connected"
		}
	}

	overall := "healthy"
	if status != fiber.StatusOK {
		overall = "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":   overall,
		"time":     time.Now().Format(time.RFC3339),
		"database": dbState,
		"events":   eventsState,
	})
}

// Listen serves HTTP on the configured port until Shutdown.
func (a *App) Listen() error {
	log.Printf("Starting server on port %s", a.cfg.AppPort)
	return a.Fiber.Listen(a.cfg.AppPort)
}

// Shutdown stops the server and releases the database and broker connections.
func (a *App) Shutdown() error {
	var errs []error
	if err := a.Fiber.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("fiber shutdown: %w", err))
	}
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := database.Close(a.db); err != nil {
		errs = append(errs, fmt.Errorf("database close: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
