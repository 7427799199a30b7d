package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/abhiramsakaray/twinpay-backend/internal/auth"
	"github.com/abhiramsakaray/twinpay-backend/internal/config"
	"github.com/abhiramsakaray/twinpay-backend/internal/identity"
	"github.com/abhiramsakaray/twinpay-backend/internal/middleware"
	"github.com/abhiramsakaray/twinpay-backend/internal/notification"
	"github.com/abhiramsakaray/twinpay-backend/internal/store"
	"github.com/abhiramsakaray/twinpay-backend/internal/transactions"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// The in-memory store is a dev convenience only.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	var backend store.Store
	if d.DB != nil {
		backend = store.NewPostgres(d.DB, d.Cfg.TxTimeout)
	} else {
		backend = store.NewMemory()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	identitySvc := identity.NewService(backend.Accounts())
	authSvc := auth.NewService(d.Cfg, identitySvc)
	txSvc := transactions.NewService(backend, notifier)

	identityHandler := identity.NewHandler(identitySvc)
	authHandler := auth.NewHandler(authSvc)
	txHandler := transactions.NewHandler(txSvc)

	// API routes
	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	api.Post("/register", identityHandler.Register)
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	api.Post("/login", rateLimiter, authHandler.Login)
	api.Post("/token", rateLimiter, authHandler.Token)

	// Protected routes
	jwtmw := middleware.JWTAuth(d.Cfg, backend.Accounts())
	protected := api.Group("", jwtmw)
	RegisterUserRoutes(protected, identityHandler, txHandler)
	RegisterTransactionRoutes(protected, txHandler)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
