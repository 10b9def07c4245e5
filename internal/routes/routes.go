package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/thaipay/slipverify/internal/config"
	"github.com/thaipay/slipverify/internal/metrics"
	"github.com/thaipay/slipverify/internal/middleware"
	"github.com/thaipay/slipverify/internal/notification"
	"github.com/thaipay/slipverify/internal/verification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
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
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	m := d.Metrics
	if m == nil {
		m = metrics.New()
	}
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	// Services and handlers
	var repo verification.Repository
	if d.DB != nil {
		repo = verification.NewPostgresRepository(d.DB)
	} else {
		repo = verification.NewMemoryRepository()
	}
	notifier := notification.NewLoggerNotifier(d.Logger)
	svc := verification.NewService(repo, d.Cache, notifier, m, verification.Settings{
		ReceiverID: d.Cfg.ReceiverID,
		CacheTTL:   d.Cfg.VerdictCacheTTL,
	}, d.Logger)
	handler := verification.NewHandler(svc)

	// API routes
	api := app.Group("/api/v1", middleware.Audit(d.Logger))
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rateLimiter := middleware.VerifyRateLimit(d.Cache, 10)
	RegisterVerificationRoutes(api, handler, rateLimiter)

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
