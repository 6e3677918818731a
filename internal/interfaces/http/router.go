package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/backup"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/application/notification"
	"github.com/jhoicas/stock-ledger/internal/application/report"
	ledgersync "github.com/jhoicas/stock-ledger/internal/application/sync"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger        *ledger.Ledger
	AuthUC        *auth.AuthUseCase
	ReportUC      *report.ReportUseCase
	Backups       *backup.Service
	Exporter      *ledgersync.Exporter // opcional
	Notifications *notification.Evaluator
	BackupSuffix  string
	JWTSecret     string
	// OperationTimeout deadline por petición; 0 = sin límite.
	OperationTimeout time.Duration
}

// AppConfig parámetros del servidor Fiber.
type AppConfig struct {
	Name    string
	Logger  *logger.Logger
	Metrics prometheus.Gatherer // nil = sin /metrics
}

// NewApp construye la aplicación Fiber con recover, /health y /metrics.
func NewApp(cfg AppConfig) *fiber.App {
	logg := cfg.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	logg = logg.For("http")

	app := fiber.New(fiber.Config{
		AppName:      cfg.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: "HTTP_ERROR", Message: fe.Message})
			}
			logg.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
		},
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.Name})
	})
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{})))
	}
	return app
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", OperationTimeout(deps.OperationTimeout))

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Articles
	articleHandler := NewArticleHandler(deps.Ledger)
	movementHandler := NewMovementHandler(deps.Ledger)
	articles := protected.Group("/articles")
	articles.Get("/", articleHandler.List)
	articles.Post("/", articleHandler.Create)
	articles.Get("/low-stock", articleHandler.LowStock)
	articles.Get("/:reference", articleHandler.Get)
	articles.Put("/:reference", articleHandler.Update)
	articles.Delete("/:reference", articleHandler.Delete)
	articles.Post("/:reference/movements", movementHandler.Adjust)
	articles.Get("/:reference/movements", movementHandler.History)

	// Movements
	protected.Get("/movements", movementHandler.List)

	// Reports
	reportHandler := NewReportHandler(deps.ReportUC)
	reports := protected.Group("/reports")
	reports.Get("/summary", reportHandler.Summary)
	reports.Get("/replenishment", reportHandler.Replenishment)
	reports.Get("/evolution/:reference", reportHandler.Evolution)

	// Users (solo admin)
	users := protected.Group("/users", RequireRole(entity.RoleAdmin))
	users.Get("/", authHandler.ListUsers)
	users.Post("/", authHandler.CreateUser)
	users.Delete("/:id", authHandler.DeleteUser)

	// Admin (solo admin)
	adminHandler := NewAdminHandler(deps.Backups, deps.Exporter, deps.Notifications, deps.BackupSuffix)
	admin := protected.Group("/admin", RequireRole(entity.RoleAdmin))
	admin.Post("/backups", adminHandler.CreateBackup)
	admin.Get("/backups", adminHandler.ListBackups)
	admin.Post("/sync/export", adminHandler.ExportSync)
	admin.Post("/notifications/run", adminHandler.RunNotifications)
}
