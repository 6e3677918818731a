package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jhoicas/stock-ledger/internal/application/backup"
	"github.com/jhoicas/stock-ledger/internal/application/notification"
	"github.com/jhoicas/stock-ledger/internal/application/report"
	ledgersync "github.com/jhoicas/stock-ledger/internal/application/sync"
	"github.com/jhoicas/stock-ledger/internal/bootstrap"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/internal/scheduler"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("ledger", cfg.Ledger.Path).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	store, err := bootstrap.OpenLedger(ctx, cfg, log, registerer(reg))
	if err != nil {
		log.Fatal().Err(err).Msg("apertura del ledger")
	}
	defer store.Close()

	l := store.Ledger
	backups := backup.NewService(l, store.DB.Path(), cfg.Backup.Dir, log)
	evaluator := notification.NewEvaluator(l, notification.NewLogNotifier(log), cfg.Notification.RenotifyInterval, log)

	// Exportación a PostgreSQL: opcional
	var exporter *ledgersync.Exporter
	if cfg.Sync.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Sync)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL de sincronización")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones del almacén secundario")
		}
		exporter = ledgersync.NewExporter(l, postgres.NewSnapshotRepository(pool), log)
	}

	sched, closeLock := newScheduler(ctx, cfg, log, reg, backups, evaluator, exporter)
	defer closeLock()
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		_ = sched.Run(ctx)
	}()

	var gatherer prometheus.Gatherer
	if reg != nil {
		gatherer = reg
	}
	app := httpRouter.NewApp(httpRouter.AppConfig{Name: cfg.App.Name, Logger: log, Metrics: gatherer})
	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:           l,
		AuthUC:           store.Auth,
		ReportUC:         report.NewReportUseCase(l),
		Backups:          backups,
		Exporter:         exporter,
		Notifications:    evaluator,
		BackupSuffix:     "manual",
		JWTSecret:        cfg.JWT.Secret,
		OperationTimeout: cfg.Ledger.OperationTimeout,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("trabajos programados sin terminar al apagar")
	}

	log.Info().Msg("aplicación detenida")
}

// newScheduler registra los trabajos habilitados. Con REDIS_URL el lock es compartido entre procesos.
func newScheduler(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	reg *prometheus.Registry,
	backups *backup.Service,
	evaluator *notification.Evaluator,
	exporter *ledgersync.Exporter,
) (*scheduler.Service, func()) {
	registry := scheduler.NewRegistry()
	if exporter != nil {
		registry.Register(ledgersync.NewJob(exporter), cfg.Sync.Interval)
	}
	if cfg.Backup.Enabled {
		registry.Register(backup.NewJob(backups, cfg.Backup.Suffix), cfg.Backup.Interval)
		registry.Register(backup.NewPruneJob(backups, cfg.Backup.Retain), cfg.Backup.Interval)
	}
	if cfg.Notification.Enabled {
		registry.Register(notification.NewJob(evaluator), cfg.Notification.Interval)
	}

	closeLock := func() {}
	var lock scheduler.Lock = scheduler.NewLocalLock()
	if cfg.Redis.URL != "" {
		client, err := scheduler.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		redisLock, err := scheduler.NewRedisLock(client, cfg.Redis.LockKey, cfg.Redis.LockTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("lock de Redis")
		}
		lock = redisLock
		closeLock = func() { _ = client.Close() }
	}

	svc, err := scheduler.NewService(scheduler.ServiceParams{
		Logger:   log,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(registerer(reg)),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("planificador")
	}
	return svc, closeLock
}

// registerer evita pasar un *Registry nil dentro de una interfaz no nil.
func registerer(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return nil
	}
	return reg
}
