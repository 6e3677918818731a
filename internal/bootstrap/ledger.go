package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

// Ledger almacén abierto con su Ledger y el caso de uso de usuarios.
type Ledger struct {
	DB     *sqlite.DB
	Ledger *ledger.Ledger
	Auth   *auth.AuthUseCase
}

// OpenLedger abre el archivo SQLite, construye el Ledger y aplica las migraciones.
// reg puede ser nil (sin métricas).
func OpenLedger(ctx context.Context, cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer) (*Ledger, error) {
	db, err := sqlite.Open(ctx, cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("abrir ledger: %w", err)
	}
	var lm *metrics.LedgerMetrics
	if reg != nil {
		lm = metrics.NewLedgerMetrics(reg)
	}
	l, err := ledger.New(ledger.Params{
		TxRunner:         sqlite.NewTxRunner(db),
		Store:            db,
		Articles:         sqlite.NewArticleRepository(db.Gorm()),
		Movements:        sqlite.NewMovementRepository(db.Gorm()),
		Logger:           logg,
		Metrics:          lm,
		OperationTimeout: cfg.Ledger.OperationTimeout,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := l.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	authUC := auth.NewAuthUseCase(sqlite.NewUserRepository(db.Gorm()), auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	return &Ledger{DB: db, Ledger: l, Auth: authUC}, nil
}

// Close cierra el almacén.
func (b *Ledger) Close() error {
	return b.DB.Close()
}
