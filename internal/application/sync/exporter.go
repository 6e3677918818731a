package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// LedgerPort operaciones del ledger que usa la sincronización.
type LedgerPort interface {
	ExportSnapshot(ctx context.Context) (*entity.Snapshot, error)
	ImportSnapshot(ctx context.Context, snap *entity.Snapshot) (*ledger.ImportResult, error)
}

// Run resultado de una exportación.
type Run struct {
	ID         string
	Articles   int
	Movements  int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Exporter copia el ledger completo al almacén secundario y lo recupera desde él.
type Exporter struct {
	ledger LedgerPort
	store  repository.SnapshotStore
	logg   *logger.Logger
	now    func() time.Time
}

// NewExporter construye el exportador.
func NewExporter(ledger LedgerPort, store repository.SnapshotStore, logg *logger.Logger) *Exporter {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Exporter{ledger: ledger, store: store, logg: logg.For("sync"), now: time.Now}
}

// Export toma un snapshot del ledger y lo escribe en destino en una sola transacción.
// Si ctx se cancela a mitad, el destino conserva la exportación anterior.
func (e *Exporter) Export(ctx context.Context) (*Run, error) {
	run := &Run{ID: uuid.NewString(), StartedAt: e.now().UTC()}

	snap, err := e.ledger.ExportSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("export snapshot: %w", err)
	}
	if err := e.store.Replace(ctx, run.ID, snap); err != nil {
		return nil, fmt.Errorf("replace export %s: %w", run.ID, err)
	}

	run.Articles = len(snap.Articles)
	run.Movements = len(snap.Movements)
	run.FinishedAt = e.now().UTC()
	e.logg.Info().Str("run_id", run.ID).Int("articles", run.Articles).Int("movements", run.Movements).
		Dur("duration", run.FinishedAt.Sub(run.StartedAt)).Msg("export completed")
	return run, nil
}

// Import reemplaza el ledger local por el contenido del almacén secundario.
func (e *Exporter) Import(ctx context.Context) (*ledger.ImportResult, error) {
	snap, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load export: %w", err)
	}
	res, err := e.ledger.ImportSnapshot(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("import snapshot: %w", err)
	}
	if res.ActorsCleared > 0 {
		e.logg.Warn().Int("actors_cleared", res.ActorsCleared).Msg("movements with unknown actors imported without actor")
	}
	return res, nil
}
