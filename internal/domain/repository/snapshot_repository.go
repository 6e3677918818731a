package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// SnapshotWriter reemplaza todo el contenido de artículos y movimientos dentro de la transacción actual.
type SnapshotWriter interface {
	ReplaceAll(ctx context.Context, snapshot *entity.Snapshot) error
}

// SnapshotStore almacén secundario de exportación. Cada método es transaccional en destino.
type SnapshotStore interface {
	Replace(ctx context.Context, runID string, snapshot *entity.Snapshot) error
	Load(ctx context.Context) (*entity.Snapshot, error)
}
