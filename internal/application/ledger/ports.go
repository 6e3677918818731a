package ledger

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción del almacén, pasando repositorios atados a esa tx.
// Garantiza que artículo y movimiento se escriben juntos o no se escriben.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		articles repository.ArticleRepository,
		movements repository.MovementRepository,
		users repository.UserRepository,
	) error) error
	RunSnapshot(ctx context.Context, fn func(
		writer repository.SnapshotWriter,
		users repository.UserRepository,
	) error) error
}

// Store operaciones sobre el archivo del ledger que no son transacciones de negocio.
type Store interface {
	Migrate(ctx context.Context) error
	Checkpoint(ctx context.Context) error
}
