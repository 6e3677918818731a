package sqlite

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"gorm.io/gorm"
)

var _ ledger.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción SQLite (BEGIN IMMEDIATE).
type TxRunner struct {
	db *gorm.DB
}

// NewTxRunner construye el runner sobre la conexión del ledger.
func NewTxRunner(db *DB) *TxRunner {
	return &TxRunner{db: db.Gorm()}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Si ctx vence antes del commit la transacción se revierte.
func (r *TxRunner) Run(ctx context.Context, fn func(
	articles repository.ArticleRepository,
	movements repository.MovementRepository,
	users repository.UserRepository,
) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(NewArticleRepository(tx), NewMovementRepository(tx), NewUserRepository(tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunSnapshot inicia una transacción con el escritor de snapshots (para ImportSnapshot).
func (r *TxRunner) RunSnapshot(ctx context.Context, fn func(
	writer repository.SnapshotWriter,
	users repository.UserRepository,
) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(NewSnapshotWriter(tx), NewUserRepository(tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
