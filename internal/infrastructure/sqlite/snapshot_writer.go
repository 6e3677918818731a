package sqlite

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"gorm.io/gorm"
)

var _ repository.SnapshotWriter = (*SnapshotWriter)(nil)

const snapshotBatchSize = 200

// SnapshotWriter reemplaza artículos y movimientos conservando los IDs del snapshot.
type SnapshotWriter struct {
	db *gorm.DB
}

// NewSnapshotWriter debe recibir una tx: ReplaceAll no es atómico por sí solo.
func NewSnapshotWriter(db *gorm.DB) *SnapshotWriter {
	return &SnapshotWriter{db: db}
}

// ReplaceAll borra el contenido actual e inserta el del snapshot.
func (w *SnapshotWriter) ReplaceAll(ctx context.Context, snapshot *entity.Snapshot) error {
	db := w.db.WithContext(ctx)
	for _, stmt := range []string{
		"DELETE FROM movements",
		"DELETE FROM articles",
		"DELETE FROM sqlite_sequence WHERE name = 'movements'",
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("clear ledger: %w", err)
		}
	}

	if len(snapshot.Articles) > 0 {
		rows := make([]*articleRow, 0, len(snapshot.Articles))
		for _, a := range snapshot.Articles {
			rows = append(rows, articleFromEntity(a))
		}
		if err := db.CreateInBatches(rows, snapshotBatchSize).Error; err != nil {
			return fmt.Errorf("insert articles: %w", err)
		}
	}
	if len(snapshot.Movements) > 0 {
		rows := make([]*movementRow, 0, len(snapshot.Movements))
		for _, m := range snapshot.Movements {
			rows = append(rows, movementFromEntity(m))
		}
		if err := db.CreateInBatches(rows, snapshotBatchSize).Error; err != nil {
			return fmt.Errorf("insert movements: %w", err)
		}
	}
	return nil
}
