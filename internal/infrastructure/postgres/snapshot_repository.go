package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.SnapshotStore = (*SnapshotRepo)(nil)

var (
	articleColumns  = []string{"reference", "description", "quantity", "minimum_quantity", "position", "created_at", "updated_at", "last_notified_at"}
	movementColumns = []string{"id", "article_reference", "actor_id", "occurred_at", "kind", "quantity_before", "quantity_after", "quantity_delta", "project", "worker"}
)

// SnapshotRepo copia completa del ledger en PostgreSQL (tablas ledger_*).
type SnapshotRepo struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository construye el adaptador del almacén secundario.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

// Replace sustituye el contenido exportado en una sola transacción: TRUNCATE, COPY y registro de la ejecución.
// Si ctx se cancela a mitad, el destino conserva la exportación anterior.
func (r *SnapshotRepo) Replace(ctx context.Context, runID string, snap *entity.Snapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `TRUNCATE ledger_movements, ledger_articles`); err != nil {
		return fmt.Errorf("truncate export: %w", err)
	}

	articleRows := make([][]any, 0, len(snap.Articles))
	for _, a := range snap.Articles {
		articleRows = append(articleRows, []any{
			a.Reference, a.Description, a.Quantity, a.MinimumQuantity, a.Position,
			a.CreatedAt, a.UpdatedAt, a.LastNotifiedAt,
		})
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"ledger_articles"}, articleColumns, pgx.CopyFromRows(articleRows)); err != nil {
		return fmt.Errorf("copy articles: %w", err)
	}

	movementRows := make([][]any, 0, len(snap.Movements))
	for _, m := range snap.Movements {
		movementRows = append(movementRows, []any{
			m.ID, m.ArticleReference, m.ActorID, m.OccurredAt, string(m.Kind),
			m.QuantityBefore, m.QuantityAfter, m.QuantityDelta, nullableText(m.Project), nullableText(m.Worker),
		})
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"ledger_movements"}, movementColumns, pgx.CopyFromRows(movementRows)); err != nil {
		return fmt.Errorf("copy movements: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO ledger_sync_runs (id, articles, movements, taken_at, finished_at) VALUES ($1, $2, $3, $4, $5)`,
		runID, len(snap.Articles), len(snap.Movements), snap.TakenAt, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert sync run: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Load lee la exportación completa en una transacción de solo lectura (REPEATABLE READ).
func (r *SnapshotRepo) Load(ctx context.Context) (*entity.Snapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	snap := &entity.Snapshot{}
	err = tx.QueryRow(ctx, `SELECT COALESCE(MAX(taken_at), now()) FROM ledger_sync_runs`).Scan(&snap.TakenAt)
	if err != nil {
		return nil, fmt.Errorf("last sync run: %w", err)
	}
	if snap.Articles, err = loadArticles(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Movements, err = loadMovements(ctx, tx); err != nil {
		return nil, err
	}
	return snap, nil
}

func loadArticles(ctx context.Context, q Querier) ([]*entity.Article, error) {
	rows, err := q.Query(ctx, `
		SELECT reference, description, quantity, minimum_quantity, position, created_at, updated_at, last_notified_at
		FROM ledger_articles ORDER BY reference`)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var out []*entity.Article
	for rows.Next() {
		var a entity.Article
		if err := rows.Scan(&a.Reference, &a.Description, &a.Quantity, &a.MinimumQuantity, &a.Position,
			&a.CreatedAt, &a.UpdatedAt, &a.LastNotifiedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.CreatedAt = a.CreatedAt.UTC()
		a.UpdatedAt = a.UpdatedAt.UTC()
		if a.LastNotifiedAt != nil {
			t := a.LastNotifiedAt.UTC()
			a.LastNotifiedAt = &t
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func loadMovements(ctx context.Context, q Querier) ([]*entity.Movement, error) {
	rows, err := q.Query(ctx, `
		SELECT id, article_reference, actor_id, occurred_at, kind, quantity_before, quantity_after, quantity_delta, project, worker
		FROM ledger_movements ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var out []*entity.Movement
	for rows.Next() {
		var m entity.Movement
		var kind string
		var project, worker *string
		if err := rows.Scan(&m.ID, &m.ArticleReference, &m.ActorID, &m.OccurredAt, &kind,
			&m.QuantityBefore, &m.QuantityAfter, &m.QuantityDelta, &project, &worker); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Kind = entity.MovementKind(kind)
		m.OccurredAt = m.OccurredAt.UTC()
		m.Project = textOrEmpty(project)
		m.Worker = textOrEmpty(worker)
		out = append(out, &m)
	}
	return out, rows.Err()
}
