package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"gorm.io/gorm"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación del puerto MovementRepository sobre SQLite. Solo inserta y consulta.
type MovementRepo struct {
	db *gorm.DB
}

// NewMovementRepository construye el adaptador del diario de movimientos.
func NewMovementRepository(db *gorm.DB) *MovementRepo {
	return &MovementRepo{db: db}
}

// Create inserta el movimiento y asigna el ID generado.
func (r *MovementRepo) Create(ctx context.Context, movement *entity.Movement) error {
	row := movementFromEntity(movement)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	movement.ID = row.ID
	return nil
}

// Latest devuelve el movimiento más reciente de la referencia o (nil, nil) si no tiene historial.
func (r *MovementRepo) Latest(ctx context.Context, reference string) (*entity.Movement, error) {
	var row movementRow
	err := r.db.WithContext(ctx).
		Where("article_reference = ?", reference).
		Order("occurred_at DESC, id DESC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest movement: %w", err)
	}
	return row.toEntity(), nil
}

// List devuelve movimientos del más reciente al más antiguo aplicando el filtro.
func (r *MovementRepo) List(ctx context.Context, filter entity.MovementFilter) ([]*entity.Movement, error) {
	q := r.db.WithContext(ctx).
		Table("movements AS m").
		Select("m.*, u.username AS actor_username").
		Joins("LEFT JOIN users u ON u.id = m.actor_id")

	if filter.Reference != "" {
		q = q.Where("m.article_reference = ?", filter.Reference)
	}
	if filter.ActorID != nil {
		q = q.Where("m.actor_id = ?", *filter.ActorID)
	}
	if filter.Kind != "" {
		q = q.Where("m.kind = ?", string(filter.Kind))
	}
	if filter.From != nil {
		q = q.Where("m.occurred_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("m.occurred_at <= ?", filter.To.UTC())
	}
	q = q.Order("m.occurred_at DESC, m.id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			q = q.Limit(-1)
		}
		q = q.Offset(filter.Offset)
	}

	var rows []movementView
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	out := make([]*entity.Movement, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntity())
	}
	return out, nil
}

// ListAll devuelve el diario completo en orden de inserción (para snapshots).
func (r *MovementRepo) ListAll(ctx context.Context) ([]*entity.Movement, error) {
	var rows []movementRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list all movements: %w", err)
	}
	out := make([]*entity.Movement, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntity())
	}
	return out, nil
}
