package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementRepository puerto del diario de movimientos. Solo inserta: no hay Update ni Delete.
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	Latest(ctx context.Context, reference string) (*entity.Movement, error)
	List(ctx context.Context, filter entity.MovementFilter) ([]*entity.Movement, error)
	ListAll(ctx context.Context) ([]*entity.Movement, error)
}
