package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ArticleRepository define el puerto de persistencia para Article (DIP).
// Las búsquedas devuelven (nil, nil) si el artículo no existe.
type ArticleRepository interface {
	Create(ctx context.Context, article *entity.Article) error
	GetByReference(ctx context.Context, reference string) (*entity.Article, error)
	UpdateMetadata(ctx context.Context, article *entity.Article) error
	UpdateQuantity(ctx context.Context, reference string, quantity int64, updatedAt time.Time) error
	MarkNotified(ctx context.Context, reference string, when time.Time) (bool, error)
	Delete(ctx context.Context, reference string) error
	List(ctx context.Context) ([]*entity.Article, error)
	Search(ctx context.Context, term string) ([]*entity.Article, error)
	ListBelow(ctx context.Context, threshold *int64) ([]*entity.Article, error)
}
