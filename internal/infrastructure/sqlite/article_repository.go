package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

var _ repository.ArticleRepository = (*ArticleRepo)(nil)

// ArticleRepo implementación del puerto ArticleRepository sobre SQLite (usable con la conexión o una tx).
type ArticleRepo struct {
	db *gorm.DB
}

// NewArticleRepository construye el adaptador de persistencia para artículos.
func NewArticleRepository(db *gorm.DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

// Create persiste un artículo nuevo. La referencia duplicada (sin distinguir mayúsculas) devuelve ErrAlreadyExists.
func (r *ArticleRepo) Create(ctx context.Context, article *entity.Article) error {
	if err := r.db.WithContext(ctx).Create(articleFromEntity(article)).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// GetByReference obtiene un artículo por referencia. Devuelve (nil, nil) si no existe.
func (r *ArticleRepo) GetByReference(ctx context.Context, reference string) (*entity.Article, error) {
	var row articleRow
	err := r.db.WithContext(ctx).Where("reference = ?", reference).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get article: %w", err)
	}
	return row.toEntity(), nil
}

// UpdateMetadata actualiza descripción, mínimo, posición y updated_at.
func (r *ArticleRepo) UpdateMetadata(ctx context.Context, article *entity.Article) error {
	res := r.db.WithContext(ctx).Model(&articleRow{}).
		Where("reference = ?", article.Reference).
		Updates(map[string]any{
			"description":      article.Description,
			"minimum_quantity": article.MinimumQuantity,
			"position":         article.Position,
			"updated_at":       article.UpdatedAt.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("update article: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateQuantity fija la cantidad en stock.
func (r *ArticleRepo) UpdateQuantity(ctx context.Context, reference string, quantity int64, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&articleRow{}).
		Where("reference = ?", reference).
		Updates(map[string]any{"quantity": quantity, "updated_at": updatedAt.UTC()})
	if res.Error != nil {
		return fmt.Errorf("update quantity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkNotified registra la fecha de la última notificación de stock bajo.
func (r *ArticleRepo) MarkNotified(ctx context.Context, reference string, when time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&articleRow{}).
		Where("reference = ?", reference).
		Update("last_notified_at", when.UTC())
	if res.Error != nil {
		return false, fmt.Errorf("mark notified: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Delete elimina la fila del artículo. Los movimientos se conservan.
func (r *ArticleRepo) Delete(ctx context.Context, reference string) error {
	res := r.db.WithContext(ctx).Where("reference = ?", reference).Delete(&articleRow{})
	if res.Error != nil {
		return fmt.Errorf("delete article: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List devuelve todos los artículos ordenados por referencia.
func (r *ArticleRepo) List(ctx context.Context) ([]*entity.Article, error) {
	var rows []articleRow
	if err := r.db.WithContext(ctx).Order("reference").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return toArticles(rows), nil
}

// Search busca term como subcadena de referencia o descripción, sin distinguir mayúsculas.
// LIKE de SQLite solo pliega ASCII; con términos no ASCII se filtra en memoria.
func (r *ArticleRepo) Search(ctx context.Context, term string) ([]*entity.Article, error) {
	if isASCII(term) {
		var rows []articleRow
		pattern := likePattern(term)
		err := r.db.WithContext(ctx).
			Where(`reference LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'`, pattern, pattern).
			Order("reference").
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("search articles: %w", err)
		}
		return toArticles(rows), nil
	}

	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	fold := cases.Fold()
	needle := fold.String(term)
	out := make([]*entity.Article, 0)
	for _, a := range all {
		if containsFolded(fold, a.Reference, needle) || containsFolded(fold, a.Description, needle) {
			out = append(out, a)
		}
	}
	return out, nil
}

// ListBelow devuelve los artículos con cantidad < threshold; con threshold nil usa el mínimo de cada artículo.
func (r *ArticleRepo) ListBelow(ctx context.Context, threshold *int64) ([]*entity.Article, error) {
	var rows []articleRow
	q := r.db.WithContext(ctx)
	if threshold != nil {
		q = q.Where("quantity < ?", *threshold)
	} else {
		q = q.Where("quantity < minimum_quantity")
	}
	if err := q.Order("reference").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return toArticles(rows), nil
}

func toArticles(rows []articleRow) []*entity.Article {
	out := make([]*entity.Article, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntity())
	}
	return out
}
