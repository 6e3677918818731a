package ledger

import (
	"context"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// GetArticle devuelve el artículo o domain.ErrNotFound.
func (l *Ledger) GetArticle(ctx context.Context, reference string) (*entity.Article, error) {
	ref, err := normalizeReference(reference)
	if err != nil {
		return nil, err
	}
	var article *entity.Article
	err = l.read(ctx, "get_article", func(ctx context.Context) error {
		a, err := l.articles.GetByReference(ctx, ref)
		if err != nil {
			return err
		}
		if a == nil {
			return domain.ErrNotFound
		}
		article = a
		return nil
	})
	return article, err
}

// ListArticles devuelve todos los artículos ordenados por referencia. Cada llamada es una consulta nueva.
func (l *Ledger) ListArticles(ctx context.Context) ([]*entity.Article, error) {
	var out []*entity.Article
	err := l.read(ctx, "list_articles", func(ctx context.Context) error {
		var err error
		out, err = l.articles.List(ctx)
		return err
	})
	return out, err
}

// SearchArticles busca term como subcadena de referencia o descripción sin distinguir mayúsculas.
// Un término vacío equivale a ListArticles.
func (l *Ledger) SearchArticles(ctx context.Context, term string) ([]*entity.Article, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return l.ListArticles(ctx)
	}
	var out []*entity.Article
	err := l.read(ctx, "search_articles", func(ctx context.Context) error {
		var err error
		out, err = l.articles.Search(ctx, term)
		return err
	})
	return out, err
}

// ListLowStock devuelve los artículos con quantity < threshold o, sin threshold, quantity < minimum_quantity.
func (l *Ledger) ListLowStock(ctx context.Context, threshold *int64) ([]*entity.Article, error) {
	if threshold != nil && *threshold < 0 {
		return nil, domain.InvalidInput("threshold", "no puede ser negativo")
	}
	var out []*entity.Article
	err := l.read(ctx, "list_low_stock", func(ctx context.Context) error {
		var err error
		out, err = l.articles.ListBelow(ctx, threshold)
		return err
	})
	return out, err
}

// ListMovements devuelve movimientos del más reciente al más antiguo. La referencia del filtro
// se normaliza y puede pertenecer a un artículo ya eliminado.
func (l *Ledger) ListMovements(ctx context.Context, filter entity.MovementFilter) ([]*entity.Movement, error) {
	if filter.Reference != "" {
		ref, err := normalizeReference(filter.Reference)
		if err != nil {
			return nil, err
		}
		filter.Reference = ref
	}
	if filter.Kind != "" && !filter.Kind.IsValid() {
		return nil, domain.InvalidInput("kind", "tipo de movimiento desconocido")
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, domain.InvalidInput("from", "posterior a to")
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, domain.InvalidInput("limit", "no puede ser negativo")
	}
	var out []*entity.Movement
	err := l.read(ctx, "list_movements", func(ctx context.Context) error {
		var err error
		out, err = l.movements.List(ctx, filter)
		return err
	})
	return out, err
}
