package ledger

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// CreateArticleInput entrada de CreateArticle.
type CreateArticleInput struct {
	Reference       string
	Description     string
	InitialQuantity int64
	MinimumQuantity int64
	Position        string
	ActorID         *int64
}

// UpdateMetadataInput entrada de UpdateMetadata. La cantidad no se toca.
type UpdateMetadataInput struct {
	Reference       string
	Description     string
	MinimumQuantity int64
	Position        string
	ActorID         *int64
}

// AdjustQuantityInput entrada de AdjustQuantity. Amount debe ser > 0.
type AdjustQuantityInput struct {
	Reference string
	Amount    int64
	Direction entity.Direction
	Project   string
	Worker    string
	ActorID   *int64
}

// CreateArticle inserta el artículo y su movimiento CREATE en la misma transacción.
// Una referencia con historial (incluida una eliminada) no se puede reutilizar.
func (l *Ledger) CreateArticle(ctx context.Context, in CreateArticleInput) (*entity.Article, error) {
	ref, err := normalizeReference(in.Reference)
	if err != nil {
		return nil, err
	}
	if err := validateText("description", in.Description, MaxDescriptionLength); err != nil {
		return nil, err
	}
	if err := validateText("position", in.Position, MaxPositionLength); err != nil {
		return nil, err
	}
	if err := validateNonNegative("initial_quantity", in.InitialQuantity); err != nil {
		return nil, err
	}
	if err := validateNonNegative("minimum_quantity", in.MinimumQuantity); err != nil {
		return nil, err
	}

	var created *entity.Article
	err = l.write(ctx, "create_article", func(ctx context.Context) error {
		return l.tx.Run(ctx, func(articles repository.ArticleRepository, movements repository.MovementRepository, _ repository.UserRepository) error {
			existing, err := articles.GetByReference(ctx, ref)
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.ErrAlreadyExists
			}
			// Referencia retirada: el historial termina en DELETE
			latest, err := movements.Latest(ctx, ref)
			if err != nil {
				return err
			}
			if latest != nil {
				return domain.ErrAlreadyExists
			}

			now := l.clock()
			article := &entity.Article{
				Reference:       ref,
				Description:     strings.TrimSpace(in.Description),
				Quantity:        in.InitialQuantity,
				MinimumQuantity: in.MinimumQuantity,
				Position:        strings.TrimSpace(in.Position),
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := articles.Create(ctx, article); err != nil {
				return err
			}
			mov := &entity.Movement{
				ArticleReference: ref,
				ActorID:          in.ActorID,
				OccurredAt:       now,
				Kind:             entity.MovementCreate,
				QuantityBefore:   0,
				QuantityAfter:    in.InitialQuantity,
				QuantityDelta:    in.InitialQuantity,
			}
			if err := movements.Create(ctx, mov); err != nil {
				return err
			}
			created = article
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	l.logg.Debug().Str("reference", ref).Str("kind", string(entity.MovementCreate)).Int64("delta", created.Quantity).Msg("article created")
	return created, nil
}

// UpdateMetadata cambia descripción, mínimo y posición y registra un movimiento MODIFY con delta 0.
func (l *Ledger) UpdateMetadata(ctx context.Context, in UpdateMetadataInput) (*entity.Article, error) {
	ref, err := normalizeReference(in.Reference)
	if err != nil {
		return nil, err
	}
	if err := validateText("description", in.Description, MaxDescriptionLength); err != nil {
		return nil, err
	}
	if err := validateText("position", in.Position, MaxPositionLength); err != nil {
		return nil, err
	}
	if err := validateNonNegative("minimum_quantity", in.MinimumQuantity); err != nil {
		return nil, err
	}

	var updated *entity.Article
	err = l.write(ctx, "update_metadata", func(ctx context.Context) error {
		return l.tx.Run(ctx, func(articles repository.ArticleRepository, movements repository.MovementRepository, _ repository.UserRepository) error {
			article, latest, err := loadForUpdate(ctx, articles, movements, ref)
			if err != nil {
				return err
			}
			at := l.movementTime(latest)
			article.Description = strings.TrimSpace(in.Description)
			article.MinimumQuantity = in.MinimumQuantity
			article.Position = strings.TrimSpace(in.Position)
			article.UpdatedAt = at
			if err := articles.UpdateMetadata(ctx, article); err != nil {
				return err
			}
			mov := &entity.Movement{
				ArticleReference: ref,
				ActorID:          in.ActorID,
				OccurredAt:       at,
				Kind:             entity.MovementModify,
				QuantityBefore:   article.Quantity,
				QuantityAfter:    article.Quantity,
				QuantityDelta:    0,
			}
			if err := movements.Create(ctx, mov); err != nil {
				return err
			}
			updated = article
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	l.logg.Debug().Str("reference", ref).Str("kind", string(entity.MovementModify)).Int64("delta", 0).Msg("article metadata updated")
	return updated, nil
}

// AdjustQuantity suma o resta Amount unidades y registra un movimiento STOCK_ADD o STOCK_REMOVE.
// Una salida mayor que el saldo devuelve *domain.InsufficientStockError sin modificar nada.
func (l *Ledger) AdjustQuantity(ctx context.Context, in AdjustQuantityInput) (*entity.Article, error) {
	ref, err := normalizeReference(in.Reference)
	if err != nil {
		return nil, err
	}
	if in.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	var kind entity.MovementKind
	switch in.Direction {
	case entity.DirectionAdd:
		kind = entity.MovementStockAdd
	case entity.DirectionRemove:
		kind = entity.MovementStockRemove
	default:
		return nil, domain.InvalidInput("direction", "debe ser ADD o REMOVE")
	}
	if err := validateText("project", in.Project, MaxProjectLength); err != nil {
		return nil, err
	}
	if err := validateText("worker", in.Worker, MaxWorkerLength); err != nil {
		return nil, err
	}

	var adjusted *entity.Article
	var delta int64
	err = l.write(ctx, "adjust_quantity", func(ctx context.Context) error {
		return l.tx.Run(ctx, func(articles repository.ArticleRepository, movements repository.MovementRepository, _ repository.UserRepository) error {
			article, latest, err := loadForUpdate(ctx, articles, movements, ref)
			if err != nil {
				return err
			}
			before := article.Quantity
			if kind == entity.MovementStockRemove {
				if before < in.Amount {
					return &domain.InsufficientStockError{Reference: ref, Available: before, Requested: in.Amount}
				}
				delta = -in.Amount
			} else {
				if before > math.MaxInt64-in.Amount {
					return domain.ErrInvalidAmount
				}
				delta = in.Amount
			}

			at := l.movementTime(latest)
			article.Quantity = before + delta
			article.UpdatedAt = at
			if err := articles.UpdateQuantity(ctx, ref, article.Quantity, at); err != nil {
				return err
			}
			mov := &entity.Movement{
				ArticleReference: ref,
				ActorID:          in.ActorID,
				OccurredAt:       at,
				Kind:             kind,
				QuantityBefore:   before,
				QuantityAfter:    article.Quantity,
				QuantityDelta:    delta,
				Project:          strings.TrimSpace(in.Project),
				Worker:           strings.TrimSpace(in.Worker),
			}
			if err := movements.Create(ctx, mov); err != nil {
				return err
			}
			adjusted = article
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	l.logg.Debug().Str("reference", ref).Str("kind", string(kind)).Int64("delta", delta).Int64("quantity", adjusted.Quantity).Msg("stock adjusted")
	return adjusted, nil
}

// DeleteArticle registra el movimiento terminal DELETE y después borra la fila del artículo.
// El historial queda consultable por referencia.
func (l *Ledger) DeleteArticle(ctx context.Context, reference string, actorID *int64) error {
	ref, err := normalizeReference(reference)
	if err != nil {
		return err
	}
	err = l.write(ctx, "delete_article", func(ctx context.Context) error {
		return l.tx.Run(ctx, func(articles repository.ArticleRepository, movements repository.MovementRepository, _ repository.UserRepository) error {
			article, latest, err := loadForUpdate(ctx, articles, movements, ref)
			if err != nil {
				return err
			}
			mov := &entity.Movement{
				ArticleReference: ref,
				ActorID:          actorID,
				OccurredAt:       l.movementTime(latest),
				Kind:             entity.MovementDelete,
				QuantityBefore:   article.Quantity,
				QuantityAfter:    0,
				QuantityDelta:    -article.Quantity,
			}
			if err := movements.Create(ctx, mov); err != nil {
				return err
			}
			return articles.Delete(ctx, ref)
		})
	})
	if err != nil {
		return err
	}
	l.logg.Debug().Str("reference", ref).Str("kind", string(entity.MovementDelete)).Msg("article deleted")
	return nil
}

// MarkNotified fija last_notified_at. No genera movimiento: no es un cambio de stock ni de metadatos.
func (l *Ledger) MarkNotified(ctx context.Context, reference string, when time.Time) error {
	ref, err := normalizeReference(reference)
	if err != nil {
		return err
	}
	return l.write(ctx, "mark_notified", func(ctx context.Context) error {
		return l.tx.Run(ctx, func(articles repository.ArticleRepository, _ repository.MovementRepository, _ repository.UserRepository) error {
			found, err := articles.MarkNotified(ctx, ref, when.UTC().Truncate(time.Microsecond))
			if err != nil {
				return err
			}
			if !found {
				return domain.ErrNotFound
			}
			return nil
		})
	})
}

func loadForUpdate(ctx context.Context, articles repository.ArticleRepository, movements repository.MovementRepository, ref string) (*entity.Article, *entity.Movement, error) {
	article, err := articles.GetByReference(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if article == nil {
		return nil, nil, domain.ErrNotFound
	}
	latest, err := movements.Latest(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	return article, latest, nil
}
