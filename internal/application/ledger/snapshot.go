package ledger

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ImportResult resumen de ImportSnapshot.
type ImportResult struct {
	Articles      int
	Movements     int
	ActorsCleared int // movimientos cuyo actor no existe localmente
}

// ExportSnapshot lee artículos y diario completos en una única transacción.
func (l *Ledger) ExportSnapshot(ctx context.Context) (*entity.Snapshot, error) {
	var snap *entity.Snapshot
	err := l.write(ctx, "export_snapshot", func(ctx context.Context) error {
		return l.tx.Run(ctx, func(articles repository.ArticleRepository, movements repository.MovementRepository, _ repository.UserRepository) error {
			list, err := articles.List(ctx)
			if err != nil {
				return err
			}
			movs, err := movements.ListAll(ctx)
			if err != nil {
				return err
			}
			snap = &entity.Snapshot{TakenAt: l.clock(), Articles: list, Movements: movs}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	l.logg.Debug().Int("articles", len(snap.Articles)).Int("movements", len(snap.Movements)).Msg("snapshot exported")
	return snap, nil
}

// ImportSnapshot reemplaza artículos y movimientos por el contenido del snapshot en una transacción.
// Rechaza (sin tocar nada) un snapshot que incumpla los invariantes del diario.
func (l *Ledger) ImportSnapshot(ctx context.Context, snap *entity.Snapshot) (*ImportResult, error) {
	if snap == nil {
		return nil, domain.InvalidInput("snapshot", "vacío")
	}
	if err := ValidateSnapshot(snap); err != nil {
		return nil, err
	}

	res := &ImportResult{Articles: len(snap.Articles), Movements: len(snap.Movements)}
	err := l.write(ctx, "import_snapshot", func(ctx context.Context) error {
		return l.tx.RunSnapshot(ctx, func(writer repository.SnapshotWriter, users repository.UserRepository) error {
			known, err := users.IDs(ctx)
			if err != nil {
				return err
			}
			movs := make([]*entity.Movement, 0, len(snap.Movements))
			for _, m := range snap.Movements {
				c := *m
				if c.ActorID != nil {
					if _, ok := known[*c.ActorID]; !ok {
						c.ActorID = nil
						res.ActorsCleared++
					}
				}
				movs = append(movs, &c)
			}
			return writer.ReplaceAll(ctx, &entity.Snapshot{TakenAt: snap.TakenAt, Articles: snap.Articles, Movements: movs})
		})
	})
	if err != nil {
		return nil, err
	}
	l.logg.Info().Int("articles", res.Articles).Int("movements", res.Movements).
		Int("actors_cleared", res.ActorsCleared).Msg("snapshot imported")
	return res, nil
}

// ValidateSnapshot comprueba los invariantes: cada movimiento es coherente, los IDs son únicos
// y cada artículo coincide con el quantity_after de su movimiento más reciente.
func ValidateSnapshot(snap *entity.Snapshot) error {
	latest := make(map[string]*entity.Movement)
	ids := make(map[int64]struct{}, len(snap.Movements))
	for _, m := range snap.Movements {
		if m.ID <= 0 {
			return domain.InvalidInput("snapshot", "movimiento sin id")
		}
		if _, dup := ids[m.ID]; dup {
			return domain.InvalidInput("snapshot", fmt.Sprintf("id de movimiento duplicado %d", m.ID))
		}
		ids[m.ID] = struct{}{}
		if !m.Kind.IsValid() {
			return domain.InvalidInput("snapshot", fmt.Sprintf("movimiento %d con tipo %q", m.ID, m.Kind))
		}
		if !m.Consistent() {
			return domain.InvalidInput("snapshot", fmt.Sprintf("movimiento %d incoherente", m.ID))
		}
		if cur, ok := latest[m.ArticleReference]; !ok || newer(m, cur) {
			latest[m.ArticleReference] = m
		}
	}

	refs := make(map[string]struct{}, len(snap.Articles))
	for _, a := range snap.Articles {
		ref, err := normalizeReference(a.Reference)
		if err != nil {
			return err
		}
		if ref != a.Reference {
			return domain.InvalidInput("snapshot", fmt.Sprintf("referencia %q no normalizada", a.Reference))
		}
		if _, dup := refs[ref]; dup {
			return domain.InvalidInput("snapshot", fmt.Sprintf("referencia duplicada %q", ref))
		}
		refs[ref] = struct{}{}
		if a.Quantity < 0 || a.MinimumQuantity < 0 {
			return domain.InvalidInput("snapshot", fmt.Sprintf("cantidades negativas en %q", ref))
		}
		m, ok := latest[ref]
		if !ok {
			return domain.InvalidInput("snapshot", fmt.Sprintf("artículo %q sin movimientos", ref))
		}
		if m.Kind == entity.MovementDelete {
			return domain.InvalidInput("snapshot", fmt.Sprintf("artículo %q con historial terminado en DELETE", ref))
		}
		if m.QuantityAfter != a.Quantity {
			return domain.InvalidInput("snapshot", fmt.Sprintf("artículo %q: cantidad %d, último movimiento %d", ref, a.Quantity, m.QuantityAfter))
		}
	}
	return nil
}

func newer(a, b *entity.Movement) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.After(b.OccurredAt)
	}
	return a.ID > b.ID
}
