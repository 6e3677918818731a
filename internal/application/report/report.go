package report

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// TopN tamaño de los rankings del resumen.
const TopN = 5

// systemActor clave de los movimientos sin actor (sistema o usuario eliminado).
const systemActor = "system"

// LedgerReader consultas del ledger que necesitan los reportes.
type LedgerReader interface {
	ListMovements(ctx context.Context, filter entity.MovementFilter) ([]*entity.Movement, error)
	ListLowStock(ctx context.Context, threshold *int64) ([]*entity.Article, error)
}

// ReportUseCase agregados de solo lectura sobre el diario.
type ReportUseCase struct {
	ledger LedgerReader
}

// NewReportUseCase construye el caso de uso de reportes.
func NewReportUseCase(ledger LedgerReader) *ReportUseCase {
	return &ReportUseCase{ledger: ledger}
}

// Summary totaliza entradas y salidas del periodo y arma el top de artículos y de actores
// por número de movimientos.
func (uc *ReportUseCase) Summary(ctx context.Context, from, to *time.Time) (*dto.SummaryResponse, error) {
	movs, err := uc.ledger.ListMovements(ctx, entity.MovementFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}
	out := &dto.SummaryResponse{From: from, To: to, TotalMovements: len(movs)}
	articles := make(map[string]*dto.RankedItem)
	actors := make(map[string]*dto.RankedItem)
	for _, m := range movs {
		switch m.Kind {
		case entity.MovementCreate, entity.MovementStockAdd:
			out.QuantityIn += m.QuantityDelta
		case entity.MovementStockRemove:
			out.QuantityOut += -m.QuantityDelta
		}
		units := abs(m.QuantityDelta)
		rank(articles, m.ArticleReference, units)
		actor := m.ActorUsername
		if actor == "" {
			actor = systemActor
		}
		rank(actors, actor, units)
	}
	out.TopArticles = top(articles, TopN)
	out.TopActors = top(actors, TopN)
	return out, nil
}

// StockEvolution devuelve el saldo de la referencia tras cada movimiento del periodo, en orden
// cronológico, precedido por el saldo anterior al primero.
func (uc *ReportUseCase) StockEvolution(ctx context.Context, reference string, from, to *time.Time) (*dto.EvolutionResponse, error) {
	ref := entity.NormalizeReference(reference)
	if ref == "" {
		return nil, domain.InvalidInput("reference", "no puede estar vacía")
	}
	movs, err := uc.ledger.ListMovements(ctx, entity.MovementFilter{Reference: ref, From: from, To: to})
	if err != nil {
		return nil, err
	}
	out := &dto.EvolutionResponse{Reference: ref, Points: make([]dto.EvolutionPoint, 0, len(movs)+1)}
	if len(movs) == 0 {
		return out, nil
	}
	// ListMovements devuelve del más reciente al más antiguo
	first := movs[len(movs)-1]
	out.Points = append(out.Points, dto.EvolutionPoint{At: first.OccurredAt, Quantity: first.QuantityBefore})
	for i := len(movs) - 1; i >= 0; i-- {
		m := movs[i]
		out.Points = append(out.Points, dto.EvolutionPoint{At: m.OccurredAt, Quantity: m.QuantityAfter, Kind: string(m.Kind)})
	}
	return out, nil
}

func rank(set map[string]*dto.RankedItem, key string, units int64) {
	item, ok := set[key]
	if !ok {
		item = &dto.RankedItem{Key: key}
		set[key] = item
	}
	item.Movements++
	item.Units += units
}

func top(set map[string]*dto.RankedItem, n int) []dto.RankedItem {
	items := make([]dto.RankedItem, 0, len(set))
	for _, v := range set {
		items = append(items, *v)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Movements != items[j].Movements {
			return items[i].Movements > items[j].Movements
		}
		if items[i].Units != items[j].Units {
			return items[i].Units > items[j].Units
		}
		return items[i].Key < items[j].Key
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
