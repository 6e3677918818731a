package report

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
)

var (
	idealFactor = decimal.NewFromFloat(1.5)
	hundred     = decimal.NewFromInt(100)
)

// Replenishment genera la lista de reposición para los artículos en stock bajo.
// El punto de reorden es el mínimo del artículo, o threshold si se indica.
func (uc *ReportUseCase) Replenishment(ctx context.Context, threshold *int64) ([]dto.ReplenishmentSuggestionDTO, error) {
	low, err := uc.ledger.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, err
	}
	if len(low) == 0 {
		return []dto.ReplenishmentSuggestionDTO{}, nil
	}

	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0, len(low))
	for _, a := range low {
		point := decimal.NewFromInt(a.MinimumQuantity)
		if threshold != nil {
			point = decimal.NewFromInt(*threshold)
		}
		current := decimal.NewFromInt(a.Quantity)

		idealStock := point.Mul(idealFactor).Ceil()
		suggestedQty := idealStock.Sub(current)
		if suggestedQty.LessThanOrEqual(decimal.Zero) {
			suggestedQty = decimal.Zero
		}
		deficitPct := decimal.Zero
		if point.GreaterThan(decimal.Zero) {
			deficitPct = point.Sub(current).Div(point).Mul(hundred).Round(2)
		}

		suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
			Reference:         a.Reference,
			Description:       a.Description,
			Position:          a.Position,
			CurrentStock:      current,
			MinimumQuantity:   decimal.NewFromInt(a.MinimumQuantity),
			IdealStock:        idealStock,
			SuggestedOrderQty: suggestedQty,
			DeficitPct:        deficitPct,
		})
	}

	// Mayor déficit relativo primero, luego mayor cantidad a pedir
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if !a.DeficitPct.Equal(b.DeficitPct) {
			return a.DeficitPct.GreaterThan(b.DeficitPct)
		}
		if !a.SuggestedOrderQty.Equal(b.SuggestedOrderQty) {
			return a.SuggestedOrderQty.GreaterThan(b.SuggestedOrderQty)
		}
		return a.Reference < b.Reference
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
