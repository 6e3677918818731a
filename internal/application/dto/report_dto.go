package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RankedItem entrada de un top (artículo o actor) con su número de movimientos y unidades movidas.
type RankedItem struct {
	Key       string `json:"key"`
	Movements int    `json:"movements"`
	Units     int64  `json:"units"`
}

// SummaryResponse agregados de movimientos en un periodo.
type SummaryResponse struct {
	From           *time.Time   `json:"from,omitempty"`
	To             *time.Time   `json:"to,omitempty"`
	TotalMovements int          `json:"total_movements"`
	QuantityIn     int64        `json:"quantity_in"`
	QuantityOut    int64        `json:"quantity_out"`
	TopArticles    []RankedItem `json:"top_articles"`
	TopActors      []RankedItem `json:"top_actors"`
}

// EvolutionPoint saldo de un artículo en un instante.
type EvolutionPoint struct {
	At       time.Time `json:"at"`
	Quantity int64     `json:"quantity"`
	Kind     string    `json:"kind,omitempty"`
}

// EvolutionResponse evolución del saldo de una referencia.
type EvolutionResponse struct {
	Reference string           `json:"reference"`
	Points    []EvolutionPoint `json:"points"`
}

// ReplenishmentSuggestionDTO sugerencia de reposición para un artículo bajo su mínimo.
type ReplenishmentSuggestionDTO struct {
	Reference         string          `json:"reference"`
	Description       string          `json:"description"`
	Position          string          `json:"position"`
	CurrentStock      decimal.Decimal `json:"current_stock"`
	MinimumQuantity   decimal.Decimal `json:"minimum_quantity"`
	IdealStock        decimal.Decimal `json:"ideal_stock"`         // ceil(MinimumQuantity * 1.5)
	SuggestedOrderQty decimal.Decimal `json:"suggested_order_qty"` // IdealStock - CurrentStock
	DeficitPct        decimal.Decimal `json:"deficit_pct"`         // % por debajo del mínimo
	Priority          int             `json:"priority"`            // 1 = más urgente
}
