package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CreateArticleRequest body para POST /api/articles.
type CreateArticleRequest struct {
	Reference       string `json:"reference" validate:"required,max=64"`
	Description     string `json:"description" validate:"max=255"`
	InitialQuantity int64  `json:"initial_quantity" validate:"min=0"`
	MinimumQuantity int64  `json:"minimum_quantity" validate:"min=0"`
	Position        string `json:"position" validate:"max=64"`
}

// UpdateArticleRequest body para PUT /api/articles/:reference. La cantidad no se edita aquí.
type UpdateArticleRequest struct {
	Description     string `json:"description" validate:"max=255"`
	MinimumQuantity int64  `json:"minimum_quantity" validate:"min=0"`
	Position        string `json:"position" validate:"max=64"`
}

// AdjustStockRequest body para POST /api/articles/:reference/movements.
type AdjustStockRequest struct {
	Direction string `json:"direction" validate:"required,oneof=ADD REMOVE"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Project   string `json:"project" validate:"max=128"`
	Worker    string `json:"worker" validate:"max=128"`
}

// MovementQuery filtros de GET /api/movements.
type MovementQuery struct {
	Reference string `query:"reference" validate:"max=64"`
	ActorID   int64  `query:"actor_id" validate:"min=0"`
	Kind      string `query:"kind" validate:"omitempty,oneof=CREATE MODIFY STOCK_ADD STOCK_REMOVE DELETE"`
	From      string `query:"from"` // RFC3339 o YYYY-MM-DD
	To        string `query:"to"`
	PageRequest
}

// ArticleResponse salida de un artículo.
type ArticleResponse struct {
	Reference       string     `json:"reference"`
	Description     string     `json:"description"`
	Quantity        int64      `json:"quantity"`
	MinimumQuantity int64      `json:"minimum_quantity"`
	Position        string     `json:"position"`
	LowStock        bool       `json:"low_stock"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastNotifiedAt  *time.Time `json:"last_notified_at,omitempty"`
}

// MovementResponse salida de un movimiento.
type MovementResponse struct {
	ID               int64     `json:"id"`
	ArticleReference string    `json:"article_reference"`
	ActorID          *int64    `json:"actor_id,omitempty"`
	ActorUsername    string    `json:"actor_username,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
	Kind             string    `json:"kind"`
	QuantityBefore   int64     `json:"quantity_before"`
	QuantityAfter    int64     `json:"quantity_after"`
	QuantityDelta    int64     `json:"quantity_delta"`
	Project          string    `json:"project,omitempty"`
	Worker           string    `json:"worker,omitempty"`
}

// MovementListResponse página de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// ToArticleResponse convierte la entidad en su representación HTTP.
func ToArticleResponse(a *entity.Article) ArticleResponse {
	return ArticleResponse{
		Reference:       a.Reference,
		Description:     a.Description,
		Quantity:        a.Quantity,
		MinimumQuantity: a.MinimumQuantity,
		Position:        a.Position,
		LowStock:        a.IsLowStock(),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		LastNotifiedAt:  a.LastNotifiedAt,
	}
}

// ToArticleResponses convierte una lista de artículos.
func ToArticleResponses(list []*entity.Article) []ArticleResponse {
	out := make([]ArticleResponse, 0, len(list))
	for _, a := range list {
		out = append(out, ToArticleResponse(a))
	}
	return out
}

// ToMovementResponses convierte una lista de movimientos.
func ToMovementResponses(list []*entity.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, MovementResponse{
			ID:               m.ID,
			ArticleReference: m.ArticleReference,
			ActorID:          m.ActorID,
			ActorUsername:    m.ActorUsername,
			OccurredAt:       m.OccurredAt,
			Kind:             string(m.Kind),
			QuantityBefore:   m.QuantityBefore,
			QuantityAfter:    m.QuantityAfter,
			QuantityDelta:    m.QuantityDelta,
			Project:          m.Project,
			Worker:           m.Worker,
		})
	}
	return out
}
