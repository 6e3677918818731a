package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

const dateLayout = "2006-01-02"

// MovementHandler maneja ajustes de stock y consultas del diario (protegido).
type MovementHandler struct {
	ledger *ledger.Ledger
}

// NewMovementHandler construye el handler.
func NewMovementHandler(l *ledger.Ledger) *MovementHandler {
	return &MovementHandler{ledger: l}
}

// Adjust godoc
// @Summary      Entrada o salida de stock
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        reference  path  string  true  "Referencia"
// @Param        body  body  dto.AdjustStockRequest  true  "direction (ADD|REMOVE), amount > 0, project, worker"
// @Success      201   {object}  dto.ArticleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/articles/{reference}/movements [post]
func (h *MovementHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return writeError(c, errInvalidBody)
	}
	// amount <= 0 es una cantidad inválida, no un error de validación genérico
	if in.Amount <= 0 {
		return writeError(c, domain.ErrInvalidAmount)
	}
	if err := validateStruct(&in); err != nil {
		return writeError(c, err)
	}
	a, err := h.ledger.AdjustQuantity(c.UserContext(), ledger.AdjustQuantityInput{
		Reference: c.Params("reference"),
		Amount:    in.Amount,
		Direction: entity.Direction(in.Direction),
		Project:   in.Project,
		Worker:    in.Worker,
		ActorID:   actorID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToArticleResponse(a))
}

// History godoc
// @Summary      Historial de una referencia (incluye referencias eliminadas)
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        reference  path   string  true   "Referencia"
// @Param        kind       query  string  false  "CREATE|MODIFY|STOCK_ADD|STOCK_REMOVE|DELETE"
// @Param        from       query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        to         query  string  false  "RFC3339 o YYYY-MM-DD (día completo)"
// @Param        limit      query  int     false  "Límite" default(100)
// @Param        offset     query  int     false  "Offset"
// @Success      200  {object}  dto.MovementListResponse
// @Router       /api/articles/{reference}/movements [get]
func (h *MovementHandler) History(c *fiber.Ctx) error {
	var q dto.MovementQuery
	if err := parseQuery(c, &q); err != nil {
		return writeError(c, err)
	}
	q.Reference = c.Params("reference")
	return h.list(c, q)
}

// List godoc
// @Summary      Diario de movimientos, del más reciente al más antiguo
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        reference  query  string  false  "Referencia"
// @Param        actor_id   query  int     false  "Usuario que registró el movimiento"
// @Param        kind       query  string  false  "CREATE|MODIFY|STOCK_ADD|STOCK_REMOVE|DELETE"
// @Param        from       query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        to         query  string  false  "RFC3339 o YYYY-MM-DD (día completo)"
// @Param        limit      query  int     false  "Límite" default(100)
// @Param        offset     query  int     false  "Offset"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/movements [get]
func (h *MovementHandler) List(c *fiber.Ctx) error {
	var q dto.MovementQuery
	if err := parseQuery(c, &q); err != nil {
		return writeError(c, err)
	}
	return h.list(c, q)
}

func (h *MovementHandler) list(c *fiber.Ctx, q dto.MovementQuery) error {
	filter, err := movementFilter(q)
	if err != nil {
		return writeError(c, err)
	}
	movs, err := h.ledger.ListMovements(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MovementListResponse{
		Items: dto.ToMovementResponses(movs),
		Page:  dto.PageResponse{Limit: filter.Limit, Offset: filter.Offset},
	})
}

func movementFilter(q dto.MovementQuery) (entity.MovementFilter, error) {
	q.DefaultPage()
	f := entity.MovementFilter{
		Reference: q.Reference,
		Kind:      entity.MovementKind(q.Kind),
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	if q.ActorID > 0 {
		id := q.ActorID
		f.ActorID = &id
	}
	var err error
	if f.From, err = parseTimeParam("from", q.From, false); err != nil {
		return f, err
	}
	if f.To, err = parseTimeParam("to", q.To, true); err != nil {
		return f, err
	}
	return f, nil
}

// parseTimeParam acepta RFC3339 o YYYY-MM-DD. Con endOfDay una fecha sin hora cubre el día completo.
func parseTimeParam(field, raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, domain.InvalidInput(field, "formato RFC3339 o YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return &t, nil
}
