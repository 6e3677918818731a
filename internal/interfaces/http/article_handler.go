package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// ArticleHandler maneja el CRUD de artículos (protegido).
type ArticleHandler struct {
	ledger *ledger.Ledger
}

// NewArticleHandler construye el handler.
func NewArticleHandler(l *ledger.Ledger) *ArticleHandler {
	return &ArticleHandler{ledger: l}
}

// Create godoc
// @Summary      Crear artículo (registra un movimiento CREATE)
// @Tags         articles
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateArticleRequest  true  "Datos del artículo"
// @Success      201   {object}  dto.ArticleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/articles [post]
func (h *ArticleHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateArticleRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	a, err := h.ledger.CreateArticle(c.UserContext(), ledger.CreateArticleInput{
		Reference:       in.Reference,
		Description:     in.Description,
		InitialQuantity: in.InitialQuantity,
		MinimumQuantity: in.MinimumQuantity,
		Position:        in.Position,
		ActorID:         actorID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToArticleResponse(a))
}

// Get godoc
// @Summary      Obtener artículo por referencia
// @Tags         articles
// @Security     Bearer
// @Produce      json
// @Param        reference  path  string  true  "Referencia"
// @Success      200  {object}  dto.ArticleResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/articles/{reference} [get]
func (h *ArticleHandler) Get(c *fiber.Ctx) error {
	a, err := h.ledger.GetArticle(c.UserContext(), c.Params("reference"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToArticleResponse(a))
}

// List godoc
// @Summary      Listar artículos ordenados por referencia; q filtra por referencia o descripción
// @Tags         articles
// @Security     Bearer
// @Produce      json
// @Param        q  query  string  false  "Texto a buscar (sin distinguir mayúsculas)"
// @Success      200  {array}  dto.ArticleResponse
// @Router       /api/articles [get]
func (h *ArticleHandler) List(c *fiber.Ctx) error {
	list, err := h.ledger.SearchArticles(c.UserContext(), c.Query("q"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToArticleResponses(list))
}

// LowStock godoc
// @Summary      Artículos en stock bajo (bajo su mínimo o bajo threshold si se indica)
// @Tags         articles
// @Security     Bearer
// @Produce      json
// @Param        threshold  query  int  false  "Umbral común"
// @Success      200  {array}  dto.ArticleResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/articles/low-stock [get]
func (h *ArticleHandler) LowStock(c *fiber.Ctx) error {
	threshold, err := optionalInt(c, "threshold")
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.ledger.ListLowStock(c.UserContext(), threshold)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToArticleResponses(list))
}

// Update godoc
// @Summary      Actualizar descripción, mínimo y posición (registra un movimiento MODIFY)
// @Tags         articles
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        reference  path  string  true  "Referencia"
// @Param        body  body  dto.UpdateArticleRequest  true  "Metadatos"
// @Success      200   {object}  dto.ArticleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/articles/{reference} [put]
func (h *ArticleHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateArticleRequest
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	a, err := h.ledger.UpdateMetadata(c.UserContext(), ledger.UpdateMetadataInput{
		Reference:       c.Params("reference"),
		Description:     in.Description,
		MinimumQuantity: in.MinimumQuantity,
		Position:        in.Position,
		ActorID:         actorID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToArticleResponse(a))
}

// Delete godoc
// @Summary      Eliminar artículo (registra un movimiento DELETE; el historial se conserva)
// @Tags         articles
// @Security     Bearer
// @Param        reference  path  string  true  "Referencia"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/articles/{reference} [delete]
func (h *ArticleHandler) Delete(c *fiber.Ctx) error {
	if err := h.ledger.DeleteArticle(c.UserContext(), c.Params("reference"), actorID(c)); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// optionalInt lee un entero opcional de la query; nil si no viene.
func optionalInt(c *fiber.Ctx, key string) (*int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, domain.InvalidInput(key, "debe ser un entero")
	}
	return &v, nil
}
