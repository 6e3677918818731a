package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/report"
)

// ReportHandler expone los agregados calculados sobre el diario (protegido).
type ReportHandler struct {
	uc *report.ReportUseCase
}

// NewReportHandler construye el handler.
func NewReportHandler(uc *report.ReportUseCase) *ReportHandler {
	return &ReportHandler{uc: uc}
}

// Summary godoc
// @Summary      Totales de entradas y salidas, top artículos y top usuarios del periodo
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        from  query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        to    query  string  false  "RFC3339 o YYYY-MM-DD (día completo)"
// @Success      200  {object}  dto.SummaryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/summary [get]
func (h *ReportHandler) Summary(c *fiber.Ctx) error {
	from, err := parseTimeParam("from", c.Query("from"), false)
	if err != nil {
		return writeError(c, err)
	}
	to, err := parseTimeParam("to", c.Query("to"), true)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Summary(c.UserContext(), from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Evolution godoc
// @Summary      Evolución del saldo de una referencia
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        reference  path   string  true   "Referencia"
// @Param        from       query  string  false  "RFC3339 o YYYY-MM-DD"
// @Param        to         query  string  false  "RFC3339 o YYYY-MM-DD (día completo)"
// @Success      200  {object}  dto.EvolutionResponse
// @Router       /api/reports/evolution/{reference} [get]
func (h *ReportHandler) Evolution(c *fiber.Ctx) error {
	from, err := parseTimeParam("from", c.Query("from"), false)
	if err != nil {
		return writeError(c, err)
	}
	to, err := parseTimeParam("to", c.Query("to"), true)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.StockEvolution(c.UserContext(), c.Params("reference"), from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Replenishment godoc
// @Summary      Lista de reposición
// @Description  Artículos en stock bajo con la cantidad sugerida para llegar a 1,5 veces el mínimo,
//
//	ordenados por porcentaje de déficit.
//
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        threshold  query  int  false  "Umbral común en lugar del mínimo de cada artículo"
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/replenishment [get]
func (h *ReportHandler) Replenishment(c *fiber.Ctx) error {
	threshold, err := optionalInt(c, "threshold")
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.uc.Replenishment(c.UserContext(), threshold)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": list,
	})
}
