package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/backup"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/notification"
	ledgersync "github.com/jhoicas/stock-ledger/internal/application/sync"
)

// AdminHandler operaciones de mantenimiento (solo admin).
type AdminHandler struct {
	backups  *backup.Service
	exporter *ledgersync.Exporter // nil si la sincronización está deshabilitada
	notifier *notification.Evaluator
	suffix   string
	now      func() time.Time
}

// NewAdminHandler construye el handler. exporter puede ser nil.
func NewAdminHandler(backups *backup.Service, exporter *ledgersync.Exporter, notifier *notification.Evaluator, defaultSuffix string) *AdminHandler {
	return &AdminHandler{backups: backups, exporter: exporter, notifier: notifier, suffix: defaultSuffix, now: time.Now}
}

// CreateBackup godoc
// @Summary      Crear backup del archivo del ledger (con acceso exclusivo)
// @Tags         admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateBackupRequest  false  "suffix"
// @Success      201   {object}  dto.BackupResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/admin/backups [post]
func (h *AdminHandler) CreateBackup(c *fiber.Ctx) error {
	var in dto.CreateBackupRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &in); err != nil {
			return writeError(c, err)
		}
	}
	suffix := in.Suffix
	if suffix == "" {
		suffix = h.suffix
	}
	b, err := h.backups.Create(c.UserContext(), suffix)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toBackupResponse(*b))
}

// ListBackups godoc
// @Summary      Listar backups, del más reciente al más antiguo
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.BackupResponse
// @Router       /api/admin/backups [get]
func (h *AdminHandler) ListBackups(c *fiber.Ctx) error {
	list, err := h.backups.List()
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.BackupResponse, 0, len(list))
	for _, b := range list {
		out = append(out, toBackupResponse(b))
	}
	return c.JSON(out)
}

// ExportSync godoc
// @Summary      Exportar el ledger al almacén secundario ahora
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.SyncRunResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/admin/sync/export [post]
func (h *AdminHandler) ExportSync(c *fiber.Ctx) error {
	if h.exporter == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "SYNC_DISABLED", Message: "la sincronización no está configurada"})
	}
	run, err := h.exporter.Export(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SyncRunResponse{
		RunID:      run.ID,
		Articles:   run.Articles,
		Movements:  run.Movements,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	})
}

// RunNotifications godoc
// @Summary      Evaluar stock bajo y avisar los artículos pendientes
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.NotificationRunResponse
// @Router       /api/admin/notifications/run [post]
func (h *AdminHandler) RunNotifications(c *fiber.Ctx) error {
	res, err := h.notifier.Run(c.UserContext(), h.now().UTC())
	if res == nil {
		return writeError(c, err)
	}
	// fallos parciales de aviso se informan en Failed, no como error HTTP
	return c.JSON(dto.NotificationRunResponse{Notified: res.Notified, Failed: res.Failed})
}

func toBackupResponse(b backup.Backup) dto.BackupResponse {
	return dto.BackupResponse{Name: b.Name, Suffix: b.Suffix, Size: b.Size, CreatedAt: b.CreatedAt}
}
