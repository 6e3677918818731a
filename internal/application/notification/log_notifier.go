package notification

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// LogNotifier escribe el aviso como warning estructurado.
type LogNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier construye el notificador por defecto.
func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg.For("low-stock")}
}

// Notify registra el artículo en stock bajo.
func (n *LogNotifier) Notify(_ context.Context, a *entity.Article) error {
	n.logg.Warn().
		Str("reference", a.Reference).
		Str("description", a.Description).
		Str("position", a.Position).
		Int64("quantity", a.Quantity).
		Int64("minimum_quantity", a.MinimumQuantity).
		Msg("stock below minimum")
	return nil
}
