package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// DefaultRenotifyInterval intervalo mínimo entre dos avisos del mismo artículo.
const DefaultRenotifyInterval = 24 * time.Hour

// LedgerPort operaciones del ledger que usa el evaluador.
type LedgerPort interface {
	ListLowStock(ctx context.Context, threshold *int64) ([]*entity.Article, error)
	MarkNotified(ctx context.Context, reference string, when time.Time) error
}

// Notifier entrega un aviso de stock bajo (log, correo, chat...).
type Notifier interface {
	Notify(ctx context.Context, article *entity.Article) error
}

// Result referencias avisadas y las que fallaron en una ejecución.
type Result struct {
	Notified []string
	Failed   []string
}

// Evaluator decide qué artículos en stock bajo hay que avisar y registra el aviso.
// Ejecutarlo dos veces dentro del intervalo no repite avisos.
type Evaluator struct {
	ledger   LedgerPort
	notifier Notifier
	interval time.Duration
	logg     *logger.Logger
}

// NewEvaluator construye el evaluador. interval <= 0 usa DefaultRenotifyInterval.
func NewEvaluator(ledger LedgerPort, notifier Notifier, interval time.Duration, logg *logger.Logger) *Evaluator {
	if interval <= 0 {
		interval = DefaultRenotifyInterval
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Evaluator{ledger: ledger, notifier: notifier, interval: interval, logg: logg.For("notification")}
}

// Due devuelve los artículos en stock bajo sin aviso previo o con un aviso más antiguo que el intervalo.
func (e *Evaluator) Due(ctx context.Context, now time.Time) ([]*entity.Article, error) {
	low, err := e.ledger.ListLowStock(ctx, nil)
	if err != nil {
		return nil, err
	}
	due := make([]*entity.Article, 0, len(low))
	for _, a := range low {
		if a.LastNotifiedAt == nil || now.Sub(*a.LastNotifiedAt) >= e.interval {
			due = append(due, a)
		}
	}
	return due, nil
}

// Run avisa cada artículo pendiente y lo marca. Si el aviso falla el artículo no se marca
// y se reintentará en la siguiente ejecución.
func (e *Evaluator) Run(ctx context.Context, now time.Time) (*Result, error) {
	due, err := e.Due(ctx, now)
	if err != nil {
		return nil, err
	}
	res := &Result{Notified: []string{}}
	var errs error
	for _, a := range due {
		if err := e.notifier.Notify(ctx, a); err != nil {
			res.Failed = append(res.Failed, a.Reference)
			errs = multierr.Append(errs, fmt.Errorf("notify %s: %w", a.Reference, err))
			continue
		}
		if err := e.ledger.MarkNotified(ctx, a.Reference, now); err != nil {
			res.Failed = append(res.Failed, a.Reference)
			errs = multierr.Append(errs, fmt.Errorf("mark %s: %w", a.Reference, err))
			continue
		}
		res.Notified = append(res.Notified, a.Reference)
	}
	e.logg.Info().Int("due", len(due)).Int("notified", len(res.Notified)).Int("failed", len(res.Failed)).Msg("low-stock evaluation complete")
	return res, errs
}
