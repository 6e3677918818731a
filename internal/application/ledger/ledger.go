package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

// exclusiveWeight peso del acceso exclusivo; lecturas y escrituras toman 1.
const exclusiveWeight = 1 << 20

// Params dependencias del Ledger.
type Params struct {
	TxRunner  TxRunner
	Store     Store
	Articles  repository.ArticleRepository  // lecturas fuera de transacción
	Movements repository.MovementRepository // lecturas fuera de transacción
	Logger    *logger.Logger
	Metrics   *metrics.LedgerMetrics
	// OperationTimeout se aplica cuando el ctx del llamador no trae deadline. 0 = sin límite.
	OperationTimeout time.Duration
	Now              func() time.Time
}

// Ledger único escritor del estado de artículos y movimientos.
// Cada mutación escribe la fila del artículo y exactamente un movimiento en la misma transacción;
// los escritores se serializan en proceso y BEGIN IMMEDIATE los serializa entre procesos.
type Ledger struct {
	tx        TxRunner
	store     Store
	articles  repository.ArticleRepository
	movements repository.MovementRepository
	logg      *logger.Logger
	metrics   *metrics.LedgerMetrics
	timeout   time.Duration
	now       func() time.Time

	// gate: lecturas y escrituras toman 1, el acceso exclusivo toma exclusiveWeight.
	gate *semaphore.Weighted
	// writer: un escritor a la vez.
	writer *semaphore.Weighted
}

// New construye el Ledger.
func New(p Params) (*Ledger, error) {
	if p.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if p.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if p.Articles == nil || p.Movements == nil {
		return nil, fmt.Errorf("read repositories required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		tx:        p.TxRunner,
		store:     p.Store,
		articles:  p.Articles,
		movements: p.Movements,
		logg:      logg.For("ledger"),
		metrics:   p.Metrics,
		timeout:   p.OperationTimeout,
		now:       now,
		gate:      semaphore.NewWeighted(exclusiveWeight),
		writer:    semaphore.NewWeighted(1),
	}, nil
}

// Migrate lleva el esquema a la versión actual con acceso exclusivo.
func (l *Ledger) Migrate(ctx context.Context) error {
	start := time.Now()
	err := l.exclusive(ctx, false, l.store.Migrate)
	if err != nil && !errors.Is(err, domain.ErrMigrationFailure) {
		err = &domain.MigrationError{Step: "acquire", Err: err}
	}
	l.observe("migrate", start, err)
	if err != nil {
		l.logg.Error().Err(err).Msg("schema migration failed")
		return err
	}
	l.logg.Info().Msg("schema up to date")
	return nil
}

// WithExclusiveAccess espera a que terminen lecturas y escrituras en curso, vuelca el WAL
// y ejecuta fn sin que nadie más toque el almacén. Lo usa el backup para copiar el archivo.
func (l *Ledger) WithExclusiveAccess(ctx context.Context, fn func(ctx context.Context) error) error {
	return l.exclusive(ctx, true, fn)
}

func (l *Ledger) exclusive(ctx context.Context, checkpoint bool, fn func(ctx context.Context) error) error {
	if err := l.writer.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.writer.Release(1)
	if err := l.gate.Acquire(ctx, exclusiveWeight); err != nil {
		return err
	}
	defer l.gate.Release(exclusiveWeight)

	if checkpoint {
		if err := l.store.Checkpoint(ctx); err != nil {
			return domain.Storage("checkpoint", err)
		}
	}
	return fn(ctx)
}

// write ejecuta fn como escritor: espera su turno respetando ctx y clasifica el error.
func (l *Ledger) write(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	err := l.acquireWriter(ctx, fn)
	err = domain.Storage(op, err)
	l.observe(op, start, err)
	switch {
	case err == nil:
	case domain.IsBusinessRule(err):
		l.logg.Debug().Err(err).Str("op", op).Msg("ledger write rejected")
	default:
		l.logg.Error().Err(err).Str("op", op).Msg("ledger write failed")
	}
	return err
}

func (l *Ledger) acquireWriter(ctx context.Context, fn func(ctx context.Context) error) error {
	l.metrics.WriterWaiting(1)
	err := l.writer.Acquire(ctx, 1)
	l.metrics.WriterWaiting(-1)
	if err != nil {
		return err
	}
	defer l.writer.Release(1)
	if err := l.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.gate.Release(1)
	return fn(ctx)
}

// read ejecuta fn como lector; los lectores no se bloquean entre sí ni bloquean al escritor.
func (l *Ledger) read(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	err := l.gate.Acquire(ctx, 1)
	if err == nil {
		err = fn(ctx)
		l.gate.Release(1)
	}
	err = domain.Storage(op, err)
	l.observe(op, start, err)
	return err
}

func (l *Ledger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.timeout)
}

func (l *Ledger) observe(op string, start time.Time, err error) {
	result := metrics.ResultOK
	switch {
	case err == nil:
	case domain.IsBusinessRule(err):
		result = metrics.ResultRejected
	default:
		result = metrics.ResultError
	}
	l.metrics.Observe(op, result, time.Since(start))
}

// clock hora UTC con precisión de microsegundos (la que conserva el almacén).
func (l *Ledger) clock() time.Time {
	return l.now().UTC().Truncate(time.Microsecond)
}

// movementTime nunca retrocede respecto al último movimiento de la referencia,
// para que el más reciente por occurred_at sea también el último insertado.
func (l *Ledger) movementTime(latest *entity.Movement) time.Time {
	at := l.clock()
	if latest != nil && latest.OccurredAt.After(at) {
		return latest.OccurredAt
	}
	return at
}
