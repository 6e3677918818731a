package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

// ServiceParams configuración del planificador.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
}

// Service ejecuta cada trabajo registrado con su propio intervalo hasta que ctx se cancela.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.JobMetrics
}

// NewService construye el planificador. Sin Lock usa un LocalLock.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	lock := params.Lock
	if lock == nil {
		lock = NewLocalLock()
	}
	return &Service{
		logg:     params.Logger.For("scheduler"),
		registry: registry,
		lock:     lock,
		metrics:  params.Metrics,
	}, nil
}

// Run lanza un bucle por trabajo y bloquea hasta que ctx se cancela y todos terminan.
// Un trabajo en curso recibe la cancelación a través de su ctx.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, e := range s.registry.Entries() {
		wg.Add(1)
		go func(e Entry) {
			defer wg.Done()
			s.loop(ctx, e)
		}(e)
	}
	wg.Wait()
	s.logg.Info().Msg("scheduler stopped")
	return ctx.Err()
}

func (s *Service) loop(ctx context.Context, e Entry) {
	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx, e.Job)
		}
	}
}

// RunOnce ejecuta el trabajo bajo su lock. Devuelve false si otra ejecución lo tenía tomado.
func (s *Service) RunOnce(ctx context.Context, job Job) bool {
	name := job.Name()
	locked, err := s.lock.Acquire(ctx, name)
	if err != nil {
		s.logg.Error().Err(err).Str("job", name).Msg("lock acquire failed")
		s.metrics.IncFailure(name)
		return false
	}
	if !locked {
		s.logg.Info().Str("job", name).Msg("job already running; skipping this cycle")
		return false
	}
	defer func() {
		// el ctx puede estar cancelado; el lock debe liberarse igualmente
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if relErr := s.lock.Release(relCtx, name); relErr != nil {
			s.logg.Error().Err(relErr).Str("job", name).Msg("failed to release job lock")
		}
	}()

	s.runJob(ctx, job)
	return true
}

func (s *Service) runJob(ctx context.Context, job Job) {
	name := job.Name()
	s.logg.Info().Str("job", name).Msg("job start")
	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(name, duration)

	if err != nil {
		ev := s.logg.Error()
		if errors.Is(err, context.Canceled) {
			ev = s.logg.Warn()
		}
		ev.Err(err).Str("job", name).Int64("duration_ms", duration.Milliseconds()).Msg("job failed")
		s.metrics.IncFailure(name)
		return
	}
	s.logg.Info().Str("job", name).Int64("duration_ms", duration.Milliseconds()).Msg("job completed")
	s.metrics.IncSuccess(name)
}
