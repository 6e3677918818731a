package scheduler

import (
	"context"
	"time"
)

// Job tarea programada ejecutada por el Service.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry trabajo registrado con su intervalo propio.
type Entry struct {
	Job      Job
	Interval time.Duration
}

// Registry trabajos registrados en orden de alta.
type Registry struct {
	entries []Entry
}

// NewRegistry construye un registro vacío.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register añade un trabajo. Se ignoran trabajos nil o con intervalo no positivo.
func (r *Registry) Register(job Job, interval time.Duration) {
	if job == nil || interval <= 0 {
		return
	}
	r.entries = append(r.entries, Entry{Job: job, Interval: interval})
}

// Entries devuelve una copia de los trabajos registrados.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
