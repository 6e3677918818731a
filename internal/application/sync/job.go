package sync

import "context"

// Job trabajo programado sync-export.
type Job struct {
	exporter *Exporter
}

// NewJob construye el trabajo sync-export.
func NewJob(exporter *Exporter) *Job {
	return &Job{exporter: exporter}
}

func (j *Job) Name() string { return "sync-export" }

func (j *Job) Run(ctx context.Context) error {
	_, err := j.exporter.Export(ctx)
	return err
}
