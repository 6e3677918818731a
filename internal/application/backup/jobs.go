package backup

import (
	"context"
)

// Job trabajo programado que crea un backup con el sufijo configurado.
type Job struct {
	service *Service
	suffix  string
}

// NewJob construye el trabajo backup.
func NewJob(service *Service, suffix string) *Job {
	return &Job{service: service, suffix: suffix}
}

func (j *Job) Name() string { return "backup" }

func (j *Job) Run(ctx context.Context) error {
	_, err := j.service.Create(ctx, j.suffix)
	return err
}

// PruneJob trabajo programado que aplica la retención.
type PruneJob struct {
	service *Service
	retain  int
}

// NewPruneJob construye el trabajo backup-prune.
func NewPruneJob(service *Service, retain int) *PruneJob {
	return &PruneJob{service: service, retain: retain}
}

func (j *PruneJob) Name() string { return "backup-prune" }

func (j *PruneJob) Run(context.Context) error {
	_, err := j.service.Prune(j.retain)
	return err
}
