package notification

import (
	"context"
	"time"
)

// Job adapta el evaluador al programador de trabajos.
type Job struct {
	evaluator *Evaluator
	now       func() time.Time
}

// NewJob construye el trabajo low-stock-notify.
func NewJob(evaluator *Evaluator) *Job {
	return &Job{evaluator: evaluator, now: time.Now}
}

func (j *Job) Name() string { return "low-stock-notify" }

func (j *Job) Run(ctx context.Context) error {
	_, err := j.evaluator.Run(ctx, j.now().UTC())
	return err
}
