package interfaces

import (
	"context"

	"github.com/inferloop/dataforge/pkg/models"
)

// Stage is one step of the pipeline. Execute receives the job accepted after
// the previous stage and returns the updated job; the conductor threads the
// returned value forward, so a failed attempt can be retried from the last
// accepted snapshot. A stage must be safe to re-invoke on the same job
// state; idempotency across separate job runs belongs to the conductor.
type Stage interface {
	Name() string
	Execute(ctx context.Context, job *models.Job) (*models.Job, error)
}
