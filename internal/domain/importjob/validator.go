package importjob

import (
	"context"

	"github.com/go-faster/errors"
)

// UnitValidator checks a single unit of work within a job. Implementations
// inspect the unit at the given 1-based row and return nil when it imports
// cleanly, or an error describing why it was rejected. Rejections become
// durable JobError rows, never surfaced failures.
type UnitValidator interface {
	ValidateUnit(ctx context.Context, job *Job, row int) error
}

// SyntheticValidator is a deterministic fault-injection validator: for a job
// of N units it fails the first min(3, N/50) rows. It stands in for genuine
// per-row validation, which would slot in behind the same interface.
type SyntheticValidator struct{}

// ValidateUnit fails rows 1..min(3, total/50) with a canned message.
func (SyntheticValidator) ValidateUnit(_ context.Context, job *Job, row int) error {
	faulty := job.TotalRecords / 50
	if faulty > 3 {
		faulty = 3
	}
	if row <= faulty {
		return errors.Errorf("Sample error #%d", row)
	}
	return nil
}
