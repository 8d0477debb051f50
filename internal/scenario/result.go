package scenario

import (
	"time"

	"github.com/Sumatoshi-tech/ddgroups/pkg/diagram"
	"github.com/Sumatoshi-tech/ddgroups/pkg/vgroup"
)

// Status classifies a replayed step.
type Status string

// Step statuses.
const (
	// StatusOK means the step ran and met its expectations.
	StatusOK Status = "ok"
	// StatusConflict means a sharing request conflicted and was allocated elsewhere.
	StatusConflict Status = "conflict"
	// StatusMismatch means the step ran but an expectation did not hold.
	StatusMismatch Status = "mismatch"
	// StatusFatal means the step failed or left the forest inconsistent. The run stops.
	StatusFatal Status = "fatal"
)

// StepResult is the outcome of one step.
type StepResult struct {
	Index   int
	Op      Op
	Status  Status
	Detail  string
	Err     error
	Dump    string
	Elapsed time.Duration
}

// Report collects the results of a run.
type Report struct {
	Name      string
	Steps     []StepResult
	Allocator vgroup.Stats
	Diagram   diagram.Stats
}

// Count returns how many steps ended with status.
func (r *Report) Count(status Status) int {
	n := 0

	for idx := range r.Steps {
		if r.Steps[idx].Status == status {
			n++
		}
	}

	return n
}

// Failed reports whether any step mismatched or was fatal.
func (r *Report) Failed() bool {
	return r.Count(StatusMismatch) > 0 || r.Count(StatusFatal) > 0
}
