package wbrefresh

import (
	"errors"
	"fmt"
)

// ErrFileNotFound indicates the target workbook does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrHostUnavailable indicates the automation host could not be acquired.
var ErrHostUnavailable = errors.New("automation host unavailable")

// ErrNoVisibleItems indicates a filter update found nothing to show.
var ErrNoVisibleItems = errors.New("no non-blank items found")

// StepError represents a failure inside one workflow step.
type StepError struct {
	Workflow string
	Step     string // "open", "connection 2", "dates", "save", ...
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step %q failed: %v", e.Workflow, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// NewStepError creates a new StepError.
func NewStepError(workflow, step string, err error) *StepError {
	return &StepError{
		Workflow: workflow,
		Step:     step,
		Err:      err,
	}
}
