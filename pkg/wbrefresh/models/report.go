package models

import "time"

// StepStatus is the outcome of one step.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepResult records what happened in one step of a run.
type StepResult struct {
	// Name identifies the step (e.g. "open", "connection 2", "Dates").
	Name string `json:"name"`
	// Kind is the step kind.
	Kind string `json:"kind"`
	// Status is the outcome.
	Status StepStatus `json:"status"`
	// Fatal is set when the failure aborted the run.
	Fatal bool `json:"fatal,omitempty"`
	// Error is the failure message.
	Error string `json:"error,omitempty"`
	// Elapsed is the step duration.
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Report aggregates the results of one run.
type Report struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`
	// Workflow is the profile name.
	Workflow string `json:"workflow"`
	// Path is the workbook path or destination folder.
	Path string `json:"path"`
	// HostPID is the automation host process id, when one was acquired.
	HostPID int `json:"host_pid,omitempty"`
	// Success is the overall outcome.
	Success bool `json:"success"`
	// StartedAt is the run start time.
	StartedAt time.Time `json:"started_at"`
	// Elapsed is the run duration.
	Elapsed time.Duration `json:"elapsed_ns"`
	// Steps lists step results in execution order.
	Steps []StepResult `json:"steps"`
}

// Add appends a step result.
func (r *Report) Add(res StepResult) {
	r.Steps = append(r.Steps, res)
}

// Failures returns the failed steps.
func (r *Report) Failures() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			out = append(out, s)
		}
	}
	return out
}

// Step returns the first result with the given name.
func (r *Report) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}
