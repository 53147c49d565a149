package submission

import (
	"context"
	"errors"
)

// Compensation undoes one side effect that already happened.
type Compensation struct {
	Name string
	// Critical steps leave the store inconsistent when they fail.
	Critical bool
	Run      func(ctx context.Context) error
}

// StepResult is the outcome of one compensation.
type StepResult struct {
	Name     string
	Critical bool
	Err      error
}

// RollbackReport lists the compensations run, in execution order.
type RollbackReport struct {
	Steps []StepResult
}

// Failed returns the steps that returned an error.
func (r RollbackReport) Failed() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// CriticalFailure reports whether a critical step failed.
func (r RollbackReport) CriticalFailure() bool {
	for _, s := range r.Steps {
		if s.Err != nil && s.Critical {
			return true
		}
	}
	return false
}

// Err joins every step error, or returns nil.
func (r RollbackReport) Err() error {
	var errs []error
	for _, s := range r.Failed() {
		errs = append(errs, s.Err)
	}
	return errors.Join(errs...)
}

// Saga collects compensations as side effects succeed and runs them in
// reverse order on failure. A Saga is used by one submission at a time.
type Saga struct {
	steps []Compensation
}

// Add registers c. It runs before every compensation added earlier.
func (s *Saga) Add(c Compensation) {
	s.steps = append(s.steps, c)
}

// Len returns the number of registered compensations.
func (s *Saga) Len() int {
	return len(s.steps)
}

// Compensate runs every registered step, last added first. A failing step
// does not stop the ones after it.
func (s *Saga) Compensate(ctx context.Context) RollbackReport {
	report := RollbackReport{Steps: make([]StepResult, 0, len(s.steps))}
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		report.Steps = append(report.Steps, StepResult{
			Name:     step.Name,
			Critical: step.Critical,
			Err:      step.Run(ctx),
		})
	}
	return report
}
