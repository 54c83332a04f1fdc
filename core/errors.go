package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrRunCancelled is returned when the run's context is cancelled at a
// suspension point. The final answer is not prepared and no result is
// delivered.
var ErrRunCancelled = errors.New("run cancelled")

// PlanningError reports a failure inside one of the manager's synthesis
// operations (plan, replan or final answer preparation). It is never retried
// internally; the run fails and the caller decides whether to retry the
// whole run.
type PlanningError struct {
	Stage string // "plan", "replan" or "final_answer"
	Err   error
}

// Error implements the error interface for PlanningError.
func (e *PlanningError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *PlanningError) Unwrap() error { return e.Err }

// LedgerError reports a malformed progress-ledger judgment, for example a
// next speaker that is not a roster key or an unparseable ledger payload.
type LedgerError struct {
	Reason string
	Err    error
}

// Error implements the error interface for LedgerError.
func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("progress ledger invalid: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("progress ledger invalid: %s", e.Reason)
}

// Unwrap exposes the underlying cause, if any.
func (e *LedgerError) Unwrap() error { return e.Err }

// DeliveryTimeoutError reports that no response arrived from the awaited
// participant within the configured per-round timeout.
type DeliveryTimeoutError struct {
	Agent   string
	Timeout time.Duration
}

// Error implements the error interface for DeliveryTimeoutError.
func (e *DeliveryTimeoutError) Error() string {
	return fmt.Sprintf("no response from %s within %s", e.Agent, e.Timeout)
}
