package core

import "context"

// Manager encapsulates the judgment operations driving a run: deriving the
// initial task ledger, refreshing it after a reset, assessing per-round
// progress, and synthesizing the final answer.
//
// Implementations receive read-only RunContext clones and must not retain
// them across calls. Any error returned aborts the run; retries, if any,
// belong to the caller of the whole run.
type Manager interface {
	// Plan derives the initial task ledger (facts, plan) from the task and
	// participant roster and returns an opening status message appended to
	// the transcript.
	Plan(ctx context.Context, rc *RunContext) (ChatMessage, error)

	// Replan regenerates the facts and plan after an outer-loop reset using
	// everything learned so far, returning a fresh status message.
	Replan(ctx context.Context, rc *RunContext) (ChatMessage, error)

	// CreateProgressLedger produces the per-round judgment from the
	// transcript, the task ledger and the roster.
	CreateProgressLedger(ctx context.Context, rc *RunContext) (ProgressLedger, error)

	// PrepareFinalAnswer synthesizes a single response from the full
	// transcript and task ledger.
	PrepareFinalAnswer(ctx context.Context, rc *RunContext) (ChatMessage, error)
}
