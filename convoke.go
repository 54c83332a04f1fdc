// Package convoke provides a high-level façade over the orchestration core
// for building bounded multi-agent task runs. Most applications interact with
// this package by:
//  1. Creating a Convoke via New() with a Manager and a participant roster
//  2. Optionally tuning the run policy, logger and lifecycle sink
//  3. Executing tasks with Run()
//
// The façade delegates the manager/worker protocol to the orchestration
// package while keeping setup ergonomics concise. All defaults are safe for
// local development and testing; production deployments typically supply a
// structured logger and a lifecycle sink.
package convoke

import (
	"context"

	"github.com/convoke-dev/convoke/config"
	"github.com/convoke-dev/convoke/core"
	"github.com/convoke-dev/convoke/logging"
	"github.com/convoke-dev/convoke/observe"
	"github.com/convoke-dev/convoke/orchestration"
	"github.com/convoke-dev/convoke/runtime"
)

// Options configures the Convoke instance.
type Options struct {
	// Policy bounds every run (stall, reset and round budgets plus the
	// per-round timeout). Defaults to config.DefaultPolicy().
	Policy config.Policy

	// Bus carries envelopes between actors. When nil each run creates and
	// closes its own in-process bus.
	Bus runtime.Bus

	// Logger receives diagnostic output (defaults to NoOp logger if nil).
	Logger logging.Logger

	// Sink receives lifecycle events. Nil disables observability.
	Sink observe.Sink

	// HookBuffer sets the lifecycle event queue size. Larger buffers reduce
	// drops under bursty emission but increase memory usage.
	HookBuffer int

	// ManagerName overrides the manager's transcript name.
	ManagerName string

	// OnStream receives incremental chunks from streaming participants.
	OnStream orchestration.StreamCallback

	// OnResponse receives each completed participant turn.
	OnResponse orchestration.ResponseCallback
}

// Convoke is the high-level façade aggregating the orchestration core.
type Convoke struct {
	opts Options
	orch *orchestration.Orchestration
}

// New creates a Convoke instance from a manager and a fixed participant
// roster, with optional overrides.
func New(mgr core.Manager, participants []core.Participant, optFns ...func(o *Options)) (*Convoke, error) {
	opts := Options{
		Policy:      config.DefaultPolicy(),
		Logger:      logging.NoOpLogger{},
		ManagerName: orchestration.DefaultManagerName,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	orch, err := orchestration.New(mgr, participants, func(o *orchestration.Options) {
		o.Policy = opts.Policy
		o.Bus = opts.Bus
		o.Logger = opts.Logger
		o.Sink = opts.Sink
		o.HookBuffer = opts.HookBuffer
		o.ManagerName = opts.ManagerName
		o.OnStream = opts.OnStream
		o.OnResponse = opts.OnResponse
	})
	if err != nil {
		return nil, err
	}

	return &Convoke{opts: opts, orch: orch}, nil
}

// Run executes the task to completion and returns the terminal result.
// Cancelling ctx aborts the run with core.ErrRunCancelled and no result.
func (c *Convoke) Run(ctx context.Context, task string) (*orchestration.Result, error) {
	return c.orch.Run(ctx, task)
}
