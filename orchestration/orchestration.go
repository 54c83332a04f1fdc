package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/convoke-dev/convoke/config"
	"github.com/convoke-dev/convoke/core"
	"github.com/convoke-dev/convoke/internal/util"
	"github.com/convoke-dev/convoke/logging"
	"github.com/convoke-dev/convoke/observe"
	"github.com/convoke-dev/convoke/runtime"
)

// DefaultManagerName identifies the manager actor in transcripts and events.
const DefaultManagerName = "orchestrator"

// Options configures an Orchestration instance.
type Options struct {
	// Policy bounds the run. Defaults to config.DefaultPolicy(); New
	// rejects invalid values.
	Policy config.Policy

	// Bus carries envelopes between actors. When nil an in-process bus is
	// created and closed per run.
	Bus runtime.Bus

	// Logger receives diagnostic output. Defaults to NoOpLogger.
	Logger logging.Logger

	// Sink receives lifecycle events. Nil disables observability.
	Sink observe.Sink

	// HookBuffer sets the lifecycle event queue size. Values below 1 use
	// the observe package default.
	HookBuffer int

	// ManagerName overrides DefaultManagerName.
	ManagerName string

	// OnStream receives incremental chunks from streaming participants.
	OnStream StreamCallback

	// OnResponse receives each completed participant turn.
	OnResponse ResponseCallback
}

// Result is the terminal outcome of a run.
type Result struct {
	// Answer is the synthesized final answer.
	Answer core.ChatMessage
	// Transcript is the manager's transcript at the time the answer was
	// prepared. After an outer reset it reflects the final outer iteration.
	Transcript []core.ChatMessage
	// Rounds, Stalls and Resets are the loop counters at completion.
	Rounds int
	Stalls int
	Resets int
}

// Orchestration wires a Manager and a fixed participant roster into a
// runnable team. A single Orchestration may execute many runs; each run gets
// its own topic, actors and run context, so concurrent runs do not interfere.
type Orchestration struct {
	manager      core.Manager
	participants []core.Participant
	opts         Options
}

// New constructs an Orchestration from a manager and at least one
// participant. Participant names must be unique and must not collide with the
// manager name.
func New(mgr core.Manager, participants []core.Participant, optFns ...func(o *Options)) (*Orchestration, error) {
	opts := Options{
		Policy:      config.DefaultPolicy(),
		Logger:      logging.NoOpLogger{},
		ManagerName: DefaultManagerName,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if mgr == nil {
		return nil, errors.New("manager must not be nil")
	}
	if len(participants) == 0 {
		return nil, errors.New("at least one participant is required")
	}
	if opts.ManagerName == "" {
		opts.ManagerName = DefaultManagerName
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		name := p.Name()
		if name == "" {
			return nil, errors.New("participant name must not be empty")
		}
		if name == opts.ManagerName {
			return nil, fmt.Errorf("participant name %q collides with the manager name", name)
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate participant name %q", name)
		}
		seen[name] = struct{}{}
	}

	return &Orchestration{
		manager:      mgr,
		participants: participants,
		opts:         opts,
	}, nil
}

type runOutcome struct {
	answer  core.ChatMessage
	context *core.RunContext
	err     error
}

// Run executes the task to completion and returns the final answer. The run
// is bounded by the configured policy; cancelling ctx aborts it with
// ErrRunCancelled and no result.
func (o *Orchestration) Run(ctx context.Context, task string) (*Result, error) {
	bus := o.opts.Bus
	ownBus := false
	if bus == nil {
		bus = runtime.NewInProcBus()
		ownBus = true
	}

	hook := observe.NewHook(o.opts.Sink, o.opts.HookBuffer)
	defer hook.Close()

	topic := "convoke/run/" + util.NewID()

	roster := make(map[string]string, len(o.participants))
	for _, p := range o.participants {
		roster[p.Name()] = p.Description()
	}

	outcomes := make(chan runOutcome, 1)

	var mActor *ManagerActor
	mActor = NewManagerActor(ctx, o.manager, bus, topic, o.opts.ManagerName, roster,
		o.opts.Policy, hook, o.opts.Logger,
		func(answer core.ChatMessage, err error) {
			var snapshot *core.RunContext
			if mActor.rc != nil {
				snapshot = mActor.rc.Clone()
			}
			outcomes <- runOutcome{answer: answer, context: snapshot, err: err}
		})

	subs := make([]runtime.Subscription, 0, len(o.participants)+1)
	cleanup := func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
		if ownBus {
			if err := bus.Close(); err != nil {
				o.opts.Logger.Error("bus close failed", "error", err)
			}
		}
	}

	sub, err := bus.Subscribe(topic, mActor.Handle)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("subscribe manager: %w", err)
	}
	subs = append(subs, sub)

	for _, p := range o.participants {
		actor := NewAgentActor(p, bus, topic, hook, o.opts.Logger, o.opts.OnStream, o.opts.OnResponse)
		sub, err := bus.Subscribe(topic, actor.Handle)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("subscribe participant %s: %w", p.Name(), err)
		}
		subs = append(subs, sub)
	}

	start := core.StartMessage{Body: core.NewUserMessage(task)}
	if err := bus.Publish(ctx, topic, start); err != nil {
		cleanup()
		if ctx.Err() != nil {
			return nil, core.ErrRunCancelled
		}
		return nil, fmt.Errorf("publish start: %w", err)
	}

	o.opts.Logger.Info("run started", "topic", topic, "task", task)

	var outcome runOutcome
	select {
	case outcome = <-outcomes:
	case <-ctx.Done():
		// The manager actor observes cancellation itself, but it may be
		// blocked inside a Manager call that ignores ctx. Don't wait on it.
		cleanup()
		return nil, core.ErrRunCancelled
	}

	cleanup()

	if outcome.err != nil {
		o.opts.Logger.Warn("run failed", "topic", topic, "error", outcome.err)
		return nil, outcome.err
	}

	result := &Result{Answer: outcome.answer}
	if outcome.context != nil {
		result.Transcript = outcome.context.Chat
		result.Rounds = outcome.context.RoundCount
		result.Stalls = outcome.context.StallCount
		result.Resets = outcome.context.ResetCount
	}

	o.opts.Logger.Info("run completed", "topic", topic,
		"rounds", result.Rounds, "resets", result.Resets)

	return result, nil
}
