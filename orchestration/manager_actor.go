package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/convoke-dev/convoke/config"
	"github.com/convoke-dev/convoke/core"
	"github.com/convoke-dev/convoke/logging"
	"github.com/convoke-dev/convoke/observe"
	"github.com/convoke-dev/convoke/runtime"
)

// completionFunc delivers the run outcome exactly once: either the final
// answer or the error that aborted the run.
type completionFunc func(answer core.ChatMessage, err error)

// ManagerActor coordinates a single run. It exclusively owns the RunContext
// and drives the planning / inner-loop / outer-loop state machine, exchanging
// request and response envelopes with agent actors over the run topic.
//
// The state machine runs on its own goroutine started by the Start envelope;
// the bus handler only forwards incoming responses into the actor's inbox.
// No other component reads or writes the run context.
type ManagerActor struct {
	ctx      context.Context
	manager  core.Manager
	bus      runtime.Bus
	topic    string
	name     string
	roster   map[string]string
	policy   config.Policy
	hook     *observe.Hook
	logger   logging.Logger
	complete completionFunc

	inbox    chan core.ResponseMessage
	started  atomic.Bool
	finished sync.Once

	rc *core.RunContext
}

// NewManagerActor constructs a manager actor for one run. The actor is inert
// until a StartMessage arrives on the topic.
func NewManagerActor(
	ctx context.Context,
	mgr core.Manager,
	bus runtime.Bus,
	topic string,
	name string,
	roster map[string]string,
	policy config.Policy,
	hook *observe.Hook,
	logger logging.Logger,
	complete completionFunc,
) *ManagerActor {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &ManagerActor{
		ctx:      ctx,
		manager:  mgr,
		bus:      bus,
		topic:    topic,
		name:     name,
		roster:   roster,
		policy:   policy,
		hook:     hook,
		logger:   logger,
		complete: complete,
		inbox:    make(chan core.ResponseMessage, 16),
	}
}

// Handle implements the bus handler. Start launches the state machine;
// responses are forwarded to the inbox; requests and resets are addressed to
// agent actors and ignored here.
func (m *ManagerActor) Handle(_ context.Context, env core.Envelope) {
	switch msg := env.(type) {
	case core.StartMessage:
		if !m.started.CompareAndSwap(false, true) {
			m.logger.Warn("duplicate start message ignored", "topic", m.topic)
			return
		}
		go m.run(msg.Body)

	case core.ResponseMessage:
		if msg.Body.Name == m.name || msg.Body.Role == core.RoleSystem {
			// Own broadcast echoed back; already in the transcript.
			return
		}
		select {
		case m.inbox <- msg:
		default:
			m.logger.Warn("manager inbox full, dropping response", "from", msg.Body.Name)
		}

	default:
	}
}

// run executes Idle → Planning → InnerLoop until a terminal outcome.
func (m *ManagerActor) run(task core.ChatMessage) {
	m.rc = core.NewRunContext(task, m.roster)

	m.emit(observe.KindPlanningStarted, observe.SeverityInfo, "task planning started", map[string]any{
		"task":         task.Content,
		"participants": m.rc.ParticipantNames(),
	})

	planMsg, err := m.manager.Plan(m.ctx, m.rc.Clone())
	if err != nil {
		m.fail(&core.PlanningError{Stage: "plan", Err: err})
		return
	}

	m.emit(observe.KindPlanningCompleted, observe.SeverityInfo, "task planning completed", map[string]any{
		"ledger": planMsg.Content,
	})

	if !m.appendAndBroadcast(planMsg) {
		return
	}

	m.innerLoop()
}

// innerLoop repeats the judge / delegate / await cycle until the request is
// satisfied, a budget forces a final answer, or a failure aborts the run.
func (m *ManagerActor) innerLoop() {
	for {
		if m.ctx.Err() != nil {
			m.fail(core.ErrRunCancelled)
			return
		}

		if m.rc.RoundCount >= m.policy.MaxRounds {
			m.emit(observe.KindError, observe.SeverityWarn, "round budget exhausted, forcing final answer", map[string]any{
				"reason":     "round_budget_exceeded",
				"max_rounds": m.policy.MaxRounds,
			})
			m.finalAnswer()
			return
		}

		ledger, err := m.manager.CreateProgressLedger(m.ctx, m.rc.Clone())
		if err != nil {
			if m.ctx.Err() != nil {
				m.fail(core.ErrRunCancelled)
				return
			}
			var lErr *core.LedgerError
			if !errors.As(err, &lErr) {
				err = &core.LedgerError{Reason: "progress judgment failed", Err: err}
			}
			m.fail(err)
			return
		}

		m.emit(observe.KindProgressLedger, observe.SeverityInfo, "progress ledger created", map[string]any{
			"is_request_satisfied":   ledger.IsRequestSatisfied.Answer,
			"is_in_loop":             ledger.IsInLoop.Answer,
			"is_progress_being_made": ledger.IsProgressBeingMade.Answer,
			"next_speaker":           ledger.NextSpeaker.Answer,
			"instruction":            ledger.InstructionOrQuestion.Answer,
		})

		if ledger.IsRequestSatisfied.Answer {
			m.finalAnswer()
			return
		}

		if ledger.Stalled() {
			m.rc.StallCount++
		} else {
			m.rc.StallCount = 0
		}

		if m.rc.StallCount >= m.policy.MaxStalls {
			if m.rc.ResetCount >= m.policy.MaxResets {
				m.emit(observe.KindError, observe.SeverityWarn, "reset budget exhausted, forcing final answer", map[string]any{
					"reason":     "reset_budget_exceeded",
					"max_resets": m.policy.MaxResets,
				})
				m.finalAnswer()
				return
			}
			if !m.outerReset() {
				return
			}
			continue
		}

		speaker := ledger.NextSpeaker.Answer
		if _, ok := m.rc.Participants[speaker]; !ok {
			m.fail(&core.LedgerError{Reason: fmt.Sprintf("next speaker %q is not in the roster", speaker)})
			return
		}

		m.rc.RoundCount++

		instruction := core.NewAssistantMessage(m.name, ledger.InstructionOrQuestion.Answer)
		if !m.appendAndBroadcast(instruction) {
			return
		}

		m.emit(observe.KindRequestSent, observe.SeverityInfo, "turn delegated", map[string]any{
			"agent":       speaker,
			"instruction": instruction.Content,
		})

		if err := m.bus.Publish(m.ctx, m.topic, core.RequestMessage{AgentName: speaker}); err != nil {
			m.fail(m.cancelOr(err))
			return
		}

		resp, err := m.awaitResponse(speaker)
		if err != nil {
			m.fail(err)
			return
		}

		m.emit(observe.KindResponseReceived, observe.SeverityInfo, "agent response received", map[string]any{
			"agent":   resp.Name,
			"content": resp.Content,
		})

		m.rc.Append(resp)
	}
}

// outerReset broadcasts Reset to all agents, zeroes the loop counters and
// replans from everything learned so far. Returns false if the run ended.
func (m *ManagerActor) outerReset() bool {
	snapshot := m.rc.Clone()

	m.emit(observe.KindOuterReset, observe.SeverityWarn, "stall threshold reached, resetting for outer loop", map[string]any{
		"stall_count": m.rc.StallCount,
		"reset_count": m.rc.ResetCount,
	})

	if err := m.bus.Publish(m.ctx, m.topic, core.ResetMessage{}); err != nil {
		m.fail(m.cancelOr(err))
		return false
	}

	m.rc.Reset()

	m.emit(observe.KindReplanningStarted, observe.SeverityInfo, "task replanning started", nil)

	// Replan sees the pre-reset transcript so nothing learned is lost.
	replanMsg, err := m.manager.Replan(m.ctx, snapshot)
	if err != nil {
		if m.ctx.Err() != nil {
			m.fail(core.ErrRunCancelled)
			return false
		}
		m.fail(&core.PlanningError{Stage: "replan", Err: err})
		return false
	}

	m.emit(observe.KindReplanningCompleted, observe.SeverityInfo, "task replanning completed", map[string]any{
		"ledger": replanMsg.Content,
	})

	return m.appendAndBroadcast(replanMsg)
}

// finalAnswer synthesizes and delivers the terminal result.
func (m *ManagerActor) finalAnswer() {
	if m.ctx.Err() != nil {
		m.fail(core.ErrRunCancelled)
		return
	}

	answer, err := m.manager.PrepareFinalAnswer(m.ctx, m.rc.Clone())
	if err != nil {
		if m.ctx.Err() != nil {
			m.fail(core.ErrRunCancelled)
			return
		}
		m.fail(&core.PlanningError{Stage: "final_answer", Err: err})
		return
	}

	m.emit(observe.KindFinalAnswer, observe.SeverityInfo, "final answer prepared", map[string]any{
		"answer": answer.Content,
	})

	m.finish(answer, nil)
}

// awaitResponse blocks until the awaited participant answers, the per-round
// timeout elapses, or the run is cancelled. Responses from any other
// participant (including duplicate deliveries of already-consumed responses)
// are discarded with a warning, protecting the single-outstanding-request
// discipline.
func (m *ManagerActor) awaitResponse(speaker string) (core.ChatMessage, error) {
	var timeout <-chan time.Time
	if m.policy.RoundTimeout > 0 {
		timer := time.NewTimer(m.policy.RoundTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case msg := <-m.inbox:
			if msg.Body.Name != speaker {
				m.logger.Warn("discarding response from non-awaited participant",
					"from", msg.Body.Name, "awaiting", speaker)
				continue
			}
			return msg.Body, nil

		case <-timeout:
			return core.ChatMessage{}, &core.DeliveryTimeoutError{Agent: speaker, Timeout: m.policy.RoundTimeout}

		case <-m.ctx.Done():
			return core.ChatMessage{}, core.ErrRunCancelled
		}
	}
}

// appendAndBroadcast records a manager-authored message in the transcript and
// broadcasts it so every agent's private view stays aligned. Returns false if
// the run ended.
func (m *ManagerActor) appendAndBroadcast(msg core.ChatMessage) bool {
	m.rc.Append(msg)

	if err := m.bus.Publish(m.ctx, m.topic, core.ResponseMessage{Body: msg}); err != nil {
		m.fail(m.cancelOr(err))
		return false
	}

	return true
}

// cancelOr maps publish failures caused by cancellation onto ErrRunCancelled.
func (m *ManagerActor) cancelOr(err error) error {
	if m.ctx.Err() != nil {
		return core.ErrRunCancelled
	}
	return err
}

// fail records the failure on the lifecycle hook and completes the run.
func (m *ManagerActor) fail(err error) {
	severity := observe.SeverityError
	if errors.Is(err, core.ErrRunCancelled) {
		severity = observe.SeverityWarn
	}
	m.emit(observe.KindError, severity, "run failed", map[string]any{"error": err.Error()})

	m.finish(core.ChatMessage{}, err)
}

// finish delivers the outcome exactly once.
func (m *ManagerActor) finish(answer core.ChatMessage, err error) {
	m.finished.Do(func() {
		m.complete(answer, err)
	})
}

// emit publishes a lifecycle event stamped with the current loop counters.
func (m *ManagerActor) emit(kind observe.Kind, severity observe.Severity, msg string, details map[string]any) {
	ev := observe.NewEvent(kind, severity, m.name, msg)
	ev.Details = details
	if m.rc != nil {
		ev.Counters = observe.Counters{
			Round: m.rc.RoundCount,
			Stall: m.rc.StallCount,
			Reset: m.rc.ResetCount,
		}
	}
	m.hook.Emit(ev)
}
