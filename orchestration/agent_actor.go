package orchestration

import (
	"context"

	"github.com/convoke-dev/convoke/core"
	"github.com/convoke-dev/convoke/logging"
	"github.com/convoke-dev/convoke/observe"
	"github.com/convoke-dev/convoke/runtime"
)

// StreamCallback receives incremental output chunks from streaming-capable
// participants as they are produced. Chunks arrive in order for a single turn.
type StreamCallback func(agentName, chunk string)

// ResponseCallback receives each completed participant turn before it is
// broadcast.
type ResponseCallback func(agentName string, msg core.ChatMessage)

// AgentActor wraps a Participant and connects it to the run topic. It keeps a
// private transcript view built purely from broadcast envelopes, so the view
// stays aligned with the manager's without shared state.
//
// The bus serializes Handle invocations per subscriber, so the transcript
// needs no locking.
type AgentActor struct {
	participant core.Participant
	bus         runtime.Bus
	topic       string
	hook        *observe.Hook
	logger      logging.Logger
	onStream    StreamCallback
	onResponse  ResponseCallback

	task core.ChatMessage
	chat []core.ChatMessage
}

// NewAgentActor constructs an agent actor for one run.
func NewAgentActor(
	participant core.Participant,
	bus runtime.Bus,
	topic string,
	hook *observe.Hook,
	logger logging.Logger,
	onStream StreamCallback,
	onResponse ResponseCallback,
) *AgentActor {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &AgentActor{
		participant: participant,
		bus:         bus,
		topic:       topic,
		hook:        hook,
		logger:      logger,
		onStream:    onStream,
		onResponse:  onResponse,
	}
}

// Handle implements the bus handler. Start seeds the private transcript,
// Response appends broadcast content, Reset collapses the transcript back to
// the task, and Request triggers a turn when addressed to this participant.
func (a *AgentActor) Handle(ctx context.Context, env core.Envelope) {
	switch msg := env.(type) {
	case core.StartMessage:
		a.task = msg.Body
		a.chat = []core.ChatMessage{msg.Body}

	case core.ResponseMessage:
		a.chat = append(a.chat, msg.Body)

	case core.ResetMessage:
		a.chat = []core.ChatMessage{a.task}

	case core.RequestMessage:
		if msg.AgentName != a.participant.Name() {
			return
		}
		a.takeTurn(ctx)
	}
}

// takeTurn invokes the participant against the current transcript view and
// broadcasts the reply. The reply is not appended locally; it returns through
// the broadcast like every other message, so it lands in each view exactly
// once. On invocation failure nothing is published and the manager's
// per-round timeout handles recovery.
func (a *AgentActor) takeTurn(ctx context.Context) {
	transcript := make([]core.ChatMessage, len(a.chat))
	copy(transcript, a.chat)

	reply, err := a.invoke(ctx, transcript)
	if err != nil {
		a.logger.Error("participant invocation failed",
			"agent", a.participant.Name(), "error", err)
		ev := observe.NewEvent(observe.KindError, observe.SeverityError,
			a.participant.Name(), "participant invocation failed")
		ev.Details = map[string]any{"error": err.Error()}
		a.hook.Emit(ev)
		return
	}

	if a.onResponse != nil {
		a.onResponse(a.participant.Name(), reply)
	}

	if err := a.bus.Publish(ctx, a.topic, core.ResponseMessage{Body: reply}); err != nil {
		a.logger.Error("failed to publish participant response",
			"agent", a.participant.Name(), "error", err)
	}
}

// invoke runs one turn, preferring the streaming path when both the
// participant and the caller support it.
func (a *AgentActor) invoke(ctx context.Context, transcript []core.ChatMessage) (core.ChatMessage, error) {
	name := a.participant.Name()

	if sp, ok := a.participant.(core.StreamingParticipant); ok && a.onStream != nil {
		chunks, errs := sp.InvokeStreaming(ctx, transcript)

		var content string
		for chunk := range chunks {
			content += chunk
			a.onStream(name, chunk)
		}
		if err := <-errs; err != nil {
			return core.ChatMessage{}, err
		}

		return core.NewAssistantMessage(name, content), nil
	}

	reply, err := a.participant.Invoke(ctx, transcript)
	if err != nil {
		return core.ChatMessage{}, err
	}
	if reply.Name == "" {
		reply.Name = name
	}
	// Replies are always assistant turns; the manager treats system-role
	// broadcasts as its own echoes.
	reply.Role = core.RoleAssistant

	return reply, nil
}
