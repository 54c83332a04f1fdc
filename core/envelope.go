package core

// Envelope is a polymorphic bus message exchanged between actors. Concrete
// envelope types implement the unexported isEnvelope marker enabling a closed
// set. Envelopes are immutable; ownership transfers to the receiving actor on
// delivery.
type Envelope interface{ isEnvelope() }

// StartMessage begins a run. Body carries the task; it is published exactly
// once per run by the driver.
type StartMessage struct {
	Body ChatMessage
}

// isEnvelope implements the Envelope interface for StartMessage.
func (StartMessage) isEnvelope() {}

// RequestMessage asks the named participant to take the next turn. Agent
// actors are broadcast-subscribed and self-filter on AgentName.
type RequestMessage struct {
	AgentName string
}

// isEnvelope implements the Envelope interface for RequestMessage.
func (RequestMessage) isEnvelope() {}

// ResponseMessage broadcasts a conversational turn (a participant's answer or
// the manager's instruction) to every actor on the run topic.
type ResponseMessage struct {
	Body ChatMessage
}

// isEnvelope implements the Envelope interface for ResponseMessage.
func (ResponseMessage) isEnvelope() {}

// ResetMessage instructs agent actors to clear their private transcript view
// back to the task-only state. It does not affect the manager's task ledger.
type ResetMessage struct{}

// isEnvelope implements the Envelope interface for ResetMessage.
func (ResetMessage) isEnvelope() {}
