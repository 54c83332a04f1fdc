package core

import "context"

// Participant is the capability wrapped by an agent actor: given the
// accumulated transcript (whose last message is the manager's instruction or
// question), produce a single response.
//
// Implementations are external collaborators: model-backed workers, tools,
// humans-in-the-loop or test fakes. They must respect context cancellation;
// retry policy for the underlying call belongs to the implementation, never
// to the orchestration layer.
type Participant interface {
	// Name returns the unique roster name of this participant.
	Name() string
	// Description returns a human-readable capability summary used by the
	// manager when planning and selecting speakers.
	Description() string
	// Invoke produces the participant's next turn for the transcript.
	Invoke(ctx context.Context, transcript []ChatMessage) (ChatMessage, error)
}

// StreamingParticipant is optionally implemented by participants that can
// produce their response incrementally. The returned channel yields finite,
// non-restartable text chunks and is closed when the turn is complete; a
// terminal error, if any, is delivered on the error channel (buffered size 1).
type StreamingParticipant interface {
	Participant

	InvokeStreaming(ctx context.Context, transcript []ChatMessage) (<-chan string, <-chan error)
}
