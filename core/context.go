package core

import "maps"

// RunContext is the mutable orchestration state for a single run. It tracks
// the task, the fixed participant roster, the ordered transcript of exchanged
// messages and the loop counters driving stall detection and reset policy.
//
// Contract:
//   - Exclusively owned and mutated by the manager actor; every other
//     component receives read-only clones
//   - RoundCount increases monotonically within an outer iteration and is
//     zeroed exactly on Reset
//   - ResetCount increases monotonically and never decreases
//   - The transcript always begins with the task message
type RunContext struct {
	// Task is the immutable user goal the run works toward.
	Task ChatMessage
	// Participants maps participant name to a capability description.
	// Fixed for the lifetime of the run.
	Participants map[string]string
	// Chat is the ordered transcript of exchanged messages.
	Chat []ChatMessage
	// RoundCount counts inner-loop iterations since the last reset.
	RoundCount int
	// StallCount counts consecutive rounds judged non-progressing within
	// the current outer iteration.
	StallCount int
	// ResetCount counts outer-loop resets so far.
	ResetCount int
}

// NewRunContext constructs run state for the given task and roster. The
// transcript is seeded with the task message and all counters start at zero.
func NewRunContext(task ChatMessage, participants map[string]string) *RunContext {
	roster := make(map[string]string, len(participants))
	maps.Copy(roster, participants)
	return &RunContext{
		Task:         task,
		Participants: roster,
		Chat:         []ChatMessage{task},
	}
}

// Append adds a message to the transcript.
func (rc *RunContext) Append(msg ChatMessage) {
	rc.Chat = append(rc.Chat, msg)
}

// Reset applies the outer-loop reset: the round and stall counters are
// zeroed, the reset counter is incremented, and the transcript collapses back
// to the task-only state. The roster is untouched.
func (rc *RunContext) Reset() {
	rc.RoundCount = 0
	rc.StallCount = 0
	rc.ResetCount++
	rc.Chat = []ChatMessage{rc.Task}
}

// ParticipantNames returns the roster keys in unspecified order.
func (rc *RunContext) ParticipantNames() []string {
	names := make([]string, 0, len(rc.Participants))
	for name := range rc.Participants {
		names = append(names, name)
	}
	return names
}

// Clone returns a deep copy safe to hand to Manager implementations without
// exposing the actor's internal state to mutation.
func (rc *RunContext) Clone() *RunContext {
	c := &RunContext{
		Task:         rc.Task,
		Participants: make(map[string]string, len(rc.Participants)),
		Chat:         make([]ChatMessage, len(rc.Chat)),
		RoundCount:   rc.RoundCount,
		StallCount:   rc.StallCount,
		ResetCount:   rc.ResetCount,
	}
	maps.Copy(c.Participants, rc.Participants)
	copy(c.Chat, rc.Chat)
	return c
}
